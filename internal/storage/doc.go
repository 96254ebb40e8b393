// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists SAGE session records in SQLite.
//
// Only session metadata is stored (id, name, model, timestamps). Chat
// messages live in memory for the lifetime of the TUI and are never
// written to disk.
//
// # Usage
//
//	store, err := storage.OpenSessionStore(cfg.DBPath())
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	err = store.Save(ctx, &storage.SessionRecord{ID: id, Name: "SAGE Session"})
package storage
