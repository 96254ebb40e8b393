// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session creates the chat session SAGE opens on startup.
//
// A session is a named record (uuid, name, model, creation time) persisted
// in the SQLite session store. Chat messages are never persisted; the
// record only lets the user see which sessions were opened and when.
//
// # Usage
//
//	store, _ := storage.OpenSessionStore(config.DBPath())
//	sess, err := session.Bootstrap(ctx, store, "SAGE Session", "mistral-7b-sage")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(sess.ID, sess.Duration())
package session
