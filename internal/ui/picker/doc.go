// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package picker provides the manifest picker overlay of the SAGE TUI.
//
// The picker wraps the bubbles filepicker with an editable browse root.
// Selecting a file emits FileSelectedMsg; the picker answers it by running
// the manifest ingestion pipeline and emitting IngestedMsg, which the root
// model hands to the chat view as a pending attachment. A typed root is
// accepted only when it names an existing directory.
//
// With Options.Watch set, the listed directory is watched with fsnotify so
// files that appear while the picker is open show up without a refresh.
package picker
