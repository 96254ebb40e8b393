// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui hosts the root Bubble Tea model of the SAGE terminal front-end.
//
// The root model owns the chat view and, while it is open, the manifest
// picker overlay. Ctrl+O opens the picker; an ingested manifest is handed
// to the chat view as the pending attachment for the next message. Run
// builds the program and points the chat's stream runner at it so tokens
// can be posted from the streaming goroutine.
package ui
