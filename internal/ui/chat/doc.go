// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the chat view of the SAGE TUI.

The view shows the session transcript, an input line and a status bar.
An ingested manifest is attached with Attach; it stays pending until the
next message is submitted. That message is sent to the model as

	hidden manifest prompt + "\n\n" + typed text

while the transcript shows only the typed text and a chip with the file
name. Esc drops a pending attachment, or cancels a running generation.

# Streaming

Submitting emits a StreamRequestMsg. The model answers it by running a
StreamRunner in a tea.Cmd; tokens reach the program through a Sender
(normally the *tea.Program) in batches throttled by a rate limiter, and
the command's return value is the final StreamCompleteMsg, StreamErrorMsg
or StreamCancelledMsg.

# Key Bindings

	Enter      Send message
	Esc        Drop attachment / cancel generation
	PgUp/PgDn  Scroll transcript
	Ctrl+L     Clear transcript
*/
package chat
