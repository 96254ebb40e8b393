// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the chat transcript.
//
// # Key Types
//
//   - Conversation: the in-memory transcript of the SAGE session
//   - Message: a single message; user messages may carry an Attachment
//   - Attachment: a manifest payload sent to the model but not displayed
//   - Role: message role enumeration (user, assistant, system)
//
// Conversations are never persisted. ToOllamaMessages is the only place
// where hidden attachment text is joined onto the visible content.
//
// # Usage
//
//	conv := model.NewConversationWithModel("mistral-7b-sage")
//	conv.AddUserMessageWithAttachment("Summarise this", &model.Attachment{
//	    Filename: "invoice.pdf",
//	    Hidden:   prompt,
//	})
//	msgs := conv.ToOllamaMessages()
package model
