// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/sage-tui/sage/internal/model"
	"github.com/sage-tui/sage/internal/ollama"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamRequestMsg asks the chat model to start a generation.
type StreamRequestMsg struct {
	MessageID string
	Model     string
	Messages  []ollama.Message
}

// StreamTokenMsg carries one or more tokens for the streaming message.
type StreamTokenMsg struct {
	MessageID string
	Token     string
	IsFirst   bool
}

// StreamCompleteMsg ends a generation successfully.
type StreamCompleteMsg struct {
	MessageID string
	Stats     *model.Statistics
}

// StreamErrorMsg ends a generation with an error.
type StreamErrorMsg struct {
	MessageID string
	Error     error
}

// StreamCancelledMsg ends a generation the user cancelled.
type StreamCancelledMsg struct {
	MessageID string
}

// =============================================================================
// STATUS MESSAGES
// =============================================================================

// StatusClearMsg clears a flashed status if it is still the current one.
type StatusClearMsg struct {
	Seq int
}

// StatusFlashDuration is how long a flashed status stays visible.
const StatusFlashDuration = 4 * time.Second
