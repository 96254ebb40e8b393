// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sage-tui/sage/internal/logging"
	"github.com/sage-tui/sage/internal/model"
	"github.com/sage-tui/sage/internal/ollama"
)

// DefaultTokenFPS caps how often token batches are posted to the program.
const DefaultTokenFPS = 30

// Streamer is the part of the Ollama client the runner needs.
type Streamer interface {
	ChatStream(ctx context.Context, model string, messages []ollama.Message, callback ollama.StreamCallback) error
}

// Sender posts messages into a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// =============================================================================
// STREAM RUNNER
// =============================================================================

// StreamRunner runs one generation at a time and forwards tokens to a Sender.
type StreamRunner struct {
	client Streamer
	sender Sender
	fps    int
	logger *zap.Logger
}

// NewStreamRunner creates a runner. sender may be set later with SetSender
// since the program does not exist until the root model is built.
func NewStreamRunner(client Streamer, sender Sender, logger *zap.Logger) *StreamRunner {
	return &StreamRunner{
		client: client,
		sender: sender,
		fps:    DefaultTokenFPS,
		logger: logging.OrNop(logger),
	}
}

// SetSender sets the program tokens are posted to.
func (r *StreamRunner) SetSender(s Sender) {
	r.sender = s
}

// SetFPS changes the token batch rate. Non-positive values are ignored.
func (r *StreamRunner) SetFPS(fps int) {
	if fps > 0 {
		r.fps = fps
	}
}

// Run streams a chat completion. Token batches are posted through the
// Sender as StreamTokenMsg; the returned message is the terminal one.
func (r *StreamRunner) Run(ctx context.Context, modelName string, messages []ollama.Message, messageID string) tea.Msg {
	if r.client == nil {
		return StreamErrorMsg{MessageID: messageID, Error: ollama.ErrNotRunning}
	}

	stats := model.NewStatistics()
	limiter := rate.NewLimiter(rate.Every(time.Second/time.Duration(r.fps)), 1)
	var buf strings.Builder
	first := true

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		if r.sender != nil {
			r.sender.Send(StreamTokenMsg{MessageID: messageID, Token: buf.String(), IsFirst: first})
		}
		first = false
		buf.Reset()
	}

	err := r.client.ChatStream(ctx, modelName, messages, func(chunk ollama.StreamChunk) {
		if chunk.Content != "" {
			stats.RecordFirstToken()
			buf.WriteString(chunk.Content)
			if limiter.Allow() {
				flush()
			}
		}
		if chunk.Done {
			stats.PromptTokens = chunk.PromptTokens
			stats.Finalize(chunk.CompletionTokens)
		}
	})
	flush()

	switch {
	case err == nil:
		if stats.TotalDuration == 0 {
			stats.Finalize(0)
		}
		r.logger.Debug("stream complete",
			zap.String("model", modelName),
			zap.Int("tokens", stats.CompletionTokens),
			zap.Duration("duration", stats.TotalDuration))
		return StreamCompleteMsg{MessageID: messageID, Stats: stats}
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		r.logger.Info("stream cancelled", zap.String("model", modelName))
		return StreamCancelledMsg{MessageID: messageID}
	default:
		r.logger.Warn("stream failed", zap.String("model", modelName), zap.Error(err))
		return StreamErrorMsg{MessageID: messageID, Error: err}
	}
}
