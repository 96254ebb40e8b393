// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "SAGE"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// ATTACHMENT TYPE
// =============================================================================

// HiddenSeparator joins an attachment's hidden text to the typed message.
const HiddenSeparator = "\n\n"

// Attachment is an ingested manifest riding on a user message.
type Attachment struct {
	// Filename is shown as a chip next to the message.
	Filename string

	// Hidden is sent to the model ahead of the typed text and never rendered.
	Hidden string

	// Failed marks an attachment whose Hidden text is an inline read error.
	Failed bool
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in the transcript.
type Message struct {
	ID        string
	Role      Role
	Timestamp time.Time

	// Content is what the user sees.
	Content string

	// Attachment is nil for plain messages.
	Attachment *Attachment

	// Local messages are transcript notices that are never sent to the model.
	Local bool

	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	IsStreaming   bool
	streamContent strings.Builder

	TokenCount    int
	TotalDuration time.Duration
	TokensPerSec  float64
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates an empty assistant message ready for streaming.
func NewAssistantMessage() *Message {
	msg := NewMessage(RoleAssistant, "")
	msg.IsStreaming = true
	return msg
}

// NewSystemMessage creates a system message that is sent to the model.
func NewSystemMessage(content string) *Message {
	return NewMessage(RoleSystem, content)
}

// NewNotice creates a transcript-only system message.
func NewNotice(content string) *Message {
	msg := NewMessage(RoleSystem, content)
	msg.Local = true
	return msg
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// AppendToken appends a token to a streaming message.
func (m *Message) AppendToken(token string) {
	if m.IsStreaming {
		m.streamContent.WriteString(token)
	}
}

// FinalizeStream completes streaming and records statistics.
func (m *Message) FinalizeStream(stats *Statistics) {
	if !m.IsStreaming {
		return
	}
	m.Content = m.streamContent.String()
	m.streamContent.Reset()
	m.IsStreaming = false

	if stats != nil {
		m.TotalDuration = stats.TotalDuration
		m.TokenCount = stats.CompletionTokens
		m.TokensPerSec = stats.TokensPerSecond
	}
}

// GetDisplayContent returns the content to display (streaming or final).
func (m *Message) GetDisplayContent() string {
	if m.IsStreaming {
		return m.streamContent.String()
	}
	return m.Content
}

// WireContent returns what the model receives for this message: the hidden
// attachment text, a blank line, then the visible content. With no typed
// content the hidden text is sent alone.
func (m *Message) WireContent() string {
	content := m.GetDisplayContent()
	if m.Attachment == nil || m.Attachment.Hidden == "" {
		return content
	}
	if content == "" {
		return m.Attachment.Hidden
	}
	return m.Attachment.Hidden + HiddenSeparator + content
}

// HasAttachment reports whether the message carries a manifest.
func (m *Message) HasAttachment() bool {
	return m.Attachment != nil
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}

// FormatStats returns "2.5s | 128 tokens | 51.2 tok/s" for finished
// assistant messages, or "".
func (m *Message) FormatStats() string {
	if m.Role != RoleAssistant || m.TotalDuration == 0 {
		return ""
	}
	return fmt.Sprintf("%s | %d tokens | %.1f tok/s",
		formatDuration(m.TotalDuration), m.TokenCount, m.TokensPerSec)
}

// =============================================================================
// STATISTICS TYPE
// =============================================================================

// Statistics holds timing and token count information for a generation.
type Statistics struct {
	StartTime      time.Time
	FirstTokenTime time.Time

	PromptTokens     int
	CompletionTokens int

	TTFT            time.Duration
	TotalDuration   time.Duration
	TokensPerSecond float64
}

// NewStatistics creates a new Statistics with the start time set.
func NewStatistics() *Statistics {
	return &Statistics{StartTime: time.Now()}
}

// RecordFirstToken records when the first token was received.
func (s *Statistics) RecordFirstToken() {
	if s.FirstTokenTime.IsZero() {
		s.FirstTokenTime = time.Now()
		s.TTFT = s.FirstTokenTime.Sub(s.StartTime)
	}
}

// Finalize computes the final statistics.
func (s *Statistics) Finalize(tokenCount int) {
	s.CompletionTokens = tokenCount
	s.TotalDuration = time.Since(s.StartTime)
	if s.TotalDuration > 0 {
		s.TokensPerSecond = float64(tokenCount) / s.TotalDuration.Seconds()
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func generateID() string {
	return "msg_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
