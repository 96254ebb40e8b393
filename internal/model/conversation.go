// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/sage-tui/sage/internal/ollama"
)

// MaxMessages is the maximum number of messages kept in memory.
// When exceeded, the oldest messages are dropped.
const MaxMessages = 1000

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds the in-memory transcript of a session.
type Conversation struct {
	ID        string
	Title     string
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time

	Messages []*Message

	// SystemPrompt is sent ahead of every request when set.
	SystemPrompt string
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0),
	}
}

// NewConversationWithModel creates an empty conversation bound to a model.
func NewConversationWithModel(model string) *Conversation {
	conv := NewConversation()
	conv.Model = model
	return conv
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends a message, pruning the oldest beyond MaxMessages.
func (c *Conversation) AddMessage(msg *Message) {
	c.Messages = append(c.Messages, msg)
	if len(c.Messages) > MaxMessages {
		drop := len(c.Messages) - MaxMessages
		copy(c.Messages, c.Messages[drop:])
		for i := MaxMessages; i < len(c.Messages); i++ {
			c.Messages[i] = nil
		}
		c.Messages = c.Messages[:MaxMessages]
	}
	c.UpdatedAt = time.Now()
}

// AddUserMessage adds a plain user message.
func (c *Conversation) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.AddMessage(msg)
	return msg
}

// AddUserMessageWithAttachment adds a user message carrying a manifest.
func (c *Conversation) AddUserMessageWithAttachment(content string, att *Attachment) *Message {
	msg := NewUserMessage(content)
	msg.Attachment = att
	c.AddMessage(msg)
	return msg
}

// AddAssistantMessage adds an empty streaming assistant message.
func (c *Conversation) AddAssistantMessage() *Message {
	msg := NewAssistantMessage()
	c.AddMessage(msg)
	return msg
}

// AddNotice adds a transcript-only notice.
func (c *Conversation) AddNotice(content string) *Message {
	msg := NewNotice(content)
	c.AddMessage(msg)
	return msg
}

// GetLastMessage returns the most recent message or nil.
func (c *Conversation) GetLastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// AppendToLast appends a streamed token to the last message.
func (c *Conversation) AppendToLast(token string) {
	if last := c.GetLastMessage(); last != nil {
		last.AppendToken(token)
	}
}

// FinalizeLast completes streaming on the last message.
func (c *Conversation) FinalizeLast(stats *Statistics) {
	if last := c.GetLastMessage(); last != nil {
		last.FinalizeStream(stats)
		c.UpdatedAt = time.Now()
	}
}

// RemoveLastIfEmpty drops a trailing assistant message that never
// received content, as left behind by a failed stream.
func (c *Conversation) RemoveLastIfEmpty() {
	last := c.GetLastMessage()
	if last != nil && last.Role == RoleAssistant && last.IsEmpty() {
		c.Messages = c.Messages[:len(c.Messages)-1]
	}
}

// ClearHistory removes all messages.
func (c *Conversation) ClearHistory() {
	c.Messages = make([]*Message, 0)
	c.UpdatedAt = time.Now()
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if the conversation has no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// =============================================================================
// OLLAMA CONVERSION
// =============================================================================

// ToOllamaMessages converts the transcript to the wire format. Notices and
// empty messages are skipped; user messages with an attachment carry the
// hidden text ahead of the typed content.
func (c *Conversation) ToOllamaMessages() []ollama.Message {
	messages := make([]ollama.Message, 0, len(c.Messages)+1)
	if c.SystemPrompt != "" {
		messages = append(messages, ollama.NewSystemMessage(c.SystemPrompt))
	}

	for _, msg := range c.Messages {
		if msg.Local {
			continue
		}
		switch msg.Role {
		case RoleUser, RoleAssistant, RoleSystem:
		default:
			continue
		}
		content := msg.WireContent()
		if content == "" {
			continue
		}
		messages = append(messages, ollama.Message{
			Role:    msg.Role.String(),
			Content: content,
		})
	}
	return messages
}
