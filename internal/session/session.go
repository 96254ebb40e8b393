// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/sage-tui/sage/internal/model"
	"github.com/sage-tui/sage/internal/storage"
)

// DefaultName is used when no session name is configured.
const DefaultName = "SAGE Session"

// ErrNoModel is returned when Bootstrap is called without a model name.
var ErrNoModel = errors.New("session: model name is required")

// Store persists session records. *storage.SessionStore satisfies it.
type Store interface {
	Save(ctx context.Context, rec *storage.SessionRecord) error
	Touch(ctx context.Context, id string) error
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the live chat session the TUI opens into.
type Session struct {
	ID        string
	Name      string
	Model     string
	CreatedAt time.Time

	// Conversation holds the in-memory transcript. It is never written to disk.
	Conversation *model.Conversation

	mu           sync.Mutex
	lastActivity time.Time
	store        Store
}

// Bootstrap creates a new session, persists its record and returns it.
// An empty name falls back to DefaultName.
func Bootstrap(ctx context.Context, store Store, name, modelName string) (*Session, error) {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		return nil, ErrNoModel
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}

	now := time.Now()
	s := &Session{
		ID:           uuid.New().String(),
		Name:         name,
		Model:        modelName,
		CreatedAt:    now,
		lastActivity: now,
		store:        store,
	}
	s.Conversation = model.NewConversationWithModel(modelName)
	s.Conversation.ID = s.ID
	s.Conversation.Title = name

	if store != nil {
		if err := store.Save(ctx, s.Record()); err != nil {
			return nil, fmt.Errorf("save session %q: %w", name, err)
		}
	}
	return s, nil
}

// Record returns the persistent form of the session.
func (s *Session) Record() *storage.SessionRecord {
	return &storage.SessionRecord{
		ID:        s.ID,
		Name:      s.Name,
		Model:     s.Model,
		CreatedAt: s.CreatedAt,
		OpenedAt:  s.CreatedAt,
	}
}

// SetModel switches the model used for subsequent requests.
func (s *Session) SetModel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Model = name
	if s.Conversation != nil {
		s.Conversation.Model = name
	}
}

// CurrentModel returns the model name under the session lock.
func (s *Session) CurrentModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Model
}

// =============================================================================
// ACTIVITY
// =============================================================================

// RecordActivity marks user activity and bumps opened_at in the store.
func (s *Session) RecordActivity(ctx context.Context) error {
	s.mu.Lock()
	s.lastActivity = time.Now()
	store := s.store
	s.mu.Unlock()

	if store == nil {
		return nil
	}
	return store.Touch(ctx, s.ID)
}

// Duration returns how long the session has been open.
func (s *Session) Duration() time.Duration {
	return time.Since(s.CreatedAt)
}

// Status is a snapshot for the status bar.
type Status struct {
	ID       string
	Name     string
	Model    string
	Duration time.Duration
	IdleTime time.Duration
	Messages int
}

// GetStatus returns the current session status.
func (s *Session) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		ID:       s.ID,
		Name:     s.Name,
		Model:    s.Model,
		Duration: time.Since(s.CreatedAt),
		IdleTime: time.Since(s.lastActivity),
	}
	if s.Conversation != nil {
		st.Messages = s.Conversation.MessageCount()
	}
	return st
}

// FormatDuration renders d as "1h02m", "3m05s" or "42s".
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	sec := int(d/time.Second) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, sec)
	default:
		return fmt.Sprintf("%ds", sec)
	}
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TickMsg is sent periodically so the status bar can refresh the uptime.
type TickMsg struct {
	Time time.Time
}

// TickCmd returns a command that ticks once per second.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
