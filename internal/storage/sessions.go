// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/sage-tui/sage/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrSessionNotFound is returned when a session doesn't exist.
// Use errors.Is(err, ErrSessionNotFound) to check for this error.
var ErrSessionNotFound = &StoreError{Message: "session not found"}

// StoreError represents a session store error.
type StoreError struct {
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing store errors.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	return ok && e.Message == t.Message
}

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	model      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	opened_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at DESC);
`

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionRecord is the persisted part of a chat session.
type SessionRecord struct {
	ID        string
	Name      string
	Model     string
	CreatedAt time.Time
	OpenedAt  time.Time
}

// SessionStore is a SQLite-backed table of session records.
// It is safe for concurrent use.
type SessionStore struct {
	db   *sql.DB
	path string
}

// OpenSessionStore opens (creating if needed) the database at path.
// ":memory:" gives a private in-memory store.
func OpenSessionStore(path string) (*SessionStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SessionStore{db: db, path: path}, nil
}

// Path returns the database path.
func (s *SessionStore) Path() string {
	return s.path
}

// Close closes the database.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a session record. Zero timestamps are set to now.
func (s *SessionStore) Save(ctx context.Context, rec *SessionRecord) error {
	if rec == nil || rec.ID == "" {
		return errors.New("session record requires an id")
	}
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.OpenedAt.IsZero() {
		rec.OpenedAt = rec.CreatedAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, name, model, created_at, opened_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Model, rec.CreatedAt.UnixMilli(), rec.OpenedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get loads a session record by id.
func (s *SessionStore) Get(ctx context.Context, id string) (*SessionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, model, created_at, opened_at FROM sessions WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return rec, nil
}

// List returns the most recently created sessions first. A non-positive
// limit returns all of them.
func (s *SessionStore) List(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, model, created_at, opened_at FROM sessions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Touch updates a session's opened_at timestamp.
func (s *SessionStore) Touch(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET opened_at = ? WHERE id = ?`, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Delete removes a session record.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Count returns the number of stored sessions.
func (s *SessionStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(sc scanner) (*SessionRecord, error) {
	var (
		rec             SessionRecord
		created, opened int64
	)
	if err := sc.Scan(&rec.ID, &rec.Name, &rec.Model, &created, &opened); err != nil {
		return nil, err
	}
	rec.CreatedAt = time.UnixMilli(created)
	rec.OpenedAt = time.UnixMilli(opened)
	return &rec, nil
}

// =============================================================================
// SESSION LIST FORMATTING
// =============================================================================

// FormatSessionList renders records as a fixed-width table.
func FormatSessionList(records []SessionRecord) string {
	if len(records) == 0 {
		return "No sessions found."
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("ID", 10) + " " + util.PadRight("Created", 17) + " " + util.PadRight("Model", 20) + " Name\n")
	sb.WriteString(strings.Repeat("-", 64) + "\n")
	for _, r := range records {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		sb.WriteString(util.PadRight(id, 10) + " " +
			util.PadRight(r.CreatedAt.Format("2006-01-02 15:04"), 17) + " " +
			util.PadRight(util.TruncateWidth(r.Model, 20), 20) + " " +
			util.TruncateWidth(r.Name, 30) + "\n")
	}
	return sb.String()
}
