// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package picker

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/sage-tui/sage/internal/logging"
)

// DefaultDebounce coalesces bursts of events such as a browser writing a
// download in several chunks.
const DefaultDebounce = 150 * time.Millisecond

// =============================================================================
// DIRECTORY WATCHER
// =============================================================================

// Watcher reports changes in the directory the picker is showing.
// Only one directory is watched at a time; Watch swaps it.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger

	mu  sync.Mutex
	dir string

	changes chan DirChangedMsg
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher starts a watcher with no directory.
func NewWatcher(debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher:  fw,
		debounce: debounce,
		logger:   logging.OrNop(logger),
		changes:  make(chan DirChangedMsg, 1),
		ctx:      ctx,
		cancel:   cancel,
	}

	w.wg.Add(1)
	go w.processEvents()
	return w, nil
}

// Watch replaces the watched directory with dir.
func (w *Watcher) Watch(dir string) error {
	dir = filepath.Clean(dir)

	w.mu.Lock()
	defer w.mu.Unlock()
	if dir == w.dir {
		return nil
	}
	if w.dir != "" {
		_ = w.watcher.Remove(w.dir)
	}
	if err := w.watcher.Add(dir); err != nil {
		w.dir = ""
		return err
	}
	w.dir = dir
	w.logger.Debug("watching directory", zap.String("dir", dir))
	return nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dir
}

// Next returns a command that waits for the next change. It yields nil
// once the watcher is closed.
func (w *Watcher) Next() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-w.changes:
			return msg
		case <-w.ctx.Done():
			return nil
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

// processEvents forwards debounced changes until the watcher is closed.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	var pendingDir string

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			pendingDir = filepath.Dir(event.Name)
			timer.Reset(w.debounce)

		case <-timer.C:
			if pendingDir == "" {
				continue
			}
			msg := DirChangedMsg{Dir: pendingDir}
			pendingDir = ""
			// Drop the signal when one is already queued; a reread covers both.
			select {
			case w.changes <- msg:
			default:
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}
