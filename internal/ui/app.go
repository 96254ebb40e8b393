// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sage-tui/sage/internal/logging"
	"github.com/sage-tui/sage/internal/manifest"
	"github.com/sage-tui/sage/internal/ollama"
	"github.com/sage-tui/sage/internal/session"
	"github.com/sage-tui/sage/internal/ui/chat"
	"github.com/sage-tui/sage/internal/ui/picker"
	"github.com/sage-tui/sage/internal/ui/styles"
)

// checkTimeout bounds the startup reachability probe.
const checkTimeout = 5 * time.Second

// Checker probes the model runtime.
type Checker interface {
	CheckRunning(ctx context.Context) error
}

// Options configures the root model.
type Options struct {
	// Theme mode: "auto", "dark" or "light".
	ThemeMode string

	// Markdown enables glamour rendering of assistant replies.
	Markdown bool

	// BrowseRoot is the picker's configured starting directory.
	BrowseRoot string

	// Home overrides the home directory used for the default browse root.
	Home string

	// Watch refreshes the picker listing when files change on disk.
	Watch bool

	Ingester *manifest.Ingester
	Runner   *chat.StreamRunner
	Checker  Checker
	Logger   *zap.Logger
}

// RuntimeCheckMsg reports the startup reachability probe.
type RuntimeCheckMsg struct {
	Err error
}

// activityMsg is the result of persisting session activity.
type activityMsg struct {
	Err error
}

// =============================================================================
// APPLICATION MODEL
// =============================================================================

// App is the root model: the chat view plus the manifest picker overlay.
type App struct {
	theme   *styles.Theme
	keys    KeyMap
	session *session.Session

	chat       chat.Model
	picker     picker.Model
	showPicker bool
	browseRoot string

	opts   Options
	logger *zap.Logger

	width  int
	height int
}

// New creates the root model for sess.
func New(sess *session.Session, opts Options) *App {
	theme := styles.NewThemeWithMode(opts.ThemeMode)
	logger := logging.OrNop(opts.Logger)
	if opts.Ingester == nil {
		opts.Ingester = manifest.NewIngester(nil, 0, logger)
	}

	c := chat.New(theme, sess.Conversation, chat.Options{
		SessionName: sess.Name,
		ModelName:   sess.CurrentModel(),
		Markdown:    opts.Markdown,
		Runner:      opts.Runner,
		Logger:      logger,
	})
	c.AddNotice(WelcomeText(sess.Name, sess.CurrentModel()))

	return &App{
		theme:      theme,
		keys:       DefaultKeyMap(),
		session:    sess,
		chat:       c,
		browseRoot: opts.BrowseRoot,
		opts:       opts,
		logger:     logger,
	}
}

// WelcomeText is the first transcript notice of a session.
func WelcomeText(name, modelName string) string {
	return fmt.Sprintf("Session '%s' ready on model %s. Press Ctrl+O to attach a manifest.", name, modelName)
}

// Chat returns the chat view.
func (a *App) Chat() *chat.Model { return &a.chat }

// PickerOpen reports whether the picker overlay is shown.
func (a *App) PickerOpen() bool { return a.showPicker }

// BrowseRoot returns the root the picker opens in next time.
func (a *App) BrowseRoot() string { return a.browseRoot }

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the chat view, the session clock and the runtime probe.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.chat.Init(),
		session.TickCmd(),
		a.checkRuntime(),
	)
}

// Update handles messages and updates the model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.theme.SetSize(msg.Width, msg.Height)
		a.chat.SetSize(msg.Width, msg.Height)
		if a.showPicker {
			a.picker.SetSize(msg.Width, msg.Height)
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case session.TickMsg:
		a.chat.SetSessionMeta(session.FormatDuration(a.session.Duration()))
		return a, session.TickCmd()

	case RuntimeCheckMsg:
		if msg.Err != nil {
			text := "Model runtime unreachable: " + msg.Err.Error()
			if hint := ollama.Hint(msg.Err); hint != "" {
				text += " " + hint
			}
			a.chat.AddNotice(text)
		}
		return a, nil

	case activityMsg:
		if msg.Err != nil {
			a.logger.Warn("record session activity", zap.Error(msg.Err))
		}
		return a, nil

	case picker.IngestedMsg:
		a.closePicker()
		return a, a.chat.Attach(msg.Result)

	case picker.CancelledMsg:
		a.closePicker()
		return a, nil

	case picker.RootChangedMsg:
		a.browseRoot = msg.Root
		return a, nil

	case chat.StreamRequestMsg:
		cmd := a.updateChat(msg)
		return a, tea.Batch(cmd, a.recordActivity())
	}

	// Everything else reaches the chat; the picker also needs its own
	// directory reads and watch events while it is open.
	cmds := []tea.Cmd{a.updateChat(msg)}
	if a.showPicker {
		var cmd tea.Cmd
		a.picker, cmd = a.picker.Update(msg)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		a.closePicker()
		return a, tea.Quit

	case key.Matches(msg, a.keys.Attach):
		if a.showPicker {
			a.closePicker()
			return a, nil
		}
		return a, a.openPicker()
	}

	if a.showPicker {
		var cmd tea.Cmd
		a.picker, cmd = a.picker.Update(msg)
		return a, cmd
	}
	return a, a.updateChat(msg)
}

func (a *App) updateChat(msg tea.Msg) tea.Cmd {
	updated, cmd := a.chat.Update(msg)
	a.chat = updated.(chat.Model)
	return cmd
}

// =============================================================================
// PICKER
// =============================================================================

func (a *App) openPicker() tea.Cmd {
	a.picker = picker.New(a.theme, a.opts.Ingester, picker.Options{
		Root:   a.browseRoot,
		Home:   a.opts.Home,
		Watch:  a.opts.Watch,
		Logger: a.logger,
	})
	if a.width > 0 {
		a.picker.SetSize(a.width, a.height)
	}
	a.showPicker = true
	a.chat.Blur()
	return a.picker.Init()
}

func (a *App) closePicker() {
	if !a.showPicker {
		return
	}
	if err := a.picker.Close(); err != nil {
		a.logger.Debug("close picker watcher", zap.Error(err))
	}
	a.showPicker = false
	a.chat.Focus()
}

// =============================================================================
// COMMANDS
// =============================================================================

func (a *App) checkRuntime() tea.Cmd {
	checker := a.opts.Checker
	if checker == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		return RuntimeCheckMsg{Err: checker.CheckRunning(ctx)}
	}
}

func (a *App) recordActivity() tea.Cmd {
	sess := a.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		return activityMsg{Err: sess.RecordActivity(ctx)}
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the picker overlay when open, the chat otherwise.
func (a *App) View() string {
	if a.showPicker {
		return a.picker.View()
	}
	return a.chat.View()
}

// =============================================================================
// PROGRAM
// =============================================================================

// Run starts the full-screen program and blocks until it exits or ctx is
// cancelled. The stream runner is pointed at the program before it starts.
func Run(ctx context.Context, app *App) error {
	p := tea.NewProgram(app,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if app.opts.Runner != nil {
		app.opts.Runner.SetSender(p)
	}
	defer app.closePicker()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
