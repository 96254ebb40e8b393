// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sage-tui/sage/internal/logging"
	"github.com/sage-tui/sage/internal/manifest"
	"github.com/sage-tui/sage/internal/model"
	"github.com/sage-tui/sage/internal/ollama"
	"github.com/sage-tui/sage/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady     State = iota // Ready for input
	StateStreaming              // Receiving a response
)

// Options configures a chat Model.
type Options struct {
	SessionName string
	ModelName   string
	Markdown    bool
	Runner      *StreamRunner
	Logger      *zap.Logger
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	state State
	theme *styles.Theme

	width  int
	height int

	conversation *model.Conversation
	sessionName  string
	sessionMeta  string
	modelName    string

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keys     KeyMap

	// pending is the manifest attached to the next submitted message.
	pending *manifest.Result

	status    string
	statusErr bool
	statusSeq int

	streamingMsgID string
	runner         *StreamRunner
	cancelMgr      *cancelManager

	markdown      bool
	renderer      *glamour.TermRenderer
	rendererWidth int

	logger *zap.Logger
}

// New creates a chat model over conv.
func New(theme *styles.Theme, conv *model.Conversation, opts Options) Model {
	if theme == nil {
		theme = styles.NewTheme()
	}
	if conv == nil {
		conv = model.NewConversationWithModel(opts.ModelName)
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the manifest, or press Ctrl+O to attach one..."
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	m := Model{
		state:        StateReady,
		theme:        theme,
		conversation: conv,
		sessionName:  opts.SessionName,
		modelName:    opts.ModelName,
		viewport:     viewport.New(80, 20),
		input:        ti,
		spinner:      sp,
		keys:         DefaultKeyMap(),
		runner:       opts.Runner,
		cancelMgr:    newCancelManager(),
		markdown:     opts.Markdown,
		logger:       logging.OrNop(opts.Logger),
	}
	if m.modelName == "" {
		m.modelName = conv.Model
	}
	return m
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Conversation returns the transcript.
func (m *Model) Conversation() *model.Conversation { return m.conversation }

// ModelName returns the model new requests go to.
func (m *Model) ModelName() string { return m.modelName }

// SetModelName switches the model for subsequent requests.
func (m *Model) SetModelName(name string) {
	m.modelName = name
	m.conversation.Model = name
}

// SetSessionMeta sets the extra header text shown after the session name.
func (m *Model) SetSessionMeta(s string) { m.sessionMeta = s }

// IsStreaming reports whether a generation is running.
func (m *Model) IsStreaming() bool { return m.state == StateStreaming }

// Pending returns the attachment waiting for the next message, or nil.
func (m *Model) Pending() *manifest.Result { return m.pending }

// Status returns the flashed status text and whether it is an error.
func (m *Model) Status() (string, bool) { return m.status, m.statusErr }

// InputValue returns the current input text.
func (m *Model) InputValue() string { return m.input.Value() }

// SetInputValue replaces the input text.
func (m *Model) SetInputValue(s string) { m.input.SetValue(s) }

// Focus gives the input keyboard focus.
func (m *Model) Focus() tea.Cmd { return m.input.Focus() }

// Blur removes keyboard focus from the input.
func (m *Model) Blur() { m.input.Blur() }

// =============================================================================
// ATTACHMENTS
// =============================================================================

// Attach stores res as the pending prefix for the next message. Error
// results are attached the same way so the model sees the inline error;
// the status bar additionally flashes the failure.
func (m *Model) Attach(res manifest.Result) tea.Cmd {
	r := res
	m.pending = &r
	m.layout()

	if !res.OK() {
		return m.flash(fmt.Sprintf("Could not read %s: %v", res.Filename, res.Err), true)
	}
	text := fmt.Sprintf("Attached %s (%d chars)", res.Filename, res.Chars)
	if res.Truncated {
		text += ", truncated"
	}
	return m.flash(text, false)
}

// ClearAttachment drops the pending attachment. Reports whether one was set.
func (m *Model) ClearAttachment() bool {
	if m.pending == nil {
		return false
	}
	m.pending = nil
	m.layout()
	return true
}

// AddNotice appends a transcript-only line.
func (m *Model) AddNotice(text string) {
	m.conversation.AddNotice(text)
	m.updateViewport()
}

// flash sets a transient status and schedules its removal.
func (m *Model) flash(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.status = text
	m.statusErr = isErr
	seq := m.statusSeq
	return tea.Tick(StatusFlashDuration, func(time.Time) tea.Msg {
		return StatusClearMsg{Seq: seq}
	})
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamRequestMsg:
		return m, m.startStream(msg)

	case StreamTokenMsg:
		if msg.MessageID != m.streamingMsgID {
			return m, nil
		}
		m.conversation.AppendToLast(msg.Token)
		m.updateViewport()
		return m, nil

	case StreamCompleteMsg:
		if msg.MessageID != m.streamingMsgID {
			return m, nil
		}
		m.finishStream(msg.Stats)
		return m, nil

	case StreamCancelledMsg:
		if msg.MessageID != m.streamingMsgID {
			return m, nil
		}
		m.finishStream(nil)
		m.AddNotice("Generation stopped.")
		return m, nil

	case StreamErrorMsg:
		if msg.MessageID != m.streamingMsgID {
			return m, nil
		}
		m.finishStream(nil)
		text := "Error: " + msg.Error.Error()
		if hint := ollama.Hint(msg.Error); hint != "" {
			text += " " + hint
		}
		m.AddNotice(text)
		return m, m.flash(msg.Error.Error(), true)

	case StatusClearMsg:
		if msg.Seq == m.statusSeq {
			m.status = ""
			m.statusErr = false
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != StateStreaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		cmd := m.submit()
		return m, cmd

	case key.Matches(msg, m.keys.Cancel):
		if m.state == StateStreaming {
			m.cancelMgr.cancel()
			return m, nil
		}
		if m.ClearAttachment() {
			return m, m.flash("Attachment removed", false)
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		if m.state == StateStreaming {
			return m, nil
		}
		m.conversation.ClearHistory()
		m.updateViewport()
		return m, m.flash("Transcript cleared", false)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// SUBMIT AND STREAMING
// =============================================================================

// submit records the typed text (plus any pending attachment) and returns
// the command that requests a stream.
func (m *Model) submit() tea.Cmd {
	if m.state == StateStreaming {
		return nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" && m.pending == nil {
		return nil
	}

	var att *model.Attachment
	if m.pending != nil {
		att = &model.Attachment{
			Filename: m.pending.Filename,
			Hidden:   m.pending.Hidden,
			Failed:   !m.pending.OK(),
		}
		m.pending = nil
	}
	m.conversation.AddUserMessageWithAttachment(text, att)
	m.input.Reset()

	messages := m.conversation.ToOllamaMessages()
	reply := m.conversation.AddAssistantMessage()
	m.streamingMsgID = reply.ID
	m.state = StateStreaming
	m.layout()

	req := StreamRequestMsg{
		MessageID: reply.ID,
		Model:     m.modelName,
		Messages:  messages,
	}
	return tea.Batch(
		func() tea.Msg { return req },
		m.spinner.Tick,
	)
}

func (m *Model) startStream(req StreamRequestMsg) tea.Cmd {
	if m.runner == nil {
		return func() tea.Msg {
			return StreamErrorMsg{MessageID: req.MessageID, Error: ollama.ErrNotRunning}
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.set(cancel)
	runner := m.runner

	m.logger.Info("chat request",
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)))

	return func() tea.Msg {
		defer cancel()
		return runner.Run(ctx, req.Model, req.Messages, req.MessageID)
	}
}

func (m *Model) finishStream(stats *model.Statistics) {
	m.conversation.FinalizeLast(stats)
	m.conversation.RemoveLastIfEmpty()
	m.cancelMgr.cancel()
	m.streamingMsgID = ""
	m.state = StateReady
	m.updateViewport()
}
