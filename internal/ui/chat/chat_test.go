// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sage-tui/sage/internal/manifest"
	"github.com/sage-tui/sage/internal/model"
	"github.com/sage-tui/sage/internal/ollama"
	"github.com/sage-tui/sage/internal/ui/styles"
)

func newTestChat(t *testing.T, runner *StreamRunner) Model {
	t.Helper()
	m := New(styles.NewTheme(), nil, Options{
		SessionName: "SAGE Session",
		ModelName:   "mistral-7b-sage",
		Runner:      runner,
	})
	m.SetSize(100, 30)
	return m
}

func okResult() manifest.Result {
	return manifest.Result{
		Filename: "manifest.txt",
		Hidden:   "You are an export-compliance assistant.\nOrigin: Japan",
		Chars:    13,
	}
}

// runBatch executes cmd and any batched commands, returning the messages.
func runBatch(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runBatch(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func findRequest(t *testing.T, msgs []tea.Msg) StreamRequestMsg {
	t.Helper()
	for _, msg := range msgs {
		if req, ok := msg.(StreamRequestMsg); ok {
			return req
		}
	}
	t.Fatalf("no StreamRequestMsg in %v", msgs)
	return StreamRequestMsg{}
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(Model), cmd
}

func TestSubmit_AttachmentIsHiddenPrefix(t *testing.T) {
	m := newTestChat(t, nil)
	m.Attach(okResult())
	m.SetInputValue("Summarize")

	m, cmd := press(m, tea.KeyEnter)
	req := findRequest(t, runBatch(cmd))

	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, okResult().Hidden+"\n\nSummarize", req.Messages[0].Content)
	assert.Equal(t, "mistral-7b-sage", req.Model)

	// The transcript keeps only the typed text plus the chip.
	user := m.Conversation().Messages[0]
	assert.Equal(t, "Summarize", user.Content)
	require.NotNil(t, user.Attachment)
	assert.Equal(t, "manifest.txt", user.Attachment.Filename)
	assert.False(t, user.Attachment.Failed)
	assert.NotContains(t, m.renderTranscript(), "Origin: Japan")

	// The attachment is consumed by one message.
	assert.Nil(t, m.Pending())
	assert.True(t, m.IsStreaming())
}

func TestSubmit_WithoutAttachment(t *testing.T) {
	m := newTestChat(t, nil)
	m.SetInputValue("  hello  ")

	_, cmd := press(m, tea.KeyEnter)
	req := findRequest(t, runBatch(cmd))
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "hello", req.Messages[0].Content)
}

func TestSubmit_EmptyInputIgnored(t *testing.T) {
	m := newTestChat(t, nil)
	m, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.True(t, m.Conversation().IsEmpty())
}

func TestEscDropsPendingAttachment(t *testing.T) {
	m := newTestChat(t, nil)
	m.Attach(okResult())
	require.NotNil(t, m.Pending())

	m, _ = press(m, tea.KeyEsc)
	assert.Nil(t, m.Pending())
	status, isErr := m.Status()
	assert.Equal(t, "Attachment removed", status)
	assert.False(t, isErr)

	m.SetInputValue("plain question")
	_, cmd := press(m, tea.KeyEnter)
	req := findRequest(t, runBatch(cmd))
	assert.Equal(t, "plain question", req.Messages[0].Content)
}

func TestAttachErrorResult(t *testing.T) {
	m := newTestChat(t, nil)
	res := manifest.Result{
		Filename: "broken.pdf",
		Hidden:   "[Error reading file 'broken.pdf': malformed PDF]",
		Err:      errors.New("malformed PDF"),
	}
	m.Attach(res)

	status, isErr := m.Status()
	assert.True(t, isErr)
	assert.Contains(t, status, "broken.pdf")

	m.SetInputValue("what happened?")
	m, cmd := press(m, tea.KeyEnter)
	req := findRequest(t, runBatch(cmd))
	assert.True(t, strings.HasPrefix(req.Messages[0].Content, "[Error reading file 'broken.pdf'"))
	assert.True(t, m.Conversation().Messages[0].Attachment.Failed)
}

func TestNoticesAreNotSent(t *testing.T) {
	m := newTestChat(t, nil)
	m.AddNotice("Session 'SAGE Session' ready.")
	m.SetInputValue("hi")

	_, cmd := press(m, tea.KeyEnter)
	req := findRequest(t, runBatch(cmd))
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "hi", req.Messages[0].Content)
}

func TestStatusClearUsesSequence(t *testing.T) {
	m := newTestChat(t, nil)
	m.Attach(okResult())
	m.ClearAttachment()
	m.Attach(okResult())

	next, _ := m.Update(StatusClearMsg{Seq: 1})
	m = next.(Model)
	status, _ := m.Status()
	assert.NotEmpty(t, status, "stale clear must not wipe the newer status")

	next, _ = m.Update(StatusClearMsg{Seq: 2})
	m = next.(Model)
	status, _ = m.Status()
	assert.Empty(t, status)
}

// =============================================================================
// STREAMING
// =============================================================================

type fakeStreamer struct {
	chunks []string
	err    error
	block  bool
	gotMsg []ollama.Message
}

func (f *fakeStreamer) ChatStream(ctx context.Context, _ string, messages []ollama.Message, cb ollama.StreamCallback) error {
	f.gotMsg = messages
	for _, c := range f.chunks {
		cb(ollama.StreamChunk{Content: c})
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.err != nil {
		return f.err
	}
	cb(ollama.StreamChunk{Done: true, CompletionTokens: len(f.chunks)})
	return nil
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingSender) tokens() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sb strings.Builder
	for _, msg := range r.msgs {
		if tok, ok := msg.(StreamTokenMsg); ok {
			sb.WriteString(tok.Token)
		}
	}
	return sb.String()
}

func TestStreamRunner_DeliversAllTokens(t *testing.T) {
	fs := &fakeStreamer{chunks: []string{"The ", "shipment ", "is ", "EAR99."}}
	sender := &recordingSender{}
	r := NewStreamRunner(fs, sender, nil)

	final := r.Run(context.Background(), "m", nil, "msg_1")

	done, ok := final.(StreamCompleteMsg)
	require.True(t, ok, "got %T", final)
	assert.Equal(t, "msg_1", done.MessageID)
	assert.Equal(t, 4, done.Stats.CompletionTokens)
	assert.Equal(t, "The shipment is EAR99.", sender.tokens())

	first, ok := sender.msgs[0].(StreamTokenMsg)
	require.True(t, ok)
	assert.True(t, first.IsFirst)
}

func TestStreamRunner_Error(t *testing.T) {
	fs := &fakeStreamer{err: ollama.ErrNotRunning}
	r := NewStreamRunner(fs, &recordingSender{}, nil)

	final := r.Run(context.Background(), "m", nil, "msg_1")
	errMsg, ok := final.(StreamErrorMsg)
	require.True(t, ok, "got %T", final)
	assert.ErrorIs(t, errMsg.Error, ollama.ErrNotRunning)
}

func TestStreamRunner_Cancel(t *testing.T) {
	fs := &fakeStreamer{chunks: []string{"partial"}, block: true}
	r := NewStreamRunner(fs, &recordingSender{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	final := r.Run(ctx, "m", nil, "msg_1")
	_, ok := final.(StreamCancelledMsg)
	assert.True(t, ok, "got %T", final)
}

func TestStreamLifecycleThroughUpdate(t *testing.T) {
	fs := &fakeStreamer{chunks: []string{"Classified ", "as EAR99."}}
	sender := &recordingSender{}
	m := newTestChat(t, NewStreamRunner(fs, sender, nil))
	m.Attach(okResult())
	m.SetInputValue("Summarize")

	m, cmd := press(m, tea.KeyEnter)
	req := findRequest(t, runBatch(cmd))

	next, streamCmd := m.Update(req)
	m = next.(Model)
	require.NotNil(t, streamCmd)
	final := streamCmd()

	assert.Equal(t, okResult().Hidden+"\n\nSummarize", fs.gotMsg[0].Content)

	for _, msg := range sender.msgs {
		next, _ = m.Update(msg)
		m = next.(Model)
	}
	next, _ = m.Update(final)
	m = next.(Model)

	assert.False(t, m.IsStreaming())
	last := m.Conversation().GetLastMessage()
	assert.Equal(t, model.RoleAssistant, last.Role)
	assert.Equal(t, "Classified as EAR99.", last.Content)
}

func TestStreamErrorAddsNotice(t *testing.T) {
	m := newTestChat(t, nil)
	m.SetInputValue("hi")
	m, cmd := press(m, tea.KeyEnter)
	req := findRequest(t, runBatch(cmd))

	next, streamCmd := m.Update(req)
	m = next.(Model)
	next, _ = m.Update(streamCmd())
	m = next.(Model)

	assert.False(t, m.IsStreaming())
	last := m.Conversation().GetLastMessage()
	assert.True(t, last.Local)
	assert.Contains(t, last.Content, "Error:")
	_, isErr := m.Status()
	assert.True(t, isErr)
}
