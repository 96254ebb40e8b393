// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sage-tui/sage/internal/logging"
	"github.com/sage-tui/sage/internal/manifest"
	"github.com/sage-tui/sage/internal/model"
	"github.com/sage-tui/sage/internal/ollama"
	"github.com/sage-tui/sage/internal/session"
	"github.com/sage-tui/sage/internal/storage"
	"github.com/sage-tui/sage/internal/util"
)

const chatHelp = `Commands:
  /manifest PATH   attach a manifest to your next message
  /manifest        show the pending attachment
  /drop            remove the pending attachment
  /clear           clear the conversation
  /model [NAME]    show or switch the model
  /help            show this help
  /quit            exit (Ctrl+D also works)

Ctrl+C stops a generation in progress.`

func newChatCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Line-mode chat with manifest attachments",
		Long: `A plain line-mode chat with the SAGE model, for terminals where the
full-screen interface is unavailable. Attach a manifest with
"/manifest PATH"; it is sent with your next message only.

` + chatHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runChat(cmd)
		},
	}
}

// =============================================================================
// LINE READER
// =============================================================================

// lineReader reads one line of input after printing a prompt.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// historyReader is a liner-backed lineReader with a persisted history.
type historyReader struct {
	line *liner.State
	path string
}

func newHistoryReader(path string) *historyReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	if f, err := os.Open(path); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return &historyReader{line: line, path: path}
}

func (h *historyReader) Prompt(prompt string) (string, error) {
	input, err := h.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		h.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history with owner-only permissions and restores the
// terminal.
func (h *historyReader) Close() error {
	defer h.line.Close()
	if err := os.MkdirAll(filepath.Dir(h.path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = h.line.WriteHistory(f)
	return err
}

// =============================================================================
// CHAT SESSION
// =============================================================================

// chatStreamer is the part of the Ollama client line-mode chat needs.
type chatStreamer interface {
	ChatStream(ctx context.Context, model string, messages []ollama.Message, callback ollama.StreamCallback) error
}

// lineChat holds the state of one line-mode conversation.
type lineChat struct {
	conv     *model.Conversation
	model    string
	pending  *manifest.Result
	ingester *manifest.Ingester
	client   chatStreamer
	session  *session.Session
	out      io.Writer
	logger   *zap.Logger
}

func (e *env) runChat(cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var store session.Store
	if s, err := storage.OpenSessionStore(e.cfg.DBPath()); err != nil {
		e.logger.Warn("session store unavailable", zap.Error(err))
	} else {
		defer s.Close()
		store = s
	}
	sess, err := session.Bootstrap(ctx, store, e.cfg.Session.Name, e.cfg.Model.Name)
	if err != nil {
		return err
	}

	c := &lineChat{
		conv:     sess.Conversation,
		model:    sess.Model,
		ingester: manifest.NewIngester(nil, e.cfg.Manifest.MaxChars, e.logger),
		client:   e.newClient(),
		session:  sess,
		out:      out,
		logger:   e.logger,
	}

	fmt.Fprintln(out, TitleStyle.Render("SAGE line-mode chat"))
	fmt.Fprintln(out, DimStyle.Render(fmt.Sprintf("Session '%s' on model %s. Type /help for commands.", sess.Name, sess.Model)))

	reader := newHistoryReader(e.cfg.HistoryPath())
	defer func() {
		if err := reader.Close(); err != nil {
			e.logger.Debug("save chat history", zap.Error(err))
		}
	}()
	return c.loop(ctx, reader)
}

// loop reads lines until /quit, EOF or ctx is done.
func (c *lineChat) loop(ctx context.Context, in lineReader) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := in.Prompt(c.prompt())
		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			fmt.Fprintln(c.out, DimStyle.Render("(type /quit to exit)"))
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(c.out)
			return nil
		case err != nil:
			return err
		}
		if c.handle(ctx, line) {
			return nil
		}
	}
}

func (c *lineChat) prompt() string {
	if c.pending != nil {
		return "sage [" + c.pending.Filename + "]> "
	}
	return "sage> "
}

// handle processes one input line and reports whether to quit.
func (c *lineChat) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "/") {
		return c.command(line)
	}
	if line == "" && c.pending == nil {
		return false
	}

	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	c.send(turnCtx, line)
	return false
}

func (c *lineChat) command(line string) bool {
	fields := strings.Fields(line)
	name := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch name {
	case "/quit", "/q", "/exit":
		return true

	case "/help", "/h", "/?":
		fmt.Fprintln(c.out, chatHelp)

	case "/clear", "/c":
		c.conv.ClearHistory()
		c.pending = nil
		fmt.Fprintln(c.out, DimStyle.Render("Conversation cleared."))

	case "/model", "/m":
		if arg == "" {
			fmt.Fprintln(c.out, RenderField("model", c.model))
			return false
		}
		c.model = arg
		c.conv.Model = arg
		c.session.SetModel(arg)
		fmt.Fprintln(c.out, DimStyle.Render("Switched to "+arg+"."))

	case "/manifest", "/attach":
		if arg == "" {
			c.showPending()
			return false
		}
		c.attach(util.ExpandHome(strings.Trim(arg, `"'`)))

	case "/drop":
		if c.pending == nil {
			fmt.Fprintln(c.out, DimStyle.Render("No manifest attached."))
			return false
		}
		c.pending = nil
		fmt.Fprintln(c.out, DimStyle.Render("Attachment removed."))

	default:
		fmt.Fprintln(c.out, WarningStyle.Render("Unknown command "+name+". Type /help."))
	}
	return false
}

// attach ingests path and holds the result for the next message. Failed
// ingests are held too, so the model sees the inline error.
func (c *lineChat) attach(path string) {
	res := c.ingester.Ingest(path)
	c.pending = &res
	if !res.OK() {
		fmt.Fprintln(c.out, ErrorStyle.Render(fmt.Sprintf("Could not read %s: %v", res.Filename, res.Err)))
		return
	}
	msg := fmt.Sprintf("Attached %s (%d chars)", res.Filename, res.Chars)
	if res.Truncated {
		msg += ", truncated"
	}
	fmt.Fprintln(c.out, SuccessStyle.Render(msg+". It will be sent with your next message."))
}

func (c *lineChat) showPending() {
	if c.pending == nil {
		fmt.Fprintln(c.out, DimStyle.Render("No manifest attached. Use /manifest PATH."))
		return
	}
	fmt.Fprintln(c.out, RenderField("pending", c.pending.Filename))
}

// send records the user turn, streams the reply to out and finalizes it.
func (c *lineChat) send(ctx context.Context, text string) {
	var att *model.Attachment
	if c.pending != nil {
		att = &model.Attachment{
			Filename: c.pending.Filename,
			Hidden:   c.pending.Hidden,
			Failed:   !c.pending.OK(),
		}
		c.pending = nil
	}
	c.conv.AddUserMessageWithAttachment(text, att)
	messages := c.conv.ToOllamaMessages()
	c.conv.AddAssistantMessage()

	log := logging.OrNop(c.logger)
	if err := c.session.RecordActivity(ctx); err != nil {
		log.Debug("record session activity", zap.Error(err))
	}

	stats := model.NewStatistics()
	err := c.client.ChatStream(ctx, c.model, messages, func(chunk ollama.StreamChunk) {
		if chunk.Content != "" {
			stats.RecordFirstToken()
			c.conv.AppendToLast(chunk.Content)
			fmt.Fprint(c.out, chunk.Content)
		}
		if chunk.Done {
			stats.PromptTokens = chunk.PromptTokens
			stats.Finalize(chunk.CompletionTokens)
		}
	})

	switch {
	case err == nil:
		c.conv.FinalizeLast(stats)
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, DimStyle.Render(fmt.Sprintf("%d tokens, %.1f tok/s", stats.CompletionTokens, stats.TokensPerSecond)))
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		c.conv.FinalizeLast(nil)
		c.conv.RemoveLastIfEmpty()
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, DimStyle.Render("Generation stopped."))
	default:
		c.conv.FinalizeLast(nil)
		c.conv.RemoveLastIfEmpty()
		log.Warn("chat request failed", zap.String("model", c.model), zap.Error(err))
		fmt.Fprintln(c.out)
		DisplayError(c.out, err)
	}
}
