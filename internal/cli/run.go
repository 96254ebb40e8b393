// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sage-tui/sage/internal/bootstrap"
	"github.com/sage-tui/sage/internal/manifest"
	"github.com/sage-tui/sage/internal/session"
	"github.com/sage-tui/sage/internal/storage"
	"github.com/sage-tui/sage/internal/ui"
	"github.com/sage-tui/sage/internal/ui/chat"
)

// ErrNotTerminal is returned when the full-screen chat has no terminal.
var ErrNotTerminal = errors.New("the chat interface needs an interactive terminal; try 'sage chat' or 'sage ingest'")

// runInteractive is the default command: banner, model bootstrap, keypress,
// session creation, then the TUI.
func (e *env) runInteractive(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	in, out := cmd.InOrStdin(), cmd.OutOrStdout()

	if err := e.ensureModel(cmd); err != nil {
		fmt.Fprintln(out, bootstrap.Guidance(err))
		if werr := bootstrap.WaitForKeypress(in, out, bootstrap.ExitPrompt); werr != nil {
			e.logger.Debug("exit keypress", zap.Error(werr))
		}
		return silent(ExitSetupError, err)
	}
	if err := bootstrap.WaitForKeypress(in, out, bootstrap.ContinuePrompt); err != nil {
		return err
	}
	if !isTerminal(in) {
		return &ExitError{Code: ExitUsageError, Err: ErrNotTerminal}
	}

	store, err := storage.OpenSessionStore(e.cfg.DBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := session.Bootstrap(ctx, store, e.cfg.Session.Name, e.cfg.Model.Name)
	if err != nil {
		return err
	}
	e.logger.Info("session started",
		zap.String("session", sess.ID),
		zap.String("model", sess.Model))

	client := e.newClient()
	app := ui.New(sess, ui.Options{
		ThemeMode:  e.cfg.UI.Theme,
		Markdown:   e.cfg.UI.Markdown,
		BrowseRoot: e.cfg.Manifest.BrowseRoot,
		Watch:      true,
		Ingester:   manifest.NewIngester(nil, e.cfg.Manifest.MaxChars, e.logger),
		Runner:     chat.NewStreamRunner(client, nil, e.logger),
		Checker:    client,
		Logger:     e.logger,
	})
	return ui.Run(ctx, app)
}

// ensureModel prints the banner and runs the model bootstrap.
func (e *env) ensureModel(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	bootstrap.PrintBanner(out, e.opts.Build.Version)

	b := bootstrap.New(e.cfg, e.logger)
	b.Out = out
	b.In = cmd.InOrStdin()
	return b.EnsureModel(cmd.Context())
}

// =============================================================================
// SETUP COMMAND
// =============================================================================

func newSetupCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Build the SAGE model in Ollama if it is missing",
		Long: `Checks for the configured model in the local Ollama runtime and builds
it from the Modelfile when it is not listed. A marker file in the SAGE
state directory skips the check on later runs; delete it to force one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.ensureModel(cmd); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), bootstrap.Guidance(err))
				return silent(ExitSetupError, err)
			}
			return nil
		},
	}
}
