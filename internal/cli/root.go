// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sage-tui/sage/internal/config"
	"github.com/sage-tui/sage/internal/logging"
	"github.com/sage-tui/sage/internal/ollama"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// Options configures the command tree.
type Options struct {
	Build BuildInfo

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// SkipLogFile keeps logging off disk. Used by tests.
	SkipLogFile bool
}

// env is the state shared by every command of one invocation.
type env struct {
	opts Options

	configPath string
	model      string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCommand builds the sage command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Build.Version == "" {
		opts.Build.Version = "dev"
	}
	e := &env{opts: opts, logger: logging.Nop()}

	root := &cobra.Command{
		Use:   "sage",
		Short: "SAGE - Secure Agent for GPU Export",
		Long: `SAGE is a terminal chat front-end for a local Ollama model, tuned for
export-compliance review of shipping manifests.

Run without arguments to build the model if needed and open the chat.
Press Ctrl+O in the chat to attach a manifest (txt, csv, json, pdf, docx,
xlsx or xlsm); its text is sent with your next message.`,
		Version:           opts.Build.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: e.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
		RunE: e.runInteractive,
	}
	if opts.In != nil {
		root.SetIn(opts.In)
	}
	if opts.Out != nil {
		root.SetOut(opts.Out)
	}
	if opts.Err != nil {
		root.SetErr(opts.Err)
	}

	pf := root.PersistentFlags()
	pf.StringVar(&e.configPath, "config", "", "config file (default: ~/.sage/config.toml)")
	pf.StringVarP(&e.model, "model", "m", "", "model name (overrides config)")
	pf.BoolVarP(&e.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newSetupCommand(e),
		newIngestCommand(e),
		newChatCommand(e),
		newModelsCommand(e),
		newSessionsCommand(e),
		newConfigCommand(e),
		newVersionCommand(e),
	)
	return root
}

// setup loads configuration and builds the logger.
func (e *env) setup(cmd *cobra.Command, args []string) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if e.model != "" {
		cfg.Model.Name = e.model
	}
	config.SetGlobal(cfg)
	e.cfg = cfg

	if e.opts.SkipLogFile {
		return nil
	}
	logger, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		Path:    cfg.LogPath(),
		Verbose: e.verbose,
	})
	if err != nil {
		return err
	}
	e.logger = logger.With(zap.String("cmd", cmd.Name()))
	e.logger.Debug("config loaded", zap.String("model", cfg.Model.Name))
	return nil
}

func (e *env) loadConfig() (*config.Config, error) {
	if e.configPath != "" {
		cfg, err := config.LoadFromPath(e.configPath)
		if err != nil {
			return nil, &ConfigError{Op: "load", Err: err}
		}
		return cfg, nil
	}
	cfg, err := config.Load()
	if cfg == nil {
		return nil, &ConfigError{Op: "load", Err: err}
	}
	if err != nil {
		// Defaults are usable; report the broken file and carry on.
		fmt.Fprintln(e.stderr(), WarningStyle.Render("Warning: "+err.Error()))
	}
	return cfg, nil
}

// configFile returns the file config subcommands read and write.
func (e *env) configFile() (string, error) {
	if e.configPath != "" {
		return e.configPath, nil
	}
	return config.ConfigPathTOML()
}

func (e *env) stderr() io.Writer {
	if e.opts.Err != nil {
		return e.opts.Err
	}
	return os.Stderr
}

// newClient builds the Ollama client from configuration.
func (e *env) newClient() *ollama.Client {
	return ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      e.cfg.Local.OllamaURL,
		Timeout:      time.Duration(e.cfg.Local.TimeoutSecs) * time.Second,
		DefaultModel: e.cfg.Model.Name,
	})
}

// =============================================================================
// ENTRY POINT
// =============================================================================

// Execute runs the command line and returns the process exit code.
func Execute(build BuildInfo) int {
	// SIGINT keeps its default behaviour; the TUI reads Ctrl+C as a key and
	// line-mode chat uses it to stop a generation.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(Options{Build: build})
	if err := root.ExecuteContext(ctx); err != nil {
		DisplayError(os.Stderr, err)
		return GetExitCode(err)
	}
	return ExitSuccess
}
