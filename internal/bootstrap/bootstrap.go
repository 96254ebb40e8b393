// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sage-tui/sage/internal/config"
	"github.com/sage-tui/sage/internal/logging"
	"github.com/sage-tui/sage/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrRuntimeMissing means the runtime binary is not on PATH.
	ErrRuntimeMissing = errors.New("ollama is not installed or not in PATH")

	// ErrModelBuild means "ollama create" failed.
	ErrModelBuild = errors.New("model build failed")
)

// InstallURL is shown when the runtime is missing.
const InstallURL = "https://ollama.com"

// Guidance returns the user-facing text for a bootstrap failure.
func Guidance(err error) string {
	switch {
	case errors.Is(err, ErrRuntimeMissing):
		return "[SAGE] Ollama is not installed or not in PATH.\n" +
			"       Please install it from " + InstallURL
	case errors.Is(err, ErrModelBuild):
		return fmt.Sprintf("[SAGE] Error creating model: %v", err)
	case err == nil:
		return ""
	default:
		return fmt.Sprintf("[SAGE] Setup failed: %v", err)
	}
}

// =============================================================================
// BOOTSTRAPPER
// =============================================================================

// Bootstrapper makes sure the configured model exists in the local runtime.
type Bootstrapper struct {
	Config *config.Config
	Runner Runner

	// LookPath locates the runtime binary. Defaults to exec.LookPath.
	LookPath func(file string) (string, error)

	// Out receives progress lines. Defaults to io.Discard.
	Out io.Writer

	// In is read by WaitForKeypress in the CLI flow.
	In io.Reader

	// FlagPath overrides the marker file location.
	FlagPath string

	Logger *zap.Logger
}

// New returns a Bootstrapper wired to the real runtime.
func New(cfg *config.Config, logger *zap.Logger) *Bootstrapper {
	return &Bootstrapper{
		Config:   cfg,
		Runner:   ExecRunner{Stderr: os.Stderr},
		LookPath: exec.LookPath,
		Out:      os.Stdout,
		In:       os.Stdin,
		Logger:   logger,
	}
}

func (b *Bootstrapper) cfg() *config.Config {
	if b.Config == nil {
		return config.Default()
	}
	return b.Config
}

func (b *Bootstrapper) printf(format string, args ...interface{}) {
	if b.Out == nil {
		return
	}
	fmt.Fprintf(b.Out, format+"\n", args...)
}

func (b *Bootstrapper) flagPath() string {
	if b.FlagPath != "" {
		return b.FlagPath
	}
	return b.cfg().FlagPath()
}

// EnsureModel checks for the model and builds it if needed.
//
// The marker file short-circuits everything. Without it the runtime must be
// on PATH; "ollama list" is consulted first and a failed listing falls
// through to "ollama create".
func (b *Bootstrapper) EnsureModel(ctx context.Context) error {
	cfg := b.cfg()
	log := logging.OrNop(b.Logger)
	name := cfg.Model.Name
	flag := b.flagPath()

	if _, err := os.Stat(flag); err == nil {
		b.printf("[SAGE] Model already built. Skipping setup.")
		log.Debug("model flag present", zap.String("flag", flag))
		return nil
	}

	lookPath := b.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	bin, err := lookPath(cfg.Model.RuntimeBin)
	if err != nil {
		log.Warn("runtime not found", zap.String("bin", cfg.Model.RuntimeBin), zap.Error(err))
		return ErrRuntimeMissing
	}

	runner := b.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	b.printf("[SAGE] Checking for '%s'...", name)
	var listing bytes.Buffer
	if err := runner.Run(ctx, &listing, bin, "list"); err != nil {
		log.Warn("model listing failed", zap.Error(err))
		b.printf("[SAGE] Couldn't check existing Ollama models. Attempting build...")
	} else if ListsModel(listing.String(), name) {
		b.printf("[SAGE] Model '%s' exists.", name)
		log.Info("model present", zap.String("model", name))
		return b.markBuilt(flag)
	}

	modelfile := ResolveModelfile(cfg.Model.Modelfile)
	b.printf("[SAGE] Building model '%s' from %s...", name, modelfile)
	if err := runner.Run(ctx, b.Out, bin, "create", name, "-f", modelfile); err != nil {
		log.Error("model build failed", zap.String("model", name), zap.String("modelfile", modelfile), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrModelBuild, err)
	}
	b.printf("[SAGE] Model '%s' created successfully.", name)
	log.Info("model built", zap.String("model", name))
	return b.markBuilt(flag)
}

func (b *Bootstrapper) markBuilt(flag string) error {
	if err := util.TouchFile(flag); err != nil {
		return fmt.Errorf("write model flag: %w", err)
	}
	return nil
}

// ListsModel reports whether "ollama list" output contains name. The first
// column is compared both as-is and without its ":tag" suffix.
func ListsModel(listing, name string) bool {
	if name == "" {
		return false
	}
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		first := fields[0]
		if first == name {
			return true
		}
		if i := strings.LastIndex(first, ":"); i > 0 && first[:i] == name {
			return true
		}
	}
	return false
}

// ResolveModelfile finds the Modelfile. Relative names are tried against
// the working directory, the state directory and the executable's
// directory, in that order. The first candidate is returned when none exist
// so ollama reports the missing file itself.
func ResolveModelfile(name string) string {
	if name == "" {
		name = "Modelfile"
	}
	name = util.ExpandHome(name)
	if filepath.IsAbs(name) {
		return name
	}

	var candidates []string
	if abs, err := filepath.Abs(name); err == nil {
		candidates = append(candidates, abs)
	}
	if dir, err := config.ConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, name))
	}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), name))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return name
}
