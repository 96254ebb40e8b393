// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bootstrap

import (
	"context"
	"io"
	"os/exec"
)

// Runner executes an external command, writing its stdout to out.
type Runner interface {
	Run(ctx context.Context, out io.Writer, name string, args ...string) error
}

// RunnerFunc adapts a plain function to Runner.
type RunnerFunc func(ctx context.Context, out io.Writer, name string, args ...string) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, out io.Writer, name string, args ...string) error {
	return f(ctx, out, name, args...)
}

// ExecRunner runs commands with os/exec. Stderr is forwarded to Stderr
// when set so "ollama create" progress stays visible.
type ExecRunner struct {
	Stderr io.Writer
}

// Run starts name with args and waits for it to exit.
func (r ExecRunner) Run(ctx context.Context, out io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = out
	if r.Stderr != nil {
		cmd.Stderr = r.Stderr
	}
	return cmd.Run()
}
