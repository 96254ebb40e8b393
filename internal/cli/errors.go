// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/sage-tui/sage/internal/bootstrap"
	"github.com/sage-tui/sage/internal/config"
	"github.com/sage-tui/sage/internal/ollama"
	"github.com/sage-tui/sage/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitNetworkError = 5
	ExitNotFound     = 7
	ExitSetupError   = 9
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ExitError carries an explicit exit code. Silent errors have already been
// reported to the user and are not printed again.
type ExitError struct {
	Code   int
	Err    error
	Silent bool
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ConfigError wraps a configuration load, validation or save failure.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// UsageError reports invalid arguments.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

// silent marks err as already reported.
func silent(code int, err error) error {
	return &ExitError{Code: code, Err: err, Silent: true}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return ExitConfigError
	}

	switch {
	case errors.Is(err, bootstrap.ErrRuntimeMissing), errors.Is(err, bootstrap.ErrModelBuild):
		return ExitSetupError
	case ollama.IsNotRunning(err), ollama.IsTimeout(err):
		return ExitNetworkError
	case ollama.IsModelNotFound(err), errors.Is(err, config.ErrUnknownKey),
		errors.Is(err, storage.ErrSessionNotFound):
		return ExitNotFound
	}
	return ExitGeneralError
}

// DisplayError prints err to w unless it was already reported.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Silent {
		return
	}
	fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+err.Error())
	if hint := ollama.Hint(err); hint != "" {
		fmt.Fprintln(w, DimStyle.Render(hint))
	}
}
