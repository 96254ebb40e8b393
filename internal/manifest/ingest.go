// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package manifest

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"go.uber.org/zap"
)

// ErrIsDirectory is returned when a directory is handed to the pipeline.
var ErrIsDirectory = errors.New("is a directory")

// Result is the outcome of one ingest. Hidden always carries a payload:
// the rendered prompt on success, an inline error description otherwise.
type Result struct {
	// Filename is the base name shown to the user.
	Filename string

	// Hidden is sent to the model but not rendered in the transcript.
	Hidden string

	// Err is nil for the success variant.
	Err error

	// Truncated reports whether the body hit the character budget.
	Truncated bool

	// Chars is the character count of the extracted text before truncation.
	Chars int
}

// OK reports whether the result is the success variant.
func (r Result) OK() bool {
	return r.Err == nil
}

// ErrorText renders the inline error payload for a failed ingest.
func ErrorText(filename string, err error) string {
	return fmt.Sprintf("[Error reading file '%s': %v]", filename, err)
}

// Ingester runs the extraction pipeline. It holds no per-call state, so a
// single Ingester can serve any number of independent picks.
type Ingester struct {
	registry *Registry
	limit    int
	logger   *zap.Logger
}

// NewIngester creates an Ingester. A nil registry means DefaultRegistry,
// a non-positive limit means MaxChars and a nil logger disables logging.
func NewIngester(registry *Registry, limit int, logger *zap.Logger) *Ingester {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if limit <= 0 {
		limit = MaxChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{registry: registry, limit: limit, logger: logger}
}

// Limit returns the character budget in use.
func (i *Ingester) Limit() int {
	return i.limit
}

// Ingest extracts, truncates and wraps the file at path.
func (i *Ingester) Ingest(path string) Result {
	file := NewFile(path)
	res := Result{Filename: file.Name()}

	text, err := i.extract(&file)
	if err != nil {
		res.Err = err
		res.Hidden = ErrorText(res.Filename, err)
		i.logger.Warn("manifest ingest failed",
			zap.String("file", res.Filename),
			zap.String("ext", file.Ext),
			zap.Error(err))
		return res
	}

	res.Chars = utf8.RuneCountInString(text)
	body, truncated := Truncate(text, i.limit)
	res.Truncated = truncated
	res.Hidden = buildPrompt(res.Filename, body, truncated, i.limit)

	i.logger.Info("manifest ingested",
		zap.String("file", res.Filename),
		zap.String("ext", file.Ext),
		zap.Int("chars", res.Chars),
		zap.Bool("truncated", truncated))
	return res
}

// extract stats the file and dispatches it. Panics raised by third-party
// parsers on malformed input are turned into errors.
func (i *Ingester) extract(file *File) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()

	info, err := os.Stat(file.Path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		file.IsDir = true
		return "", fmt.Errorf("%s: %w", file.Path, ErrIsDirectory)
	}

	e, _ := i.registry.Lookup(file.Ext)
	return e.Extract(file.Path)
}
