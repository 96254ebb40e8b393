// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package manifest

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// =============================================================================
// MANIFEST FILE
// =============================================================================

// File describes a manifest selected in the picker. It only lives for the
// duration of a single ingest.
type File struct {
	// Path is the path as selected by the user.
	Path string

	// Ext is the lower-cased extension including the leading dot, or "".
	Ext string

	// IsDir is true when the path refers to a directory.
	IsDir bool
}

// NewFile builds a File from a path. IsDir is left false; Ingest fills it
// in from os.Stat.
func NewFile(path string) File {
	return File{
		Path: path,
		Ext:  NormalizeExt(filepath.Ext(path)),
	}
}

// Name returns the base name of the file.
func (f File) Name() string {
	return filepath.Base(f.Path)
}

// NormalizeExt lower-cases an extension and makes sure it carries a leading
// dot. An empty extension stays empty.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// =============================================================================
// EXTRACTORS
// =============================================================================

// Extractor pulls plain text out of a file on disk.
type Extractor interface {
	Extract(path string) (string, error)
}

// ExtractorFunc adapts an ordinary function to the Extractor interface.
type ExtractorFunc func(path string) (string, error)

// Extract calls f(path).
func (f ExtractorFunc) Extract(path string) (string, error) {
	return f(path)
}

// UnsupportedText returns the sentinel produced for extensions without a
// registered extractor.
func UnsupportedText(ext string) string {
	return fmt.Sprintf("[Unsupported file type: %s]", ext)
}

// unsupported is the fallback extractor. It never touches the file.
type unsupported struct{}

func (unsupported) Extract(path string) (string, error) {
	return UnsupportedText(NormalizeExt(filepath.Ext(path))), nil
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry maps normalised extensions to extractors.
// It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
	fallback   Extractor
}

// NewRegistry returns an empty registry whose fallback emits the
// unsupported-type sentinel.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]Extractor),
		fallback:   unsupported{},
	}
}

// DefaultRegistry returns a registry with every built-in format registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	text := ExtractorFunc(ExtractText)
	r.Register(".txt", text)
	r.Register(".csv", text)
	r.Register(".json", text)
	r.Register(".pdf", ExtractorFunc(ExtractPDF))
	r.Register(".docx", ExtractorFunc(ExtractDOCX))
	sheet := ExtractorFunc(ExtractWorkbook)
	r.Register(".xlsx", sheet)
	r.Register(".xlsm", sheet)
	return r
}

// Register adds or replaces the extractor for ext.
func (r *Registry) Register(ext string, e Extractor) {
	ext = NormalizeExt(ext)
	if ext == "" || e == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[ext] = e
}

// SetFallback replaces the extractor used for unknown extensions.
func (r *Registry) SetFallback(e Extractor) {
	if e == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = e
}

// Lookup returns the extractor for ext and whether it was registered
// explicitly. Unknown extensions return the fallback and false.
func (r *Registry) Lookup(ext string) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.extractors[NormalizeExt(ext)]; ok {
		return e, true
	}
	return r.fallback, false
}

// Supported reports whether ext has a registered extractor.
func (r *Registry) Supported(ext string) bool {
	_, ok := r.Lookup(ext)
	return ok
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract dispatches path to the extractor registered for its extension.
func (r *Registry) Extract(path string) (string, error) {
	e, _ := r.Lookup(filepath.Ext(path))
	return e.Extract(path)
}
