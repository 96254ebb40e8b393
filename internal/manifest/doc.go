// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package manifest turns a user-selected shipping document into a bounded,
// instruction-wrapped prompt for the chat session.
//
// The pipeline runs in one direction:
//
//	path -> Extractor -> Truncate -> BuildPrompt -> Result
//
// Extractors are looked up in a Registry keyed by lower-cased file
// extension. Unknown extensions resolve to a fallback that yields an
// "[Unsupported file type: <ext>]" sentinel instead of an error.
//
// Ingester.Ingest never fails: extraction errors and parser panics are
// converted into an inline error string so the caller always receives a
// payload it can hand to the chat.
//
// Usage:
//
//	ing := manifest.NewIngester(manifest.DefaultRegistry(), manifest.MaxChars, logger)
//	res := ing.Ingest("/home/me/Downloads/invoice.xlsx")
//	chat.Attach(res)
package manifest
