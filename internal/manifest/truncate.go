// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package manifest

import "unicode/utf8"

// MaxChars is the truncation budget: the number of characters of manifest
// text forwarded to the model in one pass.
const MaxChars = 20000

// Truncate bounds text to at most limit characters (Unicode code points).
// It is a hard prefix cut with no regard for word boundaries. The boolean
// reports whether anything was dropped. A non-positive limit means MaxChars.
func Truncate(text string, limit int) (string, bool) {
	if limit <= 0 {
		limit = MaxChars
	}
	// Fast path: byte length bounds rune count.
	if len(text) <= limit || utf8.RuneCountInString(text) <= limit {
		return text, false
	}
	n := 0
	for i := range text {
		if n == limit {
			return text[:i], true
		}
		n++
	}
	return text, false
}
