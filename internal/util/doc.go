// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across SAGE.
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth, StringWidth, PadRight: terminal-column aware helpers
//     backed by go-runewidth
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//   - ExpandHome: "~" expansion for user-supplied paths
//
// # Usage
//
//	chip := util.TruncateWidth(filename, 32)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
