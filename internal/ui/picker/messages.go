// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package picker

import "github.com/sage-tui/sage/internal/manifest"

// FileSelectedMsg is emitted when the user picks a file.
type FileSelectedMsg struct {
	Path string
}

// IngestedMsg carries the ingestion result for the selected file.
type IngestedMsg struct {
	Path   string
	Result manifest.Result
}

// RootChangedMsg is emitted when a typed root is accepted.
type RootChangedMsg struct {
	Root string
}

// CancelledMsg is emitted when the picker is dismissed without a choice.
type CancelledMsg struct{}

// DirChangedMsg reports a change inside the watched directory.
type DirChangedMsg struct {
	Dir string
}
