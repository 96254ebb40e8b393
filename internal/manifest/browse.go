// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package manifest

import (
	"os"
	"path/filepath"
	"strings"
)

// rootCandidates are tried under the home directory, in priority order.
var rootCandidates = []string{"Downloads", "Documents"}

// DefaultRoot returns the directory the picker opens in: home/Downloads if
// it exists, else home/Documents, else home itself.
func DefaultRoot(home string) string {
	for _, sub := range rootCandidates {
		p := filepath.Join(home, sub)
		if isDir(p) {
			return p
		}
	}
	return home
}

// UserDefaultRoot is DefaultRoot for the current user's home directory.
// It falls back to the working directory when home cannot be determined.
func UserDefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
		return "."
	}
	return DefaultRoot(home)
}

// ResolveRoot validates a candidate browse root typed by the user. A
// leading "~" expands to the home directory. Only existing directories are
// accepted; the returned path is cleaned.
func ResolveRoot(candidate string) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", false
	}
	if candidate == "~" || strings.HasPrefix(candidate, "~/") || strings.HasPrefix(candidate, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		candidate = filepath.Join(home, candidate[1:])
	}
	candidate = filepath.Clean(candidate)
	if !isDir(candidate) {
		return "", false
	}
	return candidate, true
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
