// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for SAGE.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (SAGE_*), including those from ./.env
//   - ~/.sage/config.toml
//   - ~/.sage/config.json
//   - Built-in defaults
//
// SAGE_HOME relocates the whole state directory (config, session database,
// log file and the model marker).
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	limit := cfg.Manifest.MaxChars
package config
