// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the sage command line.
//
// # Commands
//
//   - sage: banner, model bootstrap, then the full-screen chat
//   - sage setup: model bootstrap only
//   - sage ingest FILE: run the manifest pipeline and print the payload
//   - sage chat: line-mode chat with /manifest, /clear, /model, /help, /quit
//   - sage models: list models known to the local runtime
//   - sage sessions: list or delete recorded sessions
//   - sage config show|path|init|get|set: configuration management
//   - sage version: build information
//
// Global flags are --config, --model and --verbose. Logs go to the file
// named by the configuration; stdout stays reserved for command output.
package cli
