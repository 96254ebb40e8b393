// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the local Ollama server.
//
// # Key Types
//
//   - Client: health checks, model listing and chat (plain and streaming)
//   - ClientError: typed error with an ErrorType for handling decisions
//   - StreamReader: NDJSON decoder for /api/chat streaming responses
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
//	    BaseURL:      cfg.Local.OllamaURL,
//	    DefaultModel: cfg.Model.Name,
//	})
//	err := client.ChatStream(ctx, "", msgs, func(c ollama.StreamChunk) {
//	    fmt.Print(c.Content)
//	})
//	if ollama.IsNotRunning(err) {
//	    // prompt the user to run "ollama serve"
//	}
package ollama
