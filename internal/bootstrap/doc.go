// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bootstrap prepares the local LLM runtime before the TUI starts.
//
// On first launch SAGE checks whether its Ollama model exists and builds it
// from the bundled Modelfile when it does not. A marker file in the state
// directory records success so later launches skip the check entirely.
//
// # Usage
//
//	b := bootstrap.New(cfg, logger)
//	bootstrap.PrintBanner(os.Stdout, version)
//	if err := b.EnsureModel(ctx); err != nil {
//	    fmt.Fprintln(os.Stderr, bootstrap.Guidance(err))
//	    bootstrap.WaitForKeypress(os.Stdin, os.Stdout, bootstrap.ExitPrompt)
//	    os.Exit(1)
//	}
//
// All runtime commands go through the Runner interface so tests can fake
// the ollama CLI.
package bootstrap
