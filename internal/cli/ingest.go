// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sage-tui/sage/internal/manifest"
)

func newIngestCommand(e *env) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "ingest FILE",
		Short: "Extract a manifest and print the prompt SAGE would send",
		Long: `Runs FILE through the manifest pipeline (extract, truncate, wrap in the
export-compliance prompt) and prints the hidden payload that would be
prefixed to the next chat message.

Supported: ` + supportedList() + `. Other extensions produce an
"[Unsupported file type]" marker instead of failing.`,
		Example: `  sage ingest ~/Downloads/manifest.pdf
  sage ingest bill_of_lading.xlsx --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ing := manifest.NewIngester(nil, e.cfg.Manifest.MaxChars, e.logger)
			res := ing.Ingest(args[0])
			out := cmd.OutOrStdout()

			if jsonOut {
				data := IngestData{
					File:      res.Filename,
					Chars:     res.Chars,
					Truncated: res.Truncated,
					Limit:     ing.Limit(),
					Payload:   res.Hidden,
				}
				if !res.OK() {
					if err := NewJSONErrorResponse("ingest", res.Err, data).Write(out); err != nil {
						return err
					}
					return silent(ExitGeneralError, res.Err)
				}
				return NewJSONResponse("ingest", data).Write(out)
			}

			fmt.Fprintln(out, res.Hidden)
			if !res.OK() {
				return silent(ExitGeneralError, res.Err)
			}
			if res.Truncated {
				fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render(
					fmt.Sprintf("Note: %s was truncated from %d to %d characters.", res.Filename, res.Chars, ing.Limit())))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print a JSON record instead of the payload")
	return cmd
}

func supportedList() string {
	return strings.Join(manifest.DefaultRegistry().Extensions(), ", ")
}
