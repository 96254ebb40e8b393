// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCommand(e *env) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b := e.opts.Build
			data := VersionData{
				Version:   b.Version,
				Commit:    b.Commit,
				BuildDate: b.BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			if jsonOut {
				return NewJSONResponse("version", data).Write(cmd.OutOrStdout())
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sage %s (%s, %s)\n", data.Version, data.GoVersion, data.Platform)
			if data.Commit != "" && data.Commit != "unknown" {
				fmt.Fprintf(out, "commit %s, built %s\n", data.Commit, data.BuildDate)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}
