// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sage-tui/sage/internal/ollama"
	"github.com/sage-tui/sage/internal/util"
)

// modelLister is the part of the Ollama client "sage models" needs.
type modelLister interface {
	ListModels(ctx context.Context) ([]ollama.ModelInfo, error)
}

func newModelsCommand(e *env) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models available in the local Ollama runtime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			return listModels(ctx, cmd.OutOrStdout(), e.newClient(), e.cfg.Model.Name, jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func listModels(ctx context.Context, w io.Writer, client modelLister, active string, jsonOut bool) error {
	models, err := client.ListModels(ctx)
	if err != nil {
		if jsonOut {
			_ = NewJSONErrorResponse("models", err, nil).Write(w)
			return silent(GetExitCode(err), err)
		}
		return err
	}

	if jsonOut {
		data := make([]ModelData, 0, len(models))
		for _, m := range models {
			data = append(data, ModelData{
				Name:       m.Name,
				Size:       m.Size,
				ModifiedAt: m.ModifiedAt,
				Family:     m.Details.Family,
				Parameters: m.Details.ParameterSize,
				Active:     isActiveModel(m.Name, active),
			})
		}
		return NewJSONResponse("models", data).Write(w)
	}

	if len(models) == 0 {
		fmt.Fprintln(w, "No models found. Run 'sage setup' to build "+active+".")
		return nil
	}
	fmt.Fprintln(w, TitleStyle.Render("Local models"))
	fmt.Fprintln(w, RenderSeparator(64))
	for _, m := range models {
		mark := "  "
		if isActiveModel(m.Name, active) {
			mark = SuccessStyle.Render("* ")
		}
		fmt.Fprintf(w, "%s%s %s %s\n",
			mark,
			util.PadRight(util.TruncateWidth(m.Name, 32), 32),
			util.PadRight(m.FormatSize(), 10),
			DimStyle.Render(m.ModifiedAt.Format("2006-01-02")))
	}
	return nil
}

// isActiveModel matches "name" against "name" or "name:tag".
func isActiveModel(listed, active string) bool {
	return listed == active || strings.HasPrefix(listed, active+":")
}
