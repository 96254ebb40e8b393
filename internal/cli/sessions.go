// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sage-tui/sage/internal/storage"
)

func newSessionsCommand(e *env) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "List recorded chat sessions",
		Long: `Lists the sessions SAGE has opened, newest first. Only the session
record (id, name, model, timestamps) is kept; messages are never stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.OpenSessionStore(e.cfg.DBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), storage.FormatSessionList(records))
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum sessions to show (0 for all)")

	cmd.AddCommand(&cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a session record by id or unique id prefix",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.OpenSessionStore(e.cfg.DBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			id, err := resolveSessionID(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Deleted session "+id))
			return nil
		},
	})
	return cmd
}

// resolveSessionID expands a unique id prefix to the full id.
func resolveSessionID(ctx context.Context, store *storage.SessionStore, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", &UsageError{Msg: "session id is required"}
	}
	records, err := store.List(ctx, 0)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, r := range records {
		if r.ID == prefix {
			return r.ID, nil
		}
		if strings.HasPrefix(r.ID, prefix) {
			matches = append(matches, r.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", storage.ErrSessionNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return "", &UsageError{Msg: fmt.Sprintf("session id %q is ambiguous (%d matches)", prefix, len(matches))}
	}
}
