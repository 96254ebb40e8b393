// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sage-tui/sage/internal/config"
)

func newConfigCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit SAGE configuration",
		Long: `Configuration is read from ~/.sage/config.toml (or config.json), then
SAGE_* environment variables and a .env file in the working directory.
SAGE_HOME moves the whole state directory.

Keys use dot notation, for example model.name or manifest.max_chars.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, e, false)
		},
	}

	var jsonOut bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, e, jsonOut)
		},
	}
	show.Flags().BoolVar(&jsonOut, "json", false, "output JSON")

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := e.configFile()
			if err != nil {
				return &ConfigError{Op: "init", Err: err}
			}
			if _, err := os.Stat(path); err == nil && !force {
				return &UsageError{Msg: path + " already exists (use --force to overwrite)"}
			}
			if err := config.SaveTOML(config.Default(), path); err != nil {
				return &ConfigError{Op: "init", Err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Wrote "+path))
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	cmd.AddCommand(
		show,
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file and state paths",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := e.configFile()
				if err != nil {
					return &ConfigError{Op: "path", Err: err}
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, RenderField("config", path))
				fmt.Fprintln(out, RenderField("sessions", e.cfg.DBPath()))
				fmt.Fprintln(out, RenderField("log", e.cfg.LogPath()))
				fmt.Fprintln(out, RenderField("model marker", e.cfg.FlagPath()))
				fmt.Fprintln(out, RenderField("chat history", e.cfg.HistoryPath()))
				return nil
			},
		},
		initCmd,
		&cobra.Command{
			Use:   "get KEY",
			Short: "Print one configuration value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := e.cfg.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Set one configuration value in the config file",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return setConfig(cmd, e, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List configuration keys",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				for _, k := range config.GetAllKeys() {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
			},
		},
	)
	return cmd
}

func showConfig(cmd *cobra.Command, e *env, jsonOut bool) error {
	out := cmd.OutOrStdout()
	if jsonOut {
		return NewJSONResponse("config", e.cfg).Write(out)
	}
	fmt.Fprintln(out, TitleStyle.Render("SAGE configuration"))
	fmt.Fprintln(out, RenderSeparator(64))
	for _, k := range config.GetAllKeys() {
		v, err := e.cfg.Get(k)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, RenderField(k, fmt.Sprint(v)))
	}
	return nil
}

// setConfig edits the config file rather than the effective config, so
// environment overrides are not written back.
func setConfig(cmd *cobra.Command, e *env, key, value string) error {
	path, err := e.configFile()
	if err != nil {
		return &ConfigError{Op: "set", Err: err}
	}

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return &ConfigError{Op: "set", Err: err}
		}
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Op: "set", Err: err}
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return &ConfigError{Op: "set", Err: err}
	}

	v, _ := cfg.Get(key)
	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(fmt.Sprintf("%s = %v", key, v)))
	return nil
}
