// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/zhai-tui/internal/config"
)

// addConfigCommands adds the config command group.
func (app *App) addConfigCommands(root *cobra.Command) {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := app.loadConfig()
			if err != nil {
				return err
			}
			if app.Opts.JSON {
				return NewJSONResponse("config show", json.RawMessage(cfg.String())).Print(app.Out)
			}
			fmt.Fprintln(app.Out, cfg.String())
			return nil
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := app.configPath()
			if err != nil {
				return err
			}
			if app.Opts.JSON {
				return NewJSONResponse("config path", map[string]string{"path": path}).Print(app.Out)
			}
			fmt.Fprintln(app.Out, path)
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := app.configPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return &UsageError{Reason: path + " already exists", Usage: "zhai config init --force"}
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.SaveTOML(config.Default(), path); err != nil {
				return err
			}
			if app.Opts.JSON {
				return NewJSONResponse("config init", map[string]string{"path": path}).Print(app.Out)
			}
			fmt.Fprintf(app.Out, "%s wrote %s\n", RenderStatus("ok"), path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	configCmd.AddCommand(showCmd, pathCmd, initCmd)
	root.AddCommand(configCmd)
}

// configPath is --config or the default location.
func (app *App) configPath() (string, error) {
	if app.Opts.ConfigPath != "" {
		return app.Opts.ConfigPath, nil
	}
	return config.ConfigPathTOML()
}
