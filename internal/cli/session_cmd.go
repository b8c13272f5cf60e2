// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

// sessionInfo is the --json shape of a session. The token is never
// printed.
type sessionInfo struct {
	LoggedIn bool   `json:"logged_in"`
	UserName string `json:"user_name,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

// addSessionCommands adds login, logout and whoami.
func (app *App) addSessionCommands(root *cobra.Command) {
	loginCmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Log in and save the session",
		Long: `Log in to the backend with a username (1 to 20 characters). The session
is saved to the configured storage backend and reused by every command
until "zhai logout". Without an argument the username is prompted for.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := app.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			name := ""
			if len(args) == 1 {
				name = args[0]
			} else {
				if name, err = promptLine("username> "); err != nil {
					return err
				}
			}

			sess, err := rt.Sessions.Login(cmd.Context(), name)
			if err != nil {
				return err
			}
			if app.Opts.JSON {
				return NewJSONResponse("login", sessionInfo{true, sess.UserName, sess.UserID}).Print(app.Out)
			}
			fmt.Fprintf(app.Out, "%s logged in as %s\n", RenderStatus("ok"), sess.UserName)
			return nil
		},
	}

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Clear the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := app.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.Sessions.Logout(cmd.Context()); err != nil {
				return err
			}
			if app.Opts.JSON {
				return NewJSONResponse("logout", sessionInfo{}).Print(app.Out)
			}
			fmt.Fprintf(app.Out, "%s logged out\n", RenderStatus("ok"))
			return nil
		},
	}

	whoamiCmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := app.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			sess, err := rt.requireSession()
			if err != nil {
				return err
			}
			if app.Opts.JSON {
				return NewJSONResponse("whoami", sessionInfo{true, sess.UserName, sess.UserID}).Print(app.Out)
			}
			fmt.Fprintln(app.Out, RenderField("user", sess.UserName))
			fmt.Fprintln(app.Out, RenderField("user id", sess.UserID))
			return nil
		},
	}

	root.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

// promptLine reads one line from an interactive terminal.
func promptLine(prompt string) (string, error) {
	if err := RequiresTTY("prompt for a username"); err != nil {
		return "", &UsageError{Reason: "missing username", Usage: "zhai login <username>"}
	}
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	text, err := line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
