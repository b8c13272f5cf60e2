// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/zhai-tui/internal/controller"
)

// askResult is the --json shape of an answer.
type askResult struct {
	Message string `json:"message"`
	Reply   string `json:"reply"`
	Role    string `json:"role"`
}

// addAskCommand adds the one-shot ask command.
func (app *App) addAskCommand(root *cobra.Command) {
	var plain bool

	askCmd := &cobra.Command{
		Use:   "ask <message...>",
		Short: "Send one message and print the reply",
		Long: `Send a single message with the saved session and print the reply.
The reply is typed out like in the chat unless --plain or --json is given.

Examples:
  zhai ask 你好
  zhai ask --plain "what can you do?"
  zhai ask --json hello | jq -r .data.reply`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.TrimSpace(strings.Join(args, " "))
			if message == "" {
				return &UsageError{Reason: "empty message", Usage: "zhai ask <message...>"}
			}

			rt, err := app.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			if _, err := rt.requireSession(); err != nil {
				return err
			}

			// Ctrl+C cancels the exchange instead of killing the process
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			opts := controller.Options{Fallback: rt.Fallback}
			if !plain && !app.Opts.JSON {
				r := newLineRenderer(app.Out, wrapWidth(rt.Config.UI.WordWrap), rt.Config.UI.TypewriterInterval(), nil)
				return controller.New(r, rt.Client, rt.Sessions, opts).Submit(ctx, message)
			}

			capture := &captureRenderer{}
			if err := controller.New(capture, rt.Client, rt.Sessions, opts).Submit(ctx, message); err != nil {
				return err
			}
			role, reply := capture.result()
			if app.Opts.JSON {
				return NewJSONResponse("ask", askResult{Message: message, Reply: reply, Role: role.String()}).Print(app.Out)
			}
			fmt.Fprintln(app.Out, reply)
			return nil
		},
	}
	askCmd.Flags().BoolVar(&plain, "plain", false, "print the reply at once, without animation")

	root.AddCommand(askCmd)
}
