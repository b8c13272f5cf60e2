// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/zhai-tui/internal/config"
	"github.com/jeranaias/zhai-tui/internal/controller"
	"github.com/jeranaias/zhai-tui/internal/export"
	"github.com/jeranaias/zhai-tui/internal/ui/chat"
)

// addFrontEndCommands adds tui and chat.
func (app *App) addFrontEndCommands(root *cobra.Command) {
	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Start the full screen interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := app.loadConfig()
			if err != nil {
				return err
			}
			return app.runTUI(cmd.Context(), cfg, path)
		},
	}

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start the line based chat",
		Long: `Start an interactive chat in the terminal without taking over the
screen. Ctrl+C cancels a reply, Ctrl+D quits. Type /help for commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := app.loadConfig()
			if err != nil {
				return err
			}
			return app.runREPL(cmd.Context(), cfg, path)
		},
	}

	root.AddCommand(tuiCmd, chatCmd)
}

// runTUI wires the Bubble Tea front end and runs it until the user quits.
func (app *App) runTUI(ctx context.Context, cfg *config.Config, path string) error {
	if err := RequiresTTY("start the interface"); err != nil {
		return err
	}

	renderer := chat.NewRenderer(cfg.UI.TypewriterInterval())
	rt, err := app.wire(ctx, cfg, path, true, renderer.ObserveState)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctrl := controller.New(renderer, rt.Client, rt.Sessions, controller.Options{Fallback: rt.Fallback})
	defer ctrl.Cancel()

	m := chat.New(chat.Deps{
		Ctx:        ctx,
		Sessions:   rt.Sessions,
		Chat:       ctrl,
		Renderer:   renderer,
		Health:     rt.Client,
		Transcript: export.NewTranscript(""),
		UI:         cfg.UI,
	})
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	renderer.Bind(p)

	if path != "" {
		go func() {
			err := config.Watch(ctx, path, 0, func(c *config.Config, err error) {
				if err != nil {
					rt.Log.Warn("config reload failed", "path", path, "err", err)
					return
				}
				rt.Log.Info("config reloaded", "path", path)
				p.Send(chat.UIConfigMsg{UI: c.UI})
			})
			if err != nil {
				rt.Log.Debug("config watch stopped", "err", err)
			}
		}()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run interface: %w", err)
	}
	return nil
}
