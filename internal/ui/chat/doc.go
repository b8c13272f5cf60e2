// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the Bubble Tea front end of zhai.
//
// The model has two views, login and chat. Chat exchanges are run by a
// controller.Controller on a command goroutine; the controller talks to
// the screen through Renderer, which turns every call into a tea.Msg sent
// to the program. All transcript state is therefore only ever touched by
// Update.
//
// Reveal animations are typewriter.Animators stepped on the UI goroutine:
// the clock Renderer hands out schedules each step as a message, so a step
// and a key press never run at the same time.
//
// # Key Types
//
//   - Model: the tea.Model
//   - Deps: the collaborators Model needs
//   - Renderer: controller.Renderer backed by a *tea.Program
//   - KeyMap: key bindings
//
// # Usage
//
//	r := chat.NewRenderer(cfg.UI.TypewriterInterval())
//	ctrl := controller.New(r, client, sessions, controller.Options{Fallback: fb})
//	m := chat.New(chat.Deps{Sessions: sessions, Chat: ctrl, Renderer: r, ...})
//	p := tea.NewProgram(m, tea.WithAltScreen())
//	r.Bind(p)
//	_, err := p.Run()
package chat
