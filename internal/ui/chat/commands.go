// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/zhai-tui/internal/commands"
	"github.com/jeranaias/zhai-tui/internal/controller"
	"github.com/jeranaias/zhai-tui/internal/export"
	"github.com/jeranaias/zhai-tui/internal/ui/components"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// runCommand executes a slash command typed into the chat input. Output
// goes to the board as notices.
func (m Model) runCommand(input string) (tea.Model, tea.Cmd) {
	res := m.parser.Parse(input)
	if err := res.Err(); err != nil {
		m.addNotice(controller.RoleError, err.Error())
		return m, nil
	}

	switch res.Command.Name {
	case commands.Help:
		m.toggleHelp()
		return m, nil

	case commands.Quit:
		return m.quit()

	case commands.Clear:
		m.board.clear()
		m.transcript.Clear()
		m.refresh()
		return m, nil

	case commands.Copy:
		m.copyLastReply()
		return m, nil

	case commands.Export:
		m.exportTranscript(res.Arg(0))
		return m, nil

	case commands.WhoAmI:
		if sess, ok := m.sessions.Current(); ok {
			m.addNotice(controller.RoleBot, fmt.Sprintf("Logged in as %s (user id %s).", sess.UserName, sess.UserID))
		} else {
			m.addNotice(controller.RoleError, "Not logged in.")
		}
		return m, nil

	case commands.Health:
		m.header.Health = components.HealthUnknown
		return m, m.checkHealth(true)

	case commands.Logout:
		m.chat.Cancel()
		sessions, ctx := m.sessions, m.ctx
		return m, func() tea.Msg {
			return logoutDoneMsg{err: sessions.Logout(ctx)}
		}
	}

	m.addNotice(controller.RoleError, "Command "+res.Command.Name+" is not available here.")
	return m, nil
}

func (m *Model) copyLastReply() {
	last, ok := m.transcript.Last(controller.RoleBot.String())
	if !ok {
		m.addNotice(controller.RoleError, "Nothing to copy yet.")
		return
	}
	if err := m.clipboard(last.Text); err != nil {
		m.addNotice(controller.RoleError, "Copy failed: "+err.Error())
		return
	}
	m.addNotice(controller.RoleBot, "Copied the last reply to the clipboard.")
}

func (m *Model) exportTranscript(path string) {
	written, err := export.WriteFile(m.transcript, path)
	switch {
	case errors.Is(err, export.ErrEmpty):
		m.addNotice(controller.RoleError, "Nothing to export yet.")
	case err != nil:
		m.addNotice(controller.RoleError, "Export failed: "+err.Error())
	default:
		m.addNotice(controller.RoleBot, "Transcript saved to "+written)
	}
}
