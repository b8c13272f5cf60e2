// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/zhai-tui/internal/controller"
	"github.com/jeranaias/zhai-tui/internal/escape"
	"github.com/jeranaias/zhai-tui/internal/typewriter"
	"github.com/jeranaias/zhai-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the active screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	if m.screen == screenLogin {
		return m.loginView()
	}
	return m.chatView()
}

func (m Model) chatView() string {
	body := m.viewport.View()
	if m.showHelp {
		body = m.helpView()
	}

	input := m.theme.InputBorder.Width(max(m.width-2, 1)).Render(m.input.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header.View(),
		body,
		input,
		m.status.View(),
	)
}

func (m Model) loginView() string {
	var b strings.Builder
	b.WriteString(m.theme.LoginTitle.Render("翟助手"))
	b.WriteString("\n\n")
	b.WriteString("Enter a username to start chatting.\n\n")
	b.WriteString(m.login.View())
	b.WriteString("\n")

	switch {
	case m.loggingIn:
		b.WriteString("\n" + m.theme.Hint.Render("Logging in..."))
	case m.loginErr != "":
		b.WriteString("\n" + m.theme.LoginError.Render(m.loginErr))
	}
	b.WriteString("\n\n" + m.theme.Hint.Render("Enter log in  Ctrl+C quit"))

	box := m.theme.LoginBox.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// helpView returns the help rendered by renderHelp.
func (m Model) helpView() string {
	return fitHeight(m.helpCache, m.viewport.Height)
}

// renderHelp renders the command help with glamour. It is a no-op when
// the cached copy matches the current width.
func (m *Model) renderHelp() {
	width := max(m.viewport.Width-2, 20)
	if m.helpCache != "" && m.helpWidth == width {
		return
	}

	md := m.registry.HelpMarkdown(m.keys.HelpKeys())
	style := "light"
	if m.theme.IsDark {
		style = "dark"
	}
	m.helpCache, m.helpWidth = md, width

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return
	}
	if out, err := r.Render(md); err == nil {
		m.helpCache = out
	}
}

// fitHeight pads or cuts s to exactly height lines.
func fitHeight(s string, height int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// TRANSCRIPT RENDERING
// =============================================================================

// renderBoard renders every entry plus the typing row.
func (m Model) renderBoard() string {
	width := m.viewport.Width - 2
	if width < 10 {
		width = 10
	}

	var b strings.Builder
	for i, e := range m.board.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderEntry(e, width))
		b.WriteString("\n")
	}
	if m.board.typing {
		if len(m.board.entries) > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.theme.BotLabel.Render("翟助手"))
		b.WriteString("\n")
		b.WriteString(m.spinner.View() + " " + m.theme.Typing.Render("thinking..."))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderEntry(e *entry, width int) string {
	text := escape.Terminal(e.text)

	if e.notice {
		style := m.theme.Notice
		if e.role == controller.RoleError {
			style = m.theme.ErrorText
		}
		return renderLines(util.WrapWidth(text, width), style, "")
	}

	var label, textStyle lipgloss.Style
	var name string
	switch e.role {
	case controller.RoleUser:
		label, textStyle, name = m.theme.UserLabel, m.theme.UserText, "You"
	case controller.RoleError:
		label, textStyle, name = m.theme.ErrorText, m.theme.ErrorText, "Error"
	default:
		label, textStyle, name = m.theme.BotLabel, m.theme.BotText, "翟助手"
	}

	cursor := ""
	if e.cursor {
		cursor = m.theme.Cursor.Render(typewriter.Cursor)
	}
	return label.Render(name) + "\n" + renderLines(util.WrapWidth(text, width), textStyle, cursor)
}

// renderLines styles each line on its own so lipgloss does not pad short
// lines to the widest one, then appends suffix to the last line.
func renderLines(lines []string, style lipgloss.Style, suffix string) string {
	if len(lines) == 0 {
		return suffix
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		if line == "" {
			continue
		}
		out[i] = style.Render(line)
	}
	out[len(out)-1] += suffix
	return strings.Join(out, "\n")
}
