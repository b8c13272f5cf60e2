// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/zhai-tui/internal/chatapi"
	"github.com/jeranaias/zhai-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// StatusBar is the bottom line of the chat view.
type StatusBar struct {
	State  chatapi.RequestState // Last observed request state
	Notice string               // Transient message, shown instead of the hints
	Hints  []string             // Key hints, dropped from the end when narrow
	Width  int
	theme  *styles.Theme
}

// NewStatusBar creates a new StatusBar component.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		State: chatapi.StateIdle,
		Hints: []string{"Enter send", "Esc cancel", "/help", "Ctrl+C quit"},
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the status bar width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// SetTheme swaps the theme after a config reload.
func (s *StatusBar) SetTheme(theme *styles.Theme) {
	s.theme = theme
}

// View renders the status bar.
func (s *StatusBar) View() string {
	width := s.Width
	if width < 20 {
		width = 20
	}
	inner := width - 2

	left := s.stateView()

	var right string
	if s.Notice != "" {
		right = s.theme.Notice.Render(truncateWidth(s.Notice, inner-lipgloss.Width(left)-1))
	} else {
		hints := s.Hints
		for len(hints) > 0 {
			right = s.theme.Hint.Render(strings.Join(hints, " · "))
			if lipgloss.Width(left)+lipgloss.Width(right)+1 <= inner {
				break
			}
			hints = hints[:len(hints)-1]
			right = ""
		}
	}

	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return s.theme.StatusBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

// stateView renders the request state with an indicator, so it reads the
// same without color.
func (s *StatusBar) stateView() string {
	label := stateLabel(s.State)
	switch s.State {
	case chatapi.StateRequesting, chatapi.StateStreaming:
		return s.theme.StatusBusy.Render(styles.StatusIndicators.Active + " " + label)
	case chatapi.StateAnswered:
		return s.theme.StatusOK.Render(styles.StatusIndicators.Success + " " + label)
	case chatapi.StateExhausted:
		return s.theme.StatusBusy.Render(styles.StatusIndicators.Warning + " " + label)
	case chatapi.StateErrored, chatapi.StateFailed:
		return s.theme.StatusFail.Render(styles.StatusIndicators.Error + " " + label)
	default:
		return s.theme.Hint.Render(styles.StatusIndicators.Pending + " " + label)
	}
}

func stateLabel(st chatapi.RequestState) string {
	switch st {
	case chatapi.StateRequesting:
		return "Sending..."
	case chatapi.StateStreaming:
		return "Receiving..."
	case chatapi.StateAnswered:
		return "Answered"
	case chatapi.StateErrored:
		return "Assistant error"
	case chatapi.StateExhausted:
		return "No reply"
	case chatapi.StateFailed:
		return "Connection failed"
	default:
		return "Ready"
	}
}

// truncateWidth cuts s to at most width display cells.
func truncateWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+3 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
