// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/zhai-tui/internal/ui/styles"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Health is the last known backend health.
type Health int

const (
	HealthUnknown Health = iota
	HealthUp
	HealthDown
)

// String returns the display string for the health state.
func (h Health) String() string {
	switch h {
	case HealthUp:
		return "online"
	case HealthDown:
		return "offline"
	default:
		return "checking"
	}
}

// Header is the title bar.
type Header struct {
	Title  string // Brand (default: "翟助手")
	User   string // Logged in user, empty when logged out
	Health Health
	Width  int
	theme  *styles.Theme
}

// NewHeader creates a new Header component with default values.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "翟助手",
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetTheme swaps the theme after a config reload.
func (h *Header) SetTheme(theme *styles.Theme) {
	h.theme = theme
}

// View renders the header: brand and user on the left, health on the
// right.
func (h *Header) View() string {
	width := h.Width
	if width < 20 {
		width = 20
	}
	// Header style has one column of padding on each side
	inner := width - 2

	left := h.theme.HeaderBrand.Render(h.Title)
	if h.User != "" {
		left += h.theme.HeaderUser.Render("  " + h.User)
	}
	right := h.healthView()

	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		// Too narrow for both; health wins over the user name
		left = h.theme.HeaderBrand.Render(h.Title)
		gap = inner - lipgloss.Width(left) - lipgloss.Width(right)
		if gap < 1 {
			gap = 1
		}
	}

	return h.theme.Header.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func (h *Header) healthView() string {
	switch h.Health {
	case HealthUp:
		return h.theme.StatusOK.Render(styles.StatusIndicators.Success + " " + h.Health.String())
	case HealthDown:
		return h.theme.StatusFail.Render(styles.StatusIndicators.Error + " " + h.Health.String())
	default:
		return h.theme.Hint.Render(styles.StatusIndicators.Pending + " " + h.Health.String())
	}
}
