// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme is the set of styles the TUI draws with, grouped by the view
// that uses them.
type Theme struct {
	IsDark bool

	Header, HeaderBrand, HeaderUser lipgloss.Style

	UserLabel, UserText lipgloss.Style
	BotLabel, BotText   lipgloss.Style
	ErrorText, Notice   lipgloss.Style
	Typing, Cursor      lipgloss.Style

	InputPrompt, InputBorder lipgloss.Style

	StatusBar                        lipgloss.Style
	StatusOK, StatusBusy, StatusFail lipgloss.Style
	Hint                             lipgloss.Style

	LoginBox, LoginTitle, LoginError lipgloss.Style
}

// NewTheme builds the theme for ui.theme. "dark" and "light" pin the
// background for every adaptive color; anything else asks the terminal.
func NewTheme(mode string) *Theme {
	dark := termenv.HasDarkBackground()
	if m := strings.ToLower(mode); m == "dark" || m == "light" {
		dark = m == "dark"
		lipgloss.SetHasDarkBackground(dark)
	}

	plain := lipgloss.NewStyle
	color := func(c lipgloss.TerminalColor) lipgloss.Style { return plain().Foreground(c) }
	rule := plain().BorderStyle(lipgloss.NormalBorder()).BorderForeground(Overlay).Padding(0, 1)

	return &Theme{
		IsDark: dark,

		Header:      rule.BorderBottom(true).Background(SurfaceDim),
		HeaderBrand: color(Cyan).Bold(true),
		HeaderUser:  color(TextSecondary),

		UserLabel: color(UserBubbleBorder).Bold(true),
		UserText:  color(UserBubbleFg),
		BotLabel:  color(AssistantBubbleBorder).Bold(true),
		BotText:   color(AssistantBubbleFg),
		ErrorText: color(Rose),
		Notice:    color(Amber).Italic(true),
		Typing:    color(Purple).Italic(true),
		Cursor:    color(Purple),

		InputPrompt: color(Cyan).Bold(true),
		InputBorder: rule.BorderTop(true),

		StatusBar:  color(TextSecondary).Background(SurfaceDim).Padding(0, 1),
		StatusOK:   color(Emerald),
		StatusBusy: color(Amber),
		StatusFail: color(Rose),
		Hint:       color(TextMuted),

		LoginBox:   plain().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(Purple).Padding(1, 3),
		LoginTitle: color(Cyan).Bold(true).MarginBottom(1),
		LoginError: color(Rose).MarginTop(1),
	}
}

// =============================================================================
// SPINNER
// =============================================================================

// SpinnerConfig holds the frames of a spinner animation.
type SpinnerConfig struct {
	Frames []string
	FPS    int
}

// DotsSpinner is the typing placeholder animation.
var DotsSpinner = SpinnerConfig{
	Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
	FPS:    6,
}

// Duration returns the duration of each frame.
func (s SpinnerConfig) Duration() time.Duration {
	if s.FPS <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(s.FPS)
}

// Bubble converts the config into a bubbles spinner.
func (s SpinnerConfig) Bubble() spinner.Spinner {
	return spinner.Spinner{Frames: s.Frames, FPS: s.Duration()}
}
