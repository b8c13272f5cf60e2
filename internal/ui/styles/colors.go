// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// adaptive picks the light or dark variant from the terminal background.
func adaptive(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

// Palette. Each color is named for its hue; the comment says where zhai
// uses it.
var (
	Cyan    = adaptive("#0891B2", "#22D3EE") // brand, prompt, user label
	Purple  = adaptive("#7C3AED", "#A78BFA") // 翟助手 label, thinking placeholder
	Emerald = adaptive("#059669", "#34D399") // backend healthy, reply received
	Amber   = adaptive("#D97706", "#FBBF24") // fallback reply, busy
	Rose    = adaptive("#E11D48", "#FB7185") // errors

	SurfaceDim    = adaptive("#F5F5F5", "#181825") // header and status bar
	Overlay       = adaptive("#E5E5E5", "#313244") // borders
	TextPrimary   = adaptive("#1F2937", "#CDD6F4")
	TextSecondary = adaptive("#6B7280", "#A6ADC8")
	TextMuted     = adaptive("#9CA3AF", "#6C7086")

	UserBubbleFg          = adaptive("#1E40AF", "#E0F2FE")
	UserBubbleBorder      = adaptive("#3B82F6", "#3B82F6")
	AssistantBubbleFg     = adaptive("#5B4B8A", "#E9E4F5")
	AssistantBubbleBorder = adaptive("#C4B5FD", "#A78BFA")
)

// StatusIndicatorSet holds the plain text markers drawn before a status so
// it still reads correctly without color.
type StatusIndicatorSet struct {
	Success, Error, Warning, Pending, Active string
}

// StatusIndicators are ASCII so they render in any terminal font.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Pending: "[ ]",
	Active:  "[*]",
}
