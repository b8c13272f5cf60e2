// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/zhai-tui/internal/ui/styles"
)

func init() {
	// Piped output and NO_COLOR get plain text.
	lipgloss.SetColorProfile(colorProfile())
}

func fg(c lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

// Styles shared by the commands and the REPL.
var (
	TitleStyle   = fg(styles.Cyan).Bold(true)
	ErrorStyle   = fg(styles.Rose).Bold(true)
	WarningStyle = fg(styles.Amber)
	DimStyle     = fg(styles.TextMuted)

	okStyle    = fg(styles.Emerald).Bold(true)
	labelStyle = fg(styles.TextSecondary).Width(14)
	valueStyle = fg(styles.TextPrimary)

	promptStyle    = fg(styles.Cyan).Bold(true)
	userLabelStyle = promptStyle
	botLabelStyle  = fg(styles.Purple).Bold(true)
	noticeStyle    = fg(styles.TextSecondary).Italic(true)
)

// statusMarks maps the status words the commands print to a bracketed marker.
var statusMarks = map[string]struct {
	mark  string
	style *lipgloss.Style
}{
	"ok":      {"[OK]", &okStyle},
	"healthy": {"[OK]", &okStyle},
	"pass":    {"[OK]", &okStyle},
	"offline": {"[X]", &ErrorStyle},
	"error":   {"[X]", &ErrorStyle},
	"fail":    {"[X]", &ErrorStyle},
	"warn":    {"[!]", &WarningStyle},
	"warning": {"[!]", &WarningStyle},
}

// RenderStatus renders the marker for a status word. Unknown words are
// shown dimmed in upper case.
func RenderStatus(status string) string {
	if m, ok := statusMarks[strings.ToLower(status)]; ok {
		return m.style.Render(m.mark)
	}
	return DimStyle.Render("[" + strings.ToUpper(status) + "]")
}

// RenderField renders one "label value" line.
func RenderField(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}
