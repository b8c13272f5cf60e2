// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package escape

import (
	"html"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// HTML returns text with &, <, >, " and ' replaced by character
// references, so it can be inserted into element content or a quoted
// attribute value.
func HTML(text string) string {
	return html.EscapeString(text)
}

// Terminal returns text that is safe to write to a terminal. ANSI escape
// sequences (CSI, OSC, DCS and friends) are removed, as are the remaining
// C0/C1 control characters except newline and tab. A bare carriage return
// is dropped so a reply cannot overwrite the line it is printed on.
func Terminal(text string) string {
	stripped := ansi.Strip(text)
	if !hasControl(stripped) {
		return stripped
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		if isControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func hasControl(s string) bool {
	for _, r := range s {
		if isControl(r) {
			return true
		}
	}
	return false
}

func isControl(r rune) bool {
	switch {
	case r == '\n' || r == '\t':
		return false
	case r < 0x20 || r == 0x7f:
		return true
	case r >= 0x80 && r <= 0x9f:
		return true
	}
	return false
}
