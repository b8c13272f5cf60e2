// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// TruncateRunes shortens s to at most maxRunes runes, replacing the tail
// with "..." when it had to cut.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// WrapWidth breaks text into lines no wider than width terminal cells.
// Existing newlines are kept. Words wider than width are split by cell,
// which is how CJK text (no spaces) ends up wrapped.
func WrapWidth(text string, width int) []string {
	if width <= 0 {
		return strings.Split(text, "\n")
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		if para == "" {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, wrapParagraph(para, width)...)
	}
	return lines
}

func wrapParagraph(para string, width int) []string {
	var (
		lines []string
		line  strings.Builder
		lineW int
	)
	flush := func() {
		lines = append(lines, line.String())
		line.Reset()
		lineW = 0
	}

	for i, word := range strings.Split(para, " ") {
		wordW := runewidth.StringWidth(word)
		sep := 0
		if i > 0 && lineW > 0 {
			sep = 1
		}

		if lineW+sep+wordW <= width {
			if sep == 1 {
				line.WriteByte(' ')
			}
			line.WriteString(word)
			lineW += sep + wordW
			continue
		}

		if lineW > 0 {
			flush()
		}
		for _, r := range word {
			rw := runewidth.RuneWidth(r)
			if lineW+rw > width && lineW > 0 {
				flush()
			}
			line.WriteRune(r)
			lineW += rw
		}
	}
	if lineW > 0 || len(lines) == 0 {
		flush()
	}
	return lines
}
