// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"strings"
)

// categoryOrder is the order categories appear in help.
var categoryOrder = []string{"Conversation", "Session", "General"}

// HelpMarkdown returns the command reference as Markdown. keys lists
// extra key bindings to document ("Esc", "cancel the reply"), in order.
func (r *Registry) HelpMarkdown(keys [][2]string) string {
	var sb strings.Builder
	sb.WriteString("# 翟助手\n\n")
	sb.WriteString("Type a message and press Enter. Replies appear as they are revealed.\n\n")

	byCat := r.ByCategory()
	seen := make(map[string]bool)
	write := func(cat string) {
		cmds := byCat[cat]
		if len(cmds) == 0 || seen[cat] {
			return
		}
		seen[cat] = true
		sb.WriteString("## " + cat + "\n\n")
		for _, cmd := range cmds {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			line := fmt.Sprintf("- `%s` %s", usage, cmd.Description)
			if len(cmd.Aliases) > 0 {
				line += " (" + strings.Join(cmd.Aliases, ", ") + ")"
			}
			sb.WriteString(line + "\n")
		}
		sb.WriteString("\n")
	}
	for _, cat := range categoryOrder {
		write(cat)
	}
	for cat := range byCat {
		write(cat)
	}

	if len(keys) > 0 {
		sb.WriteString("## Keys\n\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("- `%s` %s\n", k[0], k[1]))
		}
	}
	return sb.String()
}
