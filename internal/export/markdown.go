// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// MarkdownExporter writes YAML frontmatter followed by one section per
// message.
type MarkdownExporter struct{}

func NewMarkdownExporter() *MarkdownExporter { return &MarkdownExporter{} }

func (e *MarkdownExporter) FileExtension() string { return ".md" }
func (e *MarkdownExporter) MimeType() string      { return "text/markdown" }

// Export renders t as Markdown.
func (e *MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	s, err := t.snapshot()
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	writeFrontmatter(&b, s)
	fmt.Fprintf(&b, "# %s\n\n", transcriptTitle(mdEscaper.Replace(s.User)))
	for i, m := range s.Messages {
		if i > 0 {
			b.WriteString("---\n\n")
		}
		heading := roleLabel(m.Role)
		if !m.Time.IsZero() {
			heading += " <sub>" + formatShortTimestamp(m.Time) + "</sub>"
		}
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", heading, strings.TrimSpace(m.Text))
	}
	fmt.Fprintf(&b, "*Exported from zhai on %s*\n", time.Now().Format("January 2, 2006 at 3:04 PM"))
	return []byte(b.String()), nil
}

func writeFrontmatter(w io.Writer, s snapshot) {
	fmt.Fprintln(w, "---")
	if s.User != "" {
		fmt.Fprintf(w, "user: %s\n", yamlScalar(s.User))
	}
	fmt.Fprintf(w, "date: %s\n", s.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "messages: %d\n", len(s.Messages))
	fmt.Fprint(w, "generator: zhai-tui\n---\n\n")
}

// mdEscaper neutralises heading syntax in user supplied names.
var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "#", `\#`, "*", `\*`, "_", `\_`,
	"[", `\[`, "]", `\]`, "<", `\<`, "\n", " ",
)

var yamlEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)

// yamlScalar double quotes s when it would not survive as a plain scalar.
func yamlScalar(s string) string {
	plain := !strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") &&
		strings.TrimSpace(s) == s
	if plain {
		return s
	}
	return `"` + yamlEscaper.Replace(s) + `"`
}
