// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"strings"
	"text/template"
	"time"

	"github.com/jeranaias/zhai-tui/internal/escape"
)

// HTMLExporter writes a standalone page with inline CSS and no script.
// Text from the transcript reaches the page only through escape.HTML.
type HTMLExporter struct{}

func NewHTMLExporter() *HTMLExporter { return &HTMLExporter{} }

func (e *HTMLExporter) FileExtension() string { return ".html" }
func (e *HTMLExporter) MimeType() string      { return "text/html" }

// Export renders t as HTML.
func (e *HTMLExporter) Export(t *Transcript) ([]byte, error) {
	s, err := t.snapshot()
	if err != nil {
		return nil, err
	}
	page := struct {
		snapshot
		Title      string
		ExportedAt time.Time
	}{s, transcriptTitle(s.User), time.Now()}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// paragraphs escapes text and splits it on blank lines. Line breaks inside
// a paragraph become <br>.
func paragraphs(text string) []string {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		lines := strings.Split(p, "\n")
		for i, l := range lines {
			lines[i] = escape.HTML(l)
		}
		out = append(out, strings.Join(lines, "<br>\n"))
	}
	return out
}

// roleClass keeps arbitrary role strings out of the class attribute.
func roleClass(role string) string {
	switch role {
	case "user", "bot", "error":
		return role
	}
	return "other"
}

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"esc":   escape.HTML,
	"paras": paragraphs,
	"class": roleClass,
	"label": roleLabel,
	"long":  formatTimestamp,
	"short": formatShortTimestamp,
	"human": func(t time.Time) string { return t.Format("January 2, 2006 at 3:04 PM") },
	"rfc":   func(t time.Time) string { return t.Format(time.RFC3339) },
}).Parse(`<!DOCTYPE html>
<html lang="zh">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<meta name="generator" content="zhai-tui">
<meta name="date" content="{{rfc .CreatedAt}}">
<title>{{esc .Title}}</title>
<style>
body { margin: 0; padding: 24px; font: 15px/1.6 -apple-system, "Segoe UI", "PingFang SC", "Microsoft YaHei", sans-serif; background: #181825; color: #cdd6f4; }
main { max-width: 860px; margin: 0 auto; }
header h1 { margin: 0; font-size: 22px; color: #22d3ee; }
.meta, footer, .message-header { color: #6c7086; font-size: 13px; }
.message { margin: 16px 0; padding: 10px 16px; border-left: 3px solid #6c7086; background: #1e1e2e; }
.user-message { border-color: #3b82f6; }
.bot-message { border-color: #a78bfa; }
.error-message { border-color: #fb7185; }
.role-label { font-weight: 600; margin-right: 8px; }
.message p { margin: 6px 0; white-space: pre-wrap; }
footer { margin-top: 32px; text-align: center; }
@media (prefers-color-scheme: light) {
  body { background: #f5f5f5; color: #1f2937; }
  .message { background: #ffffff; }
}
</style>
</head>
<body>
<main>
<header>
<h1>{{esc .Title}}</h1>
<p class="meta">Started {{long .CreatedAt}} &middot; {{len .Messages}} messages</p>
</header>
{{range .Messages}}<div class="message {{class .Role}}-message">
<div class="message-header"><span class="role-label">{{esc (label .Role)}}</span>{{if not .Time.IsZero}}<span class="timestamp">{{short .Time}}</span>{{end}}</div>
{{range paras .Text}}<p>{{.}}</p>
{{end}}</div>
{{end}}<footer>Exported from <strong>zhai</strong> on {{human .ExportedAt}}</footer>
</main>
</body>
</html>
`))
