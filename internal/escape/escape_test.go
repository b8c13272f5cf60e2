// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package escape

import (
	"strings"
	"testing"
)

func TestHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "hello"},
		{"tag", "<script>alert(1)</script>", "&lt;script&gt;alert(1)&lt;/script&gt;"},
		{"ampersand", "a & b", "a &amp; b"},
		{"quotes", `say "hi" it's`, "say &#34;hi&#34; it&#39;s"},
		{"empty", "", ""},
		{"multibyte", "你好 <b>", "你好 &lt;b&gt;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTML(tt.input); got != tt.want {
				t.Errorf("HTML(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHTMLNoUnsafeCharacters(t *testing.T) {
	inputs := []string{
		`<img src=x onerror="alert('x')">`,
		"&&&<<<>>>",
		`"'"'`,
		"mixed <b>bold</b> & \"quoted\" 'single'",
	}

	for _, in := range inputs {
		out := HTML(in)
		if strings.ContainsAny(out, `<>"'`) {
			t.Errorf("HTML(%q) = %q, contains unsafe characters", in, out)
		}
		// Every remaining ampersand must start a character reference.
		for i := 0; i < len(out); i++ {
			if out[i] != '&' {
				continue
			}
			rest := out[i:]
			if !strings.HasPrefix(rest, "&amp;") && !strings.HasPrefix(rest, "&lt;") &&
				!strings.HasPrefix(rest, "&gt;") && !strings.HasPrefix(rest, "&#34;") &&
				!strings.HasPrefix(rest, "&#39;") {
				t.Errorf("HTML(%q) has bare ampersand at %d: %q", in, i, out)
			}
		}
	}
}

func TestHTMLNotIdempotent(t *testing.T) {
	once := HTML("&")
	twice := HTML(once)
	if once == twice {
		t.Errorf("expected double escaping to differ, both = %q", once)
	}
	if twice != "&amp;amp;" {
		t.Errorf("HTML(HTML(\"&\")) = %q, want %q", twice, "&amp;amp;")
	}
}

func TestTerminal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello world", "hello world"},
		{"color", "\x1b[31mred\x1b[0m", "red"},
		{"title osc", "\x1b]0;pwned\x07text", "text"},
		{"clear screen", "\x1b[2Jafter", "after"},
		{"bell and backspace", "a\x07b\x08c", "abc"},
		{"carriage return", "line\roverwrite", "lineoverwrite"},
		{"keeps newline and tab", "a\n\tb", "a\n\tb"},
		{"multibyte", "翟助手", "翟助手"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Terminal(tt.input); got != tt.want {
				t.Errorf("Terminal(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
