// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jeranaias/zhai-tui/internal/chatapi"
	"github.com/jeranaias/zhai-tui/internal/ui/styles"
)

func TestHeaderView(t *testing.T) {
	h := NewHeader(styles.NewTheme("dark"))
	h.User = "alice"
	h.Health = HealthUp
	h.SetWidth(60)

	out := ansi.Strip(h.View())
	for _, want := range []string{"翟助手", "alice", "[OK] online"} {
		if !strings.Contains(out, want) {
			t.Errorf("header %q missing %q", out, want)
		}
	}
	if w := lipgloss.Width(strings.Split(h.View(), "\n")[0]); w != 60 {
		t.Errorf("header width = %d, want 60", w)
	}
}

func TestHeaderNarrowDropsUser(t *testing.T) {
	h := NewHeader(styles.NewTheme("dark"))
	h.User = "a-very-long-user-name"
	h.Health = HealthDown
	h.SetWidth(24)

	out := ansi.Strip(h.View())
	if strings.Contains(out, "a-very-long-user-name") {
		t.Errorf("narrow header should drop the user: %q", out)
	}
	if !strings.Contains(out, "offline") {
		t.Errorf("narrow header lost health: %q", out)
	}
}

func TestStatusBarStates(t *testing.T) {
	tests := []struct {
		state chatapi.RequestState
		want  string
	}{
		{chatapi.StateIdle, "[ ] Ready"},
		{chatapi.StateRequesting, "[*] Sending..."},
		{chatapi.StateStreaming, "[*] Receiving..."},
		{chatapi.StateAnswered, "[OK] Answered"},
		{chatapi.StateExhausted, "[!] No reply"},
		{chatapi.StateErrored, "[X] Assistant error"},
		{chatapi.StateFailed, "[X] Connection failed"},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			s := NewStatusBar(styles.NewTheme("dark"))
			s.State = tt.state
			if out := ansi.Strip(s.View()); !strings.Contains(out, tt.want) {
				t.Errorf("status %q missing %q", out, tt.want)
			}
		})
	}
}

func TestStatusBarHintsAndNotice(t *testing.T) {
	s := NewStatusBar(styles.NewTheme("dark"))
	s.SetWidth(100)
	if out := ansi.Strip(s.View()); !strings.Contains(out, "Ctrl+C quit") {
		t.Errorf("wide bar should show all hints: %q", out)
	}

	s.SetWidth(36)
	out := ansi.Strip(s.View())
	if strings.Contains(out, "Ctrl+C quit") || !strings.Contains(out, "Enter send") {
		t.Errorf("narrow bar should drop trailing hints: %q", out)
	}

	s.Notice = "Transcript written to /tmp/chat.html"
	out = ansi.Strip(s.View())
	if strings.Contains(out, "Enter send") || !strings.Contains(out, "Transcript") {
		t.Errorf("notice should replace hints: %q", out)
	}
	if w := lipgloss.Width(s.View()); w != 36 {
		t.Errorf("width = %d, want 36", w)
	}
}

func TestTruncateWidth(t *testing.T) {
	if got := truncateWidth("你好世界你好世界", 9); lipgloss.Width(got) > 9 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncateWidth = %q", got)
	}
	if got := truncateWidth("short", 10); got != "short" {
		t.Errorf("truncateWidth = %q", got)
	}
	if got := truncateWidth("x", 0); got != "" {
		t.Errorf("truncateWidth = %q", got)
	}
}
