// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"
	"time"
)

func TestNewThemeForcedModes(t *testing.T) {
	if th := NewTheme("dark"); !th.IsDark {
		t.Error("dark theme should report IsDark")
	}
	if th := NewTheme("LIGHT"); th.IsDark {
		t.Error("light theme should not report IsDark")
	}
}

func TestThemeRendersText(t *testing.T) {
	th := NewTheme("dark")
	if got := th.BotText.Render("hi"); got == "" {
		t.Error("BotText rendered nothing")
	}
}

func TestSpinnerDuration(t *testing.T) {
	if got := DotsSpinner.Duration(); got != time.Second/6 {
		t.Errorf("Duration() = %v, want %v", got, time.Second/6)
	}
	if got := (SpinnerConfig{}).Duration(); got != time.Second {
		t.Errorf("zero FPS Duration() = %v, want 1s", got)
	}

	b := DotsSpinner.Bubble()
	if len(b.Frames) != len(DotsSpinner.Frames) {
		t.Errorf("Bubble() has %d frames, want %d", len(b.Frames), len(DotsSpinner.Frames))
	}
}
