// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package typewriter

import (
	"strings"
	"testing"
	"time"
)

type frame struct {
	visible string
	cursor  bool
}

type recordingTarget struct {
	frames  []frame
	scrolls int
}

func (r *recordingTarget) Render(visible string, cursor bool) {
	r.frames = append(r.frames, frame{visible, cursor})
}

func (r *recordingTarget) ScrollToBottom() {
	r.scrolls++
}

func (r *recordingTarget) last() frame {
	if len(r.frames) == 0 {
		return frame{}
	}
	return r.frames[len(r.frames)-1]
}

func TestAnimatorRevealsOneUnitPerStep(t *testing.T) {
	target := &recordingTarget{}
	a := New(target, "abc", 0)

	if a.Interval() != DefaultInterval {
		t.Errorf("Interval() = %v, want %v", a.Interval(), DefaultInterval)
	}
	if a.State() != StateIdle {
		t.Fatalf("State() = %v, want idle", a.State())
	}
	if a.Step() {
		t.Fatal("Step() before Start() = true, want false")
	}
	if !a.Start() {
		t.Fatal("Start() = false, want true")
	}

	var steps int
	for a.Step() {
		steps++
	}
	steps++ // the final step returns false

	want := []frame{
		{"", true},
		{"a", true},
		{"ab", true},
		{"abc", false},
	}
	if len(target.frames) != len(want) {
		t.Fatalf("got %d frames, want %d: %+v", len(target.frames), len(want), target.frames)
	}
	for i := range want {
		if target.frames[i] != want[i] {
			t.Errorf("frame %d = %+v, want %+v", i, target.frames[i], want[i])
		}
	}
	if steps != 3 {
		t.Errorf("steps = %d, want 3", steps)
	}
	if target.scrolls != 3 {
		t.Errorf("scrolls = %d, want one per revealed unit (3)", target.scrolls)
	}
	if a.State() != StateDone {
		t.Errorf("State() = %v, want done", a.State())
	}
	select {
	case <-a.Done():
	default:
		t.Error("Done() not closed after completion")
	}
}

func TestAnimatorVisibleGrowsMonotonically(t *testing.T) {
	target := &recordingTarget{}
	text := "翟助手 says hi"
	a := New(target, text, time.Millisecond)
	a.Start()
	for a.Step() {
	}

	prev := ""
	for _, f := range target.frames {
		if !strings.HasPrefix(f.visible, prev) {
			t.Fatalf("frame %q does not extend %q", f.visible, prev)
		}
		prev = f.visible
	}
	if prev != text {
		t.Errorf("final visible = %q, want %q", prev, text)
	}
	if a.Visible() != text {
		t.Errorf("Visible() = %q, want %q", a.Visible(), text)
	}
}

func TestAnimatorEmptyTextCompletesImmediately(t *testing.T) {
	target := &recordingTarget{}
	a := New(target, "", 0)

	if a.Start() {
		t.Error("Start() = true for empty text, want false")
	}
	if a.State() != StateDone {
		t.Errorf("State() = %v, want done", a.State())
	}
	if got := target.last(); got != (frame{"", false}) {
		t.Errorf("last frame = %+v, want cursor removed with no text", got)
	}
	if target.scrolls != 0 {
		t.Errorf("scrolls = %d, want 0", target.scrolls)
	}
	select {
	case <-a.Done():
	default:
		t.Error("Done() not closed")
	}
}

func TestAnimatorGraphemeUnits(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"ascii", "hey", 3},
		{"combining accent", "é", 1},
		{"skin tone emoji", "👍🏽", 1},
		{"flag", "🇨🇳", 1},
		{"cjk", "你好", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(&recordingTarget{}, tt.text, 0)
			if a.Len() != tt.want {
				t.Errorf("Len() = %d, want %d", a.Len(), tt.want)
			}
		})
	}
}

func TestAnimatorCancel(t *testing.T) {
	t.Run("mid reveal", func(t *testing.T) {
		target := &recordingTarget{}
		a := New(target, "hello", 0)
		a.Start()
		a.Step()
		a.Step()

		a.Cancel()
		if a.State() != StateRevealing {
			t.Fatalf("State() right after Cancel() = %v, want revealing until next step", a.State())
		}
		if a.Step() {
			t.Error("Step() after Cancel() = true, want false")
		}
		if a.State() != StateCancelled {
			t.Errorf("State() = %v, want cancelled", a.State())
		}
		if got := target.last(); got != (frame{"he", false}) {
			t.Errorf("last frame = %+v, want partial text without cursor", got)
		}
		select {
		case <-a.Done():
		default:
			t.Error("Done() not closed after cancellation")
		}
	})

	t.Run("before start", func(t *testing.T) {
		target := &recordingTarget{}
		a := New(target, "hello", 0)
		a.Cancel()
		a.Cancel()

		if a.Start() {
			t.Error("Start() after Cancel() = true, want false")
		}
		if len(target.frames) != 0 {
			t.Errorf("frames = %+v, want none", target.frames)
		}
		if a.State() != StateCancelled {
			t.Errorf("State() = %v, want cancelled", a.State())
		}
	})

	t.Run("after done is a no-op", func(t *testing.T) {
		a := New(&recordingTarget{}, "x", 0)
		a.Start()
		a.Step()
		a.Cancel()
		if a.State() != StateDone {
			t.Errorf("State() = %v, want done", a.State())
		}
	})
}

func TestRunWithManualClock(t *testing.T) {
	clock := NewManualClock()
	target := &recordingTarget{}
	a := Animate(target, "hey", 30*time.Millisecond, clock)

	if got := target.last(); got != (frame{"", true}) {
		t.Fatalf("after Animate() last frame = %+v, want bare cursor", got)
	}
	if clock.Pending() != 1 {
		t.Fatalf("Pending() = %d, want exactly one scheduled step", clock.Pending())
	}

	if n := clock.Advance(29 * time.Millisecond); n != 0 {
		t.Errorf("Advance(29ms) fired %d, want 0", n)
	}
	if n := clock.Advance(time.Millisecond); n != 1 {
		t.Errorf("Advance(1ms) fired %d, want 1", n)
	}
	if got := target.last(); got != (frame{"h", true}) {
		t.Errorf("last frame = %+v, want %+v", got, frame{"h", true})
	}
	if clock.Pending() != 1 {
		t.Errorf("Pending() = %d, want next step scheduled only after the current one", clock.Pending())
	}

	clock.RunAll()
	if a.State() != StateDone {
		t.Errorf("State() = %v, want done", a.State())
	}
	if got := target.last(); got != (frame{"hey", false}) {
		t.Errorf("last frame = %+v, want full text without cursor", got)
	}
	if clock.Now() != 90*time.Millisecond {
		t.Errorf("Now() = %v, want 90ms", clock.Now())
	}
}

func TestRunCancelStopsScheduling(t *testing.T) {
	clock := NewManualClock()
	target := &recordingTarget{}
	a := Animate(target, "abcdef", 10*time.Millisecond, clock)

	clock.Advance(20 * time.Millisecond)
	a.Cancel()
	clock.RunAll()

	if a.State() != StateCancelled {
		t.Fatalf("State() = %v, want cancelled", a.State())
	}
	if clock.Pending() != 0 {
		t.Errorf("Pending() = %d after cancellation, want 0", clock.Pending())
	}
	if got := target.last(); got != (frame{"ab", false}) {
		t.Errorf("last frame = %+v, want %+v", got, frame{"ab", false})
	}
}

func TestRunRealClock(t *testing.T) {
	target := &recordingTarget{}
	a := Animate(target, "ok", time.Millisecond, RealClock())

	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("animation did not finish on the real clock")
	}
	if a.Visible() != "ok" {
		t.Errorf("Visible() = %q, want %q", a.Visible(), "ok")
	}
}
