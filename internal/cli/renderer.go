// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
	"github.com/rivo/uniseg"

	"github.com/jeranaias/zhai-tui/internal/controller"
	"github.com/jeranaias/zhai-tui/internal/escape"
	"github.com/jeranaias/zhai-tui/internal/export"
	"github.com/jeranaias/zhai-tui/internal/typewriter"
	"github.com/jeranaias/zhai-tui/internal/util"
)

// =============================================================================
// LINE RENDERER
// =============================================================================

// lineRenderer implements controller.Renderer on a plain terminal. The
// typing placeholder is a single line erased in place; replies are typed
// out with the trailing cursor and wrapped as they grow.
type lineRenderer struct {
	mu         sync.Mutex
	out        *termenv.Output
	width      int
	interval   time.Duration
	clock      typewriter.Clock
	transcript *export.Transcript
	typing     bool
}

// newLineRenderer writes to w, wrapping at width (0 disables wrapping).
// transcript may be nil.
func newLineRenderer(w io.Writer, width int, interval time.Duration, transcript *export.Transcript) *lineRenderer {
	return &lineRenderer{
		out:        termenv.NewOutput(w, termenv.WithProfile(colorProfile())),
		width:      width,
		interval:   interval,
		clock:      typewriter.RealClock(),
		transcript: transcript,
	}
}

func roleLabel(role controller.Role) string {
	switch role {
	case controller.RoleUser:
		return userLabelStyle.Render("You")
	case controller.RoleError:
		return ErrorStyle.Render("Error")
	default:
		return botLabelStyle.Render("翟助手")
	}
}

// AppendMessage implements controller.Renderer.
func (r *lineRenderer) AppendMessage(role controller.Role, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clearTypingLocked()
	if r.transcript != nil {
		r.transcript.Add(role.String(), text)
	}
	// The user already sees what they typed at the prompt
	if role == controller.RoleUser {
		return
	}
	fmt.Fprintln(r.out, roleLabel(role))
	for _, line := range util.WrapWidth(escape.Terminal(text), r.width) {
		fmt.Fprintln(r.out, line)
	}
	fmt.Fprintln(r.out)
}

// ShowTyping implements controller.Renderer.
func (r *lineRenderer) ShowTyping() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.typing {
		return
	}
	r.typing = true
	fmt.Fprint(r.out, DimStyle.Render("翟助手 is thinking..."))
}

// RemoveTyping implements controller.Renderer.
func (r *lineRenderer) RemoveTyping() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearTypingLocked()
}

func (r *lineRenderer) clearTypingLocked() {
	if !r.typing {
		return
	}
	r.typing = false
	fmt.Fprint(r.out, "\r")
	r.out.ClearLine()
}

// AnimateReveal implements controller.Renderer.
func (r *lineRenderer) AnimateReveal(text string) controller.Reveal {
	r.mu.Lock()
	r.clearTypingLocked()
	fmt.Fprintln(r.out, roleLabel(controller.RoleBot))
	r.mu.Unlock()

	target := &lineTarget{r: r}
	return typewriter.Animate(target, escape.Terminal(text), r.interval, r.clock)
}

// =============================================================================
// LINE TARGET
// =============================================================================

// lineTarget prints the growing reply. It only ever appends: the cursor
// is erased with a backspace before new text is written.
type lineTarget struct {
	r        *lineRenderer
	printed  int // bytes of visible already written
	col      int
	cursorOn bool
}

// Render implements typewriter.Target. cursor is false only for the final
// render, which ends the line and records what was shown in the transcript.
func (t *lineTarget) Render(visible string, cursor bool) {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	out := t.r.out

	if t.cursorOn {
		fmt.Fprint(out, "\b \b")
		t.cursorOn = false
	}
	if t.printed < len(visible) {
		t.write(visible[t.printed:])
		t.printed = len(visible)
	}
	if cursor {
		if t.r.width <= 0 || t.col < t.r.width {
			fmt.Fprint(out, typewriter.Cursor)
			t.cursorOn = true
		}
		return
	}
	fmt.Fprint(out, "\n\n")
	if t.r.transcript != nil {
		t.r.transcript.Add(controller.RoleBot.String(), visible)
	}
}

// write prints s grapheme by grapheme, breaking lines at the wrap width.
func (t *lineTarget) write(s string) {
	out := t.r.out
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		cluster := g.Str()
		if cluster == "\n" {
			fmt.Fprint(out, "\n")
			t.col = 0
			continue
		}
		w := runewidth.StringWidth(cluster)
		if t.r.width > 0 && t.col+w > t.r.width {
			fmt.Fprint(out, "\n")
			t.col = 0
			if cluster == " " {
				continue
			}
		}
		fmt.Fprint(out, cluster)
		t.col += w
	}
}

// ScrollToBottom implements typewriter.Target. A terminal scrolls itself.
func (t *lineTarget) ScrollToBottom() {}

// =============================================================================
// CAPTURE RENDERER
// =============================================================================

// captureRenderer records the outcome of one exchange without drawing.
// Used by ask --json and ask --plain.
type captureRenderer struct {
	mu    sync.Mutex
	reply string
	role  controller.Role
}

func (c *captureRenderer) AppendMessage(role controller.Role, text string) {
	if role == controller.RoleUser {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.role, c.reply = role, text
}

func (c *captureRenderer) ShowTyping()   {}
func (c *captureRenderer) RemoveTyping() {}

func (c *captureRenderer) AnimateReveal(text string) controller.Reveal {
	c.mu.Lock()
	c.role, c.reply = controller.RoleBot, text
	c.mu.Unlock()
	return doneReveal{}
}

func (c *captureRenderer) result() (controller.Role, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role, c.reply
}

// doneReveal is a Reveal that has already finished.
type doneReveal struct{}

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func (doneReveal) Done() <-chan struct{} { return closedCh }
func (doneReveal) Cancel()               {}
