// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package typewriter

import (
	"strings"
	"sync"
	"time"

	"github.com/rivo/uniseg"
)

// DefaultInterval is the delay between two revealed units.
const DefaultInterval = 30 * time.Millisecond

// Cursor is the marker adapters draw after the visible text while a reveal
// is in progress.
const Cursor = "▌"

// =============================================================================
// TARGET
// =============================================================================

// Target receives the visible text of one message.
//
// Render is called with the full visible prefix every time it changes;
// cursor reports whether the cursor marker must follow it. The final call
// always has cursor == false.
type Target interface {
	Render(visible string, cursor bool)
	ScrollToBottom()
}

// =============================================================================
// STATE MACHINE
// =============================================================================

// State is the lifecycle state of an Animator.
type State int

const (
	StateIdle State = iota
	StateRevealing
	StateDone
	StateCancelled
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRevealing:
		return "revealing"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Animator reveals one string into one Target. An Animator owns its target
// exclusively for its lifetime; callers create a fresh target per message.
type Animator struct {
	mu        sync.Mutex
	target    Target
	units     []string
	shown     int
	visible   strings.Builder
	interval  time.Duration
	state     State
	cancelled bool
	done      chan struct{}
}

// New creates an idle Animator. A non-positive interval means
// DefaultInterval.
func New(target Target, fullText string, interval time.Duration) *Animator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Animator{
		target:   target,
		units:    splitUnits(fullText),
		interval: interval,
		done:     make(chan struct{}),
	}
}

func splitUnits(s string) []string {
	var units []string
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		units = append(units, g.Str())
	}
	return units
}

// Start moves the Animator from Idle to Revealing and draws the bare
// cursor. Empty text completes immediately with the cursor removed.
// Start reports whether Step must be called.
func (a *Animator) Start() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateIdle {
		return false
	}

	a.state = StateRevealing
	if len(a.units) == 0 {
		a.target.Render("", false)
		a.finish(StateDone)
		return false
	}
	a.target.Render("", true)
	return true
}

// Step reveals the next unit and scrolls the target. It reports whether
// more steps remain. A pending cancellation is honored here: the cursor is
// removed, the text revealed so far stays, and Step returns false.
func (a *Animator) Step() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateRevealing {
		return false
	}
	if a.cancelled {
		a.target.Render(a.visible.String(), false)
		a.finish(StateCancelled)
		return false
	}

	a.visible.WriteString(a.units[a.shown])
	a.shown++
	last := a.shown == len(a.units)

	a.target.Render(a.visible.String(), !last)
	a.target.ScrollToBottom()

	if last {
		a.finish(StateDone)
		return false
	}
	return true
}

// Cancel asks the Animator to stop. An idle Animator is cancelled at once;
// a revealing one stops at its next Step. Cancel is safe to call from any
// goroutine and more than once.
func (a *Animator) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case StateIdle:
		a.cancelled = true
		a.finish(StateCancelled)
	case StateRevealing:
		a.cancelled = true
	}
}

// finish must be called with mu held.
func (a *Animator) finish(s State) {
	a.state = s
	select {
	case <-a.done:
	default:
		close(a.done)
	}
}

// Done is closed once the Animator reaches Done or Cancelled.
func (a *Animator) Done() <-chan struct{} {
	return a.done
}

// State returns the current state.
func (a *Animator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Visible returns the text revealed so far.
func (a *Animator) Visible() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.visible.String()
}

// Interval returns the delay between steps.
func (a *Animator) Interval() time.Duration {
	return a.interval
}

// Len returns the number of units the full text has.
func (a *Animator) Len() int {
	return len(a.units)
}
