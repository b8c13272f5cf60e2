// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package typewriter

import (
	"sort"
	"sync"
	"time"
)

// Clock schedules f to run once after d.
type Clock interface {
	AfterFunc(d time.Duration, f func())
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

// RealClock returns a Clock backed by time.AfterFunc.
func RealClock() Clock {
	return realClock{}
}

// Run starts a and keeps stepping it on clock until it finishes. The next
// step is scheduled from inside the current one, after it has returned
// its result.
func Run(a *Animator, clock Clock) {
	if !a.Start() {
		return
	}
	var tick func()
	tick = func() {
		if a.Step() {
			clock.AfterFunc(a.interval, tick)
		}
	}
	clock.AfterFunc(a.interval, tick)
}

// Animate creates an Animator for fullText and runs it on clock. The
// returned Animator is the handle: wait on Done, or Cancel it.
func Animate(target Target, fullText string, interval time.Duration, clock Clock) *Animator {
	a := New(target, fullText, interval)
	Run(a, clock)
	return a
}

// =============================================================================
// MANUAL CLOCK
// =============================================================================

// ManualClock is a Clock whose time only moves when Advance or RunAll is
// called. Callbacks run on the caller's goroutine.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []manualTimer
}

type manualTimer struct {
	at  time.Duration
	seq int
	f   func()
}

// NewManualClock returns a ManualClock at time zero.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// AfterFunc implements Clock.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.pending = append(c.pending, manualTimer{at: c.now + d, seq: c.seq, f: f})
}

// Advance moves time forward by d, firing every timer that comes due in
// order, including timers scheduled by the callbacks themselves. It
// returns the number of callbacks fired.
func (c *ManualClock) Advance(d time.Duration) int {
	c.mu.Lock()
	deadline := c.now + d
	c.mu.Unlock()

	fired := 0
	for {
		f, ok := c.popDue(deadline)
		if !ok {
			break
		}
		f()
		fired++
	}

	c.mu.Lock()
	c.now = deadline
	c.mu.Unlock()
	return fired
}

// RunAll fires timers until none are pending, jumping time forward as
// needed. It returns the number of callbacks fired.
func (c *ManualClock) RunAll() int {
	fired := 0
	for {
		c.mu.Lock()
		if len(c.pending) == 0 {
			c.mu.Unlock()
			return fired
		}
		sort.Slice(c.pending, func(i, j int) bool { return c.pending[i].before(c.pending[j]) })
		next := c.pending[0].at
		c.mu.Unlock()
		fired += c.Advance(next - c.Now())
	}
}

// Pending returns the number of scheduled timers.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Now returns the elapsed manual time.
func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) popDue(deadline time.Duration) (func(), bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i, t := range c.pending {
		if t.at > deadline {
			continue
		}
		if idx == -1 || t.before(c.pending[idx]) {
			idx = i
		}
	}
	if idx == -1 {
		return nil, false
	}

	t := c.pending[idx]
	c.pending = append(c.pending[:idx], c.pending[idx+1:]...)
	c.now = t.at
	return t.f, true
}

func (t manualTimer) before(o manualTimer) bool {
	if t.at != o.at {
		return t.at < o.at
	}
	return t.seq < o.seq
}
