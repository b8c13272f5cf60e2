// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/zhai-tui/internal/chatapi"
	"github.com/jeranaias/zhai-tui/internal/controller"
	"github.com/jeranaias/zhai-tui/internal/typewriter"
)

// =============================================================================
// RENDERER
// =============================================================================

// Renderer implements controller.Renderer by posting messages to a
// program. It must be bound before the controller first uses it, and its
// methods must not be called from inside Update: Program.Send blocks until
// the event loop receives the message.
type Renderer struct {
	mu       sync.Mutex
	send     func(tea.Msg)
	interval time.Duration
}

// NewRenderer creates an unbound Renderer revealing at interval.
func NewRenderer(interval time.Duration) *Renderer {
	if interval <= 0 {
		interval = typewriter.DefaultInterval
	}
	return &Renderer{interval: interval}
}

// Bind attaches the Renderer to p.
func (r *Renderer) Bind(p *tea.Program) {
	r.BindFunc(p.Send)
}

// BindFunc attaches the Renderer to an arbitrary message sink.
func (r *Renderer) BindFunc(send func(tea.Msg)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.send = send
}

// SetInterval changes the reveal cadence of the next reply.
func (r *Renderer) SetInterval(d time.Duration) {
	if d <= 0 {
		d = typewriter.DefaultInterval
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interval = d
}

// Interval returns the current reveal cadence.
func (r *Renderer) Interval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interval
}

func (r *Renderer) post(msg tea.Msg) {
	r.mu.Lock()
	send := r.send
	r.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

// AppendMessage implements controller.Renderer.
func (r *Renderer) AppendMessage(role controller.Role, text string) {
	r.post(appendMsg{role: role, text: text})
}

// ShowTyping implements controller.Renderer.
func (r *Renderer) ShowTyping() {
	r.post(typingMsg{show: true})
}

// RemoveTyping implements controller.Renderer.
func (r *Renderer) RemoveTyping() {
	r.post(typingMsg{show: false})
}

// AnimateReveal implements controller.Renderer. The message and its
// animator are created here; Update appends the message and runs the
// animator.
func (r *Renderer) AnimateReveal(text string) controller.Reveal {
	e := &entry{role: controller.RoleBot}
	a := typewriter.New(e, text, r.Interval())
	r.post(revealMsg{entry: e, animator: a})
	return a
}

// ObserveState is a chatapi.StateObserver feeding the status bar.
func (r *Renderer) ObserveState(requestID string, state chatapi.RequestState) {
	r.post(stateMsg{requestID: requestID, state: state})
}

// Clock returns a typewriter.Clock whose callbacks run inside Update.
func (r *Renderer) Clock() typewriter.Clock {
	return teaClock{r: r}
}

// teaClock turns each scheduled step into a stepMsg.
type teaClock struct {
	r *Renderer
}

func (c teaClock) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, func() { c.r.post(stepMsg{fn: f}) })
}
