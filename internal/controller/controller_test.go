// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/zhai-tui/internal/chatapi"
	"github.com/jeranaias/zhai-tui/internal/chatapi/chatapitest"
	"github.com/jeranaias/zhai-tui/internal/fallback"
	"github.com/jeranaias/zhai-tui/internal/logger"
	"github.com/jeranaias/zhai-tui/internal/session"
	"github.com/jeranaias/zhai-tui/internal/storage"
	"github.com/jeranaias/zhai-tui/internal/typewriter"
)

// =============================================================================
// RECORDING RENDERER
// =============================================================================

type event struct {
	kind string // "append", "typing", "untyping", "reveal"
	role Role
	text string
}

// recorder records every Renderer call. Reveals run on a ManualClock and
// finish before AnimateReveal returns unless hold is set.
type recorder struct {
	mu      sync.Mutex
	events  []event
	typing  int
	maxTyp  int
	clock   *typewriter.ManualClock
	hold    bool
	targets []*botTarget
	started chan struct{}
}

type botTarget struct {
	mu      sync.Mutex
	visible string
	cursor  bool
	frames  int
}

func (b *botTarget) Render(visible string, cursor bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.visible, b.cursor = visible, cursor
	b.frames++
}

func (b *botTarget) ScrollToBottom() {}

func (b *botTarget) state() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visible, b.cursor
}

func newRecorder() *recorder {
	return &recorder{clock: typewriter.NewManualClock(), started: make(chan struct{}, 8)}
}

func (r *recorder) AppendMessage(role Role, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind: "append", role: role, text: text})
}

func (r *recorder) ShowTyping() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind: "typing"})
	r.typing++
	if r.typing > r.maxTyp {
		r.maxTyp = r.typing
	}
}

func (r *recorder) RemoveTyping() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind: "untyping"})
	r.typing--
}

func (r *recorder) AnimateReveal(text string) Reveal {
	target := &botTarget{}
	r.mu.Lock()
	r.events = append(r.events, event{kind: "reveal", role: RoleBot, text: text})
	r.targets = append(r.targets, target)
	hold := r.hold
	r.mu.Unlock()

	a := typewriter.Animate(target, text, time.Millisecond, r.clock)
	if !hold {
		r.clock.RunAll()
	}
	r.started <- struct{}{}
	return a
}

func (r *recorder) snapshot() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

// =============================================================================
// FAKES
// =============================================================================

type fixedSessions struct {
	sess session.Session
	ok   bool
}

func (f fixedSessions) Current() (session.Session, bool) { return f.sess, f.ok }

var alice = fixedSessions{sess: session.Session{UserName: "Alice", UserID: "42", Token: "tok-1"}, ok: true}

// blockingSender waits for release before answering.
type blockingSender struct {
	entered chan struct{}
	release chan struct{}
	calls   int
	mu      sync.Mutex
}

func newBlockingSender() *blockingSender {
	return &blockingSender{entered: make(chan struct{}, 4), release: make(chan struct{})}
}

func (b *blockingSender) Send(ctx context.Context, message, token string) (string, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.entered <- struct{}{}
	select {
	case <-b.release:
		return "done: " + message, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type errSender struct{ err error }

func (e errSender) Send(context.Context, string, string) (string, error) { return "", e.err }

func testController(r Renderer, s Sender, sess Sessions, fb fallback.Responder) *Controller {
	return New(r, s, sess, Options{Fallback: fb, Logger: logger.Discard()})
}

// =============================================================================
// TESTS
// =============================================================================

func TestSubmitAgainstFakeBackend(t *testing.T) {
	srv := chatapitest.NewServer()
	defer srv.Close()
	srv.SetChatChunks(`{"type":"ans`, `wer","response":"Hi"}`+"\n")

	client := chatapi.NewClientWithConfig(&chatapi.ClientConfig{BaseURL: srv.URL, Logger: logger.Discard()})
	store := session.NewStore(storage.NewMemory(), client, session.Options{Logger: logger.Discard()})
	sess, err := store.Login(context.Background(), "Alice")
	require.NoError(t, err)

	rec := newRecorder()
	ctl := testController(rec, client, store, fallback.Apology{})
	ctl.Greet(sess.UserName)

	require.NoError(t, ctl.Submit(context.Background(), "  hello  "))

	assert.Equal(t, []event{
		{kind: "append", role: RoleBot, text: Welcome("Alice")},
		{kind: "append", role: RoleUser, text: "hello"},
		{kind: "typing"},
		{kind: "untyping"},
		{kind: "reveal", role: RoleBot, text: "Hi"},
	}, rec.snapshot())
	assert.Equal(t, "hello", srv.LastMessage())

	visible, cursor := rec.targets[0].state()
	assert.Equal(t, "Hi", visible)
	assert.False(t, cursor)
	assert.False(t, ctl.Busy())
}

func TestRemoteErrorRendersApology(t *testing.T) {
	srv := chatapitest.NewServer()
	defer srv.Close()
	srv.SetChatChunks(chatapitest.Line("error", "boom"))

	client := chatapi.NewClientWithConfig(&chatapi.ClientConfig{BaseURL: srv.URL, Logger: logger.Discard()})
	token := srv.IssueToken("Alice")
	sessions := fixedSessions{sess: session.Session{UserName: "Alice", UserID: "42", Token: token}, ok: true}

	rec := newRecorder()
	ctl := testController(rec, client, sessions, fallback.Apology{})
	require.NoError(t, ctl.Submit(context.Background(), "hi"))

	events := rec.snapshot()
	require.Len(t, events, 4)
	assert.Equal(t, event{kind: "reveal", role: RoleBot, text: fallback.DefaultApology}, events[3])
}

func TestEmptySubmitIsNoop(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		sender := newBlockingSender()
		rec := newRecorder()
		ctl := testController(rec, sender, alice, fallback.Apology{})

		require.NoError(t, ctl.Submit(context.Background(), input))
		assert.Empty(t, rec.snapshot())
		assert.Equal(t, 0, sender.calls)
	}
}

func TestSubmitWithoutSession(t *testing.T) {
	rec := newRecorder()
	sender := newBlockingSender()
	ctl := testController(rec, sender, fixedSessions{}, fallback.Apology{})

	err := ctl.Submit(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.Empty(t, rec.snapshot())
	assert.Equal(t, 0, sender.calls)
}

func TestSubmitWhileBusy(t *testing.T) {
	sender := newBlockingSender()
	rec := newRecorder()
	ctl := testController(rec, sender, alice, fallback.Apology{})

	first := make(chan error, 1)
	go func() { first <- ctl.Submit(context.Background(), "one") }()
	<-sender.entered
	assert.True(t, ctl.Busy())

	err := ctl.Submit(context.Background(), "two")
	assert.ErrorIs(t, err, ErrBusy)

	close(sender.release)
	require.NoError(t, <-first)
	assert.False(t, ctl.Busy())
	assert.Equal(t, 1, sender.calls)

	rec.mu.Lock()
	assert.Equal(t, 1, rec.maxTyp, "never more than one placeholder")
	assert.Equal(t, 0, rec.typing)
	rec.mu.Unlock()

	events := rec.snapshot()
	assert.Equal(t, event{kind: "reveal", role: RoleBot, text: "done: one"}, events[len(events)-1])
}

func TestBusyUntilRevealFinishes(t *testing.T) {
	sender := newBlockingSender()
	close(sender.release)
	rec := newRecorder()
	rec.hold = true
	ctl := testController(rec, sender, alice, fallback.Apology{})

	done := make(chan error, 1)
	go func() { done <- ctl.Submit(context.Background(), "one") }()
	<-rec.started

	assert.True(t, ctl.Busy())
	assert.ErrorIs(t, ctl.Submit(context.Background(), "two"), ErrBusy)

	rec.clock.RunAll()
	require.NoError(t, <-done)
	assert.False(t, ctl.Busy())
}

func TestCancelDuringRequest(t *testing.T) {
	sender := newBlockingSender()
	rec := newRecorder()
	ctl := testController(rec, sender, alice, fallback.Apology{})

	done := make(chan error, 1)
	go func() { done <- ctl.Submit(context.Background(), "hello") }()
	<-sender.entered

	ctl.Cancel()
	assert.ErrorIs(t, <-done, ErrCancelled)

	assert.Equal(t, []event{
		{kind: "append", role: RoleUser, text: "hello"},
		{kind: "typing"},
		{kind: "untyping"},
	}, rec.snapshot())
	assert.False(t, ctl.Busy())
}

func TestCancelDuringReveal(t *testing.T) {
	sender := newBlockingSender()
	close(sender.release)
	rec := newRecorder()
	rec.hold = true
	ctl := testController(rec, sender, alice, fallback.Apology{})

	done := make(chan error, 1)
	go func() { done <- ctl.Submit(context.Background(), "hello") }()
	<-rec.started

	rec.clock.Advance(3 * time.Millisecond)
	ctl.Cancel()
	assert.ErrorIs(t, <-done, ErrCancelled)

	rec.clock.RunAll()
	visible, cursor := rec.targets[0].state()
	assert.Equal(t, "don", visible)
	assert.False(t, cursor)
}

func TestCancelDuringFallback(t *testing.T) {
	entered := make(chan struct{})
	fb := responderFunc(func(ctx context.Context, _ string, _ error) string {
		close(entered)
		<-ctx.Done()
		return "apology after cancel"
	})
	rec := newRecorder()
	failure := &chatapi.ClientError{Type: chatapi.ErrTypeNetworkFailure, Message: "down"}
	ctl := testController(rec, errSender{failure}, alice, fb)

	done := make(chan error, 1)
	go func() { done <- ctl.Submit(context.Background(), "hello") }()
	<-entered

	ctl.Cancel()
	assert.ErrorIs(t, <-done, ErrCancelled)

	assert.Equal(t, []event{
		{kind: "append", role: RoleUser, text: "hello"},
		{kind: "typing"},
		{kind: "untyping"},
	}, rec.snapshot())
	assert.False(t, ctl.Busy())
}

// cancelAfterReveal cancels the exchange the moment its reveal has
// already finished, so both outcomes are ready together.
type cancelAfterReveal struct {
	*recorder
	ctl *Controller
}

func (c *cancelAfterReveal) AnimateReveal(text string) Reveal {
	a := c.recorder.AnimateReveal(text)
	<-a.Done()
	c.ctl.Cancel()
	return a
}

type replySender string

func (r replySender) Send(context.Context, string, string) (string, error) { return string(r), nil }

func TestFinishedRevealWinsOverLateCancel(t *testing.T) {
	for i := 0; i < 20; i++ {
		r := &cancelAfterReveal{recorder: newRecorder()}
		r.ctl = testController(r, replySender("hi"), alice, fallback.Apology{})
		require.NoError(t, r.ctl.Submit(context.Background(), "hello"), "iteration %d", i)
	}
}

func TestStrictModeRendersError(t *testing.T) {
	rec := newRecorder()
	remote := &chatapi.ClientError{Type: chatapi.ErrTypeRemoteError, Message: "boom"}
	ctl := testController(rec, errSender{remote}, alice, nil)
	assert.True(t, ctl.Strict())

	err := ctl.Submit(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, chatapi.IsRemoteError(err))

	events := rec.snapshot()
	require.Len(t, events, 4)
	assert.Equal(t, "untyping", events[2].kind)
	assert.Equal(t, event{kind: "append", role: RoleError, text: "The assistant reported an error: boom"}, events[3])
}

func TestFallbackReceivesCause(t *testing.T) {
	var got error
	fb := responderFunc(func(_ context.Context, msg string, cause error) string {
		got = cause
		return "local: " + msg
	})
	rec := newRecorder()
	ctl := testController(rec, errSender{chatapi.ErrTimeout}, alice, fb)

	require.NoError(t, ctl.Submit(context.Background(), "ping"))
	assert.True(t, errors.Is(got, chatapi.ErrTimeout))

	events := rec.snapshot()
	assert.Equal(t, event{kind: "reveal", role: RoleBot, text: "local: ping"}, events[len(events)-1])
}

func TestErrorNotice(t *testing.T) {
	unauthorized := &chatapi.ClientError{Type: chatapi.ErrTypeNetworkFailure, Message: "chat failed", Status: 401}
	assert.Contains(t, ErrorNotice(unauthorized), "/logout")
	assert.Contains(t, ErrorNotice(chatapi.ErrIdleTimeout), "in time")
	assert.Contains(t, ErrorNotice(chatapi.ErrMissingToken), "Could not reach")
	assert.Contains(t, ErrorNotice(errors.New("weird")), "weird")
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "user", RoleUser.String())
	assert.Equal(t, "bot", RoleBot.String())
	assert.Equal(t, "error", RoleError.String())
	assert.Equal(t, "unknown", Role(9).String())
}

type responderFunc func(ctx context.Context, message string, cause error) string

func (f responderFunc) Respond(ctx context.Context, message string, cause error) string {
	return f(ctx, message, cause)
}
