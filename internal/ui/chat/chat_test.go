// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/jeranaias/zhai-tui/internal/chatapi"
	"github.com/jeranaias/zhai-tui/internal/config"
	"github.com/jeranaias/zhai-tui/internal/controller"
	"github.com/jeranaias/zhai-tui/internal/export"
	"github.com/jeranaias/zhai-tui/internal/session"
	"github.com/jeranaias/zhai-tui/internal/typewriter"
	"github.com/jeranaias/zhai-tui/internal/ui/components"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeSessions struct {
	mu       sync.Mutex
	current  session.Session
	loggedIn bool
	loginErr error
	logouts  int
}

func (f *fakeSessions) Current() (session.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.loggedIn
}

func (f *fakeSessions) Login(_ context.Context, name string) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return session.Session{}, f.loginErr
	}
	f.current = session.Session{UserName: name, UserID: "id-" + name, Token: "tok"}
	f.loggedIn = true
	return f.current, nil
}

func (f *fakeSessions) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = session.Session{}
	f.loggedIn = false
	f.logouts++
	return nil
}

type fakeChat struct {
	mu        sync.Mutex
	busy      bool
	submitErr error
	submitted []string
	greeted   []string
	cancels   int
}

func (f *fakeChat) Submit(_ context.Context, raw string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, raw)
	return f.submitErr
}

func (f *fakeChat) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeChat) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

func (f *fakeChat) Greet(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.greeted = append(f.greeted, name)
}

type fakeHealth struct {
	status *chatapi.HealthStatus
	err    error
}

func (f fakeHealth) Health(context.Context) (*chatapi.HealthStatus, error) {
	return f.status, f.err
}

// =============================================================================
// HARNESS
// =============================================================================

type harness struct {
	t        *testing.T
	m        Model
	sessions *fakeSessions
	chat     *fakeChat
	renderer *Renderer
	clock    *typewriter.ManualClock
	copied   []string
	posted   []tea.Msg
}

func newHarness(t *testing.T, loggedIn bool) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		sessions: &fakeSessions{},
		chat:     &fakeChat{},
		clock:    typewriter.NewManualClock(),
	}
	if loggedIn {
		h.sessions.current = session.Session{UserName: "alice", UserID: "id-alice", Token: "tok"}
		h.sessions.loggedIn = true
	}
	h.renderer = NewRenderer(10 * time.Millisecond)
	h.renderer.BindFunc(func(msg tea.Msg) { h.posted = append(h.posted, msg) })

	h.m = New(Deps{
		Sessions: h.sessions,
		Chat:     h.chat,
		Renderer: h.renderer,
		Health:   fakeHealth{status: &chatapi.HealthStatus{Status: "healthy", Service: "zhai"}},
		UI:       config.UIConfig{Theme: "dark", TypewriterIntervalMs: 10},
		Clock:    h.clock,
		Clipboard: func(s string) error {
			h.copied = append(h.copied, s)
			return nil
		},
	})
	h.send(tea.WindowSizeMsg{Width: 80, Height: 24})
	return h
}

// send runs msg through Update and returns the resulting command.
func (h *harness) send(msg tea.Msg) tea.Cmd {
	h.t.Helper()
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

// run executes cmd and feeds its message back into Update.
func (h *harness) run(cmd tea.Cmd) tea.Cmd {
	h.t.Helper()
	if cmd == nil {
		h.t.Fatal("expected a command")
	}
	return h.send(cmd())
}

// flush feeds every message posted through the Renderer into Update.
func (h *harness) flush() {
	h.t.Helper()
	for len(h.posted) > 0 {
		msg := h.posted[0]
		h.posted = h.posted[1:]
		h.send(msg)
	}
}

func (h *harness) typeText(s string) {
	h.m.input.SetValue(s)
}

func (h *harness) enter() tea.Cmd {
	return h.send(tea.KeyMsg{Type: tea.KeyEnter})
}

func (h *harness) lastEntry() *entry {
	h.t.Helper()
	if len(h.m.board.entries) == 0 {
		h.t.Fatal("board is empty")
	}
	return h.m.board.entries[len(h.m.board.entries)-1]
}

// =============================================================================
// LOGIN
// =============================================================================

func TestStartsOnLoginWithoutSession(t *testing.T) {
	h := newHarness(t, false)
	if h.m.screen != screenLogin {
		t.Fatalf("screen = %v, want login", h.m.screen)
	}
	if !strings.Contains(ansi.Strip(h.m.View()), "翟助手") {
		t.Error("login view should show the brand")
	}
}

func TestStartsOnChatWithRestoredSession(t *testing.T) {
	h := newHarness(t, true)
	if h.m.screen != screenChat {
		t.Fatalf("screen = %v, want chat", h.m.screen)
	}
	if h.m.header.User != "alice" {
		t.Errorf("header user = %q", h.m.header.User)
	}
	if h.m.transcript.User() != "alice" {
		t.Errorf("transcript user = %q", h.m.transcript.User())
	}
}

func TestLoginFlowGreets(t *testing.T) {
	h := newHarness(t, false)
	h.m.login.SetValue("bob")

	cmd := h.enter()
	if !h.m.loggingIn {
		t.Error("loggingIn should be set while the request runs")
	}
	h.run(cmd)

	if h.m.screen != screenChat {
		t.Fatalf("screen = %v, want chat", h.m.screen)
	}
	if h.m.header.User != "bob" {
		t.Errorf("header user = %q, want bob", h.m.header.User)
	}
	if len(h.chat.greeted) != 1 || h.chat.greeted[0] != "bob" {
		t.Errorf("greeted = %v, want [bob]", h.chat.greeted)
	}
}

func TestLoginRejectedShowsReason(t *testing.T) {
	h := newHarness(t, false)
	h.sessions.loginErr = &session.LoginRejectedError{Reason: "username must not be empty"}

	h.run(h.enter())

	if h.m.screen != screenLogin {
		t.Fatal("rejected login must stay on the login view")
	}
	if h.m.loginErr != "username must not be empty" {
		t.Errorf("loginErr = %q", h.m.loginErr)
	}
	if len(h.chat.greeted) != 0 {
		t.Error("rejected login must not greet")
	}
}

func TestLoginViewFiltersStrayMessages(t *testing.T) {
	h := newHarness(t, false)

	h.send(appendMsg{role: controller.RoleUser, text: "late"})
	h.send(typingMsg{show: true})
	if len(h.m.board.entries) != 0 || h.m.board.typing {
		t.Fatal("login view must ignore user messages and typing")
	}

	h.renderer.AnimateReveal("late reply")
	h.flush()
	if len(h.m.board.entries) != 0 {
		t.Fatal("login view must drop reveals")
	}

	h.send(appendMsg{role: controller.RoleBot, text: "welcome"})
	if len(h.m.board.entries) != 1 {
		t.Fatal("the greeting must be accepted before the chat view is up")
	}
}

func TestRevealDroppedWhenCancelled(t *testing.T) {
	h := newHarness(t, true)
	reveal := h.renderer.AnimateReveal("never shown")
	reveal.Cancel()
	h.flush()

	if len(h.m.board.entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(h.m.board.entries))
	}
}

// =============================================================================
// RENDERER MESSAGES
// =============================================================================

func TestAppendMessageRecordsTranscript(t *testing.T) {
	h := newHarness(t, true)
	h.renderer.AppendMessage(controller.RoleUser, "你好")
	h.renderer.AppendMessage(controller.RoleError, "boom")
	h.flush()

	entries := h.m.transcript.Entries()
	if len(entries) != 2 {
		t.Fatalf("transcript len = %d, want 2", len(entries))
	}
	if entries[0].Role != "user" || entries[1].Role != "error" {
		t.Errorf("roles = %q, %q", entries[0].Role, entries[1].Role)
	}
	if !strings.Contains(ansi.Strip(h.m.View()), "你好") {
		t.Error("view should contain the user message")
	}
}

func TestTypingPlaceholder(t *testing.T) {
	h := newHarness(t, true)

	h.renderer.ShowTyping()
	msg := h.posted[0]
	h.posted = nil
	if cmd := h.send(msg); cmd == nil {
		t.Error("showing the placeholder should start the spinner")
	}
	if !h.m.board.typing {
		t.Fatal("typing should be shown")
	}
	if !strings.Contains(ansi.Strip(h.m.View()), "thinking") {
		t.Error("view should contain the typing row")
	}

	h.renderer.RemoveTyping()
	h.flush()
	if h.m.board.typing {
		t.Error("typing should be removed")
	}
}

func TestRevealGrowsAndDropsCursor(t *testing.T) {
	h := newHarness(t, true)

	reveal := h.renderer.AnimateReveal("你好呀")
	h.flush()

	e := h.lastEntry()
	if e.role != controller.RoleBot {
		t.Fatalf("role = %v, want bot", e.role)
	}
	if e.text != "" || !e.cursor {
		t.Fatalf("after start: text %q cursor %v, want empty with cursor", e.text, e.cursor)
	}

	h.clock.Advance(10 * time.Millisecond)
	if e.text != "你" || !e.cursor {
		t.Fatalf("after one step: text %q cursor %v", e.text, e.cursor)
	}

	h.clock.RunAll()
	if e.text != "你好呀" || e.cursor {
		t.Fatalf("after finish: text %q cursor %v", e.text, e.cursor)
	}
	select {
	case <-reveal.Done():
	default:
		t.Fatal("reveal should be done")
	}

	last, ok := h.m.transcript.Last("bot")
	if !ok || last.Text != "你好呀" {
		t.Errorf("transcript last bot = %+v, %v", last, ok)
	}
}

func TestCancelledRevealRecordsShownText(t *testing.T) {
	h := newHarness(t, true)

	reveal := h.renderer.AnimateReveal("你好呀")
	h.flush()
	h.clock.Advance(10 * time.Millisecond)
	if _, ok := h.m.transcript.Last("bot"); ok {
		t.Fatal("reply recorded before the reveal ended")
	}

	reveal.Cancel()
	h.clock.RunAll()

	last, ok := h.m.transcript.Last("bot")
	if !ok || last.Text != "你" {
		t.Errorf("transcript last bot = %+v, %v, want the shown text", last, ok)
	}
}

func TestStateMsgUpdatesStatusBar(t *testing.T) {
	h := newHarness(t, true)
	h.renderer.ObserveState("req-1", chatapi.StateStreaming)
	h.flush()
	if h.m.status.State != chatapi.StateStreaming {
		t.Errorf("status state = %v", h.m.status.State)
	}
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmitSendsMessage(t *testing.T) {
	h := newHarness(t, true)
	h.typeText("  hello  ")

	h.run(h.enter())

	if len(h.chat.submitted) != 1 || h.chat.submitted[0] != "hello" {
		t.Fatalf("submitted = %q", h.chat.submitted)
	}
	if h.m.input.Value() != "" {
		t.Errorf("input = %q, want empty", h.m.input.Value())
	}
}

func TestSubmitEmptyIsIgnored(t *testing.T) {
	h := newHarness(t, true)
	h.typeText("   ")
	if cmd := h.enter(); cmd != nil {
		t.Error("blank input should not start a request")
	}
}

func TestSubmitWhileBusyKeepsInput(t *testing.T) {
	h := newHarness(t, true)
	h.chat.busy = true
	h.typeText("second")

	if cmd := h.enter(); cmd != nil {
		t.Error("busy submit should not start a request")
	}
	if h.m.input.Value() != "second" {
		t.Errorf("input = %q, want it kept", h.m.input.Value())
	}
	if h.m.status.Notice != busyNotice {
		t.Errorf("notice = %q", h.m.status.Notice)
	}
}

func TestSubmitDoneBusyRestoresInput(t *testing.T) {
	h := newHarness(t, true)
	h.send(submitDoneMsg{text: "again", err: controller.ErrBusy})
	if h.m.input.Value() != "again" {
		t.Errorf("input = %q, want restored", h.m.input.Value())
	}
}

func TestSubmitDoneNotLoggedInReturnsToLogin(t *testing.T) {
	h := newHarness(t, true)
	h.send(submitDoneMsg{text: "x", err: controller.ErrNotLoggedIn})
	if h.m.screen != screenLogin {
		t.Error("should return to the login view")
	}
}

func TestEscCancelsBusyChat(t *testing.T) {
	h := newHarness(t, true)
	h.chat.busy = true
	h.send(tea.KeyMsg{Type: tea.KeyEsc})
	if h.chat.cancels != 1 {
		t.Errorf("cancels = %d, want 1", h.chat.cancels)
	}
}

func TestQuitCancels(t *testing.T) {
	h := newHarness(t, true)
	cmd := h.send(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("quit should return tea.Quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected QuitMsg")
	}
	if h.chat.cancels != 1 {
		t.Errorf("cancels = %d, want 1", h.chat.cancels)
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func TestUnknownCommandShowsError(t *testing.T) {
	h := newHarness(t, true)
	h.typeText("/nope")
	h.enter()

	e := h.lastEntry()
	if !e.notice || e.role != controller.RoleError || !strings.Contains(e.text, "/help") {
		t.Errorf("entry = %+v", e)
	}
	if len(h.chat.submitted) != 0 {
		t.Error("commands must not be sent to the backend")
	}
}

func TestClearCommand(t *testing.T) {
	h := newHarness(t, true)
	h.send(appendMsg{role: controller.RoleUser, text: "hi"})
	h.typeText("/clear")
	h.enter()

	if len(h.m.board.entries) != 0 {
		t.Errorf("board has %d entries", len(h.m.board.entries))
	}
	if h.m.transcript.Len() != 0 {
		t.Errorf("transcript has %d entries", h.m.transcript.Len())
	}
}

func TestCopyCommand(t *testing.T) {
	h := newHarness(t, true)

	h.typeText("/copy")
	h.enter()
	if len(h.copied) != 0 {
		t.Fatal("nothing should be copied without a reply")
	}

	h.send(appendMsg{role: controller.RoleBot, text: "first"})
	h.send(appendMsg{role: controller.RoleBot, text: "second"})
	h.typeText("/c")
	h.enter()
	if len(h.copied) != 1 || h.copied[0] != "second" {
		t.Errorf("copied = %q", h.copied)
	}
}

func TestExportCommand(t *testing.T) {
	h := newHarness(t, true)
	h.send(appendMsg{role: controller.RoleUser, text: "question"})
	h.send(appendMsg{role: controller.RoleBot, text: "answer"})

	path := filepath.Join(t.TempDir(), "out.md")
	h.typeText("/export " + path)
	h.enter()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), "answer") {
		t.Error("export should contain the reply")
	}
	if e := h.lastEntry(); !strings.Contains(e.text, path) {
		t.Errorf("notice = %q", e.text)
	}
}

func TestExportEmptyTranscript(t *testing.T) {
	h := newHarness(t, true)
	h.typeText("/export " + filepath.Join(t.TempDir(), "x.json"))
	h.enter()
	if e := h.lastEntry(); e.role != controller.RoleError || !strings.Contains(e.text, "Nothing") {
		t.Errorf("entry = %+v", e)
	}
}

func TestWhoAmICommand(t *testing.T) {
	h := newHarness(t, true)
	h.typeText("/whoami")
	h.enter()
	if e := h.lastEntry(); !strings.Contains(e.text, "alice") {
		t.Errorf("notice = %q", e.text)
	}
}

func TestHealthCommand(t *testing.T) {
	h := newHarness(t, true)
	h.typeText("/health")
	h.run(h.enter())

	if h.m.header.Health != components.HealthUp {
		t.Errorf("health = %v, want up", h.m.header.Health)
	}
	if e := h.lastEntry(); !strings.Contains(e.text, "zhai") {
		t.Errorf("notice = %q", e.text)
	}
}

func TestHealthMsgDown(t *testing.T) {
	h := newHarness(t, true)
	h.send(healthMsg{err: errors.New("refused")})
	if h.m.header.Health != components.HealthDown {
		t.Errorf("health = %v, want down", h.m.header.Health)
	}
	if len(h.m.board.entries) != 0 {
		t.Error("a background health check must not add a notice")
	}
}

func TestLogoutCommand(t *testing.T) {
	h := newHarness(t, true)
	h.send(appendMsg{role: controller.RoleUser, text: "hi"})
	h.typeText("/logout")
	h.run(h.enter())

	if h.chat.cancels != 1 {
		t.Errorf("cancels = %d, want 1", h.chat.cancels)
	}
	if h.sessions.logouts != 1 {
		t.Errorf("logouts = %d, want 1", h.sessions.logouts)
	}
	if h.m.screen != screenLogin {
		t.Error("should be on the login view")
	}
	if len(h.m.board.entries) != 0 || h.m.transcript.Len() != 0 {
		t.Error("logout should clear the conversation")
	}
}

func TestHelpToggle(t *testing.T) {
	h := newHarness(t, true)
	h.typeText("/help")
	h.enter()
	if !h.m.showHelp || h.m.helpCache == "" {
		t.Fatal("help should be shown and rendered")
	}
	if !strings.Contains(ansi.Strip(h.m.View()), "/export") {
		t.Error("help should list /export")
	}
	h.send(tea.KeyMsg{Type: tea.KeyEsc})
	if h.m.showHelp {
		t.Error("Esc should close help")
	}
}

func TestTabCompletesCommand(t *testing.T) {
	h := newHarness(t, true)
	h.typeText("/who")
	h.send(tea.KeyMsg{Type: tea.KeyTab})
	if got := h.m.input.Value(); got != "/whoami" {
		t.Errorf("input = %q, want /whoami", got)
	}
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

func TestUIConfigMsgUpdatesInterval(t *testing.T) {
	h := newHarness(t, true)
	h.send(UIConfigMsg{UI: config.UIConfig{Theme: "light", TypewriterIntervalMs: 50}})
	if got := h.renderer.Interval(); got != 50*time.Millisecond {
		t.Errorf("interval = %v, want 50ms", got)
	}
}

func TestTranscriptIsShared(t *testing.T) {
	tr := export.NewTranscript("")
	m := New(Deps{
		Sessions:   &fakeSessions{},
		Chat:       &fakeChat{},
		Transcript: tr,
		Clipboard:  func(string) error { return nil },
	})
	next, _ := m.Update(appendMsg{role: controller.RoleBot, text: "welcome"})
	_ = next
	if tr.Len() != 1 {
		t.Errorf("transcript len = %d, want 1", tr.Len())
	}
}
