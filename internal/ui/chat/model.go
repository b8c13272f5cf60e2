// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/zhai-tui/internal/chatapi"
	"github.com/jeranaias/zhai-tui/internal/commands"
	"github.com/jeranaias/zhai-tui/internal/config"
	"github.com/jeranaias/zhai-tui/internal/controller"
	"github.com/jeranaias/zhai-tui/internal/export"
	"github.com/jeranaias/zhai-tui/internal/session"
	"github.com/jeranaias/zhai-tui/internal/typewriter"
	"github.com/jeranaias/zhai-tui/internal/ui/components"
	"github.com/jeranaias/zhai-tui/internal/ui/styles"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Sessions is the session capability of the TUI. *session.Store
// implements it.
type Sessions interface {
	Current() (session.Session, bool)
	Login(ctx context.Context, username string) (session.Session, error)
	Logout(ctx context.Context) error
}

// Chat runs exchanges. *controller.Controller implements it.
type Chat interface {
	Submit(ctx context.Context, raw string) error
	Cancel()
	Busy() bool
	Greet(userName string)
}

// HealthChecker probes the backend. *chatapi.Client implements it.
type HealthChecker interface {
	Health(ctx context.Context) (*chatapi.HealthStatus, error)
}

// Deps are the collaborators of a Model.
type Deps struct {
	// Ctx bounds every request the model starts (default: Background)
	Ctx context.Context

	Sessions Sessions
	Chat     Chat
	Renderer *Renderer

	// Health is optional; without it the header stays "checking"
	Health HealthChecker

	// Transcript records what was shown (default: a new one)
	Transcript *export.Transcript

	// UI is the [ui] config section
	UI config.UIConfig

	// Clock steps reveal animations (default: Renderer.Clock())
	Clock typewriter.Clock

	// Clipboard writes /copy output (default: atotto/clipboard)
	Clipboard func(string) error
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// screen is the active view.
type screen int

const (
	screenLogin screen = iota
	screenChat
)

const (
	busyNotice = "Still replying. Wait for it or press Esc to cancel."

	// chrome is the number of lines taken by header, input and status bar.
	chrome = 5
)

// Model is the Bubble Tea model of the TUI.
type Model struct {
	ctx        context.Context
	sessions   Sessions
	chat       Chat
	renderer   *Renderer
	health     HealthChecker
	transcript *export.Transcript
	clock      typewriter.Clock
	clipboard  func(string) error

	ui    config.UIConfig
	theme *styles.Theme
	keys  KeyMap

	screen screen
	width  int
	height int
	ready  bool

	viewport viewport.Model
	input    textinput.Model
	login    textinput.Model
	spinner  spinner.Model
	header   *components.Header
	status   *components.StatusBar

	// Pointer so entries can reach it across Update copies
	board *board

	parser    *commands.Parser
	registry  *commands.Registry
	completer *commands.Completer

	loggingIn bool
	loginErr  string
	showHelp  bool
	helpCache string
	helpWidth int
	quitting  bool
}

// New creates the model. It opens on the chat view when Deps.Sessions
// already holds a session, on the login view otherwise.
func New(deps Deps) Model {
	if deps.Ctx == nil {
		deps.Ctx = context.Background()
	}
	if deps.Renderer == nil {
		deps.Renderer = NewRenderer(deps.UI.TypewriterInterval())
	}
	if deps.Clock == nil {
		deps.Clock = deps.Renderer.Clock()
	}
	if deps.Clipboard == nil {
		deps.Clipboard = clipboard.WriteAll
	}
	if deps.Transcript == nil {
		deps.Transcript = export.NewTranscript("")
	}

	theme := styles.NewTheme(deps.UI.Theme)

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message, or /help"
	ti.CharLimit = 4096

	li := textinput.New()
	li.Prompt = ""
	li.Placeholder = "username"
	li.CharLimit = session.MaxUserNameLength * 4

	sp := spinner.New()
	sp.Spinner = styles.DotsSpinner.Bubble()

	vp := viewport.New(80, 20)

	registry := commands.NewRegistry()

	m := Model{
		ctx:        deps.Ctx,
		sessions:   deps.Sessions,
		chat:       deps.Chat,
		renderer:   deps.Renderer,
		health:     deps.Health,
		transcript: deps.Transcript,
		clock:      deps.Clock,
		clipboard:  deps.Clipboard,
		ui:         deps.UI,
		theme:      theme,
		keys:       DefaultKeyMap(),
		viewport:   vp,
		input:      ti,
		login:      li,
		spinner:    sp,
		header:     components.NewHeader(theme),
		status:     components.NewStatusBar(theme),
		board:      &board{},
		registry:   registry,
		parser:     commands.NewParser(registry),
		completer:  commands.NewCompleter(registry),
	}

	m.input.PromptStyle = theme.InputPrompt
	if sess, ok := deps.Sessions.Current(); ok {
		m.enterChat(sess)
	} else {
		m.login.Focus()
	}
	return m
}

// enterChat switches to the chat view for sess.
func (m *Model) enterChat(sess session.Session) tea.Cmd {
	m.screen = screenChat
	m.header.User = sess.UserName
	m.transcript.SetUser(sess.UserName)
	m.login.Reset()
	m.login.Blur()
	m.loginErr = ""
	return m.input.Focus()
}

// enterLogin switches to the login view and drops everything on screen.
func (m *Model) enterLogin(reason string) tea.Cmd {
	m.screen = screenLogin
	m.board.clear()
	m.transcript.Clear()
	m.header.User = ""
	m.status.State = chatapi.StateIdle
	m.status.Notice = ""
	m.showHelp = false
	m.input.Reset()
	m.input.Blur()
	m.loginErr = reason
	m.refresh()
	return m.login.Focus()
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blink and the health check, and greets a
// restored session.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.checkHealth(false)}
	if m.screen == screenChat {
		if sess, ok := m.sessions.Current(); ok {
			chat := m.chat
			cmds = append(cmds, func() tea.Msg {
				chat.Greet(sess.UserName)
				return nil
			})
		}
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.screen == screenChat {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil

	case appendMsg:
		// Only the greeting may arrive before the chat view is up
		if m.screen == screenLogin && msg.role != controller.RoleBot {
			return m, nil
		}
		m.board.add(&entry{role: msg.role, text: msg.text})
		m.transcript.Add(msg.role.String(), msg.text)
		m.refresh()
		return m, nil

	case typingMsg:
		wasTyping := m.board.typing
		m.board.typing = msg.show && m.screen == screenChat
		if m.board.typing {
			m.board.wantBottom = true
		}
		m.refresh()
		if m.board.typing && !wasTyping {
			return m, m.spinner.Tick
		}
		return m, nil

	case revealMsg:
		if m.screen == screenLogin || msg.animator.State() == typewriter.StateCancelled {
			msg.animator.Cancel()
			return m, nil
		}
		transcript := m.transcript
		msg.entry.shown = func(text string) { transcript.Add(controller.RoleBot.String(), text) }
		m.board.add(msg.entry)
		typewriter.Run(msg.animator, m.clock)
		m.refresh()
		return m, nil

	case stepMsg:
		msg.fn()
		m.refresh()
		return m, nil

	case stateMsg:
		m.status.State = msg.state
		return m, nil

	case spinner.TickMsg:
		if !m.board.typing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case submitDoneMsg:
		return m.handleSubmitDone(msg)

	case loginDoneMsg:
		m.loggingIn = false
		if msg.err != nil {
			m.loginErr = loginErrorText(msg.err)
			return m, nil
		}
		cmd := m.enterChat(msg.session)
		m.refresh()
		return m, cmd

	case logoutDoneMsg:
		reason := ""
		if msg.err != nil {
			reason = "Logout did not clear the saved session: " + msg.err.Error()
		}
		return m, m.enterLogin(reason)

	case healthMsg:
		m.applyHealth(msg)
		return m, nil

	case UIConfigMsg:
		m.applyUIConfig(msg.UI)
		return m, nil
	}

	// Cursor blink and other input internals
	var cmd tea.Cmd
	if m.screen == screenLogin {
		m.login, cmd = m.login.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m.quit()
	}
	if m.screen == screenLogin {
		return m.handleLoginKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.toggleHelp()
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if m.chat.Busy() {
			m.chat.Cancel()
			m.status.Notice = "Cancelling..."
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Complete):
		m.complete()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	case key.Matches(msg, m.keys.HalfUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.HalfDown):
		m.viewport.HalfViewDown()
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, m.keys.Submit) {
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		return m, cmd
	}
	if m.loggingIn {
		return m, nil
	}

	name := m.login.Value()
	m.loggingIn = true
	m.loginErr = ""

	sessions, chat, ctx := m.sessions, m.chat, m.ctx
	return m, func() tea.Msg {
		sess, err := sessions.Login(ctx, name)
		if err == nil {
			// Posts through the Renderer, so it must run here and not in Update
			chat.Greet(sess.UserName)
		}
		return loginDoneMsg{session: sess, err: err}
	}
}

// submit sends the input as a chat message or runs it as a command.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if commands.IsCommand(text) {
		m.input.Reset()
		return m.runCommand(text)
	}
	if m.chat.Busy() {
		m.status.Notice = busyNotice
		return m, nil
	}

	m.input.Reset()
	m.status.Notice = ""
	m.showHelp = false

	chat, ctx := m.chat, m.ctx
	return m, func() tea.Msg {
		return submitDoneMsg{text: text, err: chat.Submit(ctx, text)}
	}
}

func (m Model) handleSubmitDone(msg submitDoneMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err == nil:
		if m.status.Notice == busyNotice {
			m.status.Notice = ""
		}
	case errors.Is(msg.err, controller.ErrBusy):
		if m.input.Value() == "" {
			m.input.SetValue(msg.text)
			m.input.CursorEnd()
		}
		m.status.Notice = busyNotice
	case errors.Is(msg.err, controller.ErrCancelled):
		m.status.Notice = "Reply cancelled."
	case errors.Is(msg.err, controller.ErrNotLoggedIn):
		return m, m.enterLogin("Please log in first.")
	default:
		// Strict mode; the error notice is already on screen
		m.status.Notice = "Request failed."
	}
	return m, nil
}

// complete applies tab completion to the input.
func (m *Model) complete() {
	value := m.input.Value()
	lines := m.completer.Line(value)
	switch len(lines) {
	case 0:
		return
	case 1:
		m.input.SetValue(lines[0])
		m.input.CursorEnd()
	default:
		comps := m.completer.Complete(value, len(value))
		names := make([]string, 0, len(comps))
		for _, c := range comps {
			names = append(names, c.Display)
		}
		m.status.Notice = strings.Join(names, "  ")
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.chat.Cancel()
	return m, tea.Quit
}

// =============================================================================
// HELPERS
// =============================================================================

func (m Model) checkHealth(notify bool) tea.Cmd {
	if m.health == nil {
		return nil
	}
	h, ctx := m.health, m.ctx
	return func() tea.Msg {
		status, err := h.Health(ctx)
		return healthMsg{status: status, err: err, notify: notify}
	}
}

func (m *Model) applyHealth(msg healthMsg) {
	up := msg.err == nil && msg.status != nil && msg.status.Healthy()
	if up {
		m.header.Health = components.HealthUp
	} else {
		m.header.Health = components.HealthDown
	}
	if !msg.notify || m.screen != screenChat {
		return
	}

	switch {
	case up:
		text := "Backend is healthy."
		if msg.status.Service != "" {
			text = "Backend is healthy (" + msg.status.Service + ")."
		}
		m.addNotice(controller.RoleBot, text)
	case msg.err != nil:
		m.addNotice(controller.RoleError, "Backend unreachable: "+msg.err.Error())
	default:
		m.addNotice(controller.RoleError, "Backend reports status "+msg.status.Status+".")
	}
}

func (m *Model) applyUIConfig(ui config.UIConfig) {
	m.ui = ui
	m.renderer.SetInterval(ui.TypewriterInterval())
	m.theme = styles.NewTheme(ui.Theme)
	m.header.SetTheme(m.theme)
	m.status.SetTheme(m.theme)
	m.input.PromptStyle = m.theme.InputPrompt
	m.helpCache = ""
	if m.showHelp {
		m.renderHelp()
	}
	m.refresh()
}

// toggleHelp shows or hides the help in place of the transcript.
func (m *Model) toggleHelp() {
	m.showHelp = !m.showHelp
	if m.showHelp {
		m.renderHelp()
	}
}

// addNotice shows local command output. Notices are not part of the
// transcript.
func (m *Model) addNotice(role controller.Role, text string) {
	m.board.add(&entry{role: role, text: text, notice: true})
	m.refresh()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.ready = true

	m.header.SetWidth(width)
	m.status.SetWidth(width)

	m.viewport.Width = width
	m.viewport.Height = height - chrome
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
	m.input.Width = width - 4 - len(m.input.Prompt)
	m.login.Width = 24
	if m.showHelp {
		m.renderHelp()
	}
	m.refresh()
}

// refresh re-renders the transcript into the viewport, following the
// bottom when at the bottom already or when asked to.
func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderBoard())
	if atBottom || m.board.wantBottom {
		m.viewport.GotoBottom()
	}
	m.board.wantBottom = false
}

func loginErrorText(err error) string {
	var lr *session.LoginRejectedError
	if errors.As(err, &lr) {
		return lr.Reason
	}
	return controller.ErrorNotice(err)
}
