// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/peterh/liner"
	"github.com/sourcegraph/conc"

	"github.com/jeranaias/zhai-tui/internal/commands"
	"github.com/jeranaias/zhai-tui/internal/config"
	"github.com/jeranaias/zhai-tui/internal/controller"
	"github.com/jeranaias/zhai-tui/internal/export"
	"github.com/jeranaias/zhai-tui/internal/session"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineInput provides line editing, history and tab completion.
type lineInput struct {
	line        *liner.State
	historyFile string
}

func newLineInput(completer *commands.Completer) *lineInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completer.Line)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	in := &lineInput{line: line, historyFile: filepath.Join(configDir, "chat_history")}
	if f, err := os.Open(in.historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

// Prompt reads one line, adding it to the history.
func (in *lineInput) Prompt(prompt string) (string, error) {
	text, err := in.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		in.line.AppendHistory(text)
	}
	return text, nil
}

// Close saves the history with 0600 permissions and restores the
// terminal.
func (in *lineInput) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			in.line.WriteHistory(f)
			f.Close()
		}
	}
	in.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// Chat is what the REPL needs from the controller.
type Chat interface {
	Submit(ctx context.Context, raw string) error
	Cancel()
	Greet(userName string)
}

// Sessions is what the REPL needs from the session store.
type Sessions interface {
	Current() (session.Session, bool)
	Login(ctx context.Context, username string) (session.Session, error)
	Logout(ctx context.Context) error
}

// repl runs the line based chat. Reading input is abstracted so the
// command handling can be driven without a terminal.
type repl struct {
	out        io.Writer
	prompt     func(string) (string, error)
	chat       Chat
	sessions   Sessions
	health     func(ctx context.Context) (string, error)
	transcript *export.Transcript
	parser     *commands.Parser
	registry   *commands.Registry
	clipboard  func(string) error
	interrupts <-chan os.Signal
	log        *log.Logger
}

func newREPL(out io.Writer, chat Chat, sessions Sessions, transcript *export.Transcript) *repl {
	registry := commands.NewRegistry()
	return &repl{
		out:        out,
		chat:       chat,
		sessions:   sessions,
		transcript: transcript,
		registry:   registry,
		parser:     commands.NewParser(registry),
		clipboard:  clipboard.WriteAll,
		log:        log.New(io.Discard),
	}
}

// runREPL wires the line front end and runs it until /quit or EOF.
func (app *App) runREPL(ctx context.Context, cfg *config.Config, path string) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}
	// Logs would interleave with the conversation; --log-file still works
	rt, err := app.wire(ctx, cfg, path, true, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	transcript := export.NewTranscript("")
	r := newLineRenderer(app.Out, wrapWidth(cfg.UI.WordWrap), cfg.UI.TypewriterInterval(), transcript)
	ctrl := controller.New(r, rt.Client, rt.Sessions, controller.Options{Fallback: rt.Fallback})

	registry := commands.NewRegistry()
	input := newLineInput(commands.NewCompleter(registry))
	defer input.Close()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	loop := newREPL(app.Out, ctrl, rt.Sessions, transcript)
	loop.prompt = input.Prompt
	loop.interrupts = sigs
	loop.log = rt.Log
	loop.health = func(ctx context.Context) (string, error) {
		h, err := rt.Client.Health(ctx)
		if err != nil {
			return "", err
		}
		if !h.Healthy() {
			return "", fmt.Errorf("backend reports status %q", h.Status)
		}
		return h.Service, nil
	}
	return loop.run(ctx)
}

// run is the read loop.
func (l *repl) run(ctx context.Context) error {
	fmt.Fprintln(l.out, TitleStyle.Render("翟助手")+DimStyle.Render("  /help for commands, Ctrl+D to quit"))
	fmt.Fprintln(l.out)

	for {
		if _, ok := l.sessions.Current(); !ok {
			if done, err := l.login(ctx); done || err != nil {
				return err
			}
			continue
		}

		text, err := l.prompt(promptStyle.Render("you> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(l.out)
				return nil
			}
			return err
		}
		if quit := l.handle(ctx, text); quit {
			return nil
		}
	}
}

// login prompts for a username until a login succeeds. done is set when
// the user gave up.
func (l *repl) login(ctx context.Context) (done bool, err error) {
	for {
		name, err := l.prompt(promptStyle.Render("username> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(l.out)
				return true, nil
			}
			return true, err
		}

		sess, err := l.sessions.Login(ctx, name)
		if err != nil {
			var lr *session.LoginRejectedError
			if errors.As(err, &lr) {
				l.notice(ErrorStyle.Render(lr.Reason))
			} else {
				l.notice(ErrorStyle.Render(controller.ErrorNotice(err)))
			}
			continue
		}
		l.transcript.SetUser(sess.UserName)
		l.chat.Greet(sess.UserName)
		return false, nil
	}
}

// handle processes one input line. It reports whether the REPL should
// exit.
func (l *repl) handle(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if commands.IsCommand(text) {
		return l.command(ctx, text)
	}
	l.submit(ctx, text)
	return false
}

// submit runs one exchange while watching for Ctrl+C, which cancels it.
func (l *repl) submit(ctx context.Context, text string) {
	// Drop interrupts that arrived while no request was running
	for len(l.interrupts) > 0 {
		<-l.interrupts
	}

	done := make(chan struct{})
	var submitErr error

	var wg conc.WaitGroup
	wg.Go(func() {
		defer close(done)
		submitErr = l.chat.Submit(ctx, text)
	})
	wg.Go(func() {
		select {
		case <-done:
		case <-l.interrupts:
			l.chat.Cancel()
		}
	})
	wg.Wait()

	switch {
	case submitErr == nil:
	case errors.Is(submitErr, controller.ErrCancelled):
		l.notice(WarningStyle.Render("[Cancelled]"))
	case errors.Is(submitErr, controller.ErrNotLoggedIn):
		l.notice(WarningStyle.Render("Session expired. Please log in again."))
	default:
		l.log.Debug("submit failed", "err", submitErr)
	}
}

// command runs a slash command. It reports whether the REPL should exit.
func (l *repl) command(ctx context.Context, text string) bool {
	res := l.parser.Parse(text)
	if err := res.Err(); err != nil {
		l.notice(ErrorStyle.Render(err.Error()))
		return false
	}

	switch res.Command.Name {
	case commands.Help:
		l.printHelp()

	case commands.Quit:
		return true

	case commands.Clear:
		l.transcript.Clear()
		termenv.NewOutput(l.out).ClearScreen()

	case commands.Copy:
		last, ok := l.transcript.Last(controller.RoleBot.String())
		switch {
		case !ok:
			l.notice(ErrorStyle.Render("Nothing to copy yet."))
		case l.clipboard(last.Text) != nil:
			l.notice(ErrorStyle.Render("Copy failed: clipboard unavailable"))
		default:
			l.notice(noticeStyle.Render("Copied the last reply to the clipboard."))
		}

	case commands.Export:
		path, err := export.WriteFile(l.transcript, res.Arg(0))
		switch {
		case errors.Is(err, export.ErrEmpty):
			l.notice(ErrorStyle.Render("Nothing to export yet."))
		case err != nil:
			l.notice(ErrorStyle.Render("Export failed: " + err.Error()))
		default:
			l.notice(noticeStyle.Render("Transcript saved to " + path))
		}

	case commands.WhoAmI:
		if sess, ok := l.sessions.Current(); ok {
			l.notice(RenderField("user", sess.UserName) + "\n" + RenderField("user id", sess.UserID))
		}

	case commands.Health:
		if l.health == nil {
			l.notice(DimStyle.Render("Health check unavailable."))
			break
		}
		service, err := l.health(ctx)
		if err != nil {
			l.notice(RenderStatus("offline") + " " + err.Error())
		} else {
			l.notice(RenderStatus("healthy") + " " + service)
		}

	case commands.Logout:
		l.chat.Cancel()
		if err := l.sessions.Logout(ctx); err != nil {
			l.notice(ErrorStyle.Render("Logout failed: " + err.Error()))
			break
		}
		l.transcript.Clear()
		l.notice(noticeStyle.Render("Logged out."))
	}
	return false
}

func (l *repl) printHelp() {
	md := l.registry.HelpMarkdown([][2]string{
		{"Ctrl+C", "cancel the reply"},
		{"Ctrl+D", "quit"},
		{"Tab", "complete a command"},
	})
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrapWidth(0)),
	)
	if err == nil {
		if out, err := r.Render(md); err == nil {
			fmt.Fprint(l.out, out)
			return
		}
	}
	fmt.Fprintln(l.out, md)
}

func (l *repl) notice(text string) {
	fmt.Fprintln(l.out, text)
	fmt.Fprintln(l.out)
}
