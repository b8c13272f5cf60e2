// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/zhai-tui/internal/chatapi"
	"github.com/jeranaias/zhai-tui/internal/fallback"
	"github.com/jeranaias/zhai-tui/internal/logger"
	"github.com/jeranaias/zhai-tui/internal/session"
)

// =============================================================================
// INTERFACES
// =============================================================================

// Role identifies the author of a rendered message.
type Role int

const (
	RoleUser Role = iota
	RoleBot
	// RoleError is a failure notice, only rendered in strict mode.
	RoleError
)

// String returns the string representation of the role.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleBot:
		return "bot"
	case RoleError:
		return "error"
	default:
		return "unknown"
	}
}

// Reveal is a running reveal animation. *typewriter.Animator implements
// it.
type Reveal interface {
	Done() <-chan struct{}
	Cancel()
}

// Renderer is the display capability the controller drives.
//
// AnimateReveal appends a new bot message and starts revealing text into
// it. Implementations must be safe to call from the goroutine running
// Submit.
type Renderer interface {
	AppendMessage(role Role, text string)
	ShowTyping()
	RemoveTyping()
	AnimateReveal(text string) Reveal
}

// Sender sends one chat message. *chatapi.Client implements it.
type Sender interface {
	Send(ctx context.Context, message, token string) (string, error)
}

// Sessions supplies the current session. *session.Store implements it.
type Sessions interface {
	Current() (session.Session, bool)
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotLoggedIn is returned by Submit without a session.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrBusy is returned by Submit while another exchange is in flight.
	ErrBusy = errors.New("a reply is still in progress")
	// ErrCancelled is returned by Submit when Cancel interrupted it.
	ErrCancelled = errors.New("request cancelled")
)

// =============================================================================
// CONTROLLER
// =============================================================================

// Options configures New.
type Options struct {
	// Fallback answers failed exchanges. Nil is strict mode: failures are
	// rendered as RoleError notices and returned from Submit.
	Fallback fallback.Responder
	// Logger (default: logger.WithPrefix("controller"))
	Logger *log.Logger
}

// Controller runs exchanges for one conversation.
type Controller struct {
	r        Renderer
	sender   Sender
	sessions Sessions
	fallback fallback.Responder
	log      *log.Logger

	mu     sync.Mutex
	busy   bool
	cancel context.CancelFunc
}

// New creates a Controller.
func New(r Renderer, sender Sender, sessions Sessions, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = logger.WithPrefix("controller")
	}
	return &Controller{
		r:        r,
		sender:   sender,
		sessions: sessions,
		fallback: opts.Fallback,
		log:      opts.Logger,
	}
}

// Strict reports whether failures are surfaced instead of answered.
func (c *Controller) Strict() bool {
	return c.fallback == nil
}

// Busy reports whether an exchange is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Cancel interrupts the exchange in flight, if any. A pending request is
// abandoned with its placeholder removed and no reply; a running reveal
// stops where it is.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Greet renders the welcome message for a freshly logged in user.
func (c *Controller) Greet(userName string) {
	c.r.AppendMessage(RoleBot, Welcome(userName))
}

// Welcome returns the greeting shown after login.
func Welcome(userName string) string {
	return fmt.Sprintf("你好，%s！欢迎使用翟助手，有什么可以帮你的吗？", userName)
}

func (c *Controller) begin(ctx context.Context) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return nil, ErrBusy
	}
	reqCtx, cancel := context.WithCancel(ctx)
	c.busy = true
	c.cancel = cancel
	return reqCtx, nil
}

func (c *Controller) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.busy = false
	c.cancel = nil
}

// Submit sends raw as a chat message and renders the exchange. It blocks
// until the reply has been fully revealed.
//
// Blank input is ignored. Without a session Submit returns ErrNotLoggedIn
// before rendering anything; with an exchange in flight it returns
// ErrBusy. A failed request is answered by the fallback, so in the
// default mode Submit only fails for those reasons or ErrCancelled.
func (c *Controller) Submit(ctx context.Context, raw string) error {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}

	sess, ok := c.sessions.Current()
	if !ok {
		return ErrNotLoggedIn
	}

	reqCtx, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer c.end()

	c.r.AppendMessage(RoleUser, text)
	c.r.ShowTyping()

	reply, sendErr := c.sender.Send(reqCtx, text, sess.Token)
	if c.cancelled(reqCtx) {
		return ErrCancelled
	}

	if sendErr != nil {
		if chatapi.IsUnauthorized(sendErr) {
			c.log.Warn("backend refused the session token, log in again", "user", sess.UserName)
		}
		if c.fallback == nil {
			c.r.RemoveTyping()
			c.r.AppendMessage(RoleError, ErrorNotice(sendErr))
			return sendErr
		}
		c.log.Warn("chat failed, answering locally", "err", sendErr)
		reply = c.fallback.Respond(reqCtx, text, sendErr)
		if c.cancelled(reqCtx) {
			return ErrCancelled
		}
	}

	c.r.RemoveTyping()
	reveal := c.r.AnimateReveal(reply)
	select {
	case <-reveal.Done():
		return nil
	case <-reqCtx.Done():
		select {
		case <-reveal.Done():
			// Finished in the same instant; the whole reply was shown.
			return nil
		default:
		}
		reveal.Cancel()
		if errors.Is(reqCtx.Err(), context.Canceled) {
			return ErrCancelled
		}
		return reqCtx.Err()
	}
}

// ErrorNotice is the strict mode text for a failed exchange.
func ErrorNotice(err error) string {
	var ce *chatapi.ClientError
	switch {
	case chatapi.IsUnauthorized(err):
		return "Session expired or invalid. Use /logout and log in again."
	case chatapi.IsTimeout(err):
		return "The assistant did not answer in time."
	case chatapi.IsRemoteError(err) && errors.As(err, &ce):
		return "The assistant reported an error: " + ce.Message
	case chatapi.IsNetworkFailure(err):
		return "Could not reach the assistant: " + err.Error()
	default:
		return "Request failed: " + err.Error()
	}
}

// cancelled removes the placeholder when the exchange was cancelled while
// waiting on the backend or the fallback.
func (c *Controller) cancelled(reqCtx context.Context) bool {
	if !errors.Is(reqCtx.Err(), context.Canceled) {
		return false
	}
	c.r.RemoveTyping()
	c.log.Debug("exchange cancelled before reply")
	return true
}
