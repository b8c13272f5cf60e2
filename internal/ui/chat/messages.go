// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/zhai-tui/internal/chatapi"
	"github.com/jeranaias/zhai-tui/internal/config"
	"github.com/jeranaias/zhai-tui/internal/controller"
	"github.com/jeranaias/zhai-tui/internal/session"
	"github.com/jeranaias/zhai-tui/internal/typewriter"
)

// =============================================================================
// RENDERER MESSAGES
// =============================================================================

// appendMsg adds a finished message to the transcript.
type appendMsg struct {
	role controller.Role
	text string
}

// typingMsg shows or removes the typing placeholder.
type typingMsg struct {
	show bool
}

// revealMsg adds an empty bot message and starts its animator.
type revealMsg struct {
	entry    *entry
	animator *typewriter.Animator
}

// stepMsg runs one scheduled animation step on the UI goroutine.
type stepMsg struct {
	fn func()
}

// stateMsg carries a chat request state transition.
type stateMsg struct {
	requestID string
	state     chatapi.RequestState
}

// =============================================================================
// COMMAND RESULTS
// =============================================================================

// submitDoneMsg is sent once Controller.Submit returns.
type submitDoneMsg struct {
	text string
	err  error
}

// loginDoneMsg is sent once a login attempt finishes.
type loginDoneMsg struct {
	session session.Session
	err     error
}

// logoutDoneMsg is sent once the session has been cleared.
type logoutDoneMsg struct {
	err error
}

// healthMsg carries the result of a health check. notify is set when the
// user asked for it with /health.
type healthMsg struct {
	status *chatapi.HealthStatus
	err    error
	notify bool
}

// =============================================================================
// EXTERNAL MESSAGES
// =============================================================================

// UIConfigMsg applies a reloaded [ui] config section. Send it to the
// program from the config watcher.
type UIConfigMsg struct {
	UI config.UIConfig
}
