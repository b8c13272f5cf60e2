// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/zhai-tui/internal/chatapi"
	"github.com/jeranaias/zhai-tui/internal/config"
	"github.com/jeranaias/zhai-tui/internal/controller"
	"github.com/jeranaias/zhai-tui/internal/session"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates a rejected login or a missing session
	ExitAuthError = 4
	// ExitNetworkError indicates the backend could not be reached
	ExitNetworkError = 5
	// ExitRemoteError indicates the backend answered with an error record
	ExitRemoteError = 6
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports bad arguments.
type UsageError struct {
	Reason string
	Usage  string
}

func (e *UsageError) Error() string {
	if e.Usage != "" {
		return fmt.Sprintf("%s (usage: %s)", e.Reason, e.Usage)
	}
	return e.Reason
}

// reportedError wraps an error whose details the command already printed,
// such as a --json envelope with success=false.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err to w, as a JSON object in JSON mode.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	var re *reportedError
	if err == nil || errors.As(err, &re) {
		return
	}
	if jsonMode {
		NewJSONErrorResponse("", err).Print(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

// errorType names the category of err for JSON output.
func errorType(err error) string {
	var (
		lr    *session.LoginRejectedError
		ce    *chatapi.ClientError
		ue    *UsageError
		verrs config.ValidateErrors
	)
	switch {
	case errors.As(err, &lr):
		return "login_rejected"
	case errors.Is(err, ErrNotLoggedIn), errors.Is(err, controller.ErrNotLoggedIn):
		return "not_logged_in"
	case errors.As(err, &ce):
		return ce.Type.String()
	case errors.As(err, &ue):
		return "usage_error"
	case errors.As(err, &verrs):
		return "config_error"
	default:
		return "generic_error"
	}
}

// GetExitCode maps err to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		lr    *session.LoginRejectedError
		ue    *UsageError
		tty   *TTYRequiredError
		verrs config.ValidateErrors
	)
	switch {
	case errors.As(err, &ue), errors.As(err, &tty):
		return ExitUsageError
	case errors.As(err, &verrs):
		return ExitConfigError
	case errors.As(err, &lr), errors.Is(err, ErrNotLoggedIn), errors.Is(err, controller.ErrNotLoggedIn):
		return ExitAuthError
	case chatapi.IsLoginRejected(err), chatapi.IsUnauthorized(err):
		return ExitAuthError
	case chatapi.IsRemoteError(err):
		return ExitRemoteError
	case chatapi.IsNetworkFailure(err):
		return ExitNetworkError
	}
	return ExitGeneralError
}
