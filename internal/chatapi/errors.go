// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"errors"
	"net/http"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the chat client.
type ClientError struct {
	Type    ErrorType
	Message string
	// Status is the HTTP status code when the server answered with a
	// non-success status, zero otherwise.
	Status int
	Cause  error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	// ErrTypeNetworkFailure covers transport errors, timeouts, non-success
	// statuses and unreadable responses.
	ErrTypeNetworkFailure
	// ErrTypeRemoteError is an explicit "error" record in the chat stream.
	ErrTypeRemoteError
	// ErrTypeLoginRejected is a login reply with success=false.
	ErrTypeLoginRejected
	// ErrTypeMissingToken means Send was called without a bearer token.
	ErrTypeMissingToken
)

// String returns the string representation of the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeNetworkFailure:
		return "NetworkFailure"
	case ErrTypeRemoteError:
		return "RemoteError"
	case ErrTypeLoginRejected:
		return "LoginRejected"
	case ErrTypeMissingToken:
		return "MissingToken"
	default:
		return "Unknown"
	}
}

// Sentinel errors for easy checking.
var (
	ErrMissingToken     = &ClientError{Type: ErrTypeMissingToken, Message: "missing bearer token"}
	ErrTimeout          = &ClientError{Type: ErrTypeNetworkFailure, Message: "request timed out"}
	ErrIdleTimeout      = &ClientError{Type: ErrTypeNetworkFailure, Message: "no data received from chat service"}
	ErrIncompleteStream = &ClientError{Type: ErrTypeNetworkFailure, Message: "chat stream ended without a reply"}
)

// errIdle is the cancellation cause set by the idle timer.
var errIdle = errors.New("idle timeout")

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

func errorType(err error) ErrorType {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Type
	}
	return ErrTypeUnknown
}

// IsNetworkFailure reports whether err is a transport-level failure. A
// missing token counts: either way no reply came from the server.
func IsNetworkFailure(err error) bool {
	t := errorType(err)
	return t == ErrTypeNetworkFailure || t == ErrTypeMissingToken
}

// IsRemoteError reports whether the server sent an explicit error record.
func IsRemoteError(err error) bool {
	return errorType(err) == ErrTypeRemoteError
}

// IsLoginRejected reports whether a login was refused.
func IsLoginRejected(err error) bool {
	return errorType(err) == ErrTypeLoginRejected
}

// IsUnauthorized reports whether the server rejected the bearer token.
func IsUnauthorized(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Status == http.StatusUnauthorized
}

// IsTimeout reports whether the request hit the total or idle timeout.
func IsTimeout(err error) bool {
	var ce *ClientError
	if !errors.As(err, &ce) {
		return false
	}
	return ce == ErrTimeout || ce == ErrIdleTimeout
}
