// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import "fmt"

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
}

// LoginResponse is the reply to POST /api/login.
type LoginResponse struct {
	Success  bool   `json:"success"`
	UserName string `json:"user_name"`
	UserID   string `json:"user_id,omitempty"`
	Token    string `json:"token,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// HealthStatus is the reply to GET /health.
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
}

// Healthy reports whether the backend declared itself healthy.
func (h HealthStatus) Healthy() bool {
	return h.Status == "healthy"
}

// errorBody is the FastAPI error shape. Detail is usually a string but
// validation errors carry a list.
type errorBody struct {
	Detail interface{} `json:"detail"`
}

func (b errorBody) text() string {
	switch d := b.Detail.(type) {
	case nil:
		return ""
	case string:
		return d
	default:
		return fmt.Sprint(d)
	}
}

// =============================================================================
// REQUEST STATE
// =============================================================================

// RequestState is the state of one chat exchange.
type RequestState int

const (
	StateIdle RequestState = iota
	StateRequesting
	StateStreaming
	StateAnswered
	StateErrored
	StateExhausted
	StateFailed
)

// String returns the string representation of the state.
func (s RequestState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateStreaming:
		return "streaming"
	case StateAnswered:
		return "answered"
	case StateErrored:
		return "errored"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can follow.
func (s RequestState) Terminal() bool {
	switch s {
	case StateAnswered, StateErrored, StateExhausted, StateFailed:
		return true
	}
	return false
}

// StateObserver is notified of every state transition of every exchange.
// It is called synchronously from the goroutine running Send.
type StateObserver func(requestID string, state RequestState)

// =============================================================================
// END OF STREAM POLICY
// =============================================================================

// NoValidReply is what Send resolves with when a stream ends without a
// terminal record under EndOfStreamSentinel.
const NoValidReply = "Sorry, no valid reply was received from the assistant."

// EndOfStreamPolicy decides what an Exhausted stream means.
type EndOfStreamPolicy int

const (
	// EndOfStreamSentinel resolves with NoValidReply.
	EndOfStreamSentinel EndOfStreamPolicy = iota
	// EndOfStreamFail fails with ErrIncompleteStream.
	EndOfStreamFail
)

// ParseEndOfStreamPolicy accepts "sentinel" and "fail". Empty means
// sentinel.
func ParseEndOfStreamPolicy(s string) (EndOfStreamPolicy, error) {
	switch s {
	case "", "sentinel":
		return EndOfStreamSentinel, nil
	case "fail":
		return EndOfStreamFail, nil
	default:
		return EndOfStreamSentinel, fmt.Errorf("unknown end_of_stream policy %q (want sentinel or fail)", s)
	}
}

// String returns the config name of the policy.
func (p EndOfStreamPolicy) String() string {
	if p == EndOfStreamFail {
		return "fail"
	}
	return "sentinel"
}
