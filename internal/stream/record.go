// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import "fmt"

// Record types with meaning to the client. Any other type is passed
// through and ignored by consumers.
const (
	TypeAnswer = "answer"
	TypeError  = "error"
)

// Record is one decoded stream object.
type Record struct {
	Type     string `json:"type"`
	Response string `json:"response"`
}

// Terminal reports whether the record ends the exchange.
func (r Record) Terminal() bool {
	return r.Type == TypeAnswer || r.Type == TypeError
}

// Result is the outcome of decoding one complete line: a Record, or a
// *DecodeError for that line alone.
type Result struct {
	Line   int
	Record Record
	Err    error
}

// DecodeError reports a line that could not be parsed as a Record.
type DecodeError struct {
	Line int
	Raw  string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("stream line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
