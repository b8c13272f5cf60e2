// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"io"
	"time"
)

// JSONResponse is the envelope every --json command prints. Error is null
// on success; Data is null on failure.
type JSONResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Error     *string     `json:"error"`
	ErrorType string      `json:"error_type,omitempty"`
	Timestamp string      `json:"timestamp"`
	Command   string      `json:"command,omitempty"`
}

func stamp(command string) *JSONResponse {
	return &JSONResponse{
		Command:   command,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// NewJSONResponse wraps the result of a successful command.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	r := stamp(command)
	r.Success, r.Data = true, data
	return r
}

// NewJSONErrorResponse reports err, categorised by errorType.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	r := stamp(command)
	r.Error, r.ErrorType = &msg, errorType(err)
	return r
}

// Print writes r to w as indented JSON followed by a newline.
func (r *JSONResponse) Print(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
