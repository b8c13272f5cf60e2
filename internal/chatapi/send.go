// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/jeranaias/zhai-tui/internal/stream"
)

// Send posts message with the bearer token and reads the reply stream.
//
// It resolves with the response of the first "answer" record, fails with
// a RemoteError on an "error" record, and fails with a NetworkFailure on
// transport errors, timeouts and non-success statuses. An empty token
// fails with ErrMissingToken before any request is made.
func (c *Client) Send(ctx context.Context, message, token string) (string, error) {
	x := &exchange{
		client: c,
		id:     uuid.NewString(),
	}
	x.log = c.log.With("request_id", x.id)
	return x.run(ctx, message, token)
}

// exchange is the per-call state machine behind Send.
type exchange struct {
	client *Client
	id     string
	state  RequestState
	log    *log.Logger
}

func (x *exchange) transition(s RequestState) {
	x.state = s
	x.log.Debug("chat state", "state", s)
	if obs := x.client.config.OnState; obs != nil {
		obs(x.id, s)
	}
}

func (x *exchange) run(ctx context.Context, message, token string) (string, error) {
	c := x.client

	if strings.TrimSpace(token) == "" {
		x.transition(StateFailed)
		return "", ErrMissingToken
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()
	ctx, cancelCause := context.WithCancelCause(ctx)
	defer cancelCause(nil)

	body, err := json.Marshal(ChatRequest{Message: message})
	if err != nil {
		x.transition(StateFailed)
		return "", &ClientError{Type: ErrTypeNetworkFailure, Message: "failed to encode chat request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		x.transition(StateFailed)
		return "", &ClientError{Type: ErrTypeNetworkFailure, Message: "failed to create request", Cause: err}
	}
	c.setHeaders(req, x.id)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")
	req.Header.Set("Authorization", "Bearer "+token)

	x.transition(StateRequesting)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		x.transition(StateFailed)
		return "", transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		x.transition(StateFailed)
		return "", statusError(resp, "chat")
	}

	x.transition(StateStreaming)
	return x.consume(ctx, resp, cancelCause)
}

// consume reads the body until the first terminal record.
func (x *exchange) consume(ctx context.Context, resp *http.Response, cancelCause context.CancelCauseFunc) (string, error) {
	c := x.client

	idle := time.AfterFunc(c.config.IdleTimeout, func() { cancelCause(errIdle) })
	defer idle.Stop()

	reader := stream.NewReader(resp.Body, stream.NewDecoder(c.charset)).
		OnChunk(func(int) { idle.Reset(c.config.IdleTimeout) })

	var (
		answer   string
		answered bool
		remote   *ClientError
	)
	err := reader.Process(ctx, func(res stream.Result) bool {
		if res.Err != nil {
			x.log.Warn("skipping malformed stream line", "line", res.Line, "err", res.Err)
			return true
		}
		switch res.Record.Type {
		case stream.TypeAnswer:
			answer, answered = res.Record.Response, true
			return false
		case stream.TypeError:
			remote = &ClientError{Type: ErrTypeRemoteError, Message: res.Record.Response}
			return false
		default:
			x.log.Debug("ignoring stream record", "line", res.Line, "type", res.Record.Type)
			return true
		}
	})

	stats := reader.Decoder().Stats()
	switch {
	case answered:
		x.transition(StateAnswered)
		x.log.Debug("answer received", "lines", stats.Lines, "bytes", stats.Bytes)
		return answer, nil
	case remote != nil:
		x.transition(StateErrored)
		return "", remote
	case err != nil:
		x.transition(StateFailed)
		return "", transportError(ctx, err)
	}

	if pending := reader.Decoder().Pending(); pending != "" {
		x.log.Debug("discarding unterminated final line", "bytes", len(pending))
	}
	x.transition(StateExhausted)
	if c.config.EndOfStream == EndOfStreamFail {
		return "", ErrIncompleteStream
	}
	x.log.Warn("stream ended without a terminal record", "lines", stats.Lines, "decode_errors", stats.Errors)
	return NoValidReply, nil
}
