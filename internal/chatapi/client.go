// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/text/encoding"

	"github.com/jeranaias/zhai-tui/internal/logger"
	"github.com/jeranaias/zhai-tui/internal/stream"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

const (
	// DefaultBaseURL is where the backend listens when started locally.
	DefaultBaseURL = "http://127.0.0.1:8000"
	// DefaultTimeout bounds a whole request, stream included.
	DefaultTimeout = 60 * time.Second
	// DefaultIdleTimeout bounds the silence between two stream chunks.
	DefaultIdleTimeout = 30 * time.Second

	userAgent = "zhai-tui/1.0"

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 4096
)

// ClientConfig holds configuration options for the chat client.
type ClientConfig struct {
	// BaseURL is the backend root (default: http://127.0.0.1:8000)
	BaseURL string

	// Timeout for a complete request, including the response stream (default: 60s)
	Timeout time.Duration

	// IdleTimeout aborts a stream that stays silent this long (default: 30s)
	IdleTimeout time.Duration

	// Charset of the chat stream, as a WHATWG label (default: utf-8)
	Charset string

	// EndOfStream decides what a stream without a terminal record means
	EndOfStream EndOfStreamPolicy

	// OnState observes chat exchange state transitions (optional)
	OnState StateObserver

	// HTTPClient overrides the transport (optional)
	HTTPClient *http.Client

	// Logger receives client logs (default: the "chatapi" process logger)
	Logger *log.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:     DefaultBaseURL,
		Timeout:     DefaultTimeout,
		IdleTimeout: DefaultIdleTimeout,
		Charset:     stream.DefaultCharset,
		EndOfStream: EndOfStreamSentinel,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the assistant backend. It is safe for concurrent use.
//
// Example:
//
//	client := chatapi.NewClientWithConfig(&chatapi.ClientConfig{BaseURL: url})
//	resp, err := client.Login(ctx, "alice")
//	reply, err := client.Send(ctx, "hello", resp.Token)
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	charset    encoding.Encoding
	log        *log.Logger
}

// NewClient creates a client with the default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client, filling zero values with defaults.
// An unknown charset is logged and replaced by UTF-8.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.WithPrefix("chatapi")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// No http.Client.Timeout: it would also cut off long streams.
		// Deadlines come from the request context.
		httpClient = &http.Client{}
	}

	charset, err := stream.LookupCharset(cfg.Charset)
	if err != nil {
		cfg.Logger.Warn("falling back to utf-8", "err", err)
		charset, _ = stream.LookupCharset("")
		cfg.Charset = stream.DefaultCharset
	}

	return &Client{
		config:     &cfg,
		httpClient: httpClient,
		charset:    charset,
		log:        cfg.Logger,
	}
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// Health queries GET /health.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeNetworkFailure, Message: "failed to create request", Cause: err}
	}
	c.setHeaders(req, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "health check")
	}

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, &ClientError{Type: ErrTypeNetworkFailure, Message: "invalid health response", Cause: err}
	}
	return &status, nil
}

// =============================================================================
// LOGIN
// =============================================================================

// Login exchanges a username for a bearer token.
//
// A reply with success=false fails with a LoginRejected error carrying the
// server's message; the decoded reply is returned alongside it. A reply
// without user_id is given the id the backend derives itself:
// uuid5(NAMESPACE_DNS, username).
func (c *Client) Login(ctx context.Context, username string) (*LoginResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, err := json.Marshal(LoginRequest{Username: username})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeNetworkFailure, Message: "failed to encode login request", Cause: err}
	}

	requestID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeNetworkFailure, Message: "failed to create request", Cause: err}
	}
	c.setHeaders(req, requestID)
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("login", "request_id", requestID, "user", username)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp, "login")
	}

	var lr LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, &ClientError{Type: ErrTypeNetworkFailure, Message: "invalid login response", Cause: err}
	}

	if !lr.Success {
		msg := lr.Message
		if msg == "" {
			msg = "login rejected"
		}
		return &lr, &ClientError{Type: ErrTypeLoginRejected, Message: msg}
	}
	if lr.Token == "" {
		return nil, &ClientError{Type: ErrTypeNetworkFailure, Message: "login response has no token"}
	}
	if lr.UserName == "" {
		lr.UserName = username
	}
	if lr.UserID == "" {
		lr.UserID = DeriveUserID(lr.UserName)
	}
	return &lr, nil
}

// DeriveUserID returns uuid5(NAMESPACE_DNS, name), the id the backend
// assigns to a username.
func DeriveUserID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name)).String()
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Client) setHeaders(req *http.Request, requestID string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", requestID)
}

// transportError classifies an error returned by Do or by a body read.
func transportError(ctx context.Context, err error) *ClientError {
	if errors.Is(context.Cause(ctx), errIdle) {
		return ErrIdleTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return &ClientError{Type: ErrTypeNetworkFailure, Message: "request cancelled", Cause: context.Canceled}
	}
	return &ClientError{Type: ErrTypeNetworkFailure, Message: "failed to reach chat service", Cause: err}
}

// statusError turns a non-success response into a NetworkFailure, using
// the FastAPI detail when the body has one.
func statusError(resp *http.Response, what string) *ClientError {
	msg := fmt.Sprintf("%s: unexpected status %s", what, resp.Status)

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		if detail := body.text(); detail != "" {
			msg += ": " + detail
		}
	}
	return &ClientError{Type: ErrTypeNetworkFailure, Status: resp.StatusCode, Message: msg}
}
