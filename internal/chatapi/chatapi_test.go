// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/zhai-tui/internal/chatapi"
	"github.com/jeranaias/zhai-tui/internal/chatapi/chatapitest"
	"github.com/jeranaias/zhai-tui/internal/logger"
)

type stateLog struct {
	mu     sync.Mutex
	states []chatapi.RequestState
	ids    map[string]bool
}

func (l *stateLog) observe(id string, s chatapi.RequestState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ids == nil {
		l.ids = make(map[string]bool)
	}
	l.ids[id] = true
	l.states = append(l.states, s)
}

func (l *stateLog) get() []chatapi.RequestState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]chatapi.RequestState(nil), l.states...)
}

func newClient(t *testing.T, srv *chatapitest.Server, mutate func(*chatapi.ClientConfig)) (*chatapi.Client, *stateLog) {
	t.Helper()
	states := &stateLog{}
	cfg := &chatapi.ClientConfig{
		BaseURL: srv.URL,
		Logger:  logger.Discard(),
		OnState: states.observe,
	}
	if mutate != nil {
		mutate(cfg)
	}
	return chatapi.NewClientWithConfig(cfg), states
}

func newServer(t *testing.T) *chatapitest.Server {
	t.Helper()
	srv := chatapitest.NewServer()
	t.Cleanup(srv.Close)
	return srv
}

// =============================================================================
// SEND
// =============================================================================

func TestSendSplitMidRecord(t *testing.T) {
	srv := newServer(t)
	srv.SetChatChunks(`{"type":"ans`, `wer","response":"Hi"}`+"\n")
	client, states := newClient(t, srv, nil)
	token := srv.IssueToken("alice")

	reply, err := client.Send(context.Background(), "hello", token)
	require.NoError(t, err)
	assert.Equal(t, "Hi", reply)
	assert.Equal(t, "hello", srv.LastMessage())
	assert.NotEmpty(t, srv.LastRequestID())
	assert.Equal(t, []chatapi.RequestState{
		chatapi.StateRequesting, chatapi.StateStreaming, chatapi.StateAnswered,
	}, states.get())
}

func TestSendIgnoresOtherRecordsAndMalformedLines(t *testing.T) {
	srv := newServer(t)
	srv.SetChatChunks(
		chatapitest.Line("status", "retrieving memories"),
		"{broken json\n",
		chatapitest.Line("thinking", "..."),
		chatapitest.Line("answer", "final answer"),
		chatapitest.Line("answer", "never read"),
	)
	client, _ := newClient(t, srv, nil)

	reply, err := client.Send(context.Background(), "q", srv.IssueToken("bob"))
	require.NoError(t, err)
	assert.Equal(t, "final answer", reply)
}

func TestSendRemoteError(t *testing.T) {
	srv := newServer(t)
	srv.SetChatChunks(`{"type":"error","response":"boom"}` + "\n")
	client, states := newClient(t, srv, nil)

	_, err := client.Send(context.Background(), "q", srv.IssueToken("carol"))
	require.Error(t, err)
	assert.True(t, chatapi.IsRemoteError(err))
	assert.False(t, chatapi.IsNetworkFailure(err))
	assert.Equal(t, "boom", err.Error())
	assert.Equal(t, chatapi.StateErrored, states.get()[len(states.get())-1])
}

func TestSendEmptyTokenFailsFast(t *testing.T) {
	srv := newServer(t)
	client, states := newClient(t, srv, nil)

	for _, token := range []string{"", "   "} {
		_, err := client.Send(context.Background(), "hello", token)
		assert.ErrorIs(t, err, chatapi.ErrMissingToken)
		assert.True(t, chatapi.IsNetworkFailure(err))
	}
	assert.Zero(t, srv.ChatCalls(), "no request may be issued without a token")
	assert.Equal(t, []chatapi.RequestState{chatapi.StateFailed, chatapi.StateFailed}, states.get())
}

func TestSendExhaustedStream(t *testing.T) {
	body := []string{chatapitest.Line("status", "working"), `{"type":"answer","resp`}

	t.Run("sentinel", func(t *testing.T) {
		srv := newServer(t)
		srv.SetChatChunks(body...)
		client, states := newClient(t, srv, nil)

		reply, err := client.Send(context.Background(), "q", srv.IssueToken("dan"))
		require.NoError(t, err)
		assert.Equal(t, chatapi.NoValidReply, reply)
		got := states.get()
		assert.Equal(t, chatapi.StateExhausted, got[len(got)-1])
	})

	t.Run("fail", func(t *testing.T) {
		srv := newServer(t)
		srv.SetChatChunks(body...)
		client, _ := newClient(t, srv, func(c *chatapi.ClientConfig) {
			c.EndOfStream = chatapi.EndOfStreamFail
		})

		_, err := client.Send(context.Background(), "q", srv.IssueToken("dan"))
		assert.ErrorIs(t, err, chatapi.ErrIncompleteStream)
		assert.True(t, chatapi.IsNetworkFailure(err))
	})
}

func TestSendStatusFailures(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		srv := newServer(t)
		client, states := newClient(t, srv, nil)

		_, err := client.Send(context.Background(), "q", "not-a-token")
		require.Error(t, err)
		assert.True(t, chatapi.IsNetworkFailure(err))
		assert.True(t, chatapi.IsUnauthorized(err))
		assert.Contains(t, err.Error(), "Token 无效或已过期")
		assert.Equal(t, []chatapi.RequestState{chatapi.StateRequesting, chatapi.StateFailed}, states.get())
	})

	t.Run("server error", func(t *testing.T) {
		srv := newServer(t)
		srv.SetChatStatus(http.StatusInternalServerError)
		client, _ := newClient(t, srv, nil)

		_, err := client.Send(context.Background(), "q", srv.IssueToken("eve"))
		var ce *chatapi.ClientError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, chatapi.ErrTypeNetworkFailure, ce.Type)
		assert.Equal(t, http.StatusInternalServerError, ce.Status)
		assert.False(t, chatapi.IsUnauthorized(err))
	})
}

func TestSendConnectionRefused(t *testing.T) {
	srv := chatapitest.NewServer()
	url := srv.URL
	srv.Close()

	client := chatapi.NewClientWithConfig(&chatapi.ClientConfig{BaseURL: url, Logger: logger.Discard()})
	_, err := client.Send(context.Background(), "q", "token")
	require.Error(t, err)
	assert.True(t, chatapi.IsNetworkFailure(err))
}

func TestSendTimeouts(t *testing.T) {
	chunks := []string{chatapitest.Line("status", "working"), chatapitest.Line("answer", "late")}

	t.Run("idle", func(t *testing.T) {
		srv := newServer(t)
		srv.SetChatChunks(chunks...)
		srv.SetChunkDelay(2 * time.Second)
		client, _ := newClient(t, srv, func(c *chatapi.ClientConfig) {
			c.IdleTimeout = 50 * time.Millisecond
		})

		_, err := client.Send(context.Background(), "q", srv.IssueToken("fay"))
		assert.ErrorIs(t, err, chatapi.ErrIdleTimeout)
		assert.True(t, chatapi.IsTimeout(err))
		assert.True(t, chatapi.IsNetworkFailure(err))
	})

	t.Run("total", func(t *testing.T) {
		srv := newServer(t)
		srv.SetChatChunks(chunks...)
		srv.SetChunkDelay(2 * time.Second)
		client, _ := newClient(t, srv, func(c *chatapi.ClientConfig) {
			c.Timeout = 50 * time.Millisecond
		})

		_, err := client.Send(context.Background(), "q", srv.IssueToken("fay"))
		assert.ErrorIs(t, err, chatapi.ErrTimeout)
		assert.True(t, chatapi.IsTimeout(err))
	})

	t.Run("caller cancel", func(t *testing.T) {
		srv := newServer(t)
		srv.SetChatChunks(chunks...)
		srv.SetChunkDelay(2 * time.Second)
		client, _ := newClient(t, srv, nil)

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(50*time.Millisecond, cancel)
		_, err := client.Send(ctx, "q", srv.IssueToken("fay"))
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, chatapi.IsTimeout(err))
	})
}

// =============================================================================
// LOGIN / HEALTH
// =============================================================================

func TestLogin(t *testing.T) {
	srv := newServer(t)
	client, _ := newClient(t, srv, nil)

	resp, err := client.Login(context.Background(), "Alice")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "Alice", resp.UserName)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, chatapi.DeriveUserID("Alice"), resp.UserID)

	reply, err := client.Send(context.Background(), "hi", resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", reply)
}

func TestLoginDerivesMissingUserID(t *testing.T) {
	srv := newServer(t)
	srv.SetOmitUserID(true)
	client, _ := newClient(t, srv, nil)

	resp, err := client.Login(context.Background(), "Alice")
	require.NoError(t, err)
	// uuid5(NAMESPACE_DNS, "Alice"), as Python's uuid module computes it.
	assert.Equal(t, chatapi.DeriveUserID("Alice"), resp.UserID)
	assert.Len(t, resp.UserID, 36)
	assert.Equal(t, byte('5'), resp.UserID[14], "expected a version 5 uuid")
}

func TestLoginRejected(t *testing.T) {
	srv := newServer(t)
	client, _ := newClient(t, srv, nil)

	resp, err := client.Login(context.Background(), "abcdefghijklmnopqrstuvwxyz")
	require.Error(t, err)
	assert.True(t, chatapi.IsLoginRejected(err))
	assert.Equal(t, "用户名长度不能超过20个字符", err.Error())
	require.NotNil(t, resp)
	assert.False(t, resp.Success)
}

func TestHealth(t *testing.T) {
	srv := newServer(t)
	client, _ := newClient(t, srv, nil)

	status, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy())

	srv.SetHealthy(false)
	_, err = client.Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow unavailable")
}

func TestParseEndOfStreamPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    chatapi.EndOfStreamPolicy
		wantErr bool
	}{
		{"", chatapi.EndOfStreamSentinel, false},
		{"sentinel", chatapi.EndOfStreamSentinel, false},
		{"fail", chatapi.EndOfStreamFail, false},
		{"retry", chatapi.EndOfStreamSentinel, true},
	}
	for _, tt := range tests {
		got, err := chatapi.ParseEndOfStreamPolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseEndOfStreamPolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseEndOfStreamPolicy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRequestStateString(t *testing.T) {
	for s, want := range map[chatapi.RequestState]string{
		chatapi.StateIdle:      "idle",
		chatapi.StateStreaming: "streaming",
		chatapi.StateExhausted: "exhausted",
		chatapi.StateFailed:    "failed",
	} {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", s, got, want)
		}
	}
	if chatapi.StateStreaming.Terminal() || !chatapi.StateAnswered.Terminal() {
		t.Error("Terminal() misclassifies states")
	}
}
