// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/zhai-tui/internal/config"
	"github.com/jeranaias/zhai-tui/internal/logger"
)

var errBoom = errors.New("boom")

func TestApology(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, DefaultApology, Apology{}.Respond(ctx, "anything", errBoom))
	assert.Equal(t, "sorry", Apology{Text: "sorry"}.Respond(ctx, "anything", errBoom))
}

func TestMock(t *testing.T) {
	m := Mock{}
	ctx := context.Background()

	tests := []struct {
		message string
		want    string
	}{
		{"你好", mockRules[0].reply},
		{"Hi there", mockRules[0].reply},
		{"HELP me", mockRules[1].reply},
		{"有什么功能？", mockRules[1].reply},
		{"thank you!", mockRules[2].reply},
		{"谢谢你", mockRules[2].reply},
		{"this is unrelated", DefaultApology},
		{"shipping", DefaultApology},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Respond(ctx, tt.message, errBoom))
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		mode    string
		wantNil bool
		wantErr bool
	}{
		{"apology", false, false},
		{"", false, false},
		{"MOCK", false, false},
		{"off", true, false},
		{"openai", true, true},
		{"psychic", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			r, err := New(config.FallbackConfig{Mode: tt.mode})
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantNil, r == nil)
		})
	}

	r, err := New(config.FallbackConfig{Mode: "apology", Message: "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom", r.Respond(context.Background(), "x", errBoom))
}

// sseServer streams the given deltas as an OpenAI chat completion.
func sseServer(t *testing.T, deltas ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model  string `json:"model"`
			Stream bool   `json:"stream"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream || req.Model != "deepseek-chat" {
			http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, d := range deltas {
			chunk := map[string]interface{}{
				"id":      "chatcmpl-1",
				"object":  "chat.completion.chunk",
				"model":   req.Model,
				"choices": []map[string]interface{}{{"index": 0, "delta": map[string]string{"content": d}}},
			}
			data, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
}

func TestOpenAIStreamsCompletion(t *testing.T) {
	srv := sseServer(t, "你好", "，", "我在。")
	defer srv.Close()

	o, err := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test", Logger: logger.Discard()})
	require.NoError(t, err)
	assert.Equal(t, "你好，我在。", o.Respond(context.Background(), "在吗", errBoom))
}

func TestOpenAIFallsBackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"unavailable"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	o, err := NewOpenAI(OpenAIConfig{
		BaseURL: srv.URL, APIKey: "sk-test",
		Next: Apology{Text: "sorry"}, Logger: logger.Discard(),
	})
	require.NoError(t, err)
	assert.Equal(t, "sorry", o.Respond(context.Background(), "hello", errBoom))
}

func TestOpenAIEmptyCompletion(t *testing.T) {
	srv := sseServer(t, "", "  ")
	defer srv.Close()

	o, err := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test", Logger: logger.Discard()})
	require.NoError(t, err)
	assert.Equal(t, DefaultApology, o.Respond(context.Background(), "hello", errBoom))
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI(OpenAIConfig{})
	assert.Error(t, err)
}
