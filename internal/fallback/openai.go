// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fallback

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sashabaranov/go-openai"

	"github.com/jeranaias/zhai-tui/internal/logger"
)

// =============================================================================
// OPENAI-COMPATIBLE FALLBACK
// =============================================================================

// SystemPrompt frames the fallback model as the same assistant.
const SystemPrompt = "你是翟助手，一个友好、简洁的中文助手。"

// OpenAIConfig configures NewOpenAI.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// Timeout bounds one completion (default: 30s)
	Timeout time.Duration
	// Next replies when the endpoint fails (default: Apology{})
	Next Responder
	// Logger (default: logger.WithPrefix("fallback"))
	Logger *log.Logger
}

// OpenAI asks an OpenAI-compatible chat endpoint directly, bypassing the
// zhai backend.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	next    Responder
	log     *log.Logger
}

// NewOpenAI creates the responder. An API key is required.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai fallback requires an API key")
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek-chat"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Next == nil {
		cfg.Next = Apology{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.WithPrefix("fallback")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		next:    cfg.Next,
		log:     cfg.Logger,
	}, nil
}

// Respond streams a completion for message and returns the collected
// text. Any failure, or an empty completion, defers to Next.
func (o *OpenAI) Respond(ctx context.Context, message string, cause error) string {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		Stream: true,
	}

	stream, err := o.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		o.log.Warn("fallback completion failed", "err", err)
		return o.next.Respond(ctx, message, cause)
	}
	defer stream.Close()

	var answer strings.Builder
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			o.log.Warn("fallback stream failed", "err", err)
			return o.next.Respond(ctx, message, cause)
		}
		if len(response.Choices) > 0 {
			answer.WriteString(response.Choices[0].Delta.Content)
		}
	}

	text := strings.TrimSpace(answer.String())
	if text == "" {
		return o.next.Respond(ctx, message, cause)
	}
	return text
}
