// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fallback

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/zhai-tui/internal/config"
)

// DefaultApology is the generic in-conversation apology.
const DefaultApology = "抱歉，我在处理您的消息时遇到了问题。请稍后再试。"

// Responder produces a reply for a message the backend failed to answer.
// cause is the failure; Respond never fails.
type Responder interface {
	Respond(ctx context.Context, message string, cause error) string
}

// Modes accepted by New.
const (
	ModeApology = "apology"
	ModeMock    = "mock"
	ModeOpenAI  = "openai"
	ModeOff     = "off"
)

// New builds the Responder for cfg. Mode "off" returns nil, which callers
// treat as strict mode.
func New(cfg config.FallbackConfig) (Responder, error) {
	apology := Apology{Text: cfg.Message}

	switch strings.ToLower(cfg.Mode) {
	case ModeApology, "":
		return apology, nil
	case ModeMock:
		return Mock{Apology: apology}, nil
	case ModeOpenAI:
		o, err := NewOpenAI(OpenAIConfig{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.TimeoutDuration(),
			Next:    apology,
		})
		if err != nil {
			return nil, err
		}
		return o, nil
	case ModeOff:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown fallback mode %q", cfg.Mode)
	}
}

// =============================================================================
// APOLOGY
// =============================================================================

// Apology always replies with the same text.
type Apology struct {
	// Text overrides DefaultApology when set
	Text string
}

// Respond returns the apology.
func (a Apology) Respond(context.Context, string, error) string {
	if a.Text != "" {
		return a.Text
	}
	return DefaultApology
}

// =============================================================================
// MOCK
// =============================================================================

type mockRule struct {
	keywords []string
	reply    string
}

var mockRules = []mockRule{
	{
		keywords: []string{"你好", "您好", "hello", "hi", "hey", "嗨"},
		reply:    "你好！我是翟助手。服务暂时不可用，我现在只能做简单的回复。",
	},
	{
		keywords: []string{"帮助", "help", "怎么用", "功能"},
		reply:    "我可以回答问题、陪你聊天。输入 /help 查看可用命令，服务恢复后即可正常对话。",
	},
	{
		keywords: []string{"谢谢", "感谢", "thanks", "thank you"},
		reply:    "不客气！",
	},
}

// Mock answers a few common messages locally and apologizes otherwise.
type Mock struct {
	Apology Apology
}

// Respond matches message against the keyword rules.
func (m Mock) Respond(ctx context.Context, message string, cause error) string {
	lower := strings.ToLower(strings.TrimSpace(message))
	for _, rule := range mockRules {
		for _, kw := range rule.keywords {
			if matchKeyword(lower, kw) {
				return rule.reply
			}
		}
	}
	return m.Apology.Respond(ctx, message, cause)
}

// matchKeyword matches ASCII keywords on word boundaries and CJK keywords
// anywhere.
func matchKeyword(text, kw string) bool {
	if kw == "" {
		return false
	}
	if kw[0] >= 0x80 {
		return strings.Contains(text, kw)
	}
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'')
	})
	words := strings.Fields(kw)
	for i := 0; i+len(words) <= len(fields); i++ {
		match := true
		for j, w := range words {
			if fields[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
