// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package fallback produces the local reply shown when the backend cannot
// answer.
//
// The chat controller is the only caller: every failed exchange goes
// through one Responder, so what the user sees on failure is decided in
// one place.
//
// # Key Types
//
//   - Responder: turns a failed message into reply text
//   - Apology: a fixed apology (the default)
//   - Mock: keyword replies for greetings, help and thanks
//   - OpenAI: asks an OpenAI-compatible endpoint, then apologizes
//
// # Usage
//
//	responder, err := fallback.New(cfg.Fallback)
//	if responder == nil {
//	    // strict mode: surface errors instead
//	}
//	text := responder.Respond(ctx, message, err)
package fallback
