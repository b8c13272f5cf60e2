// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/zhai-tui/internal/controller"
)

// entry is one message on screen. Bot replies grow while their animator
// runs; Render and ScrollToBottom are only called from Update.
type entry struct {
	role   controller.Role
	text   string
	cursor bool
	notice bool // local command output, not part of the transcript
	board  *board

	// shown receives the text on screen once a reveal ends, finished or
	// cancelled.
	shown func(text string)
}

// Render implements typewriter.Target.
func (e *entry) Render(visible string, cursor bool) {
	e.text = visible
	e.cursor = cursor
	if !cursor && e.shown != nil {
		e.shown(visible)
		e.shown = nil
	}
}

// ScrollToBottom implements typewriter.Target.
func (e *entry) ScrollToBottom() {
	if e.board != nil {
		e.board.wantBottom = true
	}
}

// board is the on-screen message list. Model holds it by pointer so
// entries can point back at it across Update copies.
type board struct {
	entries    []*entry
	typing     bool
	wantBottom bool
}

func (b *board) add(e *entry) {
	e.board = b
	b.entries = append(b.entries, e)
	b.wantBottom = true
}

func (b *board) clear() {
	for _, e := range b.entries {
		e.board = nil
	}
	b.entries = nil
	b.typing = false
	b.wantBottom = true
}

// lastBot returns the most recent bot reply on screen.
func (b *board) lastBot() (*entry, bool) {
	for i := len(b.entries) - 1; i >= 0; i-- {
		if e := b.entries[i]; e.role == controller.RoleBot && !e.notice {
			return e, true
		}
	}
	return nil, false
}
