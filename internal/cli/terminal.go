// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TERMINAL DETECTION
// =============================================================================

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TTYRequiredError is returned by tui, chat and the login prompt when
// stdin is redirected.
type TTYRequiredError struct {
	Operation string
}

func (e *TTYRequiredError) Error() string {
	return "cannot " + e.Operation + ": stdin is not a terminal"
}

// RequiresTTY fails with a TTYRequiredError unless stdin is a terminal.
func RequiresTTY(operation string) error {
	if !isTerminal(os.Stdin) {
		return &TTYRequiredError{Operation: operation}
	}
	return nil
}

// =============================================================================
// WIDTH
// =============================================================================

const (
	fallbackWidth = 80
	minWrapWidth  = 20
)

// wrapWidth is the REPL wrap column: ui.word_wrap when set, otherwise
// the stdout width less a two column margin.
func wrapWidth(configured int) int {
	if configured > 0 {
		return configured
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = fallbackWidth
	}
	return max(width-2, minWrapWidth)
}

// =============================================================================
// COLOR
// =============================================================================

var colorProfile = sync.OnceValue(func() termenv.Profile {
	switch {
	case os.Getenv("NO_COLOR") != "":
		return termenv.Ascii
	case os.Getenv("FORCE_COLOR") != "":
		return termenv.ColorProfile()
	case !isTerminal(os.Stdout):
		return termenv.Ascii
	}
	return termenv.ColorProfile()
})
