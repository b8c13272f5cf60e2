// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package escape neutralizes untrusted text before it is displayed.
//
// Two targets are supported: HTML documents (transcript export) and
// terminals (the TUI and REPL). Remote replies are untrusted; both
// functions are total and never fail.
//
// # Known Constraint
//
// Neither function is idempotent. Escaping already-escaped text escapes
// the ampersands again ("&amp;" becomes "&amp;amp;"). Callers escape
// exactly once, at the point of insertion.
//
// # Usage
//
//	fmt.Fprintf(w, "<p>%s</p>", escape.HTML(reply))
//	view := escape.Terminal(reply)
package escape
