// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the zhai client.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// Text:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - WrapWidth: display-width aware word wrapping for terminals
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0600)
//	lines := util.WrapWidth(reply, 80)
package util
