// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a chat transcript to disk.
//
// Both front ends keep the messages shown in the current run as a
// Transcript. The /export command hands it to WriteFile, which picks the
// format from the file extension.
//
// # Key Types
//
//   - Transcript: the messages shown so far, with the user they belong to
//   - Exporter: renders a Transcript in one format
//   - HTMLExporter, MarkdownExporter, JSONExporter: the formats
//
// # Supported Formats
//
//   - HTML (.html, .htm, default): self-contained page, all text escaped
//   - Markdown (.md, .markdown)
//   - JSON (.json)
//
// # Usage
//
//	tr := export.NewTranscript("alice")
//	tr.Add("user", "你好")
//	tr.Add("bot", "你好，alice！")
//	path, err := export.WriteFile(tr, "chat.html")
package export
