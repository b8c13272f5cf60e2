// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes newline-delimited JSON (NDJSON) chat streams.
//
// Chunks arrive with arbitrary boundaries: mid-record, mid-multibyte
// character, one byte at a time. Decoder reassembles them into complete
// lines and parses each line into a Record. The decoded record sequence
// is the same for every way the payload is split.
//
// # Key Types
//
//   - Record: one {type, response} object from the stream
//   - Decoder: stateful, push-based; carries partial bytes and lines between chunks
//   - Reader: pull-based driver that feeds an io.Reader through a Decoder
//   - DecodeError: one malformed line; the stream continues past it
//
// # Charsets
//
// Bytes are decoded with an incremental golang.org/x/text decoder, so a
// character split across chunks is held back until it is complete. UTF-8
// is the default; any WHATWG label (gbk, gb18030, big5, ...) can be chosen.
//
// # End of Stream
//
// The protocol has no terminator beyond a terminal record. An unterminated
// final line is discarded; Pending exposes it for diagnostics.
//
// # Usage
//
//	dec := stream.NewDecoder(nil)
//	for _, res := range dec.Push(chunk) {
//	    if res.Err != nil {
//	        continue // logged, not fatal
//	    }
//	    handle(res.Record)
//	}
package stream
