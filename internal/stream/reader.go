// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"io"
)

// DefaultChunkSize is the read size used by Reader.
const DefaultChunkSize = 4096

// Handler receives Results in order. Returning false stops consumption;
// the rest of the stream is not read.
type Handler func(Result) bool

// Reader drives a Decoder from an io.Reader. Chunks are taken as they
// come off the wire; there is no line buffering outside the Decoder.
type Reader struct {
	r         io.Reader
	dec       *Decoder
	chunkSize int
	onChunk   func(n int)
}

// NewReader returns a Reader that decodes r with dec.
func NewReader(r io.Reader, dec *Decoder) *Reader {
	if dec == nil {
		dec = NewDecoder(nil)
	}
	return &Reader{r: r, dec: dec, chunkSize: DefaultChunkSize}
}

// OnChunk registers fn to be called with the size of every chunk read,
// before it is decoded. Used for idle-timeout bookkeeping.
func (s *Reader) OnChunk(fn func(n int)) *Reader {
	s.onChunk = fn
	return s
}

// Decoder returns the underlying Decoder.
func (s *Reader) Decoder() *Decoder {
	return s.dec
}

// Process reads until EOF, a read error, context cancellation, or until fn
// returns false. It returns nil at EOF and when fn stops consumption.
func (s *Reader) Process(ctx context.Context, fn Handler) error {
	buf := make([]byte, s.chunkSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := s.r.Read(buf)
		if n > 0 {
			if s.onChunk != nil {
				s.onChunk(n)
			}
			for _, res := range s.dec.Push(buf[:n]) {
				if !fn(res) {
					return nil
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
	}
}
