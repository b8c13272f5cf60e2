// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultCharset is used when no charset is configured.
const DefaultCharset = "utf-8"

// LookupCharset resolves a WHATWG encoding label such as "utf-8" or "gbk".
// An empty label means DefaultCharset.
func LookupCharset(label string) (encoding.Encoding, error) {
	if strings.TrimSpace(label) == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", label, err)
	}
	return enc, nil
}

// Stats counts what a Decoder has seen.
type Stats struct {
	Bytes   int
	Lines   int
	Records int
	Errors  int
}

// Decoder turns successive chunks into Results. It is not safe for
// concurrent use; one Decoder serves one stream.
type Decoder struct {
	transformer transform.Transformer
	carry       []byte // undecoded tail: an incomplete multibyte sequence
	line        []byte // decoded text after the last newline
	scratch     []byte
	stats       Stats
}

// NewDecoder returns a Decoder for enc. A nil enc means UTF-8; invalid
// UTF-8 sequences become U+FFFD.
func NewDecoder(enc encoding.Encoding) *Decoder {
	if enc == nil {
		enc = unicode.UTF8
	}
	return &Decoder{
		transformer: enc.NewDecoder(),
		scratch:     make([]byte, 4096),
	}
}

// Push feeds one chunk and returns the Results of every line the chunk
// completed, in order. Blank lines are dropped. A malformed line yields a
// Result whose Err is a *DecodeError; the lines around it decode normally.
func (d *Decoder) Push(chunk []byte) []Result {
	d.stats.Bytes += len(chunk)
	d.line = append(d.line, d.decode(chunk)...)

	var results []Result
	for {
		idx := bytes.IndexByte(d.line, '\n')
		if idx < 0 {
			break
		}
		raw := bytes.TrimSpace(d.line[:idx])
		d.line = d.line[idx+1:]

		if len(raw) == 0 {
			continue
		}
		results = append(results, d.parse(raw))
	}

	// Keep the partial line in its own array so the consumed prefix can go.
	if len(d.line) == 0 {
		d.line = nil
	} else {
		d.line = append([]byte(nil), d.line...)
	}
	return results
}

// decode runs chunk through the incremental transformer. Bytes that end
// in the middle of a character stay in carry until the next chunk.
func (d *Decoder) decode(chunk []byte) []byte {
	src := chunk
	if len(d.carry) > 0 {
		src = append(d.carry, chunk...)
		d.carry = nil
	}

	var out []byte
	for len(src) > 0 {
		nDst, nSrc, err := d.transformer.Transform(d.scratch, src, false)
		out = append(out, d.scratch[:nDst]...)
		src = src[nSrc:]

		switch {
		case err == nil:
		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 && nSrc == 0 {
				d.scratch = make([]byte, 2*len(d.scratch))
			}
		case errors.Is(err, transform.ErrShortSrc):
			d.carry = append([]byte(nil), src...)
			return out
		default:
			// Decoders from x/text replace bad input instead of failing;
			// anything else is dropped so the stream keeps going.
			return out
		}
	}
	return out
}

func (d *Decoder) parse(raw []byte) Result {
	d.stats.Lines++
	res := Result{Line: d.stats.Lines}

	if err := json.Unmarshal(raw, &res.Record); err != nil {
		d.stats.Errors++
		res.Record = Record{}
		res.Err = &DecodeError{Line: res.Line, Raw: string(raw), Err: err}
		return res
	}
	d.stats.Records++
	return res
}

// Pending returns the decoded text of the unterminated final line, if
// any. It is discarded at end of stream.
func (d *Decoder) Pending() string {
	return string(d.line)
}

// Stats returns counters for the stream so far.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Reset clears all buffered state so the Decoder can serve a new stream.
func (d *Decoder) Reset() {
	d.transformer.Reset()
	d.carry = nil
	d.line = nil
	d.stats = Stats{}
}
