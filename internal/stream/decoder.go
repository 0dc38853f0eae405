// Package stream decodes the newline-delimited "data: {json}" framing the
// backend uses for assistant tokens and exploitation terminal output.
package stream

import (
	"bytes"
)

// Prefix marks a line that carries a frame payload.
const Prefix = "data: "

// State is where the decoder is in its buffer -> lines -> frames cycle.
type State int

const (
	// StateEmpty means no partial line is buffered.
	StateEmpty State = iota
	// StatePartial means an unterminated line is waiting for more bytes.
	StatePartial
	// StateClosed means Close was called; further input is ignored.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePartial:
		return "partial"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Decoder turns arbitrary byte chunks into frame payloads. Lines are split on
// raw bytes before any decoding, so a multi-byte character split across two
// chunks is reassembled intact. The zero value is ready to use.
type Decoder struct {
	buf   []byte
	state State
}

// Feed appends chunk to the carry-over buffer and returns the payload of
// every complete "data: " line, in order. The trailing fragment after the
// last newline stays buffered for the next call.
func (d *Decoder) Feed(chunk []byte) [][]byte {
	if d.state == StateClosed {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	var frames [][]byte
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := d.buf[:i]
		d.buf = d.buf[i+1:]
		if payload, ok := parseLine(line); ok {
			frames = append(frames, payload)
		}
	}

	if len(d.buf) == 0 {
		d.buf = nil
		d.state = StateEmpty
	} else {
		// Detach the fragment from the chunk's backing array.
		d.buf = append([]byte(nil), d.buf...)
		d.state = StatePartial
	}
	return frames
}

// Close ends the stream. An unterminated fragment is discarded, never parsed.
// It reports how many bytes were dropped.
func (d *Decoder) Close() int {
	dropped := len(d.buf)
	d.buf = nil
	d.state = StateClosed
	return dropped
}

// State reports the decoder state.
func (d *Decoder) State() State {
	return d.state
}

// Buffered returns the number of bytes of the pending fragment.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

func parseLine(line []byte) ([]byte, bool) {
	line = bytes.TrimSpace(line)
	if !bytes.HasPrefix(line, []byte(Prefix)) {
		return nil, false
	}
	payload := line[len(Prefix):]
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, true
}
