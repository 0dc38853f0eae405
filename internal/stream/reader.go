package stream

import (
	"errors"
	"io"
)

const readSize = 4096

// Reader yields frames from an underlying byte stream one at a time.
type Reader struct {
	r       io.Reader
	dec     Decoder
	pending [][]byte
	buf     []byte
	err     error
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, buf: make([]byte, readSize)}
}

// Next returns the next frame payload. At a clean end of stream it returns
// io.EOF and any unterminated fragment is dropped. Read errors are returned
// as-is after the frames already decoded have been drained.
func (r *Reader) Next() ([]byte, error) {
	for len(r.pending) == 0 {
		if r.err != nil {
			return nil, r.err
		}

		n, err := r.r.Read(r.buf)
		if n > 0 {
			r.pending = append(r.pending, r.dec.Feed(r.buf[:n])...)
		}
		if err != nil {
			r.dec.Close()
			if errors.Is(err, io.EOF) {
				err = io.EOF
			}
			r.err = err
		}
	}

	frame := r.pending[0]
	r.pending[0] = nil
	r.pending = r.pending[1:]
	return frame, nil
}

// Decode reads every frame from r and passes each to fn until fn returns
// false, the stream ends, or a read fails. io.EOF is reported as nil.
func Decode(r io.Reader, fn func(frame []byte) bool) error {
	sr := NewReader(r)
	for {
		frame, err := sr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if !fn(frame) {
			return nil
		}
	}
}
