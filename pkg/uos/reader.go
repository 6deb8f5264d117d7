package uos

import "fmt"

// reader is a forward-only cursor over a byte slice. Every read is bounds
// checked and reports ErrTruncatedPayload instead of panicking.
type reader struct {
	buf []byte
	pos int
}

func newReader(b []byte) *reader {
	return &reader{buf: b}
}

// remaining returns the number of unread bytes.
func (r *reader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *reader) byte() (byte, error) {
	if r.remaining() < 1 {
		return 0, fmt.Errorf("%w: need 1 byte at offset %d", ErrTruncatedPayload, r.pos)
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) uint16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

// bytes returns the next n bytes. The result aliases the underlying buffer.
func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncatedPayload, n, r.pos, r.remaining())
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// tail returns the last n bytes without moving the cursor and shrinks the
// readable window so they are not read again.
func (r *reader) tail(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("%w: need %d trailing bytes, have %d", ErrTruncatedPayload, n, r.remaining())
	}
	end := len(r.buf)
	b := r.buf[end-n : end]
	r.buf = r.buf[:end-n]
	return b, nil
}

// rest returns all unread bytes.
func (r *reader) rest() []byte {
	b := r.buf[r.pos:]
	r.pos = len(r.buf)
	return b
}

// peek returns the unread bytes without consuming them.
func (r *reader) peek() []byte {
	return r.buf[r.pos:]
}
