package wire

import (
	"encoding/binary"
	"fmt"
)

// Reader reads big-endian fields from an in-memory ATFF buffer.
// Returned byte slices alias the underlying buffer.
type Reader struct {
	buf []byte
	off int
}

// NewReader creates a Reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Next consumes exactly n bytes. Fewer than n available bytes is a
// *CorruptError labelled with ctx; nothing is consumed in that case.
func (r *Reader) Next(n int, ctx string) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, &CorruptError{Context: ctx, Want: n, Got: r.Remaining()}
	}
	b := r.buf[r.off : r.off+n : r.off+n]
	r.off += n
	return b, nil
}

// Uint8 reads a single byte.
func (r *Reader) Uint8(ctx string) (uint8, error) {
	b, err := r.Next(1, ctx)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint16 reads a big-endian u16.
func (r *Reader) Uint16(ctx string) (uint16, error) {
	b, err := r.Next(2, ctx)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// Uint32 reads a big-endian u32.
func (r *Reader) Uint32(ctx string) (uint32, error) {
	b, err := r.Next(4, ctx)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// Bytes16 reads a u16 length followed by that many bytes. The length and
// the body are labelled "<ctx> length" and ctx respectively.
func (r *Reader) Bytes16(ctx string) ([]byte, error) {
	n, err := r.Uint16(ctx + " length")
	if err != nil {
		return nil, err
	}
	return r.Next(int(n), ctx)
}

// Done reports a *CorruptError if any bytes remain unread.
func (r *Reader) Done(ctx string) error {
	if n := r.Remaining(); n != 0 {
		return &CorruptError{Context: ctx, Got: n, Reason: fmt.Sprintf("%d unexpected trailing bytes", n)}
	}
	return nil
}
