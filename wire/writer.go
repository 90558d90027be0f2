package wire

import (
	"encoding/binary"
)

// Writer appends big-endian fields to an in-memory buffer.
//
// Errors are sticky: after the first failure every write is a no-op and
// Err reports the original error, so a caller can emit a whole region
// and check once.
type Writer struct {
	buf []byte
	err error
}

// NewWriter creates a Writer with an initial capacity hint.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// Err returns the first error encountered, if any.
func (w *Writer) Err() error {
	return w.err
}

// Bytes returns the bytes written so far.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Raw appends b with no length prefix.
func (w *Writer) Raw(b []byte) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, b...)
}

// Uint8 appends a single byte.
func (w *Writer) Uint8(v uint8) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, v)
}

// Uint16 appends a big-endian u16.
func (w *Writer) Uint16(v uint16) {
	if w.err != nil {
		return
	}
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// Uint32 appends a big-endian u32.
func (w *Writer) Uint32(v uint32) {
	if w.err != nil {
		return
	}
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// Count appends n as a u32 element count.
func (w *Writer) Count(n int, ctx string) {
	if w.err != nil {
		return
	}
	if uint64(n) > MaxLen32 {
		w.err = &TooLongError{Context: ctx, Len: n, Max: MaxLen32}
		return
	}
	w.Uint32(uint32(n))
}

// Bytes16 appends len(b) as a u16 followed by b.
func (w *Writer) Bytes16(b []byte, ctx string) {
	if w.err != nil {
		return
	}
	if len(b) > MaxLen16 {
		w.err = &TooLongError{Context: ctx, Len: len(b), Max: MaxLen16}
		return
	}
	w.Uint16(uint16(len(b)))
	w.Raw(b)
}

// Bytes32 appends len(b) as a u32 followed by b.
func (w *Writer) Bytes32(b []byte, ctx string) {
	if w.err != nil {
		return
	}
	if uint64(len(b)) > MaxLen32 {
		w.err = &TooLongError{Context: ctx, Len: len(b), Max: MaxLen32}
		return
	}
	w.Uint32(uint32(len(b)))
	w.Raw(b)
}
