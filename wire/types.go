// Package wire implements the low-level primitives of the ATFF container
// format.
//
// ATFF is a big-endian, length-prefixed layout:
//   - Fixed-width unsigned integers (u8, u16, u32)
//   - Byte regions introduced by a u16 or u32 length
//   - No padding, alignment or trailing checksum
//
// The Reader never reads past the buffer it was given: every short read
// is reported as a *CorruptError naming the field being read, so callers
// can surface messages such as "section[2][3] key length".
package wire

import (
	"fmt"
	"math"
)

// Limits of the two length-prefix widths used by the format.
const (
	MaxLen16 = math.MaxUint16
	MaxLen32 = math.MaxUint32
)

// CorruptError is returned when the input does not hold the region a
// field declares: truncation, a fixed-width value of the wrong size, or
// bytes left over where the layout says the region ends.
type CorruptError struct {
	Context string // field being read, e.g. "link[0] length"
	Want    int    // bytes required (0 if Reason is set)
	Got     int    // bytes available
	Reason  string // free-form reason when not a short read
}

func (e *CorruptError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("corrupt ATFF (%s): %s", e.Context, e.Reason)
	}
	return fmt.Sprintf("corrupt ATFF (%s): expected %d bytes, got %d", e.Context, e.Want, e.Got)
}

// TooLongError is returned by the Writer when a region does not fit its
// length prefix.
type TooLongError struct {
	Context string
	Len     int
	Max     int64
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("atff: %s is %d bytes, limit is %d", e.Context, e.Len, e.Max)
}
