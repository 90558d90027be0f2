package atff

import (
	"errors"
	"fmt"

	"github.com/Neumenon/atff/wire"
)

var (
	// ErrDuplicateKey is matched by every *DuplicateKeyError.
	ErrDuplicateKey = errors.New("atff: duplicate key")

	// ErrUnknownType is returned for an unrecognized type token or a
	// scalar carrying no valid tag.
	ErrUnknownType = errors.New("atff: unknown type")

	// ErrNotATFF is returned when the magic bytes are not "ATFF".
	ErrNotATFF = errors.New("atff: not an ATFF file")
)

// DuplicateKeyError reports a name inserted twice into the same scope.
type DuplicateKeyError struct {
	Scope string // "document", "section <name>" or "table"
	Name  string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("atff: duplicate key %q in %s", e.Name, e.Scope)
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// FormatError reports malformed authoring text.
type FormatError struct {
	Line int
	Msg  string
	Err  error // underlying cause, if any
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: %s: %v", e.Line, e.Msg, e.Err)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// CorruptError reports a truncated or malformed wire region. Context
// names the field, e.g. "section[2][3] key length".
type CorruptError = wire.CorruptError

// FieldTooLongError reports a string that does not fit its length prefix.
type FieldTooLongError = wire.TooLongError

// UnknownTypeIDError reports an entry tag outside 1..5.
type UnknownTypeIDError struct {
	ID      uint8
	Context string
}

func (e *UnknownTypeIDError) Error() string {
	return fmt.Sprintf("atff: unknown type id %d for %s", e.ID, e.Context)
}

// BadTableTypeError reports a table value tag outside 1..4.
type BadTableTypeError struct {
	ID      uint8
	Context string
}

func (e *BadTableTypeError) Error() string {
	return fmt.Sprintf("atff: bad table type id %d for %s", e.ID, e.Context)
}

// ResolverError reports a link resolution failure that aborted a decode.
type ResolverError struct {
	Index int
	Link  string
	Err   error
}

func (e *ResolverError) Error() string {
	return fmt.Sprintf("atff: resolve link[%d] %q: %v", e.Index, e.Link, e.Err)
}

func (e *ResolverError) Unwrap() error {
	return e.Err
}
