package atff

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/Neumenon/atff/wire"
)

// Magic is the four-byte signature at the start of every ATFF file.
const Magic = "ATFF"

// Encoder writes Documents in the ATFF binary layout.
type Encoder struct {
	w    io.Writer
	opts options
}

// NewEncoder creates an Encoder writing to w.
func NewEncoder(w io.Writer, opts ...Option) *Encoder {
	return &Encoder{w: w, opts: newOptions(opts)}
}

// Encode encodes doc and writes it to the underlying writer in one call.
func (e *Encoder) Encode(ctx context.Context, doc *Document) error {
	b, err := encode(ctx, doc, e.opts)
	if err != nil {
		return err
	}
	if _, err := e.w.Write(b); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Encode returns the ATFF encoding of doc.
//
// Output is deterministic: links, sections, entries and table keys are
// written in insertion order. The resolver is called on each link just
// before it is written; a resolver failure is logged and the link is
// written anyway.
func Encode(ctx context.Context, doc *Document, opts ...Option) ([]byte, error) {
	return encode(ctx, doc, newOptions(opts))
}

func encode(ctx context.Context, doc *Document, o options) ([]byte, error) {
	w := wire.NewWriter(256)
	w.Raw([]byte(Magic))

	w.Count(len(doc.links), "link count")
	for i, link := range doc.links {
		if err := o.resolver.Resolve(ctx, link); err != nil {
			o.logger.Warn("link resolution failed, link kept",
				"index", i,
				"link", link,
				"error", err,
			)
		}
		w.Bytes16([]byte(link), fmt.Sprintf("link[%d]", i))
	}

	w.Count(doc.Len(), "section count")
	si := 0
	for name, s := range doc.Sections() {
		w.Bytes16([]byte(name), fmt.Sprintf("section[%d] name", si))
		w.Count(s.Len(), fmt.Sprintf("section[%d] entry count", si))

		ei := 0
		for key, e := range s.All() {
			field := fmt.Sprintf("section[%d][%d]", si, ei)
			w.Bytes16([]byte(key), field+" key")
			if err := writeEntry(w, e, field); err != nil {
				return nil, err
			}
			ei++
		}
		si++
	}

	if err := w.Err(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func writeEntry(w *wire.Writer, e Entry, field string) error {
	t, ok := e.Table()
	if !ok {
		s, _ := e.Scalar()
		return writeScalar(w, s, field)
	}

	payload, err := encodeTable(t, field)
	if err != nil {
		return err
	}
	w.Uint8(uint8(TypeTable))
	w.Bytes32(payload, field+" value")
	return nil
}

// encodeTable builds a table payload. Table values are Scalars, so a
// nested table tag cannot be produced.
func encodeTable(t *Table, field string) ([]byte, error) {
	w := wire.NewWriter(64)
	w.Count(t.Len(), field+" table count")

	i := 0
	for key, v := range t.All() {
		f := fmt.Sprintf("%s table[%d]", field, i)
		w.Bytes16([]byte(key), f+" key")
		if err := writeScalar(w, v, f); err != nil {
			return nil, err
		}
		i++
	}
	return w.Bytes(), w.Err()
}

func writeScalar(w *wire.Writer, s Scalar, field string) error {
	raw, err := scalarBytes(s)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	w.Uint8(uint8(s.typ))
	w.Bytes32(raw, field+" value")
	return nil
}

func scalarBytes(s Scalar) ([]byte, error) {
	switch s.typ {
	case TypeInt:
		return binary.BigEndian.AppendUint32(nil, uint32(s.i)), nil
	case TypeFloat:
		return binary.BigEndian.AppendUint32(nil, math.Float32bits(s.f)), nil
	case TypeBool:
		if s.b {
			return []byte{0x01}, nil
		}
		return []byte{0x00}, nil
	case TypeStr:
		return []byte(s.s), nil
	default:
		return nil, fmt.Errorf("%w %s", ErrUnknownType, s.typ)
	}
}
