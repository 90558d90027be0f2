package atff

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/Neumenon/atff/wire"
)

// Decoder reads a Document from an io.Reader.
type Decoder struct {
	r    io.Reader
	opts options
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	return &Decoder{r: r, opts: newOptions(opts)}
}

// Decode reads all of the underlying reader and decodes it.
func (d *Decoder) Decode(ctx context.Context) (*Document, error) {
	data, err := io.ReadAll(d.r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return decode(ctx, data, d.opts)
}

// Decode decodes an ATFF buffer.
//
// Decoding is strict: every declared region must be present in full,
// fixed-width values must have their exact width, and no bytes may
// follow the last section. Links are handed to the resolver as they are
// read, before any section is decoded; a resolver failure aborts the
// decode with a *ResolverError.
func Decode(ctx context.Context, data []byte, opts ...Option) (*Document, error) {
	return decode(ctx, data, newOptions(opts))
}

func decode(ctx context.Context, data []byte, o options) (*Document, error) {
	r := wire.NewReader(data)

	magic, err := r.Next(len(Magic), "magic")
	if err != nil {
		return nil, err
	}
	if string(magic) != Magic {
		return nil, fmt.Errorf("%w: magic %q", ErrNotATFF, magic)
	}

	doc := NewDocument()

	linkCount, err := r.Uint32("link count")
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < linkCount; i++ {
		field := fmt.Sprintf("link[%d]", i)
		b, err := r.Bytes16(field)
		if err != nil {
			return nil, err
		}
		link, err := utf8String(b, field)
		if err != nil {
			return nil, err
		}
		if err := o.resolver.Resolve(ctx, link); err != nil {
			o.logger.Error("link resolution failed", "index", i, "link", link, "error", err)
			return nil, &ResolverError{Index: int(i), Link: link, Err: err}
		}
		doc.AddLink(link)
	}

	sectionCount, err := r.Uint32("section count")
	if err != nil {
		return nil, err
	}
	for si := uint32(0); si < sectionCount; si++ {
		if err := decodeSection(r, doc, si); err != nil {
			return nil, err
		}
	}

	if err := r.Done("trailing data"); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeSection(r *wire.Reader, doc *Document, si uint32) error {
	field := fmt.Sprintf("section[%d]", si)
	b, err := r.Bytes16(field + " name")
	if err != nil {
		return err
	}
	name, err := utf8String(b, field+" name")
	if err != nil {
		return err
	}
	entryCount, err := r.Uint32(field + " entry count")
	if err != nil {
		return err
	}
	sec, err := doc.AddSection(name)
	if err != nil {
		return err
	}

	for ei := uint32(0); ei < entryCount; ei++ {
		f := fmt.Sprintf("section[%d][%d]", si, ei)
		key, tag, raw, err := readField(r, f)
		if err != nil {
			return err
		}

		switch t := Type(tag); {
		case t == TypeTable:
			table, err := decodeTable(raw, f)
			if err != nil {
				return err
			}
			if err := sec.SetTable(key, table); err != nil {
				return err
			}
		case t.IsScalar():
			v, err := decodeScalar(t, raw, f)
			if err != nil {
				return err
			}
			if err := sec.Set(key, v); err != nil {
				return err
			}
		default:
			return &UnknownTypeIDError{ID: tag, Context: name + "." + key}
		}
	}
	return nil
}

// readField reads key, type tag and value region of one entry.
func readField(r *wire.Reader, field string) (string, uint8, []byte, error) {
	b, err := r.Bytes16(field + " key")
	if err != nil {
		return "", 0, nil, err
	}
	key, err := utf8String(b, field+" key")
	if err != nil {
		return "", 0, nil, err
	}
	tag, err := r.Uint8(field + " type")
	if err != nil {
		return "", 0, nil, err
	}
	size, err := r.Uint32(field + " value length")
	if err != nil {
		return "", 0, nil, err
	}
	raw, err := r.Next(int(size), field+" value")
	if err != nil {
		return "", 0, nil, err
	}
	return key, tag, raw, nil
}

// decodeTable decodes a table payload. Only scalar tags are accepted, so
// a table can never yield another table.
func decodeTable(raw []byte, field string) (*Table, error) {
	r := wire.NewReader(raw)
	count, err := r.Uint32(field + " table count")
	if err != nil {
		return nil, err
	}

	t := NewTable()
	for i := uint32(0); i < count; i++ {
		f := fmt.Sprintf("%s table[%d]", field, i)
		key, tag, vb, err := readField(r, f)
		if err != nil {
			return nil, err
		}
		typ := Type(tag)
		if !typ.IsScalar() {
			return nil, &BadTableTypeError{ID: tag, Context: f}
		}
		v, err := decodeScalar(typ, vb, f)
		if err != nil {
			return nil, err
		}
		if err := t.Set(key, v); err != nil {
			return nil, err
		}
	}

	if err := r.Done(field + " table"); err != nil {
		return nil, err
	}
	return t, nil
}

func decodeScalar(t Type, raw []byte, field string) (Scalar, error) {
	switch t {
	case TypeInt:
		if len(raw) != 4 {
			return Scalar{}, &CorruptError{Context: field + " value", Want: 4, Got: len(raw)}
		}
		return Int(int32(binary.BigEndian.Uint32(raw))), nil
	case TypeFloat:
		if len(raw) != 4 {
			return Scalar{}, &CorruptError{Context: field + " value", Want: 4, Got: len(raw)}
		}
		return Float(math.Float32frombits(binary.BigEndian.Uint32(raw))), nil
	case TypeBool:
		if len(raw) != 1 {
			return Scalar{}, &CorruptError{Context: field + " value", Want: 1, Got: len(raw)}
		}
		return Bool(raw[0] != 0x00), nil
	case TypeStr:
		s, err := utf8String(raw, field+" value")
		if err != nil {
			return Scalar{}, err
		}
		return Str(s), nil
	default:
		return Scalar{}, &UnknownTypeIDError{ID: uint8(t), Context: field}
	}
}

func utf8String(b []byte, field string) (string, error) {
	if !utf8.Valid(b) {
		return "", &CorruptError{Context: field, Reason: "invalid UTF-8"}
	}
	return string(b), nil
}
