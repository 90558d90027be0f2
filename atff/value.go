package atff

import (
	"fmt"
	"iter"
	"math"
)

// Type is the one-byte tag identifying what kind of value a field holds.
type Type uint8

const (
	TypeInt   Type = 1
	TypeFloat Type = 2
	TypeBool  Type = 3
	TypeStr   Type = 4
	TypeTable Type = 5 // only at section scope, never inside a table
)

// String returns the type token as written in authoring text.
func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeStr:
		return "str"
	case TypeTable:
		return "table"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// IsScalar reports whether t is one of the four primitive tags.
func (t Type) IsScalar() bool {
	return t >= TypeInt && t <= TypeStr
}

// ParseType maps a scalar type token to its tag. "table" is not a
// writable token: tables are introduced by the "name = [" block syntax.
func ParseType(tok string) (Type, error) {
	switch tok {
	case "int":
		return TypeInt, nil
	case "float":
		return TypeFloat, nil
	case "bool":
		return TypeBool, nil
	case "str":
		return TypeStr, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownType, tok)
	}
}

// Scalar is a primitive value: int32, float32, bool or string.
// The zero Scalar is invalid and is rejected by Table.Set and the encoder.
type Scalar struct {
	typ Type
	i   int32
	f   float32
	b   bool
	s   string
}

// Int returns an int scalar.
func Int(v int32) Scalar { return Scalar{typ: TypeInt, i: v} }

// Float returns a float scalar.
func Float(v float32) Scalar { return Scalar{typ: TypeFloat, f: v} }

// Bool returns a bool scalar.
func Bool(v bool) Scalar { return Scalar{typ: TypeBool, b: v} }

// Str returns a string scalar.
func Str(v string) Scalar { return Scalar{typ: TypeStr, s: v} }

// Type returns the scalar's tag.
func (s Scalar) Type() Type { return s.typ }

// Int returns the int value (0 if s is not an int).
func (s Scalar) Int() int32 { return s.i }

// Float returns the float value (0 if s is not a float).
func (s Scalar) Float() float32 { return s.f }

// Bool returns the bool value (false if s is not a bool).
func (s Scalar) Bool() bool { return s.b }

// Str returns the string value ("" if s is not a string).
func (s Scalar) Str() string { return s.s }

// Any returns the value as int32, float32, bool or string.
func (s Scalar) Any() any {
	switch s.typ {
	case TypeInt:
		return s.i
	case TypeFloat:
		return s.f
	case TypeBool:
		return s.b
	case TypeStr:
		return s.s
	default:
		return nil
	}
}

// Equal reports whether two scalars have the same tag and value.
// Floats compare by bit pattern so NaN payloads survive a round trip.
func (s Scalar) Equal(o Scalar) bool {
	if s.typ != o.typ {
		return false
	}
	switch s.typ {
	case TypeInt:
		return s.i == o.i
	case TypeFloat:
		return math.Float32bits(s.f) == math.Float32bits(o.f)
	case TypeBool:
		return s.b == o.b
	case TypeStr:
		return s.s == o.s
	default:
		return true
	}
}

func (s Scalar) String() string {
	return fmt.Sprintf("%v:%s", s.Any(), s.typ)
}

// ============================================================
// Ordered maps
// ============================================================

// ordered is an insertion-ordered string map rejecting duplicates.
type ordered[V any] struct {
	keys []string
	vals map[string]V
}

func (m *ordered[V]) insert(scope, key string, v V) error {
	if _, ok := m.vals[key]; ok {
		return &DuplicateKeyError{Scope: scope, Name: key}
	}
	if m.vals == nil {
		m.vals = make(map[string]V)
	}
	m.keys = append(m.keys, key)
	m.vals[key] = v
	return nil
}

func (m *ordered[V]) get(key string) (V, bool) {
	v, ok := m.vals[key]
	return v, ok
}

func (m *ordered[V]) all() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, k := range m.keys {
			if !yield(k, m.vals[k]) {
				return
			}
		}
	}
}

// ============================================================
// Table, Entry, Section, Document
// ============================================================

// Table is a one-level grouping of primitive key/value pairs.
type Table struct {
	m ordered[Scalar]
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Set adds key. Duplicate keys fail with ErrDuplicateKey; values that are
// not one of the four primitive scalars fail with ErrUnknownType.
func (t *Table) Set(key string, v Scalar) error {
	if !v.typ.IsScalar() {
		return fmt.Errorf("table key %q: %w %s", key, ErrUnknownType, v.typ)
	}
	return t.m.insert("table", key, v)
}

// Get returns the value for key.
func (t *Table) Get(key string) (Scalar, bool) { return t.m.get(key) }

// Len returns the number of keys.
func (t *Table) Len() int { return len(t.m.keys) }

// Keys returns the keys in insertion order.
func (t *Table) Keys() []string { return t.m.keys }

// All iterates keys and values in insertion order.
func (t *Table) All() iter.Seq2[string, Scalar] { return t.m.all() }

// Equal reports whether two tables hold the same keys, order and values.
func (t *Table) Equal(o *Table) bool {
	if t.Len() != o.Len() {
		return false
	}
	for i, k := range t.m.keys {
		if o.m.keys[i] != k || !t.m.vals[k].Equal(o.m.vals[k]) {
			return false
		}
	}
	return true
}

// Entry is a section member: either a Scalar or a Table.
type Entry struct {
	scalar Scalar
	table  *Table
}

// ScalarEntry wraps a scalar.
func ScalarEntry(s Scalar) Entry { return Entry{scalar: s} }

// TableEntry wraps a table.
func TableEntry(t *Table) Entry { return Entry{table: t} }

// Type returns TypeTable for tables and the scalar tag otherwise.
func (e Entry) Type() Type {
	if e.table != nil {
		return TypeTable
	}
	return e.scalar.typ
}

// Scalar returns the scalar and true if e is not a table.
func (e Entry) Scalar() (Scalar, bool) { return e.scalar, e.table == nil }

// Table returns the table and true if e is a table.
func (e Entry) Table() (*Table, bool) { return e.table, e.table != nil }

// Equal reports whether two entries are identical.
func (e Entry) Equal(o Entry) bool {
	if (e.table == nil) != (o.table == nil) {
		return false
	}
	if e.table != nil {
		return e.table.Equal(o.table)
	}
	return e.scalar.Equal(o.scalar)
}

// Section is a named, ordered group of entries.
type Section struct {
	name string
	m    ordered[Entry]
}

// Name returns the section name.
func (s *Section) Name() string { return s.name }

// Set adds a scalar entry.
func (s *Section) Set(key string, v Scalar) error {
	if !v.typ.IsScalar() {
		return fmt.Errorf("entry %q: %w %s", key, ErrUnknownType, v.typ)
	}
	return s.m.insert("section "+s.name, key, ScalarEntry(v))
}

// SetTable adds a table entry.
func (s *Section) SetTable(key string, t *Table) error {
	if t == nil {
		t = NewTable()
	}
	return s.m.insert("section "+s.name, key, TableEntry(t))
}

// Get returns the entry for key.
func (s *Section) Get(key string) (Entry, bool) { return s.m.get(key) }

// Len returns the number of entries.
func (s *Section) Len() int { return len(s.m.keys) }

// Keys returns entry names in insertion order.
func (s *Section) Keys() []string { return s.m.keys }

// All iterates entries in insertion order.
func (s *Section) All() iter.Seq2[string, Entry] { return s.m.all() }

// Document is a parsed or decoded ATFF file: ordered links plus ordered
// sections. A Document is built once and is not modified afterwards.
type Document struct {
	links    []string
	sections ordered[*Section]
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{}
}

// AddLink appends a link.
func (d *Document) AddLink(link string) {
	d.links = append(d.links, link)
}

// AddSection creates a section. Duplicate names fail with ErrDuplicateKey.
func (d *Document) AddSection(name string) (*Section, error) {
	s := &Section{name: name}
	if err := d.sections.insert("document", name, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Links returns the links in order.
func (d *Document) Links() []string { return d.links }

// Section returns the named section.
func (d *Document) Section(name string) (*Section, bool) { return d.sections.get(name) }

// Len returns the number of sections.
func (d *Document) Len() int { return len(d.sections.keys) }

// Sections iterates sections in insertion order.
func (d *Document) Sections() iter.Seq2[string, *Section] { return d.sections.all() }

// Equal reports whether two documents hold the same links, sections,
// entries and values in the same order.
func (d *Document) Equal(o *Document) bool {
	if len(d.links) != len(o.links) || d.Len() != o.Len() {
		return false
	}
	for i, l := range d.links {
		if o.links[i] != l {
			return false
		}
	}
	for i, name := range d.sections.keys {
		if o.sections.keys[i] != name {
			return false
		}
		a, b := d.sections.vals[name], o.sections.vals[name]
		if a.Len() != b.Len() {
			return false
		}
		for j, k := range a.m.keys {
			if b.m.keys[j] != k || !a.m.vals[k].Equal(b.m.vals[k]) {
				return false
			}
		}
	}
	return true
}
