// Package export projects ATFF documents onto general-purpose formats
// for inspection: authoring text, JSON, YAML and CBOR.
//
// The projection keeps order and types. Sections and entries are lists
// rather than maps, and every value carries its type token:
//
//	{"links": [...], "sections": [{"name": "server", "entries": [
//	  {"key": "port", "type": "int", "value": 8080},
//	  {"key": "opts", "type": "table", "value": [{"key": ..., "type": ..., "value": ...}]}
//	]}]}
//
// Float values that JSON cannot carry are projected as the strings
// "NaN", "+Inf" and "-Inf" in every format, keeping type "float".
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/Neumenon/atff/atff"
)

// Format selects an output encoding.
type Format uint8

const (
	FormatText Format = iota
	FormatJSON
	FormatYAML
	FormatCBOR
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatCBOR:
		return "cbor"
	default:
		return fmt.Sprintf("unknown(%d)", f)
	}
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "text", "aap", "":
		return FormatText, true
	case "json":
		return FormatJSON, true
	case "yaml", "yml":
		return FormatYAML, true
	case "cbor":
		return FormatCBOR, true
	default:
		return 0, false
	}
}

// Document is the ordered projection of an atff.Document.
type Document struct {
	Links    []string  `json:"links" yaml:"links" cbor:"links"`
	Sections []Section `json:"sections" yaml:"sections" cbor:"sections"`
}

// Section is one named section.
type Section struct {
	Name    string  `json:"name" yaml:"name" cbor:"name"`
	Entries []Field `json:"entries" yaml:"entries" cbor:"entries"`
}

// Field is one entry or table key. Value is int32, float32, bool or
// string for scalars and []Field for tables.
type Field struct {
	Key   string `json:"key" yaml:"key" cbor:"key"`
	Type  string `json:"type" yaml:"type" cbor:"type"`
	Value any    `json:"value" yaml:"value" cbor:"value"`
}

// FromDocument builds the projection of d.
func FromDocument(d *atff.Document) *Document {
	out := &Document{
		Links:    append([]string{}, d.Links()...),
		Sections: make([]Section, 0, d.Len()),
	}
	for name, s := range d.Sections() {
		sec := Section{Name: name, Entries: make([]Field, 0, s.Len())}
		for key, e := range s.All() {
			sec.Entries = append(sec.Entries, entryField(key, e))
		}
		out.Sections = append(out.Sections, sec)
	}
	return out
}

func entryField(key string, e atff.Entry) Field {
	t, ok := e.Table()
	if !ok {
		v, _ := e.Scalar()
		return scalarField(key, v)
	}
	fields := make([]Field, 0, t.Len())
	for k, v := range t.All() {
		fields = append(fields, scalarField(k, v))
	}
	return Field{Key: key, Type: atff.TypeTable.String(), Value: fields}
}

func scalarField(key string, v atff.Scalar) Field {
	f := Field{Key: key, Type: v.Type().String(), Value: v.Any()}
	if v.Type() == atff.TypeFloat {
		if x := float64(v.Float()); math.IsNaN(x) || math.IsInf(x, 0) {
			f.Value = nonFinite(x)
		}
	}
	return f
}

func nonFinite(x float64) string {
	switch {
	case math.IsInf(x, 1):
		return "+Inf"
	case math.IsInf(x, -1):
		return "-Inf"
	default:
		return "NaN"
	}
}

var cborMode cbor.EncMode

func init() {
	var err error
	cborMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("export: CBOR encoder initialization failed: " + err.Error())
	}
}

// Marshal encodes d in the given format.
func Marshal(d *atff.Document, f Format) ([]byte, error) {
	switch f {
	case FormatText:
		return []byte(atff.Format(d)), nil
	case FormatJSON:
		b, err := json.MarshalIndent(FromDocument(d), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("export json: %w", err)
		}
		return append(b, '\n'), nil
	case FormatYAML:
		b, err := yaml.Marshal(FromDocument(d))
		if err != nil {
			return nil, fmt.Errorf("export yaml: %w", err)
		}
		return b, nil
	case FormatCBOR:
		b, err := cborMode.Marshal(FromDocument(d))
		if err != nil {
			return nil, fmt.Errorf("export cbor: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("export: unknown format %s", f)
	}
}

// Write encodes d in the given format and writes it to w.
func Write(w io.Writer, d *atff.Document, f Format) error {
	b, err := Marshal(d, f)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
