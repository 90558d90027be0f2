package atff

import (
	"strconv"
	"strings"
)

// Format renders doc as authoring text: links first, then each section
// with its scalars and table blocks in insertion order.
//
// Parse(Format(doc)) reproduces doc as long as names and string values
// have no line breaks or surrounding whitespace and keys contain no '='.
func Format(doc *Document) string {
	var b strings.Builder

	for _, link := range doc.links {
		b.WriteByte('@')
		b.WriteString(link)
		b.WriteByte('\n')
	}

	first := len(doc.links) == 0
	for name, s := range doc.Sections() {
		if !first {
			b.WriteByte('\n')
		}
		first = false

		b.WriteByte('[')
		b.WriteString(name)
		b.WriteString("]\n")

		for key, e := range s.All() {
			if t, ok := e.Table(); ok {
				b.WriteString(key)
				b.WriteString(" = [\n")
				for k, v := range t.All() {
					writeLine(&b, k, v)
				}
				b.WriteString("]\n")
				continue
			}
			v, _ := e.Scalar()
			writeLine(&b, key, v)
		}
	}
	return b.String()
}

func writeLine(b *strings.Builder, key string, v Scalar) {
	b.WriteString(key)
	b.WriteString(" = ")
	b.WriteString(FormatValue(v))
	b.WriteString(" : ")
	b.WriteString(v.typ.String())
	b.WriteByte('\n')
}

// FormatValue renders the value part of a scalar as it appears in
// authoring text. Floats use the shortest form that round-trips a float32.
func FormatValue(v Scalar) string {
	switch v.typ {
	case TypeInt:
		return strconv.FormatInt(int64(v.i), 10)
	case TypeFloat:
		return strconv.FormatFloat(float64(v.f), 'g', -1, 32)
	case TypeBool:
		return strconv.FormatBool(v.b)
	case TypeStr:
		return v.s
	default:
		return ""
	}
}
