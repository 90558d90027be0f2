package atff

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxLineSize bounds a single authoring line (str values may be long).
const maxLineSize = 16 * 1024 * 1024

// Parse parses authoring text into a Document.
//
// The grammar is line oriented:
//
//	# comment
//	@https://example.com/dep.py
//	[section]
//	key = value : type
//	name = [
//	key = value : type
//	]
//
// Any malformed line fails with a *FormatError carrying its line number;
// no partial Document is returned.
func Parse(text string) (*Document, error) {
	return ParseReader(strings.NewReader(text))
}

// ParseReader parses authoring text read from r.
func ParseReader(r io.Reader) (*Document, error) {
	p := &parser{
		sc:  newLineScanner(r),
		doc: NewDocument(),
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.doc, nil
}

// ParseValue converts the text of a value to a Scalar of the given type
// token. Bool is true only for "true" in any letter case.
func ParseValue(value, typ string) (Scalar, error) {
	t, err := ParseType(typ)
	if err != nil {
		return Scalar{}, err
	}
	switch t {
	case TypeInt:
		n, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return Scalar{}, fmt.Errorf("invalid int %q: %w", value, err)
		}
		return Int(int32(n)), nil
	case TypeFloat:
		f, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return Scalar{}, fmt.Errorf("invalid float %q: %w", value, err)
		}
		return Float(float32(f)), nil
	case TypeBool:
		return Bool(strings.EqualFold(value, "true")), nil
	case TypeStr:
		return Str(value), nil
	default:
		return Scalar{}, fmt.Errorf("%w %q", ErrUnknownType, typ)
	}
}

// lineScanner wraps bufio.Scanner with line numbers and trimming.
type lineScanner struct {
	*bufio.Scanner
	lineNum int
}

func newLineScanner(r io.Reader) *lineScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &lineScanner{Scanner: sc}
}

// next returns the next line number and its trimmed text.
func (s *lineScanner) next() (int, string, bool) {
	if !s.Scan() {
		return s.lineNum, "", false
	}
	s.lineNum++
	return s.lineNum, strings.TrimSpace(s.Text()), true
}

type parser struct {
	sc      *lineScanner
	doc     *Document
	section *Section
}

func skipLine(line string) bool {
	return line == "" || strings.HasPrefix(line, "#")
}

func (p *parser) run() error {
	for {
		n, line, ok := p.sc.next()
		if !ok {
			break
		}
		if skipLine(line) {
			continue
		}

		if strings.HasPrefix(line, "@") {
			p.doc.AddLink(strings.TrimSpace(line[1:]))
			continue
		}

		if len(line) >= 2 && line[0] == '[' && line[len(line)-1] == ']' {
			if err := p.openSection(n, strings.TrimSpace(line[1:len(line)-1])); err != nil {
				return err
			}
			continue
		}

		if key, rest, ok := strings.Cut(line, "="); ok && strings.TrimSpace(rest) == "[" {
			if err := p.parseTable(n, strings.TrimSpace(key)); err != nil {
				return err
			}
			continue
		}

		key, v, err := parseEntry(n, line, false)
		if err != nil {
			return err
		}
		if p.section == nil {
			return &FormatError{Line: n, Msg: fmt.Sprintf("no active section for %q", key)}
		}
		if err := p.section.Set(key, v); err != nil {
			return &FormatError{Line: n, Msg: "entry", Err: err}
		}
	}
	if err := p.sc.Err(); err != nil {
		return &FormatError{Line: p.sc.lineNum + 1, Msg: "read", Err: err}
	}
	return nil
}

func (p *parser) openSection(n int, name string) error {
	if name == "" {
		return &FormatError{Line: n, Msg: "empty section name"}
	}
	s, err := p.doc.AddSection(name)
	if err != nil {
		return &FormatError{Line: n, Msg: "section", Err: err}
	}
	p.section = s
	return nil
}

// parseTable consumes a "name = [" block up to and including its "]".
func (p *parser) parseTable(start int, name string) error {
	if p.section == nil {
		return &FormatError{Line: start, Msg: "no active section"}
	}
	if name == "" {
		return &FormatError{Line: start, Msg: "empty table name"}
	}

	t := NewTable()
	for {
		n, line, ok := p.sc.next()
		if !ok {
			if err := p.sc.Err(); err != nil {
				return &FormatError{Line: p.sc.lineNum + 1, Msg: "read", Err: err}
			}
			return &FormatError{Line: start, Msg: fmt.Sprintf("unterminated table %q", name)}
		}
		if line == "]" {
			break
		}
		if skipLine(line) {
			continue
		}

		key, v, err := parseEntry(n, line, true)
		if err != nil {
			return err
		}
		if err := t.Set(key, v); err != nil {
			return &FormatError{Line: n, Msg: fmt.Sprintf("table %q", name), Err: err}
		}
	}

	if err := p.section.SetTable(name, t); err != nil {
		return &FormatError{Line: start, Msg: "table", Err: err}
	}
	return nil
}

// parseEntry parses "key = value : type". The key ends at the first '='
// and the type starts after the last ':', so values may contain ':'.
func parseEntry(n int, line string, inTable bool) (string, Scalar, error) {
	key, rest, ok := strings.Cut(line, "=")
	if !ok {
		return "", Scalar{}, &FormatError{Line: n, Msg: fmt.Sprintf("invalid line %q: missing '='", line)}
	}
	i := strings.LastIndex(rest, ":")
	if i < 0 {
		return "", Scalar{}, &FormatError{Line: n, Msg: fmt.Sprintf("invalid line %q: missing ':'", line)}
	}

	key = strings.TrimSpace(key)
	value := strings.TrimSpace(rest[:i])
	typ := strings.TrimSpace(rest[i+1:])

	if key == "" {
		return "", Scalar{}, &FormatError{Line: n, Msg: "empty key"}
	}
	if typ == TypeTable.String() {
		if inTable {
			return "", Scalar{}, &FormatError{Line: n, Msg: fmt.Sprintf("%q: tables cannot contain tables", key)}
		}
		return "", Scalar{}, &FormatError{Line: n, Msg: fmt.Sprintf("%q: table is not a value type, use %s = [ ... ]", key, key)}
	}

	v, err := ParseValue(value, typ)
	if err != nil {
		return "", Scalar{}, &FormatError{Line: n, Msg: fmt.Sprintf("entry %q", key), Err: err}
	}
	return key, v, nil
}
