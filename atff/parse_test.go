package atff

import (
	"errors"
	"strings"
	"testing"
)

// ============================================================
// Parse
// ============================================================

const serverExample = `[server]
port = 8080 : int
opts = [
debug = true : bool
name = prod : str
]
`

func TestParse_Example(t *testing.T) {
	doc, err := Parse(serverExample)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if doc.Len() != 1 {
		t.Fatalf("sections = %d, want 1", doc.Len())
	}
	s, ok := doc.Section("server")
	if !ok {
		t.Fatal("missing section server")
	}
	if got := s.Keys(); len(got) != 2 || got[0] != "port" || got[1] != "opts" {
		t.Errorf("keys = %v, want [port opts]", got)
	}

	port, _ := s.Get("port")
	if v, ok := port.Scalar(); !ok || !v.Equal(Int(8080)) {
		t.Errorf("port = %v, want 8080:int", v)
	}

	opts, _ := s.Get("opts")
	table, ok := opts.Table()
	if !ok {
		t.Fatalf("opts type = %s, want table", opts.Type())
	}
	if v, _ := table.Get("debug"); !v.Equal(Bool(true)) {
		t.Errorf("debug = %v, want true:bool", v)
	}
	if v, _ := table.Get("name"); !v.Equal(Str("prod")) {
		t.Errorf("name = %v, want prod:str", v)
	}
}

func TestParse_Links(t *testing.T) {
	doc, err := Parse("@ https://example.com/a.py \n[s]\n@http://example.com/b\nk = 1 : int\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	links := doc.Links()
	if len(links) != 2 || links[0] != "https://example.com/a.py" || links[1] != "http://example.com/b" {
		t.Errorf("links = %q", links)
	}
}

func TestParse_CommentsAndBlankLines(t *testing.T) {
	input := `
# leading comment

[s]
   # indented comment
a = 1 : int

t = [
  # comment inside table

  x = y : str
]
`
	doc, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	s, _ := doc.Section("s")
	if s.Len() != 2 {
		t.Fatalf("entries = %d, want 2", s.Len())
	}
	e, _ := s.Get("t")
	table, _ := e.Table()
	if table.Len() != 1 {
		t.Errorf("table keys = %v, want [x]", table.Keys())
	}
}

func TestParse_SplitRules(t *testing.T) {
	tests := []struct {
		line string
		key  string
		want Scalar
	}{
		{"url = http://host:80/x : str", "url", Str("http://host:80/x")},
		{"expr = a=b : str", "expr", Str("a=b")},
		{"time=12:30:str", "time", Str("12:30")},
		{"empty =  : str", "empty", Str("")},
		{"neg = -42 : int", "neg", Int(-42)},
		{"plus = +7 : int", "plus", Int(7)},
		{"min = -2147483648 : int", "min", Int(-2147483648)},
		{"ratio = 0.5 : float", "ratio", Float(0.5)},
		{"exp = 1e3 : float", "exp", Float(1000)},
		{"on = TRUE : bool", "on", Bool(true)},
		{"off = yes : bool", "off", Bool(false)},
		{"utf = héllo ✓ : str", "utf", Str("héllo ✓")},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			doc, err := Parse("[s]\n" + tt.line + "\n")
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.line, err)
			}
			s, _ := doc.Section("s")
			e, ok := s.Get(tt.key)
			if !ok {
				t.Fatalf("missing key %q, have %v", tt.key, s.Keys())
			}
			if v, _ := e.Scalar(); !v.Equal(tt.want) {
				t.Errorf("got %v, want %v", v, tt.want)
			}
		})
	}
}

func TestParse_TableOpeners(t *testing.T) {
	for _, opener := range []string{"t=[", "t = [", "t =[", "t=  ["} {
		doc, err := Parse("[s]\n" + opener + "\na = 1 : int\n]\n")
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", opener, err)
		}
		s, _ := doc.Section("s")
		if e, _ := s.Get("t"); e.Type() != TypeTable {
			t.Errorf("%q: type = %s, want table", opener, e.Type())
		}
	}
}

func TestParse_EmptyInput(t *testing.T) {
	doc, err := Parse("")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if doc.Len() != 0 || len(doc.Links()) != 0 {
		t.Errorf("expected empty document")
	}
}

// ============================================================
// Parse errors
// ============================================================

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
		msg   string
		is    error
	}{
		{"entry outside section", "k = 1 : int\n", 1, "no active section", nil},
		{"table before section", "t = [\na = 1 : int\n]\n", 1, "no active section", nil},
		{"missing colon", "[s]\nk = 1\n", 2, "missing ':'", nil},
		{"missing equals", "[s]\nk : int\n", 2, "missing '='", nil},
		{"missing colon in table", "[s]\nt = [\na = 1\n]\n", 3, "missing ':'", nil},
		{"missing equals in table", "[s]\nt = [\nplain\n]\n", 3, "missing '='", nil},
		{"unknown type", "[s]\nk = 1 : integer\n", 2, "entry", ErrUnknownType},
		{"table type token", "[s]\nk = x : table\n", 2, "not a value type", nil},
		{"nested table", "[s]\nt = [\nu = x : table\n]\n", 3, "cannot contain tables", nil},
		{"nested table opener", "[s]\nt = [\nu = [\n]\n", 3, "missing ':'", nil},
		{"duplicate section", "[s]\n[s]\n", 2, "section", ErrDuplicateKey},
		{"duplicate entry", "[s]\nk = 1 : int\nk = 2 : int\n", 3, "entry", ErrDuplicateKey},
		{"duplicate table name", "[s]\nk = 1 : int\nk = [\n]\n", 3, "table", ErrDuplicateKey},
		{"duplicate table key", "[s]\nt = [\na = 1 : int\na = 2 : int\n]\n", 4, "table", ErrDuplicateKey},
		{"unterminated table", "[s]\nt = [\na = 1 : int\n", 2, "unterminated table", nil},
		{"int overflow", "[s]\nk = 2147483648 : int\n", 2, "invalid int", nil},
		{"bad int", "[s]\nk = 1.5 : int\n", 2, "invalid int", nil},
		{"bad float", "[s]\nk = abc : float\n", 2, "invalid float", nil},
		{"empty section name", "[ ]\n", 1, "empty section name", nil},
		{"empty key", "[s]\n = 1 : int\n", 2, "empty key", nil},
		{"stray close", "[s]\n]\n", 2, "missing '='", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("expected error, got document with %d sections", doc.Len())
			}
			if doc != nil {
				t.Errorf("expected nil document on error")
			}

			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FormatError, got %T: %v", err, err)
			}
			if fe.Line != tt.line {
				t.Errorf("line = %d, want %d (%v)", fe.Line, tt.line, err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not mention %q", err, tt.msg)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.is)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	for _, in := range []string{"TRUE", "True", "true", "tRuE"} {
		v, err := ParseValue(in, "bool")
		if err != nil || !v.Bool() {
			t.Errorf("ParseValue(%q, bool) = %v, %v; want true", in, v, err)
		}
	}
	for _, in := range []string{"false", "yes", "", "1", "truee"} {
		v, err := ParseValue(in, "bool")
		if err != nil || v.Bool() {
			t.Errorf("ParseValue(%q, bool) = %v, %v; want false", in, v, err)
		}
	}

	if _, err := ParseValue("1", "table"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("ParseValue(table) err = %v, want ErrUnknownType", err)
	}
}
