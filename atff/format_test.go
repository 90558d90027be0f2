package atff

import (
	"math"
	"testing"
)

func TestFormat_Example(t *testing.T) {
	doc := mustParse(t, serverExample)
	if got := Format(doc); got != serverExample {
		t.Errorf("Format:\n%s\nwant:\n%s", got, serverExample)
	}
}

func TestFormat_Canonical(t *testing.T) {
	input := `@ https://example.com/a.py
[s]
flag=TRUE:bool
  f = 1.50 : float
t=[
  k =v:str
]
[empty]
`
	want := `@https://example.com/a.py

[s]
flag = true : bool
f = 1.5 : float
t = [
k = v : str
]

[empty]
`
	doc := mustParse(t, input)
	if got := Format(doc); got != want {
		t.Errorf("Format:\n%s\nwant:\n%s", got, want)
	}
	// canonical text is a fixed point
	if again := Format(mustParse(t, want)); again != want {
		t.Errorf("Format is not stable:\n%s", again)
	}
}

func TestFormat_ParseRoundTrip(t *testing.T) {
	doc := NewDocument()
	doc.AddLink("@https://example.com/x")
	s, _ := doc.AddSection("values")
	s.Set("min", Int(math.MinInt32))
	s.Set("ratio", Float(0.1))
	s.Set("big", Float(3.4e38))
	s.Set("neg_inf", Float(float32(math.Inf(-1))))
	s.Set("greeting", Str("héllo, 世界: ✓"))
	s.Set("empty", Str(""))
	s.Set("on", Bool(true))
	table := NewTable()
	table.Set("url", Str("http://host:8080/path"))
	table.Set("n", Int(3))
	s.SetTable("t", table)
	s.SetTable("none", NewTable())

	back, err := Parse(Format(doc))
	if err != nil {
		t.Fatalf("Parse(Format) failed: %v\n%s", err, Format(doc))
	}
	if !back.Equal(doc) {
		t.Errorf("round trip mismatch:\n got: %s\nwant: %s", Format(back), Format(doc))
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v    Scalar
		want string
	}{
		{Int(-7), "-7"},
		{Float(0.1), "0.1"},
		{Float(1e10), "1e+10"},
		{Bool(false), "false"},
		{Str("a b"), "a b"},
		{Scalar{}, ""},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.v); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
