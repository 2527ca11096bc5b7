package vm

import (
	"reflect"
	"strings"
	"testing"
)

func TestNewGridPadsRows(t *testing.T) {
	g := NewGrid([]string{"lq", ""})
	if g.Rows() != 2 {
		t.Fatalf("Rows() = %d, want 2", g.Rows())
	}
	for y := 0; y < g.Rows(); y++ {
		if n := len(g.Row(y)); n != Width {
			t.Errorf("len(Row(%d)) = %d, want %d", y, n, Width)
		}
	}
	if code, _ := g.Get(1, 0); code != 'q' {
		t.Errorf("Get(1, 0) = %q, want 'q'", code)
	}
	if code, _ := g.Get(Width-1, 1); code != Space {
		t.Errorf("Get(%d, 1) = %q, want space", Width-1, code)
	}
}

func TestNewGridTruncatesLongLines(t *testing.T) {
	line := strings.Repeat("a", Width) + "bcd"
	g := NewGrid([]string{line})
	if _, ok := g.Get(Width, 0); ok {
		t.Error("column past Width should not exist")
	}
	if got := g.Serialize()[0]; got != strings.Repeat("a", Width) {
		t.Errorf("Serialize()[0] = %q, want %d a's", got, Width)
	}
}

func TestGridGetOutOfBounds(t *testing.T) {
	g := NewGrid([]string{"q"})
	coords := [][2]int{{-1, 0}, {0, -1}, {Width, 0}, {0, 1}}
	for _, c := range coords {
		if _, ok := g.Get(c[0], c[1]); ok {
			t.Errorf("Get(%d, %d) should be out of bounds", c[0], c[1])
		}
	}
}

func TestGridPut(t *testing.T) {
	g := NewGrid([]string{"ab"})
	g.Put(1, 0, 'z')
	if code, _ := g.Get(1, 0); code != 'z' {
		t.Errorf("Get(1, 0) = %q after Put, want 'z'", code)
	}

	before := g.Codes()
	g.Put(-1, 0, 'x')
	g.Put(0, 5, 'x')
	g.Put(Width, 0, 'x')
	if !reflect.DeepEqual(before, g.Codes()) {
		t.Error("out-of-bounds Put modified the grid")
	}
}

func TestGridAppendRow(t *testing.T) {
	g := NewGrid([]string{"q"})
	g.AppendRow()
	if g.Rows() != 2 {
		t.Fatalf("Rows() = %d, want 2", g.Rows())
	}
	if got := g.Serialize()[1]; got != strings.Repeat(" ", Width) {
		t.Errorf("appended row = %q, want %d spaces", got, Width)
	}
}

func TestGridSerializeRoundTrip(t *testing.T) {
	sources := [][]string{
		{"j", "lPpq", "  i"},
		{"#!", "q"},
		{""},
		{strings.Repeat("x", Width+10), "  hello  "},
	}
	for _, src := range sources {
		g := NewGrid(src)
		again := NewGrid(g.Serialize())
		if !g.Equal(again) {
			t.Errorf("round trip of %q changed the grid", src)
		}
	}
}

func TestGridSerializeUnrepresentable(t *testing.T) {
	g := NewGrid([]string{"a"})
	g.Put(0, 0, -7)
	if got := g.Serialize()[0][:3]; got != "\uFFFD" {
		t.Errorf("unrepresentable cell serialized as %q, want U+FFFD", got)
	}
}

func TestGridClone(t *testing.T) {
	g := NewGrid([]string{"ab"})
	c := g.Clone()
	c.Put(0, 0, 'z')
	if code, _ := g.Get(0, 0); code != 'a' {
		t.Error("Clone shares storage with the original")
	}
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"", nil},
		{"q", []string{"q"}},
		{"q\n", []string{"q"}},
		{"j\nq\n", []string{"j", "q"}},
		{"j\r\nq\r\n", []string{"j", "q"}},
		{"j\n\nq", []string{"j", "", "q"}},
	}
	for _, tt := range tests {
		if got := ParseSource(tt.src); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseSource(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}
