package vm

import (
	"strings"
)

// Width is the fixed number of columns in every row. Argh! and Aargh!
// programs are exactly 80 columns wide.
const Width = 80

// ---------------------------------------------------------------------------
// Grid: fixed-width program storage
// ---------------------------------------------------------------------------

// Grid is a rectangular buffer of character codes. Every row holds exactly
// Width cells. Cells double as code and data, so a cell may hold any int,
// including values outside the character range.
type Grid struct {
	rows [][]int
}

// NewGrid builds a grid from source lines. Short lines are padded with
// spaces; runes past column Width are dropped.
func NewGrid(lines []string) *Grid {
	g := &Grid{rows: make([][]int, 0, len(lines))}
	for _, line := range lines {
		row := blankRow()
		x := 0
		for _, r := range line {
			if x >= Width {
				break
			}
			row[x] = int(r)
			x++
		}
		g.rows = append(g.rows, row)
	}
	return g
}

// ParseSource splits program text into lines. Both "\n" and "\r\n" line
// endings are accepted; a final newline does not start an extra row.
func ParseSource(src string) []string {
	if src == "" {
		return nil
	}
	src = strings.TrimSuffix(src, "\n")
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func blankRow() []int {
	row := make([]int, Width)
	for x := range row {
		row[x] = Space
	}
	return row
}

// Rows returns the number of rows in the grid.
func (g *Grid) Rows() int {
	return len(g.rows)
}

// Valid reports whether (x, y) names a cell of the grid.
func (g *Grid) Valid(x, y int) bool {
	return y >= 0 && y < len(g.rows) && x >= 0 && x < len(g.rows[y])
}

// Get returns the code at (x, y). The second result is false when the
// coordinates are outside the grid.
func (g *Grid) Get(x, y int) (int, bool) {
	if !g.Valid(x, y) {
		return 0, false
	}
	return g.rows[y][x], true
}

// Put stores code at (x, y). Writes outside the grid are ignored.
func (g *Grid) Put(x, y, code int) {
	if g.Valid(x, y) {
		g.rows[y][x] = code
	}
}

// AppendRow adds a blank row at the bottom of the grid.
func (g *Grid) AppendRow() {
	g.rows = append(g.rows, blankRow())
}

// Row returns a copy of row y, or nil if y is out of range.
func (g *Grid) Row(y int) []int {
	if y < 0 || y >= len(g.rows) {
		return nil
	}
	return append([]int(nil), g.rows[y]...)
}

// Serialize renders every row as a string. Cells that cannot be represented
// as characters are written as U+FFFD.
func (g *Grid) Serialize() []string {
	lines := make([]string, len(g.rows))
	for y, row := range g.rows {
		var b strings.Builder
		b.Grow(Width)
		for _, code := range row {
			b.WriteString(Character(code))
		}
		lines[y] = b.String()
	}
	return lines
}

// Codes returns a deep copy of the grid's cells.
func (g *Grid) Codes() [][]int {
	out := make([][]int, len(g.rows))
	for y, row := range g.rows {
		out[y] = append([]int(nil), row...)
	}
	return out
}

// Clone returns an independent copy of the grid.
func (g *Grid) Clone() *Grid {
	return &Grid{rows: g.Codes()}
}

// Equal reports whether two grids hold identical cells.
func (g *Grid) Equal(other *Grid) bool {
	if len(g.rows) != len(other.rows) {
		return false
	}
	for y := range g.rows {
		for x := range g.rows[y] {
			if g.rows[y][x] != other.rows[y][x] {
				return false
			}
		}
	}
	return true
}

// gridFromCodes rebuilds a grid from raw rows, padding or truncating each
// row to Width.
func gridFromCodes(rows [][]int) *Grid {
	g := &Grid{rows: make([][]int, len(rows))}
	for y, src := range rows {
		row := blankRow()
		copy(row, src)
		g.rows[y] = row
	}
	return g
}
