// Package screen holds the cell grid that the compositor writes into and the
// renderer diffs.
package screen

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Buffer is a fixed-size grid of cells stored row-major.
type Buffer struct {
	width, height int
	cells         []Cell
}

// NewBuffer allocates a width x height buffer of blank cells.
func NewBuffer(width, height int) *Buffer {
	b := &Buffer{}
	b.Resize(width, height)
	return b
}

func (b *Buffer) Width() int  { return b.width }
func (b *Buffer) Height() int { return b.height }

// Resize reallocates the grid and clears it.
func (b *Buffer) Resize(width, height int) {
	width = max(0, width)
	height = max(0, height)
	b.width, b.height = width, height
	if cap(b.cells) >= width*height {
		b.cells = b.cells[:width*height]
	} else {
		b.cells = make([]Cell, width*height)
	}
	b.Clear()
}

// Clear sets every cell to BlankCell.
func (b *Buffer) Clear() {
	b.Fill(BlankCell)
}

// Fill sets every cell to c. Wide cells are not allowed here; a wide c is
// stored as a blank in its style.
func (b *Buffer) Fill(c Cell) {
	if c.Width != 1 {
		c = Blank(c.Style)
	}
	for i := range b.cells {
		b.cells[i] = c
	}
}

func (b *Buffer) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.width && y < b.height
}

// Cell returns the cell at (x, y), or BlankCell outside the grid.
func (b *Buffer) Cell(x, y int) Cell {
	if !b.inBounds(x, y) {
		return BlankCell
	}
	return b.cells[y*b.width+x]
}

// Row returns the cells of row y. The slice aliases the buffer.
func (b *Buffer) Row(y int) []Cell {
	if y < 0 || y >= b.height {
		return nil
	}
	return b.cells[y*b.width : (y+1)*b.width]
}

// SetCell writes c at (x, y), keeping wide graphemes whole: overwriting
// either half of a wide grapheme blanks the other half, and a wide grapheme
// that does not fit before the right edge is replaced by a space.
func (b *Buffer) SetCell(x, y int, c Cell) {
	if !b.inBounds(x, y) {
		return
	}
	switch {
	case c.Width == 0:
		c = Blank(c.Style)
	case c.Width == 2 && x == b.width-1:
		c = Blank(c.Style)
	case c.Width > 2:
		c.Width = 2
	}

	row := b.Row(y)
	old := row[x]
	if old.Width == 0 && x > 0 && row[x-1].Width == 2 {
		row[x-1] = Blank(row[x-1].Style)
	}
	if old.Width == 2 && x+1 < b.width {
		row[x+1] = Blank(old.Style)
	}

	row[x] = c
	if c.Width == 2 {
		next := row[x+1]
		if next.Width == 2 && x+2 < b.width {
			row[x+2] = Blank(next.Style)
		}
		row[x+1] = Cell{Style: c.Style, Width: 0}
	}
}

// Put writes c at (x, y) verbatim, without wide-grapheme fixups. Callers
// writing whole rows use it when they already guarantee consistency.
func (b *Buffer) Put(x, y int, c Cell) {
	if !b.inBounds(x, y) {
		return
	}
	b.cells[y*b.width+x] = c
}

// SetString writes the grapheme clusters of s starting at (x, y) and
// returns the number of columns written. Zero-width clusters are dropped.
// Writing stops at the right edge.
func (b *Buffer) SetString(x, y int, s string, style Style) int {
	start := x
	for len(s) > 0 && x < b.width {
		cluster, w := ansi.FirstGraphemeCluster(s, ansi.GraphemeWidth)
		s = s[len(cluster):]
		if w == 0 {
			continue
		}
		b.SetCell(x, y, Cell{Grapheme: cluster, Style: style, Width: uint8(min(w, 2))})
		x += min(w, 2)
	}
	return min(x, b.width) - start
}

// Equal reports whether both buffers have the same size and cells.
func (b *Buffer) Equal(other *Buffer) bool {
	if b.width != other.width || b.height != other.height {
		return false
	}
	for i := range b.cells {
		if b.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	c := &Buffer{width: b.width, height: b.height, cells: make([]Cell, len(b.cells))}
	copy(c.cells, b.cells)
	return c
}

// String renders the grid as plain text, one line per row, ignoring styles.
func (b *Buffer) String() string {
	var sb strings.Builder
	for y := range b.height {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for _, c := range b.Row(y) {
			if c.Width == 0 {
				continue
			}
			sb.WriteString(c.Grapheme)
		}
	}
	return sb.String()
}
