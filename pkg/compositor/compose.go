package compositor

import (
	"slices"

	"github.com/charmbracelet/x/ansi"

	"github.com/vito/pitui/pkg/screen"
)

// Cuts returns the x-offsets partitioning row into intervals over which the
// set of intersecting layers is constant: 0, width, and the left and right
// edge of every layer on the row, clamped to [0, width], sorted and
// deduplicated. The result is appended to dst[:0].
func Cuts(layers []Layer, row, width int, dst []int) []int {
	width = max(0, width)
	dst = append(dst[:0], 0, width)
	for i := range layers {
		l := &layers[i]
		if !l.coversRow(row) {
			continue
		}
		dst = append(dst, clamp(l.Rect.X, 0, width), clamp(l.Rect.Right(), 0, width))
	}
	slices.Sort(dst)
	return slices.Compact(dst)
}

// Select returns the index of the layer painted over [x0, x1) on row: the
// highest Z among layers on the row whose horizontal span overlaps the
// interval, with ties going to the later layer. It returns -1 when no layer
// covers the interval.
func Select(layers []Layer, row, x0, x1 int) int {
	best := -1
	for i := range layers {
		l := &layers[i]
		if !l.coversRow(row) {
			continue
		}
		if x0 >= l.Rect.Right() || x1 <= l.Rect.X {
			continue
		}
		if best == -1 || l.Z >= layers[best].Z {
			best = i
		}
	}
	return best
}

// Stats summarizes one composition.
type Stats struct {
	Layers    int
	Skipped   int
	Intervals int
	Cells     int
}

// Frame is the layer list of one frame. The owner adds layers while walking
// the widget tree, composes, and resets before the next frame.
type Frame struct {
	layers []Layer
	cuts   []int
	rows   map[int][]screen.Cell
}

// Add appends a layer. Later layers win z-index ties.
func (f *Frame) Add(l Layer) {
	f.layers = append(f.layers, l)
}

// Layers returns the layers added so far.
func (f *Frame) Layers() []Layer {
	return f.layers
}

// Reset drops every layer, keeping allocations.
func (f *Frame) Reset() {
	clear(f.layers)
	f.layers = f.layers[:0]
}

// Compose paints the frame's layers into dst. It never fails: degenerate
// layers are skipped and everything is clipped to dst.
func (f *Frame) Compose(dst *screen.Buffer) Stats {
	var stats Stats
	for i := range f.layers {
		if f.layers[i].Degenerate() {
			stats.Skipped++
		} else {
			stats.Layers++
		}
	}
	if f.rows == nil {
		f.rows = make(map[int][]screen.Cell)
	}

	width := dst.Width()
	for y := range dst.Height() {
		f.cuts = Cuts(f.layers, y, width, f.cuts)
		clear(f.rows)
		for k := 0; k+1 < len(f.cuts); k++ {
			x0, x1 := f.cuts[k], f.cuts[k+1]
			stats.Intervals++
			sel := Select(f.layers, y, x0, x1)
			if sel < 0 {
				continue
			}
			l := &f.layers[sel]
			cells, ok := f.rows[sel]
			if !ok {
				cells = rasterize(l, y-l.Rect.Y)
				f.rows[sel] = cells
			}
			stats.Cells += paint(dst, y, x0, x1, l.Rect.X, cells)
		}
	}
	return stats
}

// Compose paints layers into dst using a throwaway Frame.
func Compose(dst *screen.Buffer, layers []Layer) Stats {
	f := Frame{layers: layers}
	return f.Compose(dst)
}

// paint copies cells [x0-originX, x1-originX) of a rasterized layer row into
// dst at [x0, x1). A wide grapheme cut by either edge of the interval is
// replaced by a space in its style.
func paint(dst *screen.Buffer, y, x0, x1, originX int, cells []screen.Cell) int {
	n := 0
	for x := x0; x < x1; x++ {
		lx := x - originX
		if lx < 0 || lx >= len(cells) {
			continue
		}
		c := cells[lx]
		switch {
		case x == x0 && c.Width == 0:
			c = screen.Blank(c.Style)
		case x == x1-1 && c.Width == 2:
			c = screen.Blank(c.Style)
		}
		dst.Put(x, y, c)
		n++
	}
	return n
}

// rasterize turns local row `row` of l into exactly l.Rect.Width cells.
// Missing rows and short lines are padded with blanks in the layer style;
// long lines are clipped, and a wide grapheme that would straddle the right
// edge becomes a space.
func rasterize(l *Layer, row int) []screen.Cell {
	width := l.Rect.Width
	cells := make([]screen.Cell, width)
	blank := screen.Blank(l.Style)
	for i := range cells {
		cells[i] = blank
	}
	if row < 0 || row >= len(l.Lines) {
		return cells
	}

	x := 0
	for _, seg := range l.Lines[row] {
		if seg.Control {
			continue
		}
		style := seg.Style.Inherit(l.Style)
		s := seg.Text
		for len(s) > 0 && x < width {
			cluster, w := ansi.FirstGraphemeCluster(s, ansi.GraphemeWidth)
			s = s[len(cluster):]
			if w == 0 {
				continue
			}
			w = min(w, 2)
			if x+w > width {
				cells[x] = screen.Blank(style)
				x = width
				break
			}
			cells[x] = screen.Cell{Grapheme: cluster, Style: style, Width: uint8(w)}
			if w == 2 {
				cells[x+1] = screen.Cell{Style: style, Width: 0}
			}
			x += w
		}
		if x >= width {
			break
		}
	}
	return cells
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
