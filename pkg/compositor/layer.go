// Package compositor flattens a stack of overlapping layers into a single
// screen buffer. Each row is cut at every layer edge and every resulting
// interval is painted from the topmost layer covering it.
package compositor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/vito/pitui/pkg/screen"
)

// Rect is a rectangle in cells.
type Rect struct {
	X, Y          int
	Width, Height int
}

func (r Rect) Right() int  { return r.X + r.Width }
func (r Rect) Bottom() int { return r.Y + r.Height }

// Empty reports whether r covers no cells.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether (x, y) is inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.Right() && y >= r.Y && y < r.Bottom()
}

// Inset shrinks r by the given edges, never below zero size.
func (r Rect) Inset(top, right, bottom, left int) Rect {
	return Rect{
		X:      r.X + left,
		Y:      r.Y + top,
		Width:  max(0, r.Width-left-right),
		Height: max(0, r.Height-top-bottom),
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// Segment is a run of text in one style. Control segments carry
// non-visible tokens (escape sequences, zone markers) and occupy no cells.
type Segment struct {
	Text    string
	Style   screen.Style
	Control bool
}

// Line is one row of a widget's output.
type Line []Segment

// Plain returns a line holding s in style.
func Plain(s string, style screen.Style) Line {
	if s == "" {
		return nil
	}
	return Line{{Text: s, Style: style}}
}

// Width returns the display width of the line's visible segments.
func (l Line) Width() int {
	w := 0
	for _, seg := range l {
		if seg.Control {
			continue
		}
		w += ansi.StringWidth(seg.Text)
	}
	return w
}

// String returns the visible text of the line.
func (l Line) String() string {
	var sb strings.Builder
	for _, seg := range l {
		if !seg.Control {
			sb.WriteString(seg.Text)
		}
	}
	return sb.String()
}

// Layer is one widget's output for one frame: where it goes, how it stacks,
// and what it shows. Style is the base style painted under the lines and
// inherited by segments that leave colors at their defaults.
type Layer struct {
	ID    uint64
	Rect  Rect
	Z     int
	Style screen.Style
	Lines []Line
}

// Degenerate reports whether the layer covers no cells.
func (l *Layer) Degenerate() bool {
	return l.Rect.Empty()
}

func (l *Layer) coversRow(row int) bool {
	return !l.Degenerate() && row >= l.Rect.Y && row < l.Rect.Bottom()
}
