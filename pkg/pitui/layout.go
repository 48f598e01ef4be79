package pitui

import (
	"github.com/vito/pitui/pkg/cascade"
	"github.com/vito/pitui/pkg/compositor"
	"github.com/vito/pitui/pkg/css"
)

// LayoutItem is one child offered to a Layout.
type LayoutItem struct {
	Style *cascade.ComputedStyle
	// Measure returns the height of the child's content box for a content
	// width.
	Measure func(width int) int
}

// Layout places the children of a component inside its content box. It
// returns the border box of every item; items that are not displayed get
// an empty rectangle. A content height of 0 means unbounded, as when the
// parent's own height is being measured.
type Layout interface {
	Arrange(content compositor.Rect, items []LayoutItem) []compositor.Rect
	// Extent returns the height the items take up at the given width.
	Extent(width int, items []LayoutItem) int
}

// StackLayout flows children top to bottom. Each child is as wide as the
// content box minus its margins unless it sets a width, and as tall as its
// content plus padding and border unless it sets a height. Min and max
// sizes clamp both.
type StackLayout struct{}

func (StackLayout) Arrange(content compositor.Rect, items []LayoutItem) []compositor.Rect {
	rects, _ := stack(content, items)
	return rects
}

func (StackLayout) Extent(width int, items []LayoutItem) int {
	_, end := stack(compositor.Rect{Width: width}, items)
	return end
}

func stack(content compositor.Rect, items []LayoutItem) ([]compositor.Rect, int) {
	rects := make([]compositor.Rect, len(items))
	y := content.Y
	for i, it := range items {
		st := it.Style
		if !st.Displayed() {
			rects[i] = compositor.Rect{X: content.X, Y: y}
			continue
		}
		m := st.Margin
		avail := max(0, content.Width-m.Left-m.Right)

		w := resolveLength(st.Width, content.Width, avail)
		w = clampLength(w, st.MinWidth, st.MaxWidth, content.Width)
		w = min(w, avail)

		dx, dy := insets(st)
		h := resolveLength(st.Height, content.Height, -1)
		if h < 0 {
			h = it.Measure(max(0, w-dx)) + dy
		}
		h = clampLength(h, st.MinHeight, st.MaxHeight, content.Height)

		y += m.Top
		rects[i] = compositor.Rect{X: content.X + m.Left, Y: y, Width: w, Height: h}
		y += h + m.Bottom
	}
	return rects, y - content.Y
}

// resolveLength resolves l against a container size. Percentages of an
// unbounded (zero) container fall back like auto.
func resolveLength(l css.Length, container, fallback int) int {
	if l.Unit == css.Percent && container <= 0 {
		return fallback
	}
	return l.Resolve(container, fallback)
}

func clampLength(v int, lo, hi css.Length, container int) int {
	if lo.Unit != css.Auto {
		v = max(v, resolveLength(lo, container, v))
	}
	if hi.Unit != css.Auto {
		v = min(v, resolveLength(hi, container, v))
	}
	return max(v, 0)
}

// insets returns the horizontal and vertical space taken by border and
// padding.
func insets(st *cascade.ComputedStyle) (dx, dy int) {
	p := st.Padding
	dx, dy = p.Left+p.Right, p.Top+p.Bottom
	if st.Border.Kind != css.BorderNone {
		dx += 2
		dy += 2
	}
	return dx, dy
}

// contentBox shrinks a border box by border and padding.
func contentBox(outer compositor.Rect, st *cascade.ComputedStyle) compositor.Rect {
	p := st.Padding
	b := 0
	if st.Border.Kind != css.BorderNone {
		b = 1
	}
	return outer.Inset(p.Top+b, p.Right+b, p.Bottom+b, p.Left+b)
}

// intersect returns the part of a inside b. An empty result keeps a's
// origin.
func intersect(a, b compositor.Rect) compositor.Rect {
	x0, y0 := max(a.X, b.X), max(a.Y, b.Y)
	x1, y1 := min(a.Right(), b.Right()), min(a.Bottom(), b.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return compositor.Rect{X: a.X, Y: a.Y}
	}
	return compositor.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}
