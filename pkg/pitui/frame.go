package pitui

import (
	"time"

	"github.com/vito/pitui/pkg/cascade"
	"github.com/vito/pitui/pkg/compositor"
	"github.com/vito/pitui/pkg/css"
)

// overlayZ is the z-index base of the first overlay; each further overlay
// stacks one step above the previous.
const overlayZ = 1 << 16

// frameBuilder walks the mounted component tree once per frame, resolving
// styles, laying out, rendering and turning every visible component into
// a compositor layer.
type frameBuilder struct {
	tui          *TUI
	frame        *compositor.Frame
	screenHeight int

	// cursor is the focused component's cursor in screen cells.
	cursor *CursorPos

	renderTime time.Duration
	rendered   int
	cached     int
	stats      *[]ComponentStat
}

// style resolves the computed style of a mounted component and notifies
// Styled components when it changed.
func (b *frameBuilder) style(c Component) *cascade.ComputedStyle {
	cp := c.compo()
	st := b.tui.engine.Style(cp.node)
	if st != cp.style {
		cp.style = st
		if s, ok := c.(Styled); ok {
			s.SetStyle(st)
		}
	}
	return st
}

// styleTree resolves styles for c and all of its descendants.
func (b *frameBuilder) styleTree(c Component) {
	b.style(c)
	for _, ch := range childrenOf(c) {
		b.styleTree(ch)
	}
}

func (b *frameBuilder) render(c Component, width, height int) RenderResult {
	start := time.Now()
	r, hit := renderComponent(c, RenderContext{
		Width:          width,
		Height:         height,
		ScreenHeight:   b.screenHeight,
		Style:          c.compo().style,
		componentStats: b.stats,
	})
	b.renderTime += time.Since(start)
	if hit {
		b.cached++
	} else {
		b.rendered++
	}
	return r
}

// heightHint is the Height a component renders with: its content height
// when its height is fixed by style, else unconstrained. Measuring and
// placing use the same hint, so the second render is a cache hit.
func heightHint(st *cascade.ComputedStyle, contentHeight int) int {
	if st.Height.Unit == css.Auto {
		return 0
	}
	return contentHeight
}

func layoutOf(c Component) Layout {
	if l, ok := c.(Layouter); ok {
		return l.Layout()
	}
	return StackLayout{}
}

func (b *frameBuilder) items(children []Component) []LayoutItem {
	items := make([]LayoutItem, len(children))
	for i, ch := range children {
		items[i] = LayoutItem{
			Style: ch.compo().style,
			Measure: func(width int) int {
				return b.measure(ch, width, 0)
			},
		}
	}
	return items
}

// measure returns the content height c needs at the given content width:
// its own lines or its children's extent, whichever is taller.
func (b *frameBuilder) measure(c Component, width, hint int) int {
	h := len(b.render(c, width, hint).Lines)
	if children := childrenOf(c); len(children) > 0 {
		h = max(h, layoutOf(c).Extent(width, b.items(children)))
	}
	return h
}

// place lays c out in the border box outer, clipped to clip, and adds its
// layer and its children's layers to the frame. hint overrides the render
// height when non-zero.
func (b *frameBuilder) place(c Component, outer, clip compositor.Rect, z, hint int) {
	cp := c.compo()
	st := cp.style
	if !st.Displayed() || outer.Empty() {
		return
	}
	z += st.ZIndex
	content := contentBox(outer, st)
	if hint == 0 {
		hint = heightHint(st, content.Height)
	}
	r := b.render(c, content.Width, hint)

	if !st.Hidden() {
		lines := decorate(st, outer, r.Lines)
		rect := intersect(outer, clip)
		if dy := rect.Y - outer.Y; dy > 0 {
			lines = lines[min(dy, len(lines)):]
		}
		b.frame.Add(compositor.Layer{
			ID:    uint64(cp.node),
			Rect:  rect,
			Z:     z,
			Style: st.Style(),
			Lines: lines,
		})
	}

	if r.Cursor != nil && c == b.tui.focus {
		x, y := content.X+r.Cursor.Col, content.Y+r.Cursor.Row
		if intersect(content, clip).Contains(x, y) {
			b.cursor = &CursorPos{Row: y, Col: x}
		}
	}

	children := childrenOf(c)
	if len(children) == 0 {
		return
	}
	inner := intersect(content, clip)
	rects := layoutOf(c).Arrange(content, b.items(children))
	for i, ch := range children {
		b.place(ch, rects[i], inner, z, 0)
	}
}

// placeOverlay sizes and positions an overlay against the screen and
// places it above everything added before.
func (b *frameBuilder) placeOverlay(e *overlayEntry, screen compositor.Rect, z int) {
	comp := e.component
	st := comp.compo().style
	if !st.Displayed() {
		return
	}
	dx, dy := insets(st)
	width, _, _, maxH, maxHSet := resolveOverlayLayout(e.options, 0, screen.Width, screen.Height)
	hint := 0
	if maxHSet {
		hint = max(0, maxH-dy)
	}
	height := b.measure(comp, max(0, width-dx), hint) + dy
	if maxHSet {
		height = min(height, maxH)
	}
	_, row, col, _, _ := resolveOverlayLayout(e.options, height, screen.Width, screen.Height)
	outer := compositor.Rect{X: col, Y: row, Width: width, Height: height}
	b.place(comp, outer, screen, z, hint)
}
