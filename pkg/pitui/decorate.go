package pitui

import (
	"strings"

	"github.com/vito/pitui/pkg/cascade"
	"github.com/vito/pitui/pkg/compositor"
	"github.com/vito/pitui/pkg/css"
	"github.com/vito/pitui/pkg/screen"
)

// borderGlyphs holds top-left, top, top-right, side, bottom-left, bottom,
// bottom-right.
type borderGlyphs struct {
	tl, t, tr, l, r, bl, b, br string
}

var borderSets = map[css.BorderKind]borderGlyphs{
	css.BorderASCII:  {"+", "-", "+", "|", "|", "+", "-", "+"},
	css.BorderSolid:  {"┌", "─", "┐", "│", "│", "└", "─", "┘"},
	css.BorderRound:  {"╭", "─", "╮", "│", "│", "╰", "─", "╯"},
	css.BorderDouble: {"╔", "═", "╗", "║", "║", "╚", "═", "╝"},
	css.BorderHeavy:  {"┏", "━", "┓", "┃", "┃", "┗", "━", "┛"},
}

// borderStyle is the style border glyphs are drawn in: the border's own
// color, else border-color, else the text color.
func borderStyle(st *cascade.ComputedStyle) screen.Style {
	fg := st.Border.Color
	if fg.IsDefault() {
		fg = st.BorderColor
	}
	if fg.IsDefault() {
		fg = st.Color
	}
	return screen.Style{Fg: fg, Bg: st.Background}
}

// decorate wraps content lines in padding and border so that they fill the
// border box outer. Without border or padding the lines are returned as
// they are; the layer's style supplies the background either way.
func decorate(st *cascade.ComputedStyle, outer compositor.Rect, lines []compositor.Line) []compositor.Line {
	glyphs, bordered := borderSets[st.Border.Kind]
	p := st.Padding
	if !bordered && p == (css.Edges{}) {
		return lines
	}
	content := contentBox(outer, st)
	bs := borderStyle(st)

	out := make([]compositor.Line, 0, outer.Height)
	edge := func(l, mid, r string) compositor.Line {
		return compositor.Line{{
			Text:  l + strings.Repeat(mid, max(0, outer.Width-2)) + r,
			Style: bs,
		}}
	}
	if bordered {
		out = append(out, edge(glyphs.tl, glyphs.t, glyphs.tr))
	}
	inner := outer.Height - 2*boolInt(bordered)
	for row := range max(0, inner) {
		var line compositor.Line
		if bordered {
			line = append(line, compositor.Segment{Text: glyphs.l, Style: bs})
		}
		if p.Left > 0 {
			line = append(line, compositor.Segment{Text: strings.Repeat(" ", p.Left)})
		}
		var body compositor.Line
		if i := row - p.Top; i >= 0 && i < content.Height && i < len(lines) {
			body = lines[i]
		}
		line = append(line, PadLine(body, content.Width, screen.Style{})...)
		if p.Right > 0 {
			line = append(line, compositor.Segment{Text: strings.Repeat(" ", p.Right)})
		}
		if bordered {
			line = append(line, compositor.Segment{Text: glyphs.r, Style: bs})
		}
		out = append(out, line)
	}
	if bordered && outer.Height > 1 {
		out = append(out, edge(glyphs.bl, glyphs.b, glyphs.br))
	}
	return out
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
