package render

import (
	"bytes"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/vito/pitui/pkg/screen"
)

// serializer turns cell changes into terminal output. It tracks the cursor
// position and the pen (the last SGR emitted) so that it only moves and
// restyles when it has to.
type serializer struct {
	caps Capabilities
	buf  bytes.Buffer

	// x, y is where the terminal cursor is known to be; x < 0 means
	// unknown, as after writing into the last column.
	x, y int

	// lastY, lastEnd locate the end of the last cell written.
	lastY, lastEnd int

	// pen is the last SGR emitted; penKnown is false until the first one of
	// a frame.
	pen      screen.Style
	penKnown bool

	runs         int
	styleChanges int
}

func (s *serializer) reset() {
	s.buf.Reset()
	s.x, s.y = -1, -1
	s.lastY, s.lastEnd = -1, -1
	s.pen = screen.Style{}
	s.penKnown = false
	s.runs = 0
	s.styleChanges = 0
}

func (s *serializer) esc(seq string) {
	s.buf.WriteString(s.caps.wrap(seq))
}

// moveTo positions the cursor at x, y. A same-row forward gap uses CUF when
// that is shorter than an absolute CUP.
func (s *serializer) moveTo(x, y int) {
	if s.x == x && s.y == y {
		return
	}
	s.runs++
	cup := ansi.CursorPosition(x+1, y+1)
	if s.y == y && s.x >= 0 && x > s.x {
		if cuf := ansi.CursorForward(x - s.x); len(cuf) < len(cup) {
			s.esc(cuf)
			s.x = x
			return
		}
	}
	s.esc(cup)
	s.x, s.y = x, y
}

func (s *serializer) setStyle(st screen.Style) {
	st = DowngradeStyle(st, s.caps.Color)
	if s.penKnown && st == s.pen {
		return
	}
	s.styleChanges++
	s.esc(sgr(st))
	s.pen = st
	s.penKnown = true
}

// writeCell draws c at x, y. width is the terminal width, used to detect
// the pending-wrap state after the last column.
func (s *serializer) writeCell(x, y int, c screen.Cell, width int) {
	s.moveTo(x, y)
	s.setStyle(c.Style)
	g := c.Grapheme
	if g == "" {
		g = " "
	}
	if !s.caps.Unicode && !isASCII(g) {
		g = "?" + strings.Repeat(" ", int(max(c.Width, 1))-1)
	}
	s.buf.WriteString(g)
	s.x += int(max(c.Width, 1))
	s.lastY, s.lastEnd = y, s.x
	if s.x >= width {
		s.x = -1
	}
}

// frame serializes changes, all of which must come from cur, in row-major
// order. It returns nothing if there are no changes.
func (s *serializer) frame(cur *screen.Buffer, changes []screen.CellChange) {
	if len(changes) == 0 {
		return
	}
	if s.caps.SyncOutput {
		s.esc(ansi.SetModeSynchronizedOutput)
	}
	width := cur.Width()
	for _, ch := range changes {
		if ch.Cell.IsContinuation() {
			// Covered by a head written in this frame, or else the head
			// did not change and is redrawn.
			if ch.Y == s.lastY && ch.X < s.lastEnd || ch.X == 0 {
				continue
			}
			if head := cur.Cell(ch.X-1, ch.Y); head.Width == 2 {
				s.writeCell(ch.X-1, ch.Y, head, width)
			}
			continue
		}
		s.writeCell(ch.X, ch.Y, ch.Cell, width)
	}
	if !s.pen.IsZero() {
		s.esc(ansi.ResetStyle)
		s.pen = screen.Style{}
	}
	if s.caps.SyncOutput {
		s.esc(ansi.ResetModeSynchronizedOutput)
	}
}

// sgr returns one combined SGR sequence that fully establishes st.
func sgr(st screen.Style) string {
	if st.IsZero() {
		return ansi.ResetStyle
	}
	s := ansi.Style{}.Reset()
	a := st.Attrs
	if a.Has(screen.AttrBold) {
		s = s.Bold()
	}
	if a.Has(screen.AttrFaint) {
		s = s.Faint()
	}
	if a.Has(screen.AttrItalic) {
		s = s.Italic(true)
	}
	if a.Has(screen.AttrUnderline) {
		s = s.Underline(true)
	}
	if a.Has(screen.AttrBlink) {
		s = s.Blink(true)
	}
	if a.Has(screen.AttrReverse) {
		s = s.Reverse(true)
	}
	if a.Has(screen.AttrConceal) {
		s = s.Conceal(true)
	}
	if a.Has(screen.AttrStrikethrough) {
		s = s.Strikethrough(true)
	}
	if c := ansiColor(st.Fg); c != nil {
		s = s.ForegroundColor(c)
	}
	if c := ansiColor(st.Bg); c != nil {
		s = s.BackgroundColor(c)
	}
	return s.String()
}

func ansiColor(c screen.Color) ansi.Color {
	switch c.Kind {
	case screen.ColorANSI:
		return ansi.BasicColor(c.Index)
	case screen.ColorIndexed:
		return ansi.IndexedColor(c.Index)
	case screen.ColorRGB:
		return ansi.RGBColor{R: c.R, G: c.G, B: c.B}
	default:
		return nil
	}
}

func isASCII(s string) bool {
	for i := range len(s) {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
