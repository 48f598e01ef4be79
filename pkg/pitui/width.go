package pitui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/vito/pitui/pkg/compositor"
	"github.com/vito/pitui/pkg/css"
	"github.com/vito/pitui/pkg/screen"
)

// VisibleWidth returns the terminal display width of a string, ignoring ANSI
// escape sequences and accounting for wide characters.
func VisibleWidth(s string) int {
	return ansi.StringWidth(s)
}

// Truncate truncates s to at most maxWidth visible columns, appending tail
// (e.g. "...") if truncation occurred.
func Truncate(s string, maxWidth int, tail string) string {
	return ansi.Truncate(s, maxWidth, tail)
}

// TruncateLine cuts a line to at most width visible columns. Control
// segments are kept.
func TruncateLine(line compositor.Line, width int) compositor.Line {
	if line.Width() <= width {
		return line
	}
	out := make(compositor.Line, 0, len(line))
	col := 0
	for _, seg := range line {
		if seg.Control {
			out = append(out, seg)
			continue
		}
		w := ansi.StringWidth(seg.Text)
		if col+w <= width {
			out = append(out, seg)
			col += w
			continue
		}
		if rest := width - col; rest > 0 {
			seg.Text = ansi.Truncate(seg.Text, rest, "")
			out = append(out, seg)
		}
		break
	}
	return out
}

// PadLine truncates or pads a line with spaces in style so that it is
// exactly width columns wide.
func PadLine(line compositor.Line, width int, style screen.Style) compositor.Line {
	line = TruncateLine(line, width)
	if w := line.Width(); w < width {
		line = append(line[:len(line):len(line)], compositor.Segment{
			Text:  strings.Repeat(" ", width-w),
			Style: style,
		})
	}
	return line
}

// AlignLine places a line within width columns according to align. Lines
// wider than width are truncated.
func AlignLine(line compositor.Line, width int, align css.Align) compositor.Line {
	line = TruncateLine(line, width)
	gap := width - line.Width()
	if gap <= 0 || align == css.AlignLeft {
		return line
	}
	left := gap
	if align == css.AlignCenter {
		left = gap / 2
	}
	out := make(compositor.Line, 0, len(line)+1)
	out = append(out, compositor.Segment{Text: strings.Repeat(" ", left)})
	return append(out, line...)
}
