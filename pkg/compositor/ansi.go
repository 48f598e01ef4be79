package compositor

import (
	"image/color"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/vito/pitui/pkg/screen"
)

// ParseANSI converts a string containing SGR escape sequences, such as the
// output of lipgloss, into styled segments. Other escape sequences become
// control segments; C0 control characters are dropped.
func ParseANSI(s string) Line {
	line, _ := parseANSI(s, screen.Style{})
	return line
}

// ParseANSILines splits s on newlines and parses every line. SGR state
// carries across lines, matching how a terminal would render s.
func ParseANSILines(s string) []Line {
	rows := strings.Split(s, "\n")
	lines := make([]Line, len(rows))
	var style screen.Style
	for i, row := range rows {
		lines[i], style = parseANSI(row, style)
	}
	return lines
}

func parseANSI(s string, style screen.Style) (Line, screen.Style) {
	var (
		line  Line
		text  strings.Builder
		state byte
	)
	p := ansi.NewParser()

	flush := func() {
		if text.Len() == 0 {
			return
		}
		line = append(line, Segment{Text: text.String(), Style: style})
		text.Reset()
	}

	for len(s) > 0 {
		seq, width, n, newState := ansi.DecodeSequence(s, state, p)
		state = newState
		if n <= 0 {
			break
		}
		s = s[n:]

		switch {
		case width > 0:
			text.WriteString(seq)
		case seq == "":
		case seq[0] == ansi.ESC || seq[0] >= 0x80 && seq[0] < 0xa0:
			flush()
			if ansi.HasCsiPrefix(seq) && ansi.Cmd(p.Command()).Final() == 'm' {
				style = applySGR(style, p.Params())
				continue
			}
			line = append(line, Segment{Text: seq, Control: true})
		case seq[0] < 0x20 || seq[0] == 0x7f:
			// C0 controls have no place in a cell grid.
		default:
			// Zero-width printable text such as joiners.
			text.WriteString(seq)
		}
	}
	flush()
	return line, style
}

func applySGR(style screen.Style, params ansi.Params) screen.Style {
	if len(params) == 0 {
		return screen.Style{}
	}
	for i := 0; i < len(params); i++ {
		v := params[i].Param(0)
		switch {
		case v == 0:
			style = screen.Style{}
		case v == 1:
			style.Attrs |= screen.AttrBold
		case v == 2:
			style.Attrs |= screen.AttrFaint
		case v == 3:
			style.Attrs |= screen.AttrItalic
		case v == 4:
			style.Attrs |= screen.AttrUnderline
		case v == 5 || v == 6:
			style.Attrs |= screen.AttrBlink
		case v == 7:
			style.Attrs |= screen.AttrReverse
		case v == 8:
			style.Attrs |= screen.AttrConceal
		case v == 9:
			style.Attrs |= screen.AttrStrikethrough
		case v == 22:
			style.Attrs &^= screen.AttrBold | screen.AttrFaint
		case v == 23:
			style.Attrs &^= screen.AttrItalic
		case v == 24:
			style.Attrs &^= screen.AttrUnderline
		case v == 25:
			style.Attrs &^= screen.AttrBlink
		case v == 27:
			style.Attrs &^= screen.AttrReverse
		case v == 28:
			style.Attrs &^= screen.AttrConceal
		case v == 29:
			style.Attrs &^= screen.AttrStrikethrough
		case v >= 30 && v <= 37:
			style.Fg = screen.ANSI(v - 30)
		case v == 39:
			style.Fg = screen.DefaultColor
		case v >= 40 && v <= 47:
			style.Bg = screen.ANSI(v - 40)
		case v == 49:
			style.Bg = screen.DefaultColor
		case v >= 90 && v <= 97:
			style.Fg = screen.ANSI(v - 90 + 8)
		case v >= 100 && v <= 107:
			style.Bg = screen.ANSI(v - 100 + 8)
		case v == 38 || v == 48 || v == 58:
			var c color.Color
			n := ansi.ReadStyleColor(params[i:], &c)
			if n == 0 {
				return style
			}
			i += n - 1
			if c == nil {
				continue
			}
			switch v {
			case 38:
				style.Fg = fromColor(c)
			case 48:
				style.Bg = fromColor(c)
			}
		}
	}
	return style
}

func fromColor(c color.Color) screen.Color {
	switch c := c.(type) {
	case ansi.BasicColor:
		return screen.ANSI(int(c))
	case ansi.IndexedColor:
		return screen.Indexed(int(c))
	default:
		r, g, b, _ := c.RGBA()
		return screen.RGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
	}
}
