package screen

import "strings"

// Attr is a set of SGR text attributes.
type Attr uint16

const (
	AttrBold Attr = 1 << iota
	AttrFaint
	AttrItalic
	AttrUnderline
	AttrBlink
	AttrReverse
	AttrConceal
	AttrStrikethrough
)

var attrNames = []struct {
	attr Attr
	name string
}{
	{AttrBold, "bold"},
	{AttrFaint, "dim"},
	{AttrItalic, "italic"},
	{AttrUnderline, "underline"},
	{AttrBlink, "blink"},
	{AttrReverse, "reverse"},
	{AttrConceal, "conceal"},
	{AttrStrikethrough, "strike"},
}

// Has reports whether every attribute in other is set.
func (a Attr) Has(other Attr) bool {
	return a&other == other
}

func (a Attr) String() string {
	if a == 0 {
		return "none"
	}
	var names []string
	for _, an := range attrNames {
		if a.Has(an.attr) {
			names = append(names, an.name)
		}
	}
	return strings.Join(names, " ")
}

// AttrByName maps a text-style keyword to its attribute.
func AttrByName(name string) (Attr, bool) {
	for _, an := range attrNames {
		if an.name == name {
			return an.attr, true
		}
	}
	return 0, false
}

// Style is the visual style of a cell. It is comparable, so two cells with
// equal styles can be detected with ==.
type Style struct {
	Fg    Color
	Bg    Color
	Attrs Attr
}

// Inherit fills the default colors of s from base and adds base's
// attributes.
func (s Style) Inherit(base Style) Style {
	if s.Fg.IsDefault() {
		s.Fg = base.Fg
	}
	if s.Bg.IsDefault() {
		s.Bg = base.Bg
	}
	s.Attrs |= base.Attrs
	return s
}

// IsZero reports whether s is the terminal's default rendition.
func (s Style) IsZero() bool {
	return s == Style{}
}

// Cell is one position of the screen grid. Width is 1 or 2 for a cell that
// starts a grapheme and 0 for the trailing half of a wide grapheme.
type Cell struct {
	Grapheme string
	Style    Style
	Width    uint8
}

// BlankCell is a space in the default style.
var BlankCell = Cell{Grapheme: " ", Width: 1}

// Blank returns a space carrying style.
func Blank(style Style) Cell {
	return Cell{Grapheme: " ", Style: style, Width: 1}
}

// IsContinuation reports whether c is the trailing half of a wide grapheme.
func (c Cell) IsContinuation() bool {
	return c.Width == 0
}
