package css

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/vito/pitui/pkg/screen"
)

// Property is a registered style property.
type Property struct {
	Name string
	// Inherited properties take their parent's value when unset.
	Inherited bool
	// Syntax is a short description of accepted values, for error messages
	// and documentation.
	Syntax string

	parse func(Value) (any, error)
}

// Parse converts a fully substituted value into the property's typed value.
func (p *Property) Parse(v Value) (any, error) {
	if len(v) == 0 {
		return nil, fmt.Errorf("missing value for %s", p.Name)
	}
	if v.HasVars() {
		return nil, fmt.Errorf("unresolved variables in %s: %s", p.Name, v)
	}
	val, err := p.parse(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w (expected %s)", p.Name, err, p.Syntax)
	}
	return val, nil
}

var registry = map[string]*Property{}

func register(name string, inherited bool, syntax string, parse func(Value) (any, error)) {
	registry[name] = &Property{Name: name, Inherited: inherited, Syntax: syntax, parse: parse}
}

func init() {
	colorSyntax := "#rgb, #rrggbb, rgb(r, g, b), ansi(n), a color name or default"
	register("color", true, colorSyntax, asAny(ParseColor))
	register("background", false, colorSyntax, asAny(ParseColor))
	register("border-color", false, colorSyntax, asAny(ParseColor))
	register("text-style", true, "none or a list of bold dim italic underline blink reverse conceal strike", asAny(parseTextStyle))
	register("display", false, "block or none", asAny(parseDisplay))
	register("visibility", false, "visible or hidden", asAny(parseVisibility))
	for _, name := range []string{"width", "height", "min-width", "max-width", "min-height", "max-height"} {
		register(name, false, "a cell count, a percentage or auto", asAny(parseLength))
	}
	register("margin", false, "1 to 4 cell counts", asAny(parseEdges))
	register("padding", false, "1 to 4 cell counts", asAny(parseEdges))
	register("border", false, "none, or ascii, solid, round, double or heavy followed by an optional color", asAny(parseBorder))
	register("text-align", true, "left, center or right", asAny(parseAlign))
	register("z-index", false, "an integer", asAny(parseZIndex))
}

func asAny[T any](fn func(Value) (T, error)) func(Value) (any, error) {
	return func(v Value) (any, error) {
		return fn(v)
	}
}

// LookupProperty finds a registered property. Names are normalized to
// kebab-case, so "textStyle" and "text_style" find "text-style".
func LookupProperty(name string) (*Property, bool) {
	p, ok := registry[NormalizeProperty(name)]
	return p, ok
}

// NormalizeProperty returns the canonical kebab-case spelling of name.
func NormalizeProperty(name string) string {
	return strcase.ToKebab(name)
}

// Properties returns every registered property sorted by name.
func Properties() []*Property {
	props := make([]*Property, 0, len(registry))
	for _, p := range registry {
		props = append(props, p)
	}
	slices.SortFunc(props, func(a, b *Property) int {
		return strings.Compare(a.Name, b.Name)
	})
	return props
}

var basicColorNames = []string{"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white"}

var colorNames = map[string]int{"gray": 8, "grey": 8}

func init() {
	for i, name := range basicColorNames {
		colorNames[name] = i
		colorNames["bright-"+name] = i + 8
	}
}

// ParseColor parses a single color value.
func ParseColor(v Value) (screen.Color, error) {
	if len(v) != 1 {
		return screen.Color{}, fmt.Errorf("expected one color, got %q", v)
	}
	t := v[0]
	switch t.Kind {
	case KindHash:
		return screen.ParseHex(t.Text)
	case KindIdent:
		name := strings.ToLower(t.Text)
		if name == "default" {
			return screen.DefaultColor, nil
		}
		if i, ok := colorNames[name]; ok {
			return screen.ANSI(i), nil
		}
		return screen.Color{}, fmt.Errorf("unknown color %q", t.Text)
	case KindFunction:
		switch strings.ToLower(t.Text) {
		case "rgb":
			ns, err := intArgs(t, 3, 0, 255)
			if err != nil {
				return screen.Color{}, err
			}
			return screen.RGB(uint8(ns[0]), uint8(ns[1]), uint8(ns[2])), nil
		case "ansi":
			ns, err := intArgs(t, 1, 0, 255)
			if err != nil {
				return screen.Color{}, err
			}
			if ns[0] < 16 {
				return screen.ANSI(ns[0]), nil
			}
			return screen.Indexed(ns[0]), nil
		}
		return screen.Color{}, fmt.Errorf("unknown color function %s()", t.Text)
	}
	return screen.Color{}, fmt.Errorf("unexpected %q", t)
}

func intArgs(fn Token, n, lo, hi int) ([]int, error) {
	parts := Value(fn.Args).split()
	if len(parts) != n {
		return nil, fmt.Errorf("%s() takes %d arguments, got %d", fn.Text, n, len(parts))
	}
	ns := make([]int, n)
	for i, part := range parts {
		if len(part) != 1 || part[0].Kind != KindNumber {
			return nil, fmt.Errorf("%s() argument %d: expected a number, got %q", fn.Text, i+1, part)
		}
		x, err := strconv.Atoi(part[0].Text)
		if err != nil || x < lo || x > hi {
			return nil, fmt.Errorf("%s() argument %d: expected an integer in [%d, %d], got %s", fn.Text, i+1, lo, hi, part[0].Text)
		}
		ns[i] = x
	}
	return ns, nil
}

func parseTextStyle(v Value) (screen.Attr, error) {
	var attrs screen.Attr
	for i, t := range v {
		if t.Kind != KindIdent {
			return 0, fmt.Errorf("unexpected %q", t)
		}
		name := strings.ToLower(t.Text)
		if name == "none" {
			if len(v) != 1 {
				return 0, fmt.Errorf("none cannot be combined with other styles")
			}
			return 0, nil
		}
		a, ok := screen.AttrByName(name)
		if !ok {
			return 0, fmt.Errorf("unknown text style %q at position %d", t.Text, i+1)
		}
		attrs |= a
	}
	return attrs, nil
}

// Display controls whether a node takes part in layout.
type Display uint8

const (
	DisplayBlock Display = iota
	DisplayNone
)

func (d Display) String() string {
	if d == DisplayNone {
		return "none"
	}
	return "block"
}

func parseDisplay(v Value) (Display, error) {
	switch keyword(v) {
	case "block":
		return DisplayBlock, nil
	case "none":
		return DisplayNone, nil
	}
	return 0, fmt.Errorf("unexpected %q", v)
}

// Visibility controls whether a node paints. Hidden nodes keep their space.
type Visibility uint8

const (
	Visible Visibility = iota
	Hidden
)

func (vis Visibility) String() string {
	if vis == Hidden {
		return "hidden"
	}
	return "visible"
}

func parseVisibility(v Value) (Visibility, error) {
	switch keyword(v) {
	case "visible":
		return Visible, nil
	case "hidden":
		return Hidden, nil
	}
	return 0, fmt.Errorf("unexpected %q", v)
}

// LengthUnit is the unit of a Length.
type LengthUnit uint8

const (
	Auto LengthUnit = iota
	Cells
	Percent
)

// Length is a size along one axis.
type Length struct {
	Unit LengthUnit
	N    int
}

// Resolve converts l to cells given the size of the containing box. Auto
// resolves to fallback.
func (l Length) Resolve(container, fallback int) int {
	switch l.Unit {
	case Cells:
		return l.N
	case Percent:
		return container * l.N / 100
	default:
		return fallback
	}
}

func (l Length) String() string {
	switch l.Unit {
	case Cells:
		return strconv.Itoa(l.N)
	case Percent:
		return strconv.Itoa(l.N) + "%"
	default:
		return "auto"
	}
}

func parseLength(v Value) (Length, error) {
	if len(v) != 1 {
		return Length{}, fmt.Errorf("expected one length, got %q", v)
	}
	t := v[0]
	switch t.Kind {
	case KindIdent:
		if strings.EqualFold(t.Text, "auto") {
			return Length{Unit: Auto}, nil
		}
	case KindNumber:
		n, err := nonNegative(t.Text)
		if err != nil {
			return Length{}, err
		}
		return Length{Unit: Cells, N: n}, nil
	case KindPercentage:
		n, err := nonNegative(strings.TrimSuffix(t.Text, "%"))
		if err != nil {
			return Length{}, err
		}
		return Length{Unit: Percent, N: n}, nil
	}
	return Length{}, fmt.Errorf("unexpected %q", t)
}

// Edges holds a value per box side.
type Edges struct {
	Top, Right, Bottom, Left int
}

func (e Edges) String() string {
	return fmt.Sprintf("%d %d %d %d", e.Top, e.Right, e.Bottom, e.Left)
}

func parseEdges(v Value) (Edges, error) {
	if len(v) < 1 || len(v) > 4 {
		return Edges{}, fmt.Errorf("expected 1 to 4 values, got %d", len(v))
	}
	ns := make([]int, len(v))
	for i, t := range v {
		if t.Kind != KindNumber {
			return Edges{}, fmt.Errorf("unexpected %q", t)
		}
		n, err := nonNegative(t.Text)
		if err != nil {
			return Edges{}, err
		}
		ns[i] = n
	}
	switch len(ns) {
	case 1:
		return Edges{ns[0], ns[0], ns[0], ns[0]}, nil
	case 2:
		return Edges{ns[0], ns[1], ns[0], ns[1]}, nil
	case 3:
		return Edges{ns[0], ns[1], ns[2], ns[1]}, nil
	default:
		return Edges{ns[0], ns[1], ns[2], ns[3]}, nil
	}
}

// BorderKind selects the glyph set of a border.
type BorderKind uint8

const (
	BorderNone BorderKind = iota
	BorderASCII
	BorderSolid
	BorderRound
	BorderDouble
	BorderHeavy
)

var borderNames = []string{"none", "ascii", "solid", "round", "double", "heavy"}

func (k BorderKind) String() string {
	if int(k) < len(borderNames) {
		return borderNames[k]
	}
	return fmt.Sprintf("BorderKind(%d)", int(k))
}

// Border is a border kind with an optional color. A default Color leaves
// the border in the node's foreground color.
type Border struct {
	Kind  BorderKind
	Color screen.Color
}

func (b Border) String() string {
	if b.Kind == BorderNone || b.Color.IsDefault() {
		return b.Kind.String()
	}
	return b.Kind.String() + " " + b.Color.String()
}

func parseBorder(v Value) (Border, error) {
	if len(v) == 0 || v[0].Kind != KindIdent {
		return Border{}, fmt.Errorf("expected a border kind, got %q", v)
	}
	kind := slices.Index(borderNames, strings.ToLower(v[0].Text))
	if kind < 0 {
		return Border{}, fmt.Errorf("unknown border kind %q", v[0].Text)
	}
	b := Border{Kind: BorderKind(kind)}
	switch {
	case len(v) == 1:
		return b, nil
	case b.Kind == BorderNone:
		return Border{}, fmt.Errorf("border none takes no color")
	}
	c, err := ParseColor(v[1:])
	if err != nil {
		return Border{}, err
	}
	b.Color = c
	return b, nil
}

// Align is horizontal text alignment.
type Align uint8

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

func (a Align) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return "left"
	}
}

func parseAlign(v Value) (Align, error) {
	switch keyword(v) {
	case "left":
		return AlignLeft, nil
	case "center":
		return AlignCenter, nil
	case "right":
		return AlignRight, nil
	}
	return 0, fmt.Errorf("unexpected %q", v)
}

func parseZIndex(v Value) (int, error) {
	if len(v) != 1 || v[0].Kind != KindNumber {
		return 0, fmt.Errorf("unexpected %q", v)
	}
	n, err := strconv.Atoi(v[0].Text)
	if err != nil {
		return 0, fmt.Errorf("z-index must be an integer, got %s", v[0].Text)
	}
	return n, nil
}

func keyword(v Value) string {
	if len(v) != 1 || v[0].Kind != KindIdent {
		return ""
	}
	return strings.ToLower(v[0].Text)
}

func nonNegative(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("expected a whole number, got %s", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("expected a non-negative number, got %d", n)
	}
	return n, nil
}
