package screen

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorKind distinguishes how a Color is encoded on the wire.
type ColorKind uint8

const (
	// ColorDefault is the terminal's default foreground or background.
	ColorDefault ColorKind = iota
	// ColorANSI is one of the 16 basic colors (SGR 30-37, 90-97).
	ColorANSI
	// ColorIndexed is an entry of the 256-color palette (SGR 38;5;n).
	ColorIndexed
	// ColorRGB is a 24-bit color (SGR 38;2;r;g;b).
	ColorRGB
)

// Color is a terminal color. The zero value is the default color.
type Color struct {
	Kind    ColorKind
	Index   uint8
	R, G, B uint8
}

// DefaultColor is the terminal default.
var DefaultColor = Color{}

// ANSI returns one of the 16 basic colors. i is taken modulo 16.
func ANSI(i int) Color {
	return Color{Kind: ColorANSI, Index: uint8(i & 0x0f)}
}

// Indexed returns an entry of the 256-color palette.
func Indexed(i int) Color {
	return Color{Kind: ColorIndexed, Index: uint8(i)}
}

// RGB returns a true color.
func RGB(r, g, b uint8) Color {
	return Color{Kind: ColorRGB, R: r, G: g, B: b}
}

// ParseHex parses "#rgb" or "#rrggbb".
func ParseHex(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return RGB(r, g, b), nil
}

// IsDefault reports whether c is the terminal default.
func (c Color) IsDefault() bool {
	return c.Kind == ColorDefault
}

// RGB255 returns the color's components. Palette colors resolve through the
// standard xterm palette; the default color reports black.
func (c Color) RGB255() (r, g, b uint8) {
	switch c.Kind {
	case ColorRGB:
		return c.R, c.G, c.B
	case ColorANSI, ColorIndexed:
		return PaletteRGB(c.Index)
	default:
		return 0, 0, 0
	}
}

// Colorful converts c for perceptual color math.
func (c Color) Colorful() colorful.Color {
	r, g, b := c.RGB255()
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

func (c Color) String() string {
	switch c.Kind {
	case ColorANSI:
		return fmt.Sprintf("ansi(%d)", c.Index)
	case ColorIndexed:
		return fmt.Sprintf("indexed(%d)", c.Index)
	case ColorRGB:
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	default:
		return "default"
	}
}

var basic16 = [16][3]uint8{
	{0, 0, 0}, {128, 0, 0}, {0, 128, 0}, {128, 128, 0},
	{0, 0, 128}, {128, 0, 128}, {0, 128, 128}, {192, 192, 192},
	{128, 128, 128}, {255, 0, 0}, {0, 255, 0}, {255, 255, 0},
	{0, 0, 255}, {255, 0, 255}, {0, 255, 255}, {255, 255, 255},
}

// cubeValues are the channel intensities of the 6x6x6 color cube at
// palette indices 16-231.
var cubeValues = [6]uint8{0, 95, 135, 175, 215, 255}

// PaletteRGB returns the xterm RGB value of a 256-color palette index.
func PaletteRGB(i uint8) (r, g, b uint8) {
	switch {
	case i < 16:
		c := basic16[i]
		return c[0], c[1], c[2]
	case i < 232:
		i -= 16
		return cubeValues[i/36], cubeValues[(i/6)%6], cubeValues[i%6]
	default:
		v := 8 + 10*(i-232)
		return v, v, v
	}
}
