package render

import (
	"sync"

	"github.com/charmbracelet/colorprofile"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/vito/pitui/pkg/screen"
)

type downgradeKey struct {
	color   screen.Color
	profile colorprofile.Profile
}

var (
	downgradeMu    sync.RWMutex
	downgradeCache = map[downgradeKey]screen.Color{}

	palette [256]colorful.Color
)

func init() {
	for i := range palette {
		palette[i] = screen.Indexed(i).Colorful()
	}
}

// Downgrade converts c to the closest color the profile can display:
// true color to the 256-color palette, to the 16 basic colors, to nothing.
// Closeness is CIE76 distance in CIELAB; ties go to the lowest palette
// index. Results are memoized.
func Downgrade(c screen.Color, p colorprofile.Profile) screen.Color {
	if c.IsDefault() {
		return c
	}
	switch p {
	case colorprofile.TrueColor, colorprofile.Unknown:
		return c
	case colorprofile.ANSI256:
		if c.Kind != screen.ColorRGB {
			return c
		}
	case colorprofile.ANSI:
		if c.Kind == screen.ColorANSI {
			return c
		}
	default:
		return screen.DefaultColor
	}

	key := downgradeKey{c, p}
	downgradeMu.RLock()
	d, ok := downgradeCache[key]
	downgradeMu.RUnlock()
	if ok {
		return d
	}

	n := 256
	if p == colorprofile.ANSI {
		n = 16
	}
	i := nearest(c.Colorful(), n)
	if i < 16 {
		d = screen.ANSI(i)
	} else {
		d = screen.Indexed(i)
	}

	downgradeMu.Lock()
	downgradeCache[key] = d
	downgradeMu.Unlock()
	return d
}

// nearest returns the palette index below n closest to c.
func nearest(c colorful.Color, n int) int {
	best, bestDist := 0, c.DistanceLab(palette[0])
	for i := 1; i < n; i++ {
		if d := c.DistanceLab(palette[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// DowngradeStyle converts both colors of s for the profile. Without a tty
// the attributes are dropped too.
func DowngradeStyle(s screen.Style, p colorprofile.Profile) screen.Style {
	if p == colorprofile.NoTTY {
		return screen.Style{}
	}
	s.Fg = Downgrade(s.Fg, p)
	s.Bg = Downgrade(s.Bg, p)
	return s
}
