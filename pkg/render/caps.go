// Package render turns the difference between two screen buffers into the
// smallest reasonable stream of terminal escape sequences, honoring what the
// terminal is known to support.
package render

import (
	"io"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/x/ansi"
	"github.com/pkg/errors"
)

// Multiplexer identifies a terminal multiplexer between us and the real
// terminal.
type Multiplexer uint8

const (
	NoMultiplexer Multiplexer = iota
	Tmux
	Screen
)

func (m Multiplexer) String() string {
	switch m {
	case Tmux:
		return "tmux"
	case Screen:
		return "screen"
	default:
		return "none"
	}
}

// Capabilities describes what the output terminal supports. The renderer
// never emits a sequence for a capability reported as unsupported.
type Capabilities struct {
	Color         colorprofile.Profile
	Unicode       bool
	SyncOutput    bool
	Mouse         bool
	KittyKeyboard bool
	Multiplexer   Multiplexer
	// Passthrough wraps every escape sequence for the multiplexer so it
	// reaches the outer terminal. It has no effect without a multiplexer.
	Passthrough bool
}

// Overrides force capabilities regardless of detection. Nil and empty
// fields leave the detected value alone.
type Overrides struct {
	Color       string `toml:"color"`
	SyncOutput  *bool  `toml:"sync_output"`
	Passthrough *bool  `toml:"passthrough"`
	Unicode     *bool  `toml:"unicode"`
	Mouse       *bool  `toml:"mouse"`
}

// DetectCapabilities inspects the output and the environment. environ is in
// os.Environ form.
func DetectCapabilities(out io.Writer, environ []string) Capabilities {
	env := map[string]string{}
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			env[k] = v
		}
	}
	term := strings.ToLower(env["TERM"])
	program := strings.ToLower(env["TERM_PROGRAM"])

	caps := Capabilities{
		Color:   colorprofile.Detect(out, environ),
		Unicode: detectUnicode(env, term),
		Mouse:   term != "dumb" && term != "",
	}

	switch {
	case env["TMUX"] != "" || strings.HasPrefix(term, "tmux"):
		caps.Multiplexer = Tmux
	case env["STY"] != "" || strings.HasPrefix(term, "screen"):
		caps.Multiplexer = Screen
	}

	modern := containsAny(term, "kitty", "ghostty", "wezterm", "foot", "alacritty", "contour") ||
		containsAny(program, "ghostty", "wezterm", "iterm.app", "vscode", "kitty")
	// Synchronized output behind a multiplexer depends on the multiplexer,
	// not on the outer terminal.
	caps.SyncOutput = modern && caps.Multiplexer == NoMultiplexer
	caps.KittyKeyboard = containsAny(term, "kitty", "ghostty", "foot", "wezterm") ||
		containsAny(program, "ghostty", "wezterm", "kitty")
	return caps
}

func detectUnicode(env map[string]string, term string) bool {
	if term == "dumb" || term == "linux" {
		return false
	}
	for _, k := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		v := env[k]
		if v == "" {
			continue
		}
		v = strings.ToLower(v)
		return strings.Contains(v, "utf-8") || strings.Contains(v, "utf8")
	}
	return true
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// With applies overrides to c.
func (c Capabilities) With(o Overrides) (Capabilities, error) {
	if o.Color != "" {
		p, err := ParseProfile(o.Color)
		if err != nil {
			return c, err
		}
		c.Color = p
	}
	if o.SyncOutput != nil {
		c.SyncOutput = *o.SyncOutput
	}
	if o.Passthrough != nil {
		c.Passthrough = *o.Passthrough
	}
	if o.Unicode != nil {
		c.Unicode = *o.Unicode
	}
	if o.Mouse != nil {
		c.Mouse = *o.Mouse
	}
	return c, nil
}

// ParseProfile parses a color depth name as written in configuration.
func ParseProfile(name string) (colorprofile.Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "truecolor", "24bit", "rgb":
		return colorprofile.TrueColor, nil
	case "256", "ansi256", "8bit":
		return colorprofile.ANSI256, nil
	case "16", "ansi", "4bit":
		return colorprofile.ANSI, nil
	case "ascii", "none", "mono":
		return colorprofile.ASCII, nil
	case "notty":
		return colorprofile.NoTTY, nil
	}
	return colorprofile.Unknown, errors.Errorf("unknown color profile %q (expected truecolor, 256, 16, ascii or notty)", name)
}

// wrap applies multiplexer passthrough to an escape sequence.
func (c Capabilities) wrap(seq string) string {
	if !c.Passthrough {
		return seq
	}
	switch c.Multiplexer {
	case Tmux:
		return ansi.TmuxPassthrough(seq)
	case Screen:
		return ansi.ScreenPassthrough(seq, screenPassthroughLimit)
	}
	return seq
}

// GNU Screen truncates string sequences longer than this.
const screenPassthroughLimit = 768
