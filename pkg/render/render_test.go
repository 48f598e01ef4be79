package render

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vito/pitui/pkg/screen"
)

// fakeTerminal records writes and can be told to fail.
type fakeTerminal struct {
	bytes.Buffer
	fail    error
	flushes int
}

func (f *fakeTerminal) Write(p []byte) (int, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	return f.Buffer.Write(p)
}

func (f *fakeTerminal) Flush() error {
	f.flushes++
	return nil
}

// take returns everything written since the last call.
func (f *fakeTerminal) take() string {
	s := f.String()
	f.Reset()
	return s
}

func plainCaps() Capabilities {
	return Capabilities{Color: colorprofile.TrueColor, Unicode: true}
}

func TestFirstFrameRepaintsEverything(t *testing.T) {
	term := &fakeTerminal{}
	ctx := NewContext(term, 4, 2, plainCaps())
	ctx.Buffer().SetString(0, 0, "hi", screen.Style{})

	stats, err := ctx.EndFrame()
	require.NoError(t, err)
	assert.True(t, stats.Full)
	assert.Equal(t, 8, stats.Changes)
	assert.Equal(t, 2, stats.Runs)
	assert.Equal(t, 1, stats.StyleChanges)
	assert.Equal(t, "\x1b[H\x1b[mhi  \x1b[2;1H    ", term.take())
	assert.Equal(t, 1, term.flushes)
}

func TestUnchangedFrameWritesNothing(t *testing.T) {
	term := &fakeTerminal{}
	ctx := NewContext(term, 4, 2, plainCaps())
	ctx.Buffer().SetString(0, 0, "hi", screen.Style{})
	_, err := ctx.EndFrame()
	require.NoError(t, err)
	term.take()

	ctx.BeginFrame().SetString(0, 0, "hi", screen.Style{})
	stats, err := ctx.EndFrame()
	require.NoError(t, err)
	assert.False(t, stats.Full)
	assert.Zero(t, stats.Changes)
	assert.Zero(t, stats.Bytes)
	assert.Empty(t, term.take())
	assert.Equal(t, 1, term.flushes)
}

func TestStyledChangeUsesOneSGRAndResetsPen(t *testing.T) {
	term := &fakeTerminal{}
	ctx := NewContext(term, 4, 2, plainCaps())
	_, err := ctx.EndFrame()
	require.NoError(t, err)
	term.take()

	red := screen.Style{Fg: screen.ANSI(1), Attrs: screen.AttrBold}
	ctx.BeginFrame().SetString(2, 1, "X", red)
	stats, err := ctx.EndFrame()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Changes)
	assert.Equal(t, "\x1b[2;3H\x1b[0;1;31mX\x1b[m", term.take())
}

func TestShortGapsUseCursorForward(t *testing.T) {
	term := &fakeTerminal{}
	ctx := NewContext(term, 10, 1, plainCaps())
	ctx.Buffer().SetString(0, 0, "abcdefgh", screen.Style{})
	_, err := ctx.EndFrame()
	require.NoError(t, err)
	term.take()

	ctx.BeginFrame().SetString(0, 0, "aBcdeFgh", screen.Style{})
	stats, err := ctx.EndFrame()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Changes)
	assert.Equal(t, 2, stats.Runs)
	assert.Equal(t, "\x1b[1;2H\x1b[mB\x1b[3CF", term.take())
}

func TestSyncOutputGating(t *testing.T) {
	for _, sync := range []bool{true, false} {
		term := &fakeTerminal{}
		caps := plainCaps()
		caps.SyncOutput = sync
		ctx := NewContext(term, 3, 1, caps)
		ctx.Buffer().SetString(0, 0, "abc", screen.Style{})
		_, err := ctx.EndFrame()
		require.NoError(t, err)

		out := term.take()
		if sync {
			assert.True(t, strings.HasPrefix(out, ansi.SetModeSynchronizedOutput), "%q", out)
			assert.True(t, strings.HasSuffix(out, ansi.ResetModeSynchronizedOutput), "%q", out)
		} else {
			assert.NotContains(t, out, "?2026")
		}

		// no changes, no markers
		ctx.BeginFrame().SetString(0, 0, "abc", screen.Style{})
		_, err = ctx.EndFrame()
		require.NoError(t, err)
		assert.Empty(t, term.take())
	}
}

func TestPassthroughWrapsEscapes(t *testing.T) {
	term := &fakeTerminal{}
	caps := plainCaps()
	caps.Multiplexer = Tmux
	caps.Passthrough = true
	ctx := NewContext(term, 2, 1, caps)
	ctx.Buffer().SetString(0, 0, "ok", screen.Style{})
	_, err := ctx.EndFrame()
	require.NoError(t, err)

	want := ansi.TmuxPassthrough(ansi.CursorHomePosition) +
		ansi.TmuxPassthrough(ansi.ResetStyle) + "ok"
	assert.Equal(t, want, term.take())

	caps.Multiplexer = NoMultiplexer
	ctx.SetCapabilities(caps)
	ctx.BeginFrame().SetString(0, 0, "ok", screen.Style{})
	_, err = ctx.EndFrame()
	require.NoError(t, err)
	assert.Equal(t, "\x1b[H\x1b[mok", term.take())

	caps.Multiplexer = Screen
	assert.Equal(t, ansi.ScreenPassthrough("\x1b[m", screenPassthroughLimit), caps.wrap("\x1b[m"))
}

func TestNonUnicodeTerminalsGetPlaceholders(t *testing.T) {
	term := &fakeTerminal{}
	caps := plainCaps()
	caps.Unicode = false
	ctx := NewContext(term, 4, 1, caps)
	ctx.Buffer().SetString(0, 0, "é世", screen.Style{})
	_, err := ctx.EndFrame()
	require.NoError(t, err)

	out := term.take()
	assert.Equal(t, "\x1b[H\x1b[m??  ", out)
	for i := range len(out) {
		assert.Less(t, out[i], byte(0x80))
	}
}

func TestWideGraphemesAreWrittenOnce(t *testing.T) {
	term := &fakeTerminal{}
	ctx := NewContext(term, 4, 1, plainCaps())
	ctx.Buffer().SetString(0, 0, "世x", screen.Style{})
	_, err := ctx.EndFrame()
	require.NoError(t, err)
	assert.Equal(t, "\x1b[H\x1b[m世x ", term.take())
}

func TestContinuationChangeRedrawsHead(t *testing.T) {
	term := &fakeTerminal{}
	ctx := NewContext(term, 3, 1, plainCaps())
	ctx.Buffer().SetString(0, 0, "世", screen.Style{})
	_, err := ctx.EndFrame()
	require.NoError(t, err)
	term.take()

	buf := ctx.BeginFrame()
	buf.SetString(0, 0, "世", screen.Style{})
	tail := buf.Cell(1, 0)
	tail.Style = screen.Style{Attrs: screen.AttrUnderline}
	buf.Put(1, 0, tail)

	stats, err := ctx.EndFrame()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Changes)
	assert.Equal(t, "\x1b[H\x1b[m世", term.take())
}

func TestColorsAreDowngradedForTheProfile(t *testing.T) {
	term := &fakeTerminal{}
	caps := plainCaps()
	caps.Color = colorprofile.ANSI
	ctx := NewContext(term, 1, 1, caps)
	ctx.Buffer().SetString(0, 0, "x", screen.Style{Fg: screen.RGB(255, 0, 0)})
	_, err := ctx.EndFrame()
	require.NoError(t, err)
	assert.Equal(t, "\x1b[H\x1b[0;91mx\x1b[m", term.take())

	caps.Color = colorprofile.ASCII
	ctx.SetCapabilities(caps)
	ctx.BeginFrame().SetString(0, 0, "x", screen.Style{Fg: screen.RGB(255, 0, 0), Attrs: screen.AttrBold})
	_, err = ctx.EndFrame()
	require.NoError(t, err)
	assert.Equal(t, "\x1b[H\x1b[0;1mx\x1b[m", term.take())
}

func TestDowngrade(t *testing.T) {
	for _, tc := range []struct {
		name    string
		in      screen.Color
		profile colorprofile.Profile
		want    screen.Color
	}{
		{"truecolor keeps rgb", screen.RGB(1, 2, 3), colorprofile.TrueColor, screen.RGB(1, 2, 3)},
		{"default stays default", screen.DefaultColor, colorprofile.ANSI, screen.DefaultColor},
		{"tie goes to lowest index", screen.RGB(255, 0, 0), colorprofile.ANSI256, screen.ANSI(9)},
		{"black ties with cube", screen.RGB(0, 0, 0), colorprofile.ANSI256, screen.ANSI(0)},
		{"exact cube entry", screen.RGB(95, 135, 175), colorprofile.ANSI256, screen.Indexed(67)},
		{"indexed kept at 256", screen.Indexed(200), colorprofile.ANSI256, screen.Indexed(200)},
		{"indexed to 16", screen.Indexed(196), colorprofile.ANSI, screen.ANSI(9)},
		{"rgb to 16", screen.RGB(250, 250, 250), colorprofile.ANSI, screen.ANSI(15)},
		{"ansi kept at 16", screen.ANSI(3), colorprofile.ANSI, screen.ANSI(3)},
		{"stripped", screen.RGB(1, 2, 3), colorprofile.ASCII, screen.DefaultColor},
		{"no tty", screen.ANSI(3), colorprofile.NoTTY, screen.DefaultColor},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Downgrade(tc.in, tc.profile))
			// memoized result is identical
			assert.Equal(t, tc.want, Downgrade(tc.in, tc.profile))
		})
	}
}

func TestDowngradeStyleWithoutTTYDropsAttributes(t *testing.T) {
	st := screen.Style{Fg: screen.ANSI(1), Attrs: screen.AttrBold}
	assert.Equal(t, screen.Style{}, DowngradeStyle(st, colorprofile.NoTTY))
	assert.Equal(t, screen.Style{Attrs: screen.AttrBold}, DowngradeStyle(st, colorprofile.ASCII))
}

var errBrokenPipe = errors.New("broken pipe")

func TestWriteFailureForcesRepaint(t *testing.T) {
	term := &fakeTerminal{}
	ctx := NewContext(term, 2, 1, plainCaps())
	_, err := ctx.EndFrame()
	require.NoError(t, err)
	term.take()

	term.fail = errBrokenPipe
	ctx.BeginFrame().SetString(0, 0, "a", screen.Style{})
	_, err = ctx.EndFrame()
	require.Error(t, err)

	var te *TerminalError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "write", te.Op)
	assert.ErrorIs(t, err, errBrokenPipe)
	assert.True(t, IsTerminalError(err))

	term.fail = nil
	ctx.BeginFrame().SetString(0, 0, "a", screen.Style{})
	stats, err := ctx.EndFrame()
	require.NoError(t, err)
	assert.True(t, stats.Full)
	assert.Equal(t, 2, stats.Changes)
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) { return len(p) / 2, nil }

func TestShortWriteIsATerminalError(t *testing.T) {
	ctx := NewContext(shortWriter{}, 2, 1, plainCaps())
	_, err := ctx.EndFrame()
	assert.ErrorIs(t, err, io.ErrShortWrite)
	assert.True(t, IsTerminalError(err))
}

func TestBeginFrameSwapsBuffers(t *testing.T) {
	ctx := NewContext(io.Discard, 3, 1, plainCaps())
	first := ctx.Buffer()
	first.SetString(0, 0, "abc", screen.Style{})
	_, err := ctx.EndFrame()
	require.NoError(t, err)

	next := ctx.BeginFrame()
	assert.NotSame(t, first, next)
	assert.Same(t, first, ctx.Previous())
	assert.Equal(t, "abc", ctx.Previous().String())
	assert.Equal(t, "   ", next.String())
}

func TestResizeAndInvalidateRepaint(t *testing.T) {
	ctx := NewContext(io.Discard, 3, 1, plainCaps())
	_, err := ctx.EndFrame()
	require.NoError(t, err)

	ctx.Resize(3, 1)
	ctx.BeginFrame()
	stats, err := ctx.EndFrame()
	require.NoError(t, err)
	assert.False(t, stats.Full, "same size is not a resize")

	ctx.Resize(4, 2)
	ctx.BeginFrame()
	stats, err = ctx.EndFrame()
	require.NoError(t, err)
	assert.True(t, stats.Full)
	assert.Equal(t, 8, stats.Changes)

	ctx.Invalidate()
	ctx.BeginFrame()
	stats, err = ctx.EndFrame()
	require.NoError(t, err)
	assert.True(t, stats.Full)
}

func TestCursorPlacement(t *testing.T) {
	term := &fakeTerminal{}
	ctx := NewContext(term, 3, 1, plainCaps())
	_, err := ctx.EndFrame()
	require.NoError(t, err)
	term.take()

	ctx.SetCursor(1, 0, true)
	ctx.BeginFrame()
	_, err = ctx.EndFrame()
	require.NoError(t, err)
	assert.Equal(t, "\x1b[1;2H"+ansi.ShowCursor, term.take())

	ctx.BeginFrame()
	_, err = ctx.EndFrame()
	require.NoError(t, err)
	assert.Empty(t, term.take())

	ctx.SetCursor(1, 0, false)
	ctx.BeginFrame()
	_, err = ctx.EndFrame()
	require.NoError(t, err)
	assert.Equal(t, ansi.HideCursor, term.take())
}

func TestDetectCapabilities(t *testing.T) {
	caps := DetectCapabilities(io.Discard, []string{"TERM=xterm-kitty", "LANG=en_US.UTF-8"})
	assert.True(t, caps.Unicode)
	assert.True(t, caps.SyncOutput)
	assert.True(t, caps.KittyKeyboard)
	assert.True(t, caps.Mouse)
	assert.Equal(t, NoMultiplexer, caps.Multiplexer)
	assert.Equal(t, colorprofile.NoTTY, caps.Color, "not a tty")

	caps = DetectCapabilities(io.Discard, []string{"TERM=tmux-256color", "TMUX=/tmp/tmux-1000/default,1,0", "TERM_PROGRAM=ghostty"})
	assert.Equal(t, Tmux, caps.Multiplexer)
	assert.False(t, caps.SyncOutput)
	assert.True(t, caps.KittyKeyboard)

	caps = DetectCapabilities(io.Discard, []string{"TERM=screen", "STY=1234.pts-0"})
	assert.Equal(t, Screen, caps.Multiplexer)

	caps = DetectCapabilities(io.Discard, []string{"TERM=xterm", "LC_ALL=C", "LANG=en_US.UTF-8"})
	assert.False(t, caps.Unicode, "LC_ALL wins over LANG")

	caps = DetectCapabilities(io.Discard, []string{"TERM=dumb"})
	assert.False(t, caps.Unicode)
	assert.False(t, caps.Mouse)

	caps = DetectCapabilities(io.Discard, []string{"TERM=xterm-256color", "CLICOLOR_FORCE=1"})
	assert.Equal(t, colorprofile.ANSI256, caps.Color)
}

func TestOverrides(t *testing.T) {
	on, off := true, false
	caps, err := Capabilities{Color: colorprofile.ANSI}.With(Overrides{
		Color:       "truecolor",
		SyncOutput:  &on,
		Passthrough: &on,
		Unicode:     &off,
	})
	require.NoError(t, err)
	assert.Equal(t, Capabilities{
		Color:       colorprofile.TrueColor,
		SyncOutput:  true,
		Passthrough: true,
	}, caps)

	_, err = caps.With(Overrides{Color: "sepia"})
	assert.ErrorContains(t, err, `unknown color profile "sepia"`)

	for name, want := range map[string]colorprofile.Profile{
		"256":   colorprofile.ANSI256,
		"ANSI":  colorprofile.ANSI,
		"ascii": colorprofile.ASCII,
		"notty": colorprofile.NoTTY,
	} {
		p, err := ParseProfile(name)
		require.NoError(t, err)
		assert.Equal(t, want, p, name)
	}
}
