package pitui

import (
	"testing"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shortcutBox is a container that handles ctrl+q for its descendants.
type shortcutBox struct {
	Container
	quits int
}

func (s *shortcutBox) HandleKeyPress(ctx EventContext, ev uv.KeyPressEvent) bool {
	if ev.MatchString("ctrl+q") {
		s.quits++
		return true
	}
	return false
}

func TestTabCyclesFocus(t *testing.T) {
	tui := newTUI(newMockTerminal(40, 10))
	a := NewTextInput("a> ")
	b := NewTextInput("b> ")
	tui.AddChild(NewText("not focusable"))
	tui.AddChild(a)
	tui.AddChild(b)

	tui.handleInput([]byte("\t"))
	assert.Equal(t, a, tui.Focused())
	tui.handleInput([]byte("\t"))
	assert.Equal(t, b, tui.Focused())
	tui.handleInput([]byte("\t"))
	assert.Equal(t, a, tui.Focused(), "focus wraps around")

	tui.handleInput([]byte("\x1b[Z"))
	assert.Equal(t, b, tui.Focused(), "shift+tab goes backwards")

	tree := tui.engine.Tree()
	assert.True(t, tree.Node(b.Node()).Pseudo.Contains("focus"))
	assert.False(t, tree.Node(a.Node()).Pseudo.Contains("focus"))
}

func TestTabCyclesWithinOverlay(t *testing.T) {
	tui := newTUI(newMockTerminal(40, 10))
	base := NewTextInput("base> ")
	tui.AddChild(base)

	dialog := &Container{}
	x := NewTextInput("x> ")
	y := NewTextInput("y> ")
	dialog.AddChild(x)
	dialog.AddChild(y)
	tui.ShowOverlay(dialog, nil)

	tui.handleInput([]byte("\t"))
	assert.Equal(t, x, tui.Focused())
	tui.handleInput([]byte("\t"))
	assert.Equal(t, y, tui.Focused())
	tui.handleInput([]byte("\t"))
	assert.Equal(t, x, tui.Focused(), "focus never leaves the overlay")
}

func TestTabSkipsHiddenComponents(t *testing.T) {
	tui := newTUI(newMockTerminal(40, 10))
	require.NoError(t, tui.LoadStylesheet("app.tcss", `.off { display: none; }`))
	a := NewTextInput("a> ")
	b := NewTextInput("b> ")
	b.AddClass("off")
	c := NewTextInput("c> ")
	tui.AddChild(a)
	tui.AddChild(b)
	tui.AddChild(c)
	renderSync(t, tui)

	tui.SetFocus(a)
	tui.handleInput([]byte("\t"))
	assert.Equal(t, c, tui.Focused())
}

func TestKeyBubblesToParent(t *testing.T) {
	tui := newTUI(newMockTerminal(40, 10))
	box := &shortcutBox{}
	input := NewTextInput("> ")
	box.AddChild(input)
	tui.AddChild(box)
	tui.SetFocus(input)

	tui.handleInput([]byte("hi\x11"))
	assert.Equal(t, "hi", input.Value(), "printable keys stay with the input")
	assert.Equal(t, 1, box.quits, "ctrl+q bubbles to the container")
}

func TestBracketedPaste(t *testing.T) {
	tui := newTUI(newMockTerminal(40, 10))
	input := NewTextInput("> ")
	tui.AddChild(input)
	tui.SetFocus(input)

	var changes int
	input.OnChange = func(ctx EventContext) { changes++ }

	// The end marker arrives in a later read.
	tui.handleInput([]byte("a\x1b[200~hello\nwor"))
	assert.Equal(t, "a", input.Value())
	tui.handleInput([]byte("ld\x1b[201~b"))
	assert.Equal(t, "ahello worldb", input.Value())
	assert.Equal(t, 3, changes)
}

func TestPasteListenerSeesWholePaste(t *testing.T) {
	tui := newTUI(newMockTerminal(40, 10))
	var pastes []string
	tui.AddInputListener(func(ctx EventContext, ev uv.Event) bool {
		if p, ok := ev.(uv.PasteEvent); ok {
			pastes = append(pastes, p.Content)
			return true
		}
		return false
	})
	tui.handleInput([]byte("\x1b[200~one\x1b[201~\x1b[200~two\x1b[201~"))
	assert.Equal(t, []string{"one", "two"}, pastes)
}

func TestTextInputEditing(t *testing.T) {
	tui := newTUI(newMockTerminal(40, 10))
	input := NewTextInput("> ")
	tui.AddChild(input)
	tui.SetFocus(input)

	type step struct {
		keys   string
		value  string
		cursor int
	}
	for _, s := range []step{
		{"hello world", "hello world", 11},
		{"\x17", "hello ", 6},            // ctrl+w
		{"\x01", "hello ", 0},            // ctrl+a
		{"\x1bf", "hello ", 6},           // alt+f
		{"there", "hello there", 11},     // insert
		{"\x1bb\x1bb", "hello there", 0}, // alt+b twice
		{"\x0b", "", 0},                  // ctrl+k
		{"ab", "ab", 2},                  // insert
		{"\x02\x14", "ba", 2},            // ctrl+b, ctrl+t
		{"\x7f", "b", 1},                 // backspace
		{"\x1b[D\x1b[3~", "", 0},         // left, delete
		{"xyz\x1b[H\x1b[C\x15", "yz", 0}, // home, right, ctrl+u
		{"\x1b[F\x1b[D\x0b", "y", 1},     // end, left, ctrl+k
	} {
		tui.handleInput([]byte(s.keys))
		assert.Equal(t, s.value, input.Value(), "after %q", s.keys)
		assert.Equal(t, s.cursor, input.cursor, "cursor after %q", s.keys)
	}
}

func TestTextInputSubmit(t *testing.T) {
	tui := newTUI(newMockTerminal(40, 10))
	input := NewTextInput("> ")
	tui.AddChild(input)
	tui.SetFocus(input)

	var submitted []string
	input.OnSubmit = func(ctx EventContext, value string) bool {
		submitted = append(submitted, value)
		return value != "keep"
	}

	tui.handleInput([]byte("  run  \r"))
	assert.Equal(t, []string{"run"}, submitted)
	assert.Equal(t, "", input.Value(), "cleared after submit")

	tui.handleInput([]byte("keep\r"))
	assert.Equal(t, "keep", input.Value())
}

func TestTextInputSuggestion(t *testing.T) {
	tui := newTUI(newMockTerminal(40, 10))
	input := NewTextInput("> ")
	other := NewTextInput("? ")
	tui.AddChild(input)
	tui.AddChild(other)
	tui.SetFocus(input)

	input.SetValue("gre")
	input.Suggestion = "greeting"
	renderSync(t, tui)
	assert.Equal(t, "> greeting", screenRows(tui)[0][:10])

	tui.handleInput([]byte("\t"))
	assert.Equal(t, "greeting", input.Value(), "tab accepts the suggestion")
	assert.Equal(t, input, tui.Focused(), "and does not move focus")

	tui.handleInput([]byte("\t"))
	assert.Equal(t, other, tui.Focused(), "without a suggestion tab moves focus")
}

func TestTextInputScrollsToCursor(t *testing.T) {
	input := NewTextInput("> ")
	input.SetValue("abcdefghij")
	input.focused = true

	r := input.Render(RenderContext{Width: 8})
	require.Len(t, r.Lines, 1)
	assert.Equal(t, "> fghij", r.Lines[0].String())
	assert.Equal(t, &CursorPos{Row: 0, Col: 7}, r.Cursor)
}
