package pitui

import (
	"bytes"
	"slices"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/charmbracelet/x/ansi"
)

// InputListener is called with every decoded event before it reaches the
// focused component. Return true to consume the event.
type InputListener func(ctx EventContext, ev uv.Event) bool

type inputListenerEntry struct {
	fn  InputListener
	tok any // unique token for removal
}

// AddInputListener registers a listener that intercepts input before it
// reaches the focused component. Returns a function that removes it.
// Listeners run in registration order.
func (t *TUI) AddInputListener(l InputListener) func() {
	type token struct{}
	tok := &token{}
	t.inputListeners = append(t.inputListeners, inputListenerEntry{fn: l, tok: tok})
	return func() {
		t.inputListeners = slices.DeleteFunc(t.inputListeners, func(e inputListenerEntry) bool {
			return e.tok == tok
		})
	}
}

var pasteEnd = []byte(ansi.BracketedPasteEnd)

// handleInput decodes raw terminal bytes and delivers the events. Bracketed
// paste content is collected across reads and delivered as one PasteEvent.
func (t *TUI) handleInput(data []byte) {
	for len(data) > 0 {
		if t.pasting {
			t.paste = append(t.paste, data...)
			idx := bytes.Index(t.paste, pasteEnd)
			if idx < 0 {
				return
			}
			content := string(t.paste[:idx])
			data = slices.Clone(t.paste[idx+len(pasteEnd):])
			t.paste = t.paste[:0]
			t.pasting = false
			t.handleEvent(uv.PasteEvent{Content: content})
			continue
		}

		n, ev := t.decoder.Decode(data)
		if n <= 0 {
			return
		}
		data = data[n:]
		switch ev := ev.(type) {
		case nil:
		case uv.PasteStartEvent:
			t.pasting = true
		case uv.PasteEndEvent:
			// Stray end marker outside a paste.
		case uv.MultiEvent:
			for _, e := range ev {
				t.handleEvent(e)
			}
		default:
			t.handleEvent(ev)
		}
	}
}

// handleEvent runs the input listeners and then routes the event to the
// focus chain.
func (t *TUI) handleEvent(ev uv.Event) {
	source := t.focus
	if source == nil {
		source = t
	}
	ctx := t.eventContext(source)
	for _, entry := range slices.Clone(t.inputListeners) {
		if entry.fn(ctx, ev) {
			return
		}
	}

	switch ev := ev.(type) {
	case uv.KeyPressEvent:
		if t.bubbleKey(ev) {
			return
		}
		switch {
		case ev.MatchString("tab"):
			t.cycleFocus(1)
		case ev.MatchString("shift+tab"):
			t.cycleFocus(-1)
		}
	case uv.PasteEvent:
		t.bubblePaste(ev)
	case uv.WindowSizeEvent:
		t.resize()
	}
}

// bubbleKey offers a key press to the focused component and then to each
// of its ancestors until one consumes it.
func (t *TUI) bubbleKey(ev uv.KeyPressEvent) bool {
	for c := t.focus; c != nil; c = parentOf(c) {
		if ic, ok := c.(Interactive); ok && ic.HandleKeyPress(t.eventContext(c), ev) {
			return true
		}
	}
	return false
}

func (t *TUI) bubblePaste(ev uv.PasteEvent) bool {
	for c := t.focus; c != nil; c = parentOf(c) {
		if p, ok := c.(Pasteable); ok && p.HandlePaste(t.eventContext(c), ev) {
			return true
		}
	}
	return false
}

func parentOf(c Component) Component {
	p := c.compo().parent
	if p == nil {
		return nil
	}
	return p.self
}

// cycleFocus moves focus to the next (dir > 0) or previous focusable
// component in tree order, wrapping around. While an overlay is visible
// only its components take part.
func (t *TUI) cycleFocus(dir int) {
	var scope Component = t
	if o := t.topmostVisibleOverlay(); o != nil {
		scope = o.component
	}
	var candidates []Component
	collectFocusable(scope, &candidates)
	if len(candidates) == 0 {
		return
	}
	i := slices.Index(candidates, t.focus)
	switch {
	case i < 0 && dir > 0:
		i = 0
	case i < 0:
		i = len(candidates) - 1
	default:
		i = (i + dir + len(candidates)) % len(candidates)
	}
	t.SetFocus(candidates[i])
}

// collectFocusable appends the displayed Focusable components under c in
// tree order.
func collectFocusable(c Component, out *[]Component) {
	if st := c.compo().style; st != nil && !st.Displayed() {
		return
	}
	if _, ok := c.(Focusable); ok {
		*out = append(*out, c)
	}
	for _, ch := range childrenOf(c) {
		collectFocusable(ch, out)
	}
}
