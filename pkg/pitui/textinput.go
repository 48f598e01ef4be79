package pitui

import (
	"strings"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/charmbracelet/x/ansi"

	"github.com/vito/pitui/pkg/compositor"
	"github.com/vito/pitui/pkg/screen"
)

// TextInput is a single-line text editor component with cursor, word
// motion and kill-line support.
type TextInput struct {
	Compo

	// Prompt is rendered before the input text. May contain ANSI codes.
	Prompt string

	value []rune
	// cursor is the position within value (0 = before first rune).
	cursor  int
	focused bool

	// OnSubmit is called when Enter is pressed. The string is the trimmed
	// input value. Return true to clear the input after submission.
	OnSubmit func(ctx EventContext, value string) bool

	// OnKey is called for keys not handled by the editor. Return true if
	// the key was consumed.
	OnKey func(ctx EventContext, ev uv.KeyPressEvent) bool

	// Suggestion is a ghost completion hint shown after the cursor. It is
	// cleared on every keystroke and must be re-set by the caller (e.g. in
	// OnChange or OnSubmit).
	Suggestion string

	// OnChange is called after the input value has been modified (character
	// inserted, deleted, etc.). It is NOT called for cursor-only movements.
	OnChange func(ctx EventContext)
}

var (
	_ Interactive = (*TextInput)(nil)
	_ Pasteable   = (*TextInput)(nil)
	_ Focusable   = (*TextInput)(nil)
)

// NewTextInput creates a TextInput with the given prompt.
func NewTextInput(prompt string) *TextInput {
	return &TextInput{Prompt: prompt}
}

func (t *TextInput) SetFocused(ctx EventContext, focused bool) {
	t.focused = focused
	t.Update()
}

// Value returns the current input string.
func (t *TextInput) Value() string { return string(t.value) }

// SetValue replaces the input and moves the cursor to the end.
func (t *TextInput) SetValue(s string) {
	t.value = []rune(s)
	t.cursor = len(t.value)
	t.Update()
}

// CursorEnd moves the cursor to the end of the input.
func (t *TextInput) CursorEnd() {
	t.cursor = len(t.value)
	t.Update()
}

// Render returns a single line: prompt + input + suggestion. When the
// cursor would fall past the right edge, the input scrolls left.
func (t *TextInput) Render(ctx RenderContext) RenderResult {
	var line compositor.Line
	if t.Prompt != "" {
		line = append(line, compositor.ParseANSI(t.Prompt)...)
	}
	promptW := line.Width()

	// Scroll so the cursor cell stays inside the content box.
	start := 0
	avail := max(0, ctx.Width-promptW-1)
	for start < t.cursor && ansi.StringWidth(string(t.value[start:t.cursor])) > avail {
		start++
	}
	before := string(t.value[start:t.cursor])
	line = append(line, compositor.Segment{Text: before + string(t.value[t.cursor:])})
	cursorCol := promptW + ansi.StringWidth(before)

	if hint := t.hint(); hint != "" {
		line = append(line, compositor.Segment{
			Text:  hint,
			Style: screen.Style{Attrs: screen.AttrFaint},
		})
	}

	var cursor *CursorPos
	if t.focused {
		cursor = &CursorPos{Row: 0, Col: min(cursorCol, max(0, ctx.Width-1))}
	}
	return RenderResult{
		Lines:  append(ctx.Recycle, TruncateLine(line, ctx.Width)),
		Cursor: cursor,
	}
}

// hint returns the part of the suggestion not yet typed, when the cursor
// is at the end of the input.
func (t *TextInput) hint() string {
	if t.Suggestion == "" || t.cursor != len(t.value) {
		return ""
	}
	current := string(t.value)
	if !strings.HasPrefix(t.Suggestion, current) {
		return ""
	}
	return strings.TrimPrefix(t.Suggestion, current)
}

// HandlePaste inserts pasted text at the cursor. Newlines become spaces.
func (t *TextInput) HandlePaste(ctx EventContext, ev uv.PasteEvent) bool {
	text := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(ev.Content)
	oldValue := string(t.value)
	t.Suggestion = ""
	t.insert([]rune(text))
	t.changed(ctx, oldValue)
	return true
}

// HandleKeyPress edits the input. Keys it doesn't know go to OnKey; Tab
// is only consumed to accept a suggestion so that it can cycle focus.
func (t *TextInput) HandleKeyPress(ctx EventContext, ev uv.KeyPressEvent) bool {
	oldValue := string(t.value)
	savedSuggestion := t.Suggestion
	t.Suggestion = "" // Clear suggestion on every keystroke
	defer t.changed(ctx, oldValue)

	switch {
	case ev.MatchString("enter"):
		if t.OnSubmit != nil {
			val := strings.TrimSpace(string(t.value))
			if t.OnSubmit(ctx, val) {
				t.value = nil
				t.cursor = 0
			}
		}

	// Tab: accept suggestion or delegate
	case ev.MatchString("tab"):
		if savedSuggestion != "" {
			t.value = []rune(savedSuggestion)
			t.cursor = len(t.value)
			return true
		}
		t.Suggestion = savedSuggestion
		return t.OnKey != nil && t.OnKey(ctx, ev)

	// Right arrow: accept suggestion at end of input (fish-style), else move cursor
	case ev.MatchString("right", "ctrl+f"):
		if savedSuggestion != "" && t.cursor == len(t.value) {
			t.value = []rune(savedSuggestion)
			t.cursor = len(t.value)
			return true
		}
		if t.cursor < len(t.value) {
			t.cursor++
		}

	case ev.MatchString("backspace", "ctrl+h"):
		if t.cursor > 0 {
			t.value = append(t.value[:t.cursor-1], t.value[t.cursor:]...)
			t.cursor--
		}
	case ev.MatchString("delete", "ctrl+d"):
		if t.cursor < len(t.value) {
			t.value = append(t.value[:t.cursor], t.value[t.cursor+1:]...)
		}

	// Cursor movement
	case ev.MatchString("left", "ctrl+b"):
		if t.cursor > 0 {
			t.cursor--
		}
	case ev.MatchString("home", "ctrl+a"):
		t.cursor = 0
	case ev.MatchString("end", "ctrl+e"):
		t.cursor = len(t.value)

	// Word movement
	case ev.MatchString("alt+left", "ctrl+left", "alt+b"):
		t.cursor = t.wordLeft()
	case ev.MatchString("alt+right", "ctrl+right", "alt+f"):
		t.cursor = t.wordRight()

	// Kill line
	case ev.MatchString("ctrl+u"):
		t.value = t.value[t.cursor:]
		t.cursor = 0
	case ev.MatchString("ctrl+k"):
		t.value = t.value[:t.cursor]

	// Kill word backward
	case ev.MatchString("ctrl+w", "alt+backspace"):
		start := t.wordLeft()
		t.value = append(t.value[:start], t.value[t.cursor:]...)
		t.cursor = start

	// Kill word forward
	case ev.MatchString("alt+d"):
		end := t.wordRight()
		t.value = append(t.value[:t.cursor], t.value[end:]...)

	// Transpose
	case ev.MatchString("ctrl+t"):
		if t.cursor > 0 && t.cursor < len(t.value) {
			t.value[t.cursor-1], t.value[t.cursor] = t.value[t.cursor], t.value[t.cursor-1]
			t.cursor++
		}

	default:
		if t.OnKey != nil && t.OnKey(ctx, ev) {
			return true
		}
		if ev.Text == "" || ev.Mod&(uv.ModCtrl|uv.ModAlt) != 0 {
			t.Suggestion = savedSuggestion
			return false
		}
		t.insert([]rune(ev.Text))
	}
	return true
}

// changed schedules a render and reports value changes.
func (t *TextInput) changed(ctx EventContext, oldValue string) {
	t.Update()
	if t.OnChange != nil && string(t.value) != oldValue {
		t.OnChange(ctx)
	}
}

func (t *TextInput) insert(runes []rune) {
	kept := runes[:0]
	for _, r := range runes {
		if r >= 0x20 || r == '\t' {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return
	}
	newVal := make([]rune, 0, len(t.value)+len(kept))
	newVal = append(newVal, t.value[:t.cursor]...)
	newVal = append(newVal, kept...)
	newVal = append(newVal, t.value[t.cursor:]...)
	t.value = newVal
	t.cursor += len(kept)
}

func (t *TextInput) wordLeft() int {
	i := t.cursor
	for i > 0 && isSpace(t.value[i-1]) {
		i--
	}
	for i > 0 && !isSpace(t.value[i-1]) {
		i--
	}
	return i
}

func (t *TextInput) wordRight() int {
	i := t.cursor
	for i < len(t.value) && !isSpace(t.value[i]) {
		i++
	}
	for i < len(t.value) && isSpace(t.value[i]) {
		i++
	}
	return i
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}
