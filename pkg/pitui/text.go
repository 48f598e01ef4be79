package pitui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/vito/pitui/pkg/compositor"
)

// Text displays plain text in the component's computed style. Lines are
// split on newlines and, with Wrap set, word-wrapped to the content width;
// otherwise they are truncated. text-align applies to every line.
type Text struct {
	Compo
	text string
	Wrap bool
}

// NewText creates a Text component.
func NewText(text string) *Text {
	return &Text{text: text}
}

// SetText replaces the text.
func (t *Text) SetText(text string) {
	if text == t.text {
		return
	}
	t.text = text
	t.Update()
}

// Text returns the current text.
func (t *Text) Text() string { return t.text }

func (t *Text) Render(ctx RenderContext) RenderResult {
	if t.text == "" {
		return RenderResult{}
	}
	src := t.text
	if t.Wrap && ctx.Width > 0 {
		src = ansi.Wrap(src, ctx.Width, "")
	}
	lines := ctx.Recycle
	for _, row := range strings.Split(src, "\n") {
		lines = append(lines, AlignLine(compositor.Line{{Text: row}}, ctx.Width, ctx.Style.TextAlign))
	}
	return RenderResult{Lines: lines}
}

// ANSIText displays pre-styled content, such as the output of lipgloss.
// SGR sequences become segment styles; colors the content leaves at the
// terminal default come from the computed style.
type ANSIText struct {
	Compo
	content string
	lines   []compositor.Line
}

// NewANSIText creates an ANSIText component.
func NewANSIText(content string) *ANSIText {
	t := &ANSIText{}
	t.setContent(content)
	return t
}

// SetContent replaces the content.
func (t *ANSIText) SetContent(content string) {
	if content == t.content {
		return
	}
	t.setContent(content)
	t.Update()
}

func (t *ANSIText) setContent(content string) {
	t.content = content
	t.lines = nil
	if content != "" {
		t.lines = compositor.ParseANSILines(content)
	}
}

// Content returns the current content.
func (t *ANSIText) Content() string { return t.content }

func (t *ANSIText) Render(ctx RenderContext) RenderResult {
	lines := ctx.Recycle
	for _, l := range t.lines {
		lines = append(lines, AlignLine(l, ctx.Width, ctx.Style.TextAlign))
	}
	return RenderResult{Lines: lines}
}
