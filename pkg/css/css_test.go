package css

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vito/pitui/pkg/screen"
)

const sampleSheet = `
$accent: #ff8000;
$gap: 1;

/* the root */
Screen { background: black; }

.panel > Text.title:focus {
  color: $accent;
  text-style: bold underline !important;
}

#main, Button { padding: $gap 2; }

Text + Text { margin: 1; }

Panel {
  $accent: red;
  border: round $accent;
}
`

func TestParseStylesheet(t *testing.T) {
	sheet, err := Parse("sample.css", sampleSheet)
	require.NoError(t, err)
	require.Len(t, sheet.Rules, 5)

	assert.Equal(t, Value{{Kind: KindHash, Text: "#ff8000"}}, sheet.Variables["accent"])
	assert.Equal(t, Value{{Kind: KindNumber, Text: "1"}}, sheet.Variables["gap"])

	screenRule := sheet.Rules[0]
	assert.Equal(t, 0, screenRule.Order)
	assert.Equal(t, "Screen", screenRule.Selectors[0].String())
	require.Len(t, screenRule.Declarations, 1)
	assert.Equal(t, screen.ANSI(0), screenRule.Declarations[0].Parsed)

	title := sheet.Rules[1]
	require.Len(t, title.Selectors, 1)
	sel := title.Selectors[0]
	assert.Equal(t, ".panel > Text.title:focus", sel.String())
	assert.Equal(t, Specificity{IDs: 0, Classes: 3, Types: 1}, sel.Specificity)
	require.Len(t, sel.Parts, 2)
	assert.Equal(t, Child, sel.Parts[1].Combinator)
	assert.Equal(t, "Text", sel.Subject().Type)
	assert.Equal(t, []string{"focus"}, sel.Subject().Pseudo)

	require.Len(t, title.Declarations, 2)
	color := title.Declarations[0]
	assert.Equal(t, "color", color.Property)
	assert.Equal(t, []string{"accent"}, color.Value.Vars())
	assert.Nil(t, color.Parsed, "values with variables are resolved by the cascade")
	style := title.Declarations[1]
	assert.True(t, style.Important)
	assert.Equal(t, screen.AttrBold|screen.AttrUnderline, style.Parsed)
	assert.Equal(t, 10, style.Location.Line)

	ids := sheet.Rules[2]
	require.Len(t, ids.Selectors, 2)
	assert.Equal(t, Specificity{IDs: 1}, ids.Selectors[0].Specificity)
	assert.Equal(t, Specificity{Types: 1}, ids.Selectors[1].Specificity)
	assert.Equal(t, "padding: $gap 2;", ids.Declarations[0].String())

	assert.True(t, sheet.Rules[3].Selectors[0].UsesSiblings())
	assert.True(t, sheet.UsesSiblings())

	panel := sheet.Rules[4]
	require.Len(t, panel.Declarations, 2)
	assert.True(t, panel.Declarations[0].IsVariable())
	assert.Equal(t, "accent", panel.Declarations[0].VariableName())
}

func TestParseCollectsErrors(t *testing.T) {
	src := "Text { colr: red; color: notacolor; }\n" +
		".a > { color: red; }\n" +
		"Button { width: 10; }\n" +
		"$x"

	sheet, err := Parse("test.css", src)
	require.Error(t, err)

	errs := Errors(err)
	require.Len(t, errs, 4)
	assert.Equal(t, UnknownProperty, errs[0].Kind)
	assert.Equal(t, Location{Filename: "test.css", Line: 1, Column: 8, Length: 4}, errs[0].Location)
	assert.Equal(t, InvalidValue, errs[1].Kind)
	assert.Equal(t, 1, errs[1].Location.Line)
	assert.Equal(t, SelectorSyntax, errs[2].Kind)
	assert.Equal(t, 2, errs[2].Location.Line)
	assert.Equal(t, Syntax, errs[3].Kind)
	assert.Equal(t, 4, errs[3].Location.Line)

	// Recovery keeps the well-formed rules.
	require.Len(t, sheet.Rules, 2)
	assert.Empty(t, sheet.Rules[0].Declarations)
	assert.Equal(t, "Button", sheet.Rules[1].Selectors[0].String())

	assert.Contains(t, err.Error(), "test.css:1:8: unknown property \"colr\"")
}

func TestParseErrorFormat(t *testing.T) {
	src := "Text {\n  colr: red;\n}\n"
	_, err := Parse("test.css", src)
	errs := Errors(err)
	require.Len(t, errs, 1)

	out := errs[0].Format(src)
	assert.Contains(t, out, "unknown property: unknown property \"colr\"")
	assert.Contains(t, out, "--> test.css:2:3")
	assert.Contains(t, out, "  2 |   colr: red;")
	assert.Contains(t, out, "\n         ^^^^\n")
}

func TestSyntaxErrors(t *testing.T) {
	for _, src := range []string{
		"Text { color red; }",
		"Text { color: rgb(1, 2; }",
		"Text { color: red !importnt; }",
		"Text { color: red !important blue; }",
		"Text color: red; }",
		"Text { color: red;",
		"@media screen { Text { color: red; } }",
		"Text { $: red; }",
		"Text { color: /* unclosed",
	} {
		_, err := Parse("bad.css", src)
		assert.Error(t, err, "source %q", src)
		for _, perr := range Errors(err) {
			assert.Equal(t, "bad.css", perr.Location.Filename)
		}
	}
}

func TestSelectorErrors(t *testing.T) {
	for _, src := range []string{
		"> Text { color: red; }",
		"Text > > Text { color: red; }",
		"Text, { color: red; }",
		".5 { color: red; }",
		"Text#a#b { color: red; }",
		".panel Text.x Button[type] { color: red; }",
	} {
		_, err := Parse("sel.css", src)
		errs := Errors(err)
		require.NotEmpty(t, errs, "source %q", src)
		assert.Equal(t, SelectorSyntax, errs[0].Kind, "source %q", src)
	}
}

func TestSelectorCombinators(t *testing.T) {
	sheet, err := Parse("sel.css", "A B>C+D ~ *.e, *:hover { color: red; }")
	require.NoError(t, err)
	sels := sheet.Rules[0].Selectors
	require.Len(t, sels, 2)

	parts := sels[0].Parts
	require.Len(t, parts, 5)
	assert.Equal(t, []Combinator{Descendant, Descendant, Child, Adjacent, Sibling}, []Combinator{
		parts[0].Combinator, parts[1].Combinator, parts[2].Combinator, parts[3].Combinator, parts[4].Combinator,
	})
	assert.True(t, parts[4].Universal)
	assert.Equal(t, "A B > C + D ~ *.e", sels[0].String())
	assert.Equal(t, Specificity{Classes: 1, Types: 4}, sels[0].Specificity)
	assert.Equal(t, "*:hover", sels[1].String())
}

func TestVariableResolution(t *testing.T) {
	sheet, err := Parse("vars.css", `
$a: $b;
$b: $a;
Text { color: $a; }
Label { color: $undefined; }
`)
	require.NoError(t, err, "unresolvable references are left to the cascade")
	require.Len(t, sheet.Rules, 2)
	assert.Len(t, sheet.Rules[0].Declarations, 1)
	assert.Len(t, sheet.Rules[1].Declarations, 1)

	_, ok := sheet.Rules[0].Declarations[0].Value.Substitute(sheet.Lookup)
	assert.False(t, ok, "cyclic definitions never resolve")

	_, err = Parse("vars.css", "$c: 5;\nText { color: $c; }")
	errs := Errors(err)
	require.Len(t, errs, 1)
	assert.Equal(t, InvalidValue, errs[0].Kind)
	assert.Equal(t, 2, errs[0].Location.Line)
}

func TestSubstituteInsideFunctions(t *testing.T) {
	sheet, err := Parse("fn.css", "$r: 10;\n$rgb: rgb($r, 20, 30);\nText { color: $rgb; background: rgb($r, $r, $r); }")
	require.NoError(t, err)

	decls := sheet.Rules[0].Declarations
	v, ok := decls[0].Value.Substitute(sheet.Lookup)
	require.True(t, ok)
	assert.Equal(t, "rgb(10, 20, 30)", v.String())

	prop, _ := LookupProperty("background")
	v, ok = decls[1].Value.Substitute(sheet.Lookup)
	require.True(t, ok)
	c, err := prop.Parse(v)
	require.NoError(t, err)
	assert.Equal(t, screen.RGB(10, 10, 10), c)
}

func parseValue(t *testing.T, src string) Value {
	t.Helper()
	p := newParser("value", src)
	v, _, ok := p.parseValue()
	require.True(t, ok, "value %q: %v", src, p.errs)
	return v
}

func TestParseColor(t *testing.T) {
	for src, want := range map[string]screen.Color{
		"#f80":         screen.RGB(255, 136, 0),
		"#102030":      screen.RGB(16, 32, 48),
		"rgb(1, 2, 3)": screen.RGB(1, 2, 3),
		"ansi(3)":      screen.ANSI(3),
		"ansi(200)":    screen.Indexed(200),
		"red":          screen.ANSI(1),
		"bright-red":   screen.ANSI(9),
		"Bright-White": screen.ANSI(15),
		"grey":         screen.ANSI(8),
		"default":      screen.DefaultColor,
	} {
		c, err := ParseColor(parseValue(t, src))
		if assert.NoError(t, err, src) {
			assert.Equal(t, want, c, src)
		}
	}

	for _, src := range []string{"rgb(1, 2)", "ansi(300)", "chartreuse", "red blue", "rgb(1.5, 2, 3)", "hsl(1, 2, 3)", "#12"} {
		_, err := ParseColor(parseValue(t, src))
		assert.Error(t, err, src)
	}
}

func TestPropertyValues(t *testing.T) {
	cases := []struct {
		prop string
		src  string
		want any
	}{
		{"padding", "1", Edges{1, 1, 1, 1}},
		{"padding", "1 2", Edges{1, 2, 1, 2}},
		{"margin", "1 2 3", Edges{1, 2, 3, 2}},
		{"margin", "1 2 3 4", Edges{1, 2, 3, 4}},
		{"width", "50%", Length{Unit: Percent, N: 50}},
		{"width", "12", Length{Unit: Cells, N: 12}},
		{"max-height", "auto", Length{Unit: Auto}},
		{"z-index", "-3", -3},
		{"z-index", "7", 7},
		{"display", "none", DisplayNone},
		{"visibility", "hidden", Hidden},
		{"text-align", "center", AlignCenter},
		{"text-style", "none", screen.Attr(0)},
		{"text-style", "dim italic strike", screen.AttrFaint | screen.AttrItalic | screen.AttrStrikethrough},
		{"border", "round", Border{Kind: BorderRound}},
		{"border", "heavy #00ff00", Border{Kind: BorderHeavy, Color: screen.RGB(0, 255, 0)}},
		{"border", "none", Border{}},
	}
	for _, c := range cases {
		prop, ok := LookupProperty(c.prop)
		require.True(t, ok, c.prop)
		got, err := prop.Parse(parseValue(t, c.src))
		if assert.NoError(t, err, "%s: %s", c.prop, c.src) {
			assert.Equal(t, c.want, got, "%s: %s", c.prop, c.src)
		}
	}

	invalid := []struct{ prop, src string }{
		{"padding", "1 2 3 4 5"},
		{"padding", "-1"},
		{"width", "10px"},
		{"width", "1.5"},
		{"z-index", "top"},
		{"display", "flex"},
		{"text-style", "bold none"},
		{"text-style", "sparkly"},
		{"border", "none red"},
		{"border", "wavy"},
	}
	for _, c := range invalid {
		prop, _ := LookupProperty(c.prop)
		_, err := prop.Parse(parseValue(t, c.src))
		assert.Error(t, err, "%s: %s", c.prop, c.src)
	}
}

func TestLookupPropertyNormalizes(t *testing.T) {
	for _, name := range []string{"text-style", "textStyle", "text_style", "TextStyle"} {
		p, ok := LookupProperty(name)
		require.True(t, ok, name)
		assert.Equal(t, "text-style", p.Name)
		assert.True(t, p.Inherited)
	}
	_, ok := LookupProperty("font-size")
	assert.False(t, ok)

	sheet, err := Parse("camel.css", "Text { minWidth: 4; }")
	require.NoError(t, err)
	assert.Equal(t, "min-width", sheet.Rules[0].Declarations[0].Property)

	names := []string{}
	for _, p := range Properties() {
		names = append(names, p.Name)
	}
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "z-index")
}

func TestParseInline(t *testing.T) {
	decls, err := ParseInline("color: red; padding: 1 2 !important")
	require.NoError(t, err)
	require.Len(t, decls, 2)
	assert.Equal(t, "color", decls[0].Property)
	assert.Equal(t, screen.ANSI(1), decls[0].Parsed)
	assert.True(t, decls[1].Important)
	assert.Equal(t, Edges{1, 2, 1, 2}, decls[1].Parsed)

	decls, err = ParseInline("colr: red; color: $accent; $accent: blue")
	errs := Errors(err)
	require.Len(t, errs, 1)
	assert.Equal(t, UnknownProperty, errs[0].Kind)
	assert.Equal(t, 1, errs[0].Location.Column)
	require.Len(t, decls, 2)
	assert.Nil(t, decls[0].Parsed)
	assert.True(t, decls[1].IsVariable())

	decls, err = ParseInline("   ")
	assert.NoError(t, err)
	assert.Empty(t, decls)

	_, err = ParseInline("width: lots")
	require.Len(t, Errors(err), 1)
	assert.Equal(t, InvalidValue, Errors(err)[0].Kind)
}

func TestFingerprintAndAppend(t *testing.T) {
	a1 := MustParse("a.css", "A { color: red; }")
	a2 := MustParse("a.css", "A { color: red; }")
	b := MustParse("b.css", "$x: 1;\nB { color: blue; }")
	assert.Equal(t, a1.Fingerprint, a2.Fingerprint)
	assert.NotEqual(t, a1.Fingerprint, b.Fingerprint)

	before := a1.Fingerprint
	a1.Append(b)
	assert.NotEqual(t, before, a1.Fingerprint)
	require.Len(t, a1.Rules, 2)
	assert.Equal(t, 1, a1.Rules[1].Order)
	assert.Equal(t, 0, b.Rules[0].Order, "the appended sheet is not modified")
	_, ok := a1.Lookup("x")
	assert.True(t, ok)
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() {
		MustParse("bad.css", "A { nope: 1; }")
	})
}
