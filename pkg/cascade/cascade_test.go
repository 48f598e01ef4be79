package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vito/pitui/pkg/css"
	"github.com/vito/pitui/pkg/reactive"
	"github.com/vito/pitui/pkg/screen"
)

// fixture builds Screen > Box > Text x3.
type fixture struct {
	rt      *reactive.Runtime
	tree    *WidgetTree
	engine  *Engine
	box     NodeID
	a, b, c NodeID
}

func newFixture(t *testing.T, src string) *fixture {
	t.Helper()
	rt := reactive.NewRuntime()
	tree := NewWidgetTree("Screen")
	f := &fixture{rt: rt, tree: tree}
	f.box = tree.Add(tree.Root(), "Box")
	f.a = tree.Add(f.box, "Text")
	f.b = tree.Add(f.box, "Text")
	f.c = tree.Add(f.box, "Text")
	f.engine = NewEngine(rt, tree)
	require.NoError(t, f.engine.LoadStylesheet("test.tcss", src))
	return f
}

func (f *fixture) styleAll() {
	f.tree.Walk(f.tree.Root(), func(n *WidgetNode) {
		f.engine.Style(n.ID)
	})
}

func TestTreeStructure(t *testing.T) {
	tree := NewWidgetTree("Screen")
	box := tree.Add(tree.Root(), "Box")
	a := tree.Add(box, "Text")
	b := tree.Add(box, "Text")
	c := tree.Add(box, "Text")
	inner := tree.Add(b, "Span")

	assert.Equal(t, 6, tree.Len())
	assert.Equal(t, []NodeID{box, tree.Root()}, tree.Ancestors(a))
	assert.Equal(t, []NodeID{b, a}, tree.PrevSiblings(c))
	assert.Equal(t, []NodeID{b, c}, tree.NextSiblings(a))
	assert.Nil(t, tree.PrevSiblings(a))
	assert.Nil(t, tree.PrevSiblings(tree.Root()))

	var order []NodeID
	tree.Walk(box, func(n *WidgetNode) { order = append(order, n.ID) })
	assert.Equal(t, []NodeID{box, a, b, inner, c}, order)

	assert.Equal(t, []NodeID{b, inner}, tree.Remove(b))
	assert.Equal(t, []NodeID{a, c}, tree.Node(box).Children)
	_, ok := tree.Lookup(inner)
	assert.False(t, ok)
	assert.Panics(t, func() { tree.Node(inner) })
	assert.Panics(t, func() { tree.Remove(tree.Root()) })
}

func TestTreeChangeReporting(t *testing.T) {
	tree := NewWidgetTree("Screen")
	id := tree.Add(tree.Root(), "Text")

	assert.True(t, tree.AddClass(id, "a"))
	assert.False(t, tree.AddClass(id, "a"))
	assert.True(t, tree.SetClasses(id, "b", "c"))
	assert.False(t, tree.SetClasses(id, "c", "b"))
	assert.True(t, tree.RemoveClass(id, "b"))
	assert.False(t, tree.RemoveClass(id, "b"))
	assert.True(t, tree.SetPseudo(id, "focus", true))
	assert.False(t, tree.SetPseudo(id, "focus", true))
	assert.True(t, tree.SetCSSID(id, "title"))
	assert.False(t, tree.SetCSSID(id, "title"))
	assert.Equal(t, "Text#title.c<2>", tree.Node(id).String())
}

func TestMatchCombinators(t *testing.T) {
	f := newFixture(t, "")
	match := func(sel string, id NodeID) bool {
		t.Helper()
		sheet, err := css.Parse("sel.tcss", sel+" { color: red; }")
		require.NoError(t, err)
		return Matches(f.tree, sheet.Rules[0].Selectors[0], id)
	}

	assert.True(t, match("Text", f.a))
	assert.True(t, match("Box > Text", f.a))
	assert.True(t, match("Screen Text", f.b))
	assert.False(t, match("Screen > Text", f.b))
	assert.True(t, match("Screen > Box", f.box))

	assert.False(t, match("Text + Text", f.a))
	assert.True(t, match("Text + Text", f.b))
	assert.True(t, match("Text + Text", f.c))
	assert.True(t, match("Text ~ Text", f.c))

	f.tree.AddClass(f.a, "first")
	assert.True(t, match(".first ~ Text", f.c))
	assert.False(t, match(".first + Text", f.c))
	assert.True(t, match("Screen .first + Text", f.b))

	assert.True(t, match("Text:first-child", f.a))
	assert.False(t, match("Text:first-child", f.b))
	assert.True(t, match("Text:last-child", f.c))
	assert.True(t, match("Box:only-child", f.box))
	assert.False(t, match("Text:only-child", f.a))

	assert.False(t, match("Text:focus", f.a))
	f.tree.SetPseudo(f.a, "focus", true)
	assert.True(t, match("Text:focus", f.a))

	f.tree.SetCSSID(f.box, "main")
	assert.True(t, match("#main Text", f.c))
	assert.False(t, match("#other Text", f.c))
	assert.True(t, match("*", f.c))
}

func TestMatchOrdersBySpecificityThenSource(t *testing.T) {
	f := newFixture(t, `
Text#title { color: blue; }
.warn { color: yellow; }
Text { color: red; }
`)
	f.tree.SetCSSID(f.a, "title")
	f.tree.AddClass(f.a, "warn")

	matched := Match(f.tree, f.engine.Stylesheet(), f.a)
	require.Len(t, matched, 3)
	assert.Equal(t, "red", matched[0].Declaration.Value.String())
	assert.Equal(t, "yellow", matched[1].Declaration.Value.String())
	assert.Equal(t, "blue", matched[2].Declaration.Value.String())

	assert.Equal(t, screen.ANSI(4), f.engine.Style(f.a).Color)
	assert.Equal(t, screen.ANSI(1), f.engine.Style(f.b).Color)
}

func TestRuleUsesBestMatchingSelector(t *testing.T) {
	f := newFixture(t, `
Box .x, Text { color: red; }
Text.x { color: blue; }
`)
	f.tree.AddClass(f.a, "x")
	matched := Match(f.tree, f.engine.Stylesheet(), f.a)
	require.Len(t, matched, 2)
	// "Box .x" (0,1,1) ties "Text.x" (0,1,1); the later rule wins.
	assert.Equal(t, css.Specificity{Classes: 1, Types: 1}, matched[0].Specificity)
	assert.Equal(t, screen.ANSI(4), f.engine.Style(f.a).Color)
}

func TestInlineAndImportant(t *testing.T) {
	f := newFixture(t, `
#title { color: red; }
Text { background: red !important; }
`)
	f.engine.SetCSSID(f.a, "title")
	require.NoError(t, f.engine.SetInline(f.a, "color: green; background: blue"))

	st := f.engine.Style(f.a)
	assert.Equal(t, screen.ANSI(2), st.Color, "inline beats any selector")
	assert.Equal(t, screen.ANSI(1), st.Background, "!important beats inline")

	require.NoError(t, f.engine.SetInline(f.a, "background: blue !important"))
	assert.Equal(t, screen.ANSI(4), f.engine.Style(f.a).Background)
	assert.Equal(t, screen.ANSI(1), f.engine.Style(f.a).Color)
}

func TestSetInlineReportsErrors(t *testing.T) {
	f := newFixture(t, "")
	err := f.engine.SetInline(f.a, "color: green; bogus: 1")
	require.Error(t, err)
	require.Len(t, css.Errors(err), 1)
	assert.Equal(t, css.UnknownProperty, css.Errors(err)[0].Kind)
	assert.Equal(t, screen.ANSI(2), f.engine.Style(f.a).Color)
}

func TestInheritance(t *testing.T) {
	f := newFixture(t, `
Box { color: red; text-style: bold; text-align: center; background: blue; padding: 1; }
#plain { text-style: none; }
`)
	f.engine.SetCSSID(f.c, "plain")

	st := f.engine.Style(f.a)
	assert.Equal(t, screen.ANSI(1), st.Color)
	assert.Equal(t, screen.AttrBold, st.TextStyle)
	assert.Equal(t, css.AlignCenter, st.TextAlign)
	assert.True(t, st.IsSet("color"))
	assert.False(t, st.IsSet("background"))
	assert.False(t, st.IsSet("padding"))
	assert.Equal(t, screen.DefaultColor, st.Background)

	plain := f.engine.Style(f.c)
	assert.Equal(t, screen.Attr(0), plain.TextStyle)
	assert.True(t, plain.IsSet("text-style"))
	assert.Equal(t, screen.ANSI(1), plain.Color)

	assert.Equal(t, screen.Style{Fg: screen.ANSI(1), Attrs: screen.AttrBold}, st.Style())
}

func TestVariableScoping(t *testing.T) {
	f := newFixture(t, `
$fg: red;
Box { $fg: blue; }
Text { color: $fg; }
Screen { color: $fg; }
`)
	assert.Equal(t, screen.ANSI(1), f.engine.Style(f.tree.Root()).Color)
	assert.Equal(t, screen.ANSI(4), f.engine.Style(f.a).Color)

	v, ok := f.engine.Env(f.a).Lookup("fg")
	require.True(t, ok)
	assert.Equal(t, "blue", v.String())
	assert.Equal(t, []string{"fg"}, f.engine.Env(f.a).Names())
}

func TestNestedVariableOverride(t *testing.T) {
	f := newFixture(t, `
$gap: 1;
Box { $gap: 2; }
#deep { $gap: 3; }
Text { padding: $gap 0; }
`)
	f.engine.SetCSSID(f.b, "deep")
	assert.Equal(t, css.Edges{Top: 2, Bottom: 2}, f.engine.Style(f.a).Padding)
	assert.Equal(t, css.Edges{Top: 3, Bottom: 3}, f.engine.Style(f.b).Padding)
}

func TestUnresolvedAndInvalidValuesAreAbsent(t *testing.T) {
	f := newFixture(t, `
Box { $w: red; }
Text { width: 10; }
Text { width: $w; color: $missing; }
`)
	st := f.engine.Style(f.a)
	assert.Equal(t, css.Length{Unit: css.Cells, N: 10}, st.Width, "the earlier valid declaration stays")
	assert.False(t, st.IsSet("color"))
	assert.Equal(t, 2, f.engine.Stats().Dropped)
}

func TestGlobals(t *testing.T) {
	f := newFixture(t, `
$accent: red;
Text { color: $accent; }
`)
	assert.Equal(t, screen.ANSI(1), f.engine.Style(f.a).Color)

	before := f.engine.Version()
	f.engine.SetGlobals(map[string]css.Value{
		"accent": {{Kind: css.KindIdent, Text: "green"}},
	})
	assert.Greater(t, f.engine.Version(), before)
	assert.Equal(t, screen.ANSI(2), f.engine.Style(f.a).Color)
	assert.Contains(t, f.engine.Globals(), "accent")
}

func TestMatchCacheInvalidateSubtree(t *testing.T) {
	f := newFixture(t, "Text { color: red; }")
	inner := f.tree.Add(f.b, "Span")
	f.styleAll()

	var all []NodeID
	f.tree.Walk(f.tree.Root(), func(n *WidgetNode) { all = append(all, n.ID) })
	cache := f.engine.Cache()
	for _, id := range all {
		_, ok := cache.Get(id)
		assert.True(t, ok, "node %d cached", id)
	}

	cache.InvalidateSubtree(f.tree, f.b)
	for _, id := range all {
		_, ok := cache.Get(id)
		assert.Equal(t, id != f.b && id != inner, ok, "node %d", id)
	}

	cache.InvalidateSubtree(f.tree, f.tree.Root())
	for _, id := range all {
		_, ok := cache.Get(id)
		assert.False(t, ok, "node %d after root invalidation", id)
		assert.True(t, cache.IsDirty(id))
	}

	cache.Insert(f.a, nil)
	_, ok := cache.Get(f.a)
	assert.True(t, ok)
	_, ok = cache.Get(f.b)
	assert.False(t, ok)
	assert.Equal(t, len(all)-1, cache.Dirty())

	cache.Forget(f.b)
	assert.Equal(t, len(all)-1, cache.Len())
	assert.False(t, cache.IsDirty(f.b))
}

func TestIncrementalRestyle(t *testing.T) {
	f := newFixture(t, ".hot { color: red; }")
	f.styleAll()
	assert.Equal(t, 5, f.engine.Stats().Matched)

	f.styleAll()
	assert.Equal(t, 5, f.engine.Stats().Matched, "clean nodes are not re-matched")

	f.engine.AddClass(f.a, "hot")
	f.styleAll()
	assert.Equal(t, 6, f.engine.Stats().Matched)
	assert.Equal(t, screen.ANSI(1), f.engine.Style(f.a).Color)
	assert.False(t, f.engine.Style(f.b).IsSet("color"))
}

func TestSiblingSelectorsRestyleFollowingSiblings(t *testing.T) {
	f := newFixture(t, ".hot + Text { color: red; }")
	f.styleAll()
	assert.Equal(t, 5, f.engine.Stats().Matched)

	f.engine.AddClass(f.a, "hot")
	f.styleAll()
	assert.Equal(t, 8, f.engine.Stats().Matched)
	assert.Equal(t, screen.ANSI(1), f.engine.Style(f.b).Color)
	assert.False(t, f.engine.Style(f.c).IsSet("color"))
}

func TestStructuralPseudoAfterRemoval(t *testing.T) {
	f := newFixture(t, "Text:first-child { text-style: bold; }")
	assert.Equal(t, screen.AttrBold, f.engine.Style(f.a).TextStyle)
	assert.False(t, f.engine.Style(f.b).IsSet("text-style"))

	before := f.engine.Cache().Len()
	f.engine.RemoveNode(f.a)
	assert.Equal(t, before-1, f.engine.Cache().Len())
	assert.Equal(t, screen.AttrBold, f.engine.Style(f.b).TextStyle)

	d := f.engine.AddNode(f.box, "Text")
	assert.False(t, f.engine.Style(d).IsSet("text-style"))
}

func TestLoadStylesheetKeepsPreviousOnError(t *testing.T) {
	f := newFixture(t, "Text { color: red; }")
	active := f.engine.Stylesheet()

	err := f.engine.LoadStylesheet("broken.tcss", "Text { colr: blue; }")
	require.Error(t, err)
	assert.Same(t, active, f.engine.Stylesheet())
	assert.Equal(t, screen.ANSI(1), f.engine.Style(f.a).Color)

	v := f.engine.Version()
	require.NoError(t, f.engine.LoadStylesheet("same.tcss", "Text { color: red; }"))
	assert.Same(t, active, f.engine.Stylesheet())
	assert.Equal(t, v, f.engine.Version())

	require.NoError(t, f.engine.LoadStylesheet("new.tcss", "Text { color: blue; }"))
	assert.Greater(t, f.engine.Version(), v)
	assert.Equal(t, screen.ANSI(4), f.engine.Style(f.a).Color)
}

func TestBindClass(t *testing.T) {
	f := newFixture(t, ".active { color: green; }")
	active := reactive.NewSignal(f.rt, false)

	var seen []uint64
	watch := reactive.NewEffect(f.rt, func() {
		seen = append(seen, f.engine.Version())
	})
	defer watch.Dispose()

	bind := f.engine.BindClass(f.a, "active", active.Get)
	defer bind.Dispose()
	assert.False(t, f.tree.HasClass(f.a, "active"))
	assert.Len(t, seen, 1)

	active.Set(true)
	assert.True(t, f.tree.HasClass(f.a, "active"))
	assert.Equal(t, screen.ANSI(2), f.engine.Style(f.a).Color)
	assert.Len(t, seen, 2)

	active.Set(false)
	assert.False(t, f.tree.HasClass(f.a, "active"))
	assert.False(t, f.engine.Style(f.a).IsSet("color"))

	f.engine.RemoveNode(f.a)
	assert.NotPanics(t, func() { active.Set(true) })
}

func TestBindPseudo(t *testing.T) {
	f := newFixture(t, "Text:focus { text-style: reverse; }")
	focused := reactive.NewSignal(f.rt, f.b)

	for _, id := range []NodeID{f.a, f.b, f.c} {
		f.engine.BindPseudo(id, "focus", func() bool { return focused.Get() == id })
	}
	assert.Equal(t, screen.AttrReverse, f.engine.Style(f.b).TextStyle)

	focused.Set(f.c)
	assert.False(t, f.engine.Style(f.b).IsSet("text-style"))
	assert.Equal(t, screen.AttrReverse, f.engine.Style(f.c).TextStyle)
}

func TestEveryPropertyHasAField(t *testing.T) {
	for _, p := range css.Properties() {
		_, ok := styleFields[p.Name]
		assert.True(t, ok, "no ComputedStyle field for %s", p.Name)
	}
}

func TestComputedStyleProperties(t *testing.T) {
	f := newFixture(t, "Text { z-index: -2; border: round #ff0000; width: 50%; }")
	st := f.engine.Style(f.a)
	assert.Equal(t, []PropertyValue{
		{Name: "border", Value: "round #ff0000"},
		{Name: "width", Value: "50%"},
		{Name: "z-index", Value: "-2"},
	}, st.Properties())

	v, set := st.Get("zIndex")
	assert.True(t, set)
	assert.Equal(t, -2, v)
}
