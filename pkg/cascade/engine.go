package cascade

import (
	"log/slog"
	"maps"

	"github.com/vito/pitui/pkg/css"
	"github.com/vito/pitui/pkg/reactive"
)

// Engine binds a widget tree, its match cache and the active stylesheet.
// Every invalidation bumps Version, so anything that reads it in a tracking
// pass is re-run when styles may have changed.
//
// An Engine is driven from the UI goroutine only.
type Engine struct {
	rt    *reactive.Runtime
	tree  *WidgetTree
	cache *MatchCache

	sheet    *css.Stylesheet
	siblings bool
	globals  map[string]css.Value
	root     *Env

	computed map[NodeID]computed
	version  *reactive.Signal[uint64]
	stats    EngineStats
}

type computed struct {
	style  *ComputedStyle
	env    *Env
	parent *ComputedStyle
}

// EngineStats counts work done by Style since the engine was created.
type EngineStats struct {
	// Matched is the number of nodes re-matched against the stylesheet.
	Matched int
	// Reused is the number of styles served without recomputation.
	Reused int
	// Dropped is the number of declarations skipped because their value
	// did not resolve or parse.
	Dropped int
}

// NewEngine creates an engine over tree with an empty stylesheet.
func NewEngine(rt *reactive.Runtime, tree *WidgetTree) *Engine {
	e := &Engine{
		rt:       rt,
		tree:     tree,
		cache:    NewMatchCache(),
		computed: map[NodeID]computed{},
		version:  reactive.NewSignal[uint64](rt, 0),
	}
	e.SetStylesheet(css.NewStylesheet("<empty>"))
	return e
}

// Tree returns the widget tree styles are computed for.
func (e *Engine) Tree() *WidgetTree { return e.tree }

// Cache returns the selector match cache.
func (e *Engine) Cache() *MatchCache { return e.cache }

// Stylesheet returns the active stylesheet.
func (e *Engine) Stylesheet() *css.Stylesheet { return e.sheet }

// Stats returns counters accumulated since the engine was created.
func (e *Engine) Stats() EngineStats { return e.stats }

// Runtime returns the reactive runtime the engine's signals live in.
func (e *Engine) Runtime() *reactive.Runtime { return e.rt }

// Globals returns a copy of the variables set with SetGlobals.
func (e *Engine) Globals() map[string]css.Value { return maps.Clone(e.globals) }

// Version returns the style generation, recording a dependency on it.
func (e *Engine) Version() uint64 {
	return e.version.Get()
}

// LoadStylesheet parses src and makes it the active stylesheet. On a parse
// error the previous stylesheet stays active and the error, a
// css.ParseErrors, is returned. Loading a source identical to the active
// one does nothing.
func (e *Engine) LoadStylesheet(name, src string) error {
	sheet, err := css.Parse(name, src)
	if err != nil {
		slog.Warn("stylesheet rejected", "name", name, "errors", len(css.Errors(err)))
		return err
	}
	if e.sheet != nil && sheet.Fingerprint == e.sheet.Fingerprint {
		slog.Debug("stylesheet unchanged", "name", name)
		return nil
	}
	e.SetStylesheet(sheet)
	return nil
}

// SetStylesheet replaces the active stylesheet and invalidates every node.
func (e *Engine) SetStylesheet(sheet *css.Stylesheet) {
	e.sheet = sheet
	e.siblings = sheet.UsesSiblings()
	e.rebuildRoot()
	e.cache.InvalidateAll()
	clear(e.computed)
	slog.Debug("stylesheet active",
		"name", sheet.Name,
		"rules", len(sheet.Rules),
		"variables", len(sheet.Variables),
		"siblings", e.siblings)
	e.bump()
}

// SetGlobals defines variables visible to every stylesheet. They override
// the stylesheet's own top-level variables and are overridden by variables
// defined in rules.
func (e *Engine) SetGlobals(vars map[string]css.Value) {
	e.globals = maps.Clone(vars)
	e.rebuildRoot()
	e.cache.InvalidateAll()
	clear(e.computed)
	e.bump()
}

func (e *Engine) rebuildRoot() {
	e.root = RootEnv(e.sheet)
	if len(e.globals) > 0 {
		e.root = &Env{parent: e.root, vars: e.globals}
	}
}

func (e *Engine) bump() {
	e.version.Update(func(v uint64) uint64 { return v + 1 })
}

// Style returns the computed style of id. Only nodes whose match entry is
// dirty, or whose parent style was recomputed, are recomputed.
func (e *Engine) Style(id NodeID) *ComputedStyle {
	return e.resolve(id).style
}

// Env returns the variable environment of id.
func (e *Engine) Env(id NodeID) *Env {
	return e.resolve(id).env
}

func (e *Engine) resolve(id NodeID) computed {
	n := e.tree.Node(id)
	var (
		parentStyle *ComputedStyle
		parentEnv   = e.root
	)
	if n.Parent != 0 {
		p := e.resolve(n.Parent)
		parentStyle, parentEnv = p.style, p.env
	}

	matched, hit := e.cache.Get(id)
	if hit {
		if c, ok := e.computed[id]; ok && c.parent == parentStyle {
			e.stats.Reused++
			return c
		}
	} else {
		matched = Match(e.tree, e.sheet, id)
		e.cache.Insert(id, matched)
		e.stats.Matched++
	}

	env := parentEnv.Extend(matched)
	cs := NewComputedStyle()
	for _, m := range matched {
		if m.Declaration.IsVariable() {
			continue
		}
		val, ok := e.value(n, m.Declaration, env)
		if !ok {
			e.stats.Dropped++
			continue
		}
		cs.apply(m.Declaration.Property, val)
	}
	cs.inherit(parentStyle)

	c := computed{style: cs, env: env, parent: parentStyle}
	e.computed[id] = c
	return c
}

func (e *Engine) value(n *WidgetNode, d css.Declaration, env *Env) (any, bool) {
	if d.Parsed != nil {
		return d.Parsed, true
	}
	v, ok := d.Value.Substitute(env.Lookup)
	if !ok {
		slog.Debug("unresolved variables", "node", n, "declaration", d, "at", d.Location)
		return nil, false
	}
	prop, ok := css.LookupProperty(d.Property)
	if !ok {
		return nil, false
	}
	val, err := prop.Parse(v)
	if err != nil {
		slog.Debug("invalid value after substitution", "node", n, "at", d.Location, "error", err)
		return nil, false
	}
	return val, true
}

// invalidate marks id's subtree dirty, plus the subtrees of its following
// siblings when the stylesheet has sibling-sensitive selectors.
func (e *Engine) invalidate(id NodeID) {
	e.cache.InvalidateSubtree(e.tree, id)
	if e.siblings {
		for _, s := range e.tree.NextSiblings(id) {
			e.cache.InvalidateSubtree(e.tree, s)
		}
	}
	e.bump()
}

// AddNode appends a child of the given type to parent.
func (e *Engine) AddNode(parent NodeID, typ string) NodeID {
	id := e.tree.Add(parent, typ)
	if e.siblings {
		e.cache.InvalidateSubtree(e.tree, parent)
	}
	e.bump()
	return id
}

// RemoveNode removes id and its subtree.
func (e *Engine) RemoveNode(id NodeID) {
	parent := e.tree.Node(id).Parent
	for _, r := range e.tree.Remove(id) {
		e.cache.Forget(r)
		delete(e.computed, r)
	}
	if e.siblings {
		e.cache.InvalidateSubtree(e.tree, parent)
	}
	e.bump()
}

// SetClasses replaces the classes of id.
func (e *Engine) SetClasses(id NodeID, classes ...string) {
	if e.tree.SetClasses(id, classes...) {
		e.invalidate(id)
	}
}

// AddClass adds a class to id.
func (e *Engine) AddClass(id NodeID, class string) {
	if e.tree.AddClass(id, class) {
		e.invalidate(id)
	}
}

// RemoveClass removes a class from id.
func (e *Engine) RemoveClass(id NodeID, class string) {
	if e.tree.RemoveClass(id, class) {
		e.invalidate(id)
	}
}

// SetClass adds or removes a class.
func (e *Engine) SetClass(id NodeID, class string, on bool) {
	if on {
		e.AddClass(id, class)
	} else {
		e.RemoveClass(id, class)
	}
}

// SetCSSID sets the CSS id of a node.
func (e *Engine) SetCSSID(id NodeID, cssID string) {
	if e.tree.SetCSSID(id, cssID) {
		e.invalidate(id)
	}
}

// SetPseudo turns a pseudo-class on or off.
func (e *Engine) SetPseudo(id NodeID, name string, on bool) {
	if e.tree.SetPseudo(id, name, on) {
		e.invalidate(id)
	}
}

// SetInline parses src as inline declarations for id. Invalid declarations
// are dropped and reported; the valid ones still apply.
func (e *Engine) SetInline(id NodeID, src string) error {
	decls, err := css.ParseInline(src)
	e.tree.SetInline(id, decls)
	e.invalidate(id)
	return err
}

// BindClass keeps class on id whenever cond reports true. The condition is
// evaluated in a reactive effect, so it is re-checked whenever a signal it
// reads changes.
func (e *Engine) BindClass(id NodeID, class string, cond func() bool) *reactive.Effect {
	return reactive.NewEffect(e.rt, func() {
		on := cond()
		e.rt.Untracked(func() {
			if _, ok := e.tree.Lookup(id); ok {
				e.SetClass(id, class, on)
			}
		})
	})
}

// BindPseudo is like BindClass for pseudo-classes.
func (e *Engine) BindPseudo(id NodeID, name string, cond func() bool) *reactive.Effect {
	return reactive.NewEffect(e.rt, func() {
		on := cond()
		e.rt.Untracked(func() {
			if _, ok := e.tree.Lookup(id); ok {
				e.SetPseudo(id, name, on)
			}
		})
	})
}
