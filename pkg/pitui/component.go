package pitui

import (
	"context"
	"reflect"
	"sync/atomic"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/vito/pitui/pkg/cascade"
	"github.com/vito/pitui/pkg/compositor"
	"github.com/vito/pitui/pkg/css"
	"github.com/vito/pitui/pkg/reactive"
)

// ── EventContext ───────────────────────────────────────────────────────────

// EventContext provides access to framework operations. It is passed
// to event handlers, lifecycle hooks, and focus changes, the places where
// components perform side effects. It is NOT available during Render,
// which should be a pure function of component state and style.
//
// EventContext embeds [context.Context]. The Done() channel is closed when
// the source component is dismounted, so background goroutines spawned from
// OnMount can use it as a cancellation signal.
type EventContext struct {
	context.Context
	tui    *TUI
	source Component
}

// SetFocus gives keyboard focus to the given component (or nil to blur).
func (ctx EventContext) SetFocus(comp Component) {
	ctx.tui.SetFocus(comp)
}

// Focused returns the component holding keyboard focus.
func (ctx EventContext) Focused() Component {
	return ctx.tui.focus
}

// ShowOverlay displays a component as an overlay and returns a handle.
func (ctx EventContext) ShowOverlay(comp Component, opts *OverlayOptions) *OverlayHandle {
	return ctx.tui.ShowOverlay(comp, opts)
}

// HasOverlay reports whether any overlay is currently visible.
func (ctx EventContext) HasOverlay() bool {
	return ctx.tui.HasOverlay()
}

// RequestRender schedules a render. If repaint is true, every cell is
// rewritten.
func (ctx EventContext) RequestRender(repaint bool) {
	ctx.tui.RequestRender(repaint)
}

// Dispatch schedules a function to run on the UI goroutine.
//
// Safe to call from any goroutine. This is the primary way for
// background goroutines (spawned from OnMount, tickers, etc.) to
// mutate component state, set signals and call [Compo.Update].
func (ctx EventContext) Dispatch(fn func()) {
	ctx.tui.Dispatch(fn)
}

// Runtime returns the reactive runtime the UI goroutine owns.
func (ctx EventContext) Runtime() *reactive.Runtime {
	return ctx.tui.rt
}

// Styles returns the cascade engine.
func (ctx EventContext) Styles() *cascade.Engine {
	return ctx.tui.engine
}

// Quit asks the event loop to exit.
func (ctx EventContext) Quit() {
	ctx.tui.Quit()
}

// ── Render ─────────────────────────────────────────────────────────────────

// RenderContext carries everything a component needs to render.
type RenderContext struct {
	// Width is the width of the content box in cells.
	Width int
	// Height is the allocated content height. 0 means unconstrained
	// (the component may return as many lines as it wants).
	Height int
	// ScreenHeight is the terminal height in rows.
	ScreenHeight int

	// Style is the component's computed style. Never nil.
	Style *cascade.ComputedStyle

	// Recycle is a pre-allocated line slice from the render before last,
	// resliced to zero length. Components may append into it to avoid
	// allocating a new lines slice each frame. It is nil on the first
	// render.
	Recycle []compositor.Line

	// componentStats, when non-nil, collects per-component render
	// metrics. Set by the TUI when debug logging is enabled.
	componentStats *[]ComponentStat
}

// ComponentStat captures render metrics for a single component within
// a frame.
type ComponentStat struct {
	Name     string `json:"name"`
	RenderUs int64  `json:"render_us"`
	Lines    int    `json:"lines"`
	Cached   bool   `json:"cached"`
}

// componentName returns a short human-readable name for a component.
func componentName(c Component) string {
	if n, ok := c.(interface{ Name() string }); ok {
		return n.Name()
	}
	t := reflect.TypeOf(c)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.PkgPath() + "." + t.Name()
}

// StyleType is implemented by components that match a type selector other
// than their Go type name.
type StyleType interface {
	StyleType() string
}

// componentType returns the name type selectors match against.
func componentType(c Component) string {
	if st, ok := c.(StyleType); ok {
		return st.StyleType()
	}
	t := reflect.TypeOf(c)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// CursorPos represents a cursor position within a component's rendered output.
type CursorPos struct {
	Row, Col int
}

// RenderResult is the output of a Component.Render call.
type RenderResult struct {
	// Lines is the rendered content.
	Lines []compositor.Line

	// Cursor, if non-nil, is where the hardware cursor should be placed
	// while the component has focus, relative to its content box.
	Cursor *CursorPos
}

// ── Compo ──────────────────────────────────────────────────────────────────

// Compo provides automatic render caching, dirty propagation and styling
// for components. Embed it in your component struct:
//
//	type MyWidget struct {
//	    pitui.Compo
//	    // ... your fields ...
//	}
//
// Call Update() when your component's state changes. The framework will
// re-render the component on the next frame. Between Update() calls,
// Render() is skipped entirely and the cached result is reused, unless
// the content size or the computed style changed.
//
// Signals read during Render are tracked: setting one of them later
// calls Update() automatically.
//
// Dirty tracking uses a monotonic generation counter rather than a
// boolean flag. Update() increments the counter; renderComponent
// snapshots it before calling Render and records the snapshot
// afterwards. Any Update() during Render increments the counter past the
// snapshot, guaranteeing a re-render on the next frame.
type Compo struct {
	generation    atomic.Int64
	renderedGen   int64        // generation when last rendered; UI goroutine only
	cache         *renderCache // only accessed from the UI goroutine
	parent        *Compo
	self          Component // the Component that embeds this Compo
	requestRender func()    // set on the root by TUI

	// Double-buffered line slices. renderComponent alternates between
	// lineBufs[0] and lineBufs[1] so the previous render's slice, which
	// the frame's layers may still reference, is never overwritten.
	lineBufs [2][]compositor.Line
	bufIdx   int

	// Selector state, applied to the cascade node while mounted.
	cssID   string
	classes mapset.Set[string]
	inline  string

	// node and style are valid while mounted.
	node     cascade.NodeID
	style    *cascade.ComputedStyle
	reaction *reactive.Reaction

	// Lifecycle, managed by the framework during mount/dismount.
	tui         *TUI
	mountCtx    context.Context
	mountCancel context.CancelFunc
}

type renderCache struct {
	result RenderResult
	width  int
	height int
	style  *cascade.ComputedStyle
}

// Update marks the component as needing re-render on the next frame.
// Propagates upward so parent containers are also marked dirty.
// If the component tree is rooted in a TUI, a render is scheduled
// automatically.
//
// Must be called from the UI goroutine (event handlers, lifecycle hooks,
// or Dispatch callbacks). Background goroutines should use
// [EventContext.Dispatch] to schedule state changes and Update calls.
func (c *Compo) Update() {
	c.generation.Add(1)
	if c.parent != nil {
		c.parent.Update()
	} else if c.requestRender != nil {
		c.requestRender()
	}
}

// compo returns the embedded Compo. The unexported method ensures that
// only types embedding Compo can satisfy the Component interface.
func (c *Compo) compo() *Compo { return c }

// Mounted reports whether the component is part of a TUI-rooted tree.
func (c *Compo) Mounted() bool { return c.tui != nil }

// Node returns the component's cascade node, or zero when not mounted.
func (c *Compo) Node() cascade.NodeID { return c.node }

// ComputedStyle returns the style the component was last rendered with.
func (c *Compo) ComputedStyle() *cascade.ComputedStyle { return c.style }

// SetID sets the CSS id (#id) of the component.
func (c *Compo) SetID(id string) {
	c.cssID = id
	if c.tui != nil {
		c.tui.engine.SetCSSID(c.node, id)
	}
}

// ID returns the CSS id of the component.
func (c *Compo) ID() string { return c.cssID }

// AddClass adds CSS classes to the component.
func (c *Compo) AddClass(classes ...string) {
	for _, cls := range classes {
		c.SetClass(cls, true)
	}
}

// RemoveClass removes CSS classes from the component.
func (c *Compo) RemoveClass(classes ...string) {
	for _, cls := range classes {
		c.SetClass(cls, false)
	}
}

// SetClass adds or removes a CSS class.
func (c *Compo) SetClass(class string, on bool) {
	if c.classes == nil {
		c.classes = mapset.NewThreadUnsafeSet[string]()
	}
	if on {
		c.classes.Add(class)
	} else {
		c.classes.Remove(class)
	}
	if c.tui != nil {
		c.tui.engine.SetClass(c.node, class, on)
	}
}

// HasClass reports whether the component has a CSS class.
func (c *Compo) HasClass(class string) bool {
	return c.classes != nil && c.classes.Contains(class)
}

// SetInlineStyle sets declarations that apply to this component only and
// win over stylesheet rules of equal importance. Invalid declarations are
// reported and dropped; the rest still apply.
func (c *Compo) SetInlineStyle(src string) error {
	c.inline = src
	if c.tui != nil {
		return c.tui.engine.SetInline(c.node, src)
	}
	_, err := css.ParseInline(src)
	return err
}

// RenderChild renders a child component through this Compo, using the
// framework's render cache, for components that draw another component's
// lines inside their own. The child is styled as if it were this
// component.
func (c *Compo) RenderChild(child Component, ctx RenderContext) RenderResult {
	child.compo().parent = c
	r, _ := renderComponent(child, ctx)
	return r
}

// renderComponent renders a component, using its Compo cache when the
// component is clean and its size and style haven't changed. It reports
// whether the cache was used.
func renderComponent(ch Component, ctx RenderContext) (RenderResult, bool) {
	cp := ch.compo()

	gen := cp.generation.Load()
	if c := cp.cache; c != nil && gen == cp.renderedGen &&
		c.width == ctx.Width && c.height == ctx.Height && c.style == ctx.Style {
		if ctx.componentStats != nil {
			*ctx.componentStats = append(*ctx.componentStats, ComponentStat{
				Name:   componentName(ch),
				Lines:  len(c.result.Lines),
				Cached: true,
			})
		}
		return c.result, true
	}

	// Flip to the alternate line buffer and offer it via ctx.Recycle.
	cp.bufIdx ^= 1
	ctx.Recycle = cp.lineBufs[cp.bufIdx][:0]

	var r RenderResult
	start := time.Now()
	if cp.reaction != nil {
		cp.reaction.Track(func() {
			r = ch.Render(ctx)
		})
	} else {
		r = ch.Render(ctx)
	}
	if ctx.componentStats != nil {
		*ctx.componentStats = append(*ctx.componentStats, ComponentStat{
			Name:     componentName(ch),
			RenderUs: time.Since(start).Microseconds(),
			Lines:    len(r.Lines),
		})
	}

	// Save back in case append grew the slice.
	cp.lineBufs[cp.bufIdx] = r.Lines
	cp.cache = &renderCache{result: r, width: ctx.Width, height: ctx.Height, style: ctx.Style}
	cp.renderedGen = gen
	return r, false
}

// ── Component interfaces ───────────────────────────────────────────────────

// Component is the interface all UI components must implement.
// All components must embed Compo to get automatic render caching,
// dirty propagation and a place in the style tree.
type Component interface {
	// compo returns the embedded Compo. Unexported to keep it out of
	// the public API; satisfied automatically by embedding Compo.
	compo() *Compo

	// Render produces the content lines for the given constraints.
	Render(ctx RenderContext) RenderResult
}

// Styled is an optional interface for components that want to react to
// their computed style changing, beyond rendering with ctx.Style.
type Styled interface {
	SetStyle(style *cascade.ComputedStyle)
}

// Interactive is an optional interface for components that accept keyboard
// input when focused. The TUI decodes raw terminal bytes and dispatches
// typed events; components never see raw bytes.
//
// Key events are delivered to the focused component first. If
// HandleKeyPress returns false, the event bubbles up through parent
// components in the tree (any parent implementing Interactive gets a
// chance to handle it). If the focused component does not implement
// Interactive at all, the event bubbles immediately.
type Interactive interface {
	Component

	// HandleKeyPress is called with a decoded key press event.
	// Return true if the event was consumed; return false to let it
	// bubble to the parent component.
	HandleKeyPress(ctx EventContext, ev uv.KeyPressEvent) bool
}

// Pasteable is an optional interface for components that accept pasted
// text (via bracketed paste). Paste events bubble like key events: if
// HandlePaste returns false, the event propagates to the parent.
type Pasteable interface {
	HandlePaste(ctx EventContext, ev uv.PasteEvent) bool
}

// Focusable is an optional interface for components that take part in
// focus cycling and want to know when they gain or lose focus. The
// :focus pseudo-class follows focus whether or not a component
// implements it.
type Focusable interface {
	SetFocused(ctx EventContext, focused bool)
}

// Layouter is an optional interface for components with children that
// place them with something other than a StackLayout.
type Layouter interface {
	Layout() Layout
}

// Mounter is an optional interface for components that need to perform
// setup when they enter a TUI-rooted tree. The EventContext embeds
// context.Context whose Done() channel is closed when the component is
// dismounted; use it to bound background goroutine lifetimes.
//
// OnMount is called:
//   - When a component is added to a Container/Slot that is already
//     mounted (i.e., connected to a TUI).
//   - When an ancestor is mounted, propagating down to all descendants.
type Mounter interface {
	OnMount(ctx EventContext)
}

// Dismounter is an optional interface for components that need to perform
// cleanup when they leave a TUI-rooted tree. The mount context's Done()
// channel is already closed when OnDismount is called.
//
// Dismount fires children-first (leaves before parents).
type Dismounter interface {
	OnDismount()
}

// ── Lifecycle propagation ──────────────────────────────────────────────────

// componentParent is implemented by components that hold children
// (Container, Slot) so that mount/dismount, styling and layout can
// recurse.
type componentParent interface {
	componentChildren() []Component
}

func childrenOf(comp Component) []Component {
	if p, ok := comp.(componentParent); ok {
		return p.componentChildren()
	}
	return nil
}

// setComponentParent wires a component into (or out of) the component tree.
// It handles upward dirty propagation, sets the self reference for input
// bubbling, and triggers mount/dismount when the component enters or
// leaves a TUI-rooted tree.
func setComponentParent(comp Component, parent *Compo) {
	cp := comp.compo()
	wasMounted := cp.tui != nil

	shouldBeMounted := parent != nil && parent.tui != nil
	if wasMounted {
		dismountTree(comp)
	}
	cp.parent = parent
	cp.self = comp
	if shouldBeMounted {
		mountTree(comp, parent.tui, parent.node)
	}
}

// mountTree mounts a component and all its descendants, creating their
// style nodes under parentNode and firing OnMount hooks parent-first.
func mountTree(comp Component, tui *TUI, parentNode cascade.NodeID) {
	cp := comp.compo()
	cp.self = comp
	cp.tui = tui
	cp.node = tui.engine.AddNode(parentNode, componentType(comp))
	if cp.cssID != "" {
		tui.engine.SetCSSID(cp.node, cp.cssID)
	}
	if cp.classes != nil && cp.classes.Cardinality() > 0 {
		tui.engine.SetClasses(cp.node, cp.classes.ToSlice()...)
	}
	if cp.inline != "" {
		// Already reported by SetInlineStyle.
		_ = tui.engine.SetInline(cp.node, cp.inline)
	}
	cp.reaction = reactive.NewReaction(tui.rt, cp.Update)
	cp.mountCtx, cp.mountCancel = context.WithCancel(context.Background())

	if m, ok := comp.(Mounter); ok {
		m.OnMount(EventContext{
			Context: cp.mountCtx,
			tui:     tui,
			source:  comp,
		})
	}

	for _, child := range childrenOf(comp) {
		child.compo().parent = cp
		mountTree(child, tui, cp.node)
	}
}

// dismountTree dismounts a component and all its descendants, firing
// OnDismount hooks children-first and removing the style subtree.
func dismountTree(comp Component) {
	tui := comp.compo().tui
	node := comp.compo().node
	dismount(comp)
	tui.engine.RemoveNode(node)
}

func dismount(comp Component) {
	for _, child := range childrenOf(comp) {
		dismount(child)
	}

	cp := comp.compo()
	if cp.tui.focus == comp {
		cp.tui.focus = nil
	}
	if cp.mountCancel != nil {
		cp.mountCancel()
	}
	if d, ok := comp.(Dismounter); ok {
		d.OnDismount()
	}
	if cp.reaction != nil {
		cp.reaction.Dispose()
	}

	cp.tui = nil
	cp.node = 0
	cp.style = nil
	cp.cache = nil
	cp.reaction = nil
	cp.mountCtx = nil
	cp.mountCancel = nil
}

// ── Container ──────────────────────────────────────────────────────────────

// Container is a Component that holds child components. It draws nothing
// itself beyond its decoration; its layout places the children.
type Container struct {
	Compo
	Children []Component
}

func (c *Container) componentChildren() []Component { return c.Children }

// AddChild appends comp to the container.
func (c *Container) AddChild(comp Component) {
	c.Children = append(c.Children, comp)
	setComponentParent(comp, &c.Compo)
	c.Update()
}

// RemoveChild removes comp from the container.
func (c *Container) RemoveChild(comp Component) {
	for i, ch := range c.Children {
		if ch == comp {
			c.Children = append(c.Children[:i], c.Children[i+1:]...)
			setComponentParent(comp, nil)
			c.Update()
			return
		}
	}
}

// Clear removes every child.
func (c *Container) Clear() {
	for _, ch := range c.Children {
		setComponentParent(ch, nil)
	}
	c.Children = nil
	c.Update()
}

func (c *Container) Render(ctx RenderContext) RenderResult {
	return RenderResult{}
}

// ── Slot ───────────────────────────────────────────────────────────────────

// Slot is a component that delegates to a single replaceable child.
// Use it to swap between components (e.g. text input vs spinner)
// without modifying the parent container's child list.
type Slot struct {
	Compo
	child Component
}

func (s *Slot) componentChildren() []Component {
	if s.child != nil {
		return []Component{s.child}
	}
	return nil
}

// NewSlot creates a Slot with the given initial child.
func NewSlot(child Component) *Slot {
	s := &Slot{}
	s.setChild(child)
	return s
}

// Set replaces the current child.
func (s *Slot) Set(c Component) {
	s.setChild(c)
	s.Update()
}

func (s *Slot) setChild(c Component) {
	if s.child != nil {
		setComponentParent(s.child, nil)
	}
	s.child = c
	if c != nil {
		setComponentParent(c, &s.Compo)
	}
}

// Get returns the current child.
func (s *Slot) Get() Component {
	return s.child
}

func (s *Slot) Render(ctx RenderContext) RenderResult {
	return RenderResult{}
}
