package pitui

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/colorprofile"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/pkg/errors"

	"github.com/vito/pitui/pkg/cascade"
	"github.com/vito/pitui/pkg/compositor"
	"github.com/vito/pitui/pkg/css"
	"github.com/vito/pitui/pkg/reactive"
	"github.com/vito/pitui/pkg/render"
)

// RootType is the type selector of the TUI's root node.
const RootType = "Screen"

// TUI is the main renderer. It extends Container with the frame pipeline:
// cascade, layout, per-component rendering, compositing and a differential
// write of the changed cells.
//
// Everything except Dispatch, RequestRender and Quit runs on the UI
// goroutine once Start has been called: event handlers, lifecycle hooks,
// Dispatch callbacks and rendering all share it, so component state needs
// no locking.
type TUI struct {
	Container

	terminal Terminal
	rt       *reactive.Runtime
	engine   *cascade.Engine
	screen   *render.Context
	frame    compositor.Frame
	watcher  *reactive.Effect

	focus          Component
	overlayStack   []*overlayEntry
	inputListeners []inputListenerEntry
	decoder        uv.EventDecoder
	paste          []byte
	pasting        bool

	sheetNames []string
	sheets     map[string]*css.Stylesheet

	repaint     atomic.Bool
	minInterval time.Duration
	debugWriter io.Writer
	onError     func(EventContext, error)
	err         error
	fullRedraws int

	mu      sync.Mutex // protects queue and stopped
	queue   []func()
	stopped bool

	renderCh chan struct{} // coalesced render requests
	wake     chan struct{} // dispatch queue is non-empty
	stopCh   chan struct{}
	done     chan struct{}
	quitOnce sync.Once
	started  bool
}

// New creates a TUI backed by the given terminal. Output is generated for
// the capabilities the terminal detects if it is a CapabilityDetector, and
// for a true color, Unicode terminal otherwise. SetCapabilities changes
// them.
func New(term Terminal) *TUI {
	return newTUI(term)
}

// newTUI creates a TUI without starting the event loop. Tests drive it
// by calling doRender and runQueue directly.
func newTUI(term Terminal) *TUI {
	rt := reactive.NewRuntime()
	tree := cascade.NewWidgetTree(RootType)
	t := &TUI{
		terminal: term,
		rt:       rt,
		engine:   cascade.NewEngine(rt, tree),
		sheets:   map[string]*css.Stylesheet{},
		renderCh: make(chan struct{}, 1),
		wake:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	caps := render.Capabilities{
		Color:   colorprofile.TrueColor,
		Unicode: true,
	}
	if d, ok := term.(CapabilityDetector); ok {
		caps = d.Capabilities()
	}
	t.screen = render.NewContext(term, term.Columns(), term.Rows(), caps)

	root := &t.Container.Compo
	root.self = t
	root.tui = t
	root.node = tree.Root()
	root.reaction = reactive.NewReaction(rt, root.Update)
	root.mountCtx, root.mountCancel = context.WithCancel(context.Background())
	root.requestRender = func() { t.RequestRender(false) }

	// Any change to selectors, classes or stylesheets schedules a frame.
	t.watcher = reactive.NewEffect(rt, func() {
		t.engine.Version()
		t.RequestRender(false)
	})
	return t
}

// Terminal returns the underlying terminal.
func (t *TUI) Terminal() Terminal { return t.terminal }

// Runtime returns the reactive runtime owned by the UI goroutine.
func (t *TUI) Runtime() *reactive.Runtime { return t.rt }

// Styles returns the cascade engine.
func (t *TUI) Styles() *cascade.Engine { return t.engine }

// Capabilities returns the capabilities output is generated for.
func (t *TUI) Capabilities() render.Capabilities { return t.screen.Capabilities() }

// SetCapabilities changes the capabilities output is generated for. The
// next frame repaints every cell.
func (t *TUI) SetCapabilities(caps render.Capabilities) {
	t.screen.SetCapabilities(caps)
	t.RequestRender(false)
}

// SetFPS caps the frame rate. Zero or less removes the cap.
func (t *TUI) SetFPS(fps int) {
	if fps <= 0 {
		t.minInterval = 0
		return
	}
	t.minInterval = time.Second / time.Duration(fps)
}

// SetDebugWriter enables render performance logging. Each frame writes a
// single JSON line to w. Pass nil to disable.
func (t *TUI) SetDebugWriter(w io.Writer) {
	t.debugWriter = w
}

// OnError sets the handler for terminal errors. The failed frame is
// dropped and the next one repaints every cell; the handler decides
// whether to Quit. Without a handler errors are logged.
func (t *TUI) OnError(fn func(ctx EventContext, err error)) {
	t.onError = fn
}

// Err returns the last terminal error.
func (t *TUI) Err() error {
	return t.err
}

// FullRedraws returns the number of frames that repainted every cell.
func (t *TUI) FullRedraws() int {
	return t.fullRedraws
}

func (t *TUI) eventContext(source Component) EventContext {
	ctx := source.compo().mountCtx
	if ctx == nil {
		ctx = context.Background()
	}
	return EventContext{Context: ctx, tui: t, source: source}
}

// SetFocus gives keyboard focus to the given component (or nil). The
// :focus pseudo-class moves with it.
func (t *TUI) SetFocus(comp Component) {
	if comp == t.focus {
		return
	}
	if prev := t.focus; prev != nil {
		t.focus = nil
		if prev.compo().Mounted() {
			t.engine.SetPseudo(prev.compo().node, "focus", false)
		}
		if f, ok := prev.(Focusable); ok {
			f.SetFocused(t.eventContext(prev), false)
		}
	}
	t.focus = comp
	if comp == nil {
		return
	}
	if comp.compo().Mounted() {
		t.engine.SetPseudo(comp.compo().node, "focus", true)
	}
	if f, ok := comp.(Focusable); ok {
		f.SetFocused(t.eventContext(comp), true)
	}
}

// Focused returns the component holding keyboard focus.
func (t *TUI) Focused() Component {
	return t.focus
}

// Start puts the terminal in raw mode and starts the event loop.
func (t *TUI) Start() error {
	if s, ok := t.terminal.(CapabilitySetter); ok {
		s.SetCapabilities(t.screen.Capabilities())
	}
	err := t.terminal.Start(
		func(data []byte) { t.Dispatch(func() { t.handleInput(data) }) },
		func() { t.Dispatch(t.resize) },
	)
	if err != nil {
		return errors.Wrap(err, "start terminal")
	}
	t.started = true
	t.resize()
	go t.loop()
	t.RequestRender(true)
	return nil
}

// Quit asks the event loop to exit. Safe to call from any goroutine,
// including event handlers.
func (t *TUI) Quit() {
	t.quitOnce.Do(func() {
		t.mu.Lock()
		t.stopped = true
		t.mu.Unlock()
		close(t.stopCh)
	})
}

// Done is closed when the event loop has exited.
func (t *TUI) Done() <-chan struct{} {
	return t.done
}

// Stop ends the event loop and restores the terminal. It must not be
// called from the UI goroutine; handlers call Quit instead.
func (t *TUI) Stop() error {
	t.Quit()
	if !t.started {
		return nil
	}
	<-t.done
	return t.terminal.Stop()
}

// Run starts the TUI and blocks until ctx is cancelled or the TUI quits,
// then stops it. It returns the last terminal error, if any.
func (t *TUI) Run(ctx context.Context) error {
	if err := t.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-t.done:
	}
	if err := t.Stop(); err != nil {
		return err
	}
	return t.err
}

// Dispatch schedules fn to run on the UI goroutine. Safe to call from any
// goroutine, including the UI goroutine itself.
func (t *TUI) Dispatch(fn func()) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.queue = append(t.queue, fn)
	t.mu.Unlock()
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// runQueue runs every dispatched function queued so far.
func (t *TUI) runQueue() {
	t.mu.Lock()
	queue := t.queue
	t.queue = nil
	t.mu.Unlock()
	for _, fn := range queue {
		fn()
	}
}

// RequestRender schedules a frame. If repaint is true, every cell is
// rewritten. Requests made before the next frame starts are coalesced.
func (t *TUI) RequestRender(repaint bool) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	if repaint {
		t.repaint.Store(true)
	}

	// Non-blocking send to coalesce multiple rapid requests.
	select {
	case t.renderCh <- struct{}{}:
	default:
	}
}

// loop is the UI goroutine.
func (t *TUI) loop() {
	defer close(t.done)
	var last time.Time
	var throttle <-chan time.Time
	for {
		select {
		case <-t.stopCh:
			return
		case <-t.wake:
			t.runQueue()
		case <-t.renderCh:
			if wait := t.minInterval - time.Since(last); wait > 0 {
				if throttle == nil {
					throttle = time.After(wait)
				}
				continue
			}
			t.renderFrame()
			last = time.Now()
		case <-throttle:
			throttle = nil
			t.renderFrame()
			last = time.Now()
		}
	}
}

func (t *TUI) renderFrame() {
	// Work dispatched before the request (input, resizes) lands in this
	// frame.
	t.runQueue()
	if err := t.doRender(); err != nil {
		t.err = err
		if t.onError != nil {
			t.onError(t.eventContext(t), err)
		} else {
			slog.Error("render failed", "error", err)
		}
	}
}

func (t *TUI) resize() {
	t.screen.Resize(t.terminal.Columns(), t.terminal.Rows())
	t.Update()
}

// doRender runs the frame pipeline once.
func (t *TUI) doRender() error {
	totalStart := time.Now()
	var stats RenderStats

	width, height := t.terminal.Columns(), t.terminal.Rows()
	t.screen.Resize(width, height)
	if t.repaint.Swap(false) {
		t.screen.Invalidate()
	}

	var componentStats []ComponentStat
	b := frameBuilder{
		tui:          t,
		frame:        &t.frame,
		screenHeight: height,
	}
	if t.debugWriter != nil {
		b.stats = &componentStats
	}

	before := t.engine.Stats()
	styleStart := time.Now()
	b.styleTree(t)
	var overlays []*overlayEntry
	for _, o := range t.overlayStack {
		if !o.hidden {
			overlays = append(overlays, o)
			b.styleTree(o.component)
		}
	}
	stats.StyleTime = time.Since(styleStart)
	after := t.engine.Stats()
	stats.Matched = after.Matched - before.Matched
	stats.Reused = after.Reused - before.Reused

	layoutStart := time.Now()
	t.frame.Reset()
	screenRect := compositor.Rect{Width: width, Height: height}
	b.place(t, screenRect, screenRect, 0, 0)
	for i, o := range overlays {
		b.placeOverlay(o, screenRect, overlayZ*(i+1))
	}
	stats.RenderTime = b.renderTime
	stats.LayoutTime = time.Since(layoutStart) - b.renderTime
	stats.ComponentsRendered = b.rendered
	stats.ComponentsCached = b.cached
	stats.OverlayCount = len(overlays)

	compositeStart := time.Now()
	cs := t.frame.Compose(t.screen.BeginFrame())
	stats.CompositeTime = time.Since(compositeStart)
	stats.Layers = cs.Layers
	stats.SkippedLayers = cs.Skipped

	if b.cursor != nil {
		t.screen.SetCursor(b.cursor.Col, b.cursor.Row, true)
	} else {
		t.screen.SetCursor(0, 0, false)
	}
	fs, err := t.screen.EndFrame()
	stats.DiffTime = fs.DiffTime
	stats.WriteTime = fs.WriteTime
	stats.Changes = fs.Changes
	stats.Runs = fs.Runs
	stats.StyleChanges = fs.StyleChanges
	stats.BytesWritten = fs.Bytes
	stats.FullRedraw = fs.Full
	if fs.Full && fs.Changes > 0 {
		t.fullRedraws++
	}
	stats.TotalTime = time.Since(totalStart)
	t.emitStats(&stats, componentStats)
	return err
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
