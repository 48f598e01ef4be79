// Package reactive implements fine-grained reactive state: signals, lazily
// recomputed derived values, and effects that re-run when the state they read
// changes.
//
// All state lives in an explicit Runtime. A Runtime is not safe for
// concurrent use; callers confine it to a single goroutine (pitui runs it on
// the UI goroutine and funnels other goroutines through TUI.Dispatch).
package reactive

import (
	"cmp"
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// Runtime owns the dependency graph, the tracking stack, the owner stack and
// the batch queue.
type Runtime struct {
	nextID uint64

	// frames is the tracking stack. The top entry receives dependency edges
	// for every read; a nil entry suspends tracking (Untracked).
	frames []*node

	// owners is the stack of scopes that adopt newly created nodes.
	owners []*Scope

	depth    int
	flushing bool
	pending  []*node
	queued   mapset.Set[*node]
}

// NewRuntime creates an empty reactive runtime.
func NewRuntime() *Runtime {
	return &Runtime{
		queued: mapset.NewThreadUnsafeSet[*node](),
	}
}

type nodeKind uint8

const (
	kindSignal nodeKind = iota
	kindComputed
	kindEffect
	kindReaction
)

func (k nodeKind) String() string {
	switch k {
	case kindSignal:
		return "signal"
	case kindComputed:
		return "computed"
	case kindEffect:
		return "effect"
	case kindReaction:
		return "reaction"
	default:
		return fmt.Sprintf("nodeKind(%d)", k)
	}
}

// node is the graph vertex shared by every reactive primitive. Sources keep
// their subscribers in subs; subscribers keep their sources in deps so that a
// fresh tracking pass can unlink stale edges.
type node struct {
	id       uint64
	kind     nodeKind
	rt       *Runtime
	subs     mapset.Set[*node]
	deps     mapset.Set[*node]
	dirty    bool
	disposed bool

	// run is invoked when a queued effect or reaction is flushed.
	run func()

	// cleanup releases whatever the node owns. It runs once, on dispose.
	cleanup func()
}

func (rt *Runtime) newNode(kind nodeKind) *node {
	rt.nextID++
	n := &node{
		id:   rt.nextID,
		kind: kind,
		rt:   rt,
		subs: mapset.NewThreadUnsafeSet[*node](),
		deps: mapset.NewThreadUnsafeSet[*node](),
	}
	if len(rt.owners) > 0 {
		rt.owners[len(rt.owners)-1].adopt(n)
	}
	return n
}

func (n *node) mustLive(op string) {
	if n.disposed {
		panic(fmt.Sprintf("reactive: %s of disposed %s #%d", op, n.kind, n.id))
	}
}

// unlink removes every dependency edge of n so that the next tracking pass
// starts from nothing.
func (n *node) unlink() {
	n.deps.Each(func(dep *node) bool {
		dep.subs.Remove(n)
		return false
	})
	n.deps.Clear()
}

func (n *node) dispose() {
	if n.disposed {
		return
	}
	n.disposed = true
	n.unlink()
	n.subs.Each(func(sub *node) bool {
		sub.deps.Remove(n)
		return false
	})
	n.subs.Clear()
	n.run = nil
	if n.cleanup != nil {
		n.cleanup()
		n.cleanup = nil
	}
}

// sorted returns the members of set in creation order. Flushes and
// propagation walk nodes in this order so that runs are deterministic.
func sorted(set mapset.Set[*node]) []*node {
	nodes := set.ToSlice()
	slices.SortFunc(nodes, func(a, b *node) int {
		return cmp.Compare(a.id, b.id)
	})
	return nodes
}

// track runs fn with n pushed on the tracking stack. The previous frame is
// restored on return, including when fn panics.
func (rt *Runtime) track(n *node, fn func()) {
	if n != nil {
		n.unlink()
	}
	rt.frames = append(rt.frames, n)
	defer func() {
		rt.frames = rt.frames[:len(rt.frames)-1]
	}()
	fn()
}

func (rt *Runtime) current() *node {
	if len(rt.frames) == 0 {
		return nil
	}
	return rt.frames[len(rt.frames)-1]
}

// observe records that the active subscriber read src.
func (rt *Runtime) observe(src *node) {
	sub := rt.current()
	if sub == nil {
		return
	}
	if sub == src {
		panic(fmt.Sprintf("reactive: %s #%d depends on itself", src.kind, src.id))
	}
	sub.deps.Add(src)
	src.subs.Add(sub)
}

// Tracking reports whether reads are currently being recorded.
func (rt *Runtime) Tracking() bool {
	return rt.current() != nil
}

// Untracked runs fn without recording dependencies for the active
// subscriber.
func (rt *Runtime) Untracked(fn func()) {
	rt.frames = append(rt.frames, nil)
	defer func() {
		rt.frames = rt.frames[:len(rt.frames)-1]
	}()
	fn()
}

// propagate notifies the subscribers of src: computeds become dirty and
// forward the notification, effects and reactions are queued.
func (rt *Runtime) propagate(src *node) {
	if src.subs.Cardinality() == 0 {
		return
	}
	for _, sub := range sorted(src.subs) {
		switch sub.kind {
		case kindComputed:
			if !sub.dirty {
				sub.dirty = true
				rt.propagate(sub)
			}
		case kindEffect, kindReaction:
			rt.enqueue(sub)
		}
	}
}

func (rt *Runtime) enqueue(n *node) {
	if !rt.queued.Add(n) {
		return
	}
	rt.pending = append(rt.pending, n)
}

// Batch runs fn and defers subscriber notification until the outermost batch
// returns. Batches nest; each queued subscriber runs at most once per flush
// and observes the final values written inside the batch.
func (rt *Runtime) Batch(fn func()) {
	rt.depth++
	func() {
		defer func() { rt.depth-- }()
		fn()
	}()
	if rt.depth == 0 {
		rt.flush()
	}
}

// Batching reports whether a batch is open.
func (rt *Runtime) Batching() bool {
	return rt.depth > 0
}

func (rt *Runtime) flush() {
	if rt.flushing {
		// The outer flush loop picks up anything queued by a nested write.
		return
	}
	rt.flushing = true
	defer func() { rt.flushing = false }()

	for len(rt.pending) > 0 {
		n := rt.pending[0]
		rt.pending[0] = nil
		rt.pending = rt.pending[1:]
		rt.queued.Remove(n)
		if n.disposed || n.run == nil {
			continue
		}
		n.run()
	}
	rt.pending = rt.pending[:0]
}
