package reactive

import "fmt"

// Effect runs a side-effecting function once at creation and again every
// time a signal or computed it read during its previous run changes. Each
// run records dependencies from scratch.
//
// Nodes and scopes created during a run belong to that run. They are
// disposed before the next run and when the effect is disposed.
type Effect struct {
	n     *node
	fn    func()
	owned *Scope
}

// NewEffect creates an effect owned by the current scope, if any, and runs
// it immediately.
func NewEffect(rt *Runtime, fn func()) *Effect {
	if cur := rt.current(); cur != nil && cur.kind == kindComputed {
		panic(fmt.Sprintf("reactive: effect created inside computed #%d", cur.id))
	}
	e := &Effect{n: rt.newNode(kindEffect), fn: fn}
	e.n.run = e.execute
	e.n.cleanup = e.release
	e.execute()
	return e
}

func (e *Effect) execute() {
	e.release()
	e.owned = &Scope{rt: e.n.rt}
	e.owned.Run(func() {
		e.n.rt.track(e.n, e.fn)
	})
}

func (e *Effect) release() {
	if e.owned != nil {
		e.owned.Dispose()
		e.owned = nil
	}
}

// Dispose unlinks the effect from every dependency. It never runs again.
func (e *Effect) Dispose() {
	e.n.dispose()
}

// Disposed reports whether Dispose has been called.
func (e *Effect) Disposed() bool {
	return e.n.disposed
}

// Reaction separates tracking from reacting: Track records the dependencies
// of an arbitrary function, and onChange is called (once per flush) when any
// of them changes. Unlike an Effect, the tracked function is not re-run
// automatically; the owner decides when to call Track again.
type Reaction struct {
	n *node
}

// NewReaction creates a reaction that calls onChange on invalidation.
func NewReaction(rt *Runtime, onChange func()) *Reaction {
	r := &Reaction{n: rt.newNode(kindReaction)}
	r.n.run = onChange
	return r
}

// Track runs fn, replacing the reaction's dependencies with whatever fn
// reads.
func (r *Reaction) Track(fn func()) {
	r.n.mustLive("track")
	r.n.rt.track(r.n, fn)
}

// Dependencies returns the number of sources recorded by the last Track.
func (r *Reaction) Dependencies() int {
	return r.n.deps.Cardinality()
}

// Dispose unlinks the reaction.
func (r *Reaction) Dispose() {
	r.n.dispose()
}
