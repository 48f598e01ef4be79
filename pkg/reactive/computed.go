package reactive

// Computed is a derived value. It recomputes lazily: a change in any
// dependency only marks it dirty, and the getter runs again on the next read.
// A Computed is itself a source, so readers of it are notified when one of
// its dependencies changes.
type Computed[T any] struct {
	n      *node
	getter func() T
	value  T
}

// NewComputed creates a derived value from getter. The getter does not run
// until the first read.
func NewComputed[T any](rt *Runtime, getter func() T) *Computed[T] {
	n := rt.newNode(kindComputed)
	n.dirty = true
	return &Computed[T]{n: n, getter: getter}
}

// Get returns the cached value, recomputing it first if a dependency changed
// since the last computation. The read is recorded as a dependency of the
// active subscriber.
func (c *Computed[T]) Get() T {
	c.n.mustLive("read")
	c.n.rt.observe(c.n)
	c.refresh()
	return c.value
}

// Peek is Get without recording a dependency.
func (c *Computed[T]) Peek() T {
	c.n.mustLive("read")
	c.refresh()
	return c.value
}

// Dirty reports whether the next read will recompute.
func (c *Computed[T]) Dirty() bool {
	return c.n.dirty
}

func (c *Computed[T]) refresh() {
	if !c.n.dirty {
		return
	}
	c.n.rt.track(c.n, func() {
		c.value = c.getter()
	})
	c.n.dirty = false
}
