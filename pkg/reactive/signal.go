package reactive

// Signal is a mutable reactive value. Reading it inside a tracking pass
// (a Computed getter, an Effect, a Reaction) subscribes the reader; writing
// it notifies every current subscriber.
type Signal[T any] struct {
	n     *node
	value T
}

// NewSignal creates a signal holding v.
func NewSignal[T any](rt *Runtime, v T) *Signal[T] {
	return &Signal[T]{
		n:     rt.newNode(kindSignal),
		value: v,
	}
}

// Get returns the current value and records a dependency on the signal.
func (s *Signal[T]) Get() T {
	s.n.mustLive("read")
	s.n.rt.observe(s.n)
	return s.value
}

// Peek returns the current value without recording a dependency.
func (s *Signal[T]) Peek() T {
	s.n.mustLive("read")
	return s.value
}

// Set writes v and notifies subscribers. Outside a batch the write forms
// its own one-write batch, so an effect reachable through several paths
// still runs once.
func (s *Signal[T]) Set(v T) {
	s.n.mustLive("write")
	s.value = v
	rt := s.n.rt
	rt.Batch(func() {
		rt.propagate(s.n)
	})
}

// Update writes fn(current).
func (s *Signal[T]) Update(fn func(T) T) {
	s.n.mustLive("write")
	s.Set(fn(s.value))
}

// Subscribers returns the number of subscribers currently linked to the
// signal.
func (s *Signal[T]) Subscribers() int {
	return s.n.subs.Cardinality()
}

// Disposed reports whether the owning scope has been disposed.
func (s *Signal[T]) Disposed() bool {
	return s.n.disposed
}
