package reactive

// Scope owns the reactive nodes created while it is running. Disposing the
// scope disposes every node it owns and every child scope; reading a signal
// or computed owned by a disposed scope panics.
type Scope struct {
	rt       *Runtime
	parent   *Scope
	nodes    []*node
	children []*Scope
	disposed bool
}

// NewScope creates a scope. If another scope is running, the new one becomes
// its child and is disposed with it.
func (rt *Runtime) NewScope() *Scope {
	s := &Scope{rt: rt}
	if len(rt.owners) > 0 {
		s.parent = rt.owners[len(rt.owners)-1]
		s.parent.children = append(s.parent.children, s)
	}
	return s
}

// Run executes fn with s as the owner of newly created nodes.
func (s *Scope) Run(fn func()) {
	if s.disposed {
		panic("reactive: run of disposed scope")
	}
	s.rt.owners = append(s.rt.owners, s)
	defer func() {
		s.rt.owners = s.rt.owners[:len(s.rt.owners)-1]
	}()
	fn()
}

func (s *Scope) adopt(n *node) {
	s.nodes = append(s.nodes, n)
}

// Dispose disposes child scopes first, then owned nodes in reverse creation
// order.
func (s *Scope) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	for i := len(s.children) - 1; i >= 0; i-- {
		s.children[i].Dispose()
	}
	for i := len(s.nodes) - 1; i >= 0; i-- {
		s.nodes[i].dispose()
	}
	s.children = nil
	s.nodes = nil
}

// Disposed reports whether Dispose has been called.
func (s *Scope) Disposed() bool {
	return s.disposed
}
