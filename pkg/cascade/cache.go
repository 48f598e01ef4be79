package cascade

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/vito/pitui/pkg/css"
)

// Matched is a declaration that applies to a node, with the keys that order
// it in the cascade.
type Matched struct {
	Declaration css.Declaration
	Specificity css.Specificity
	// Order is the rule's source order, or the declaration's position for
	// inline declarations.
	Order  int
	Inline bool
}

// MatchCache maps node ids to their last matched, cascade-sorted
// declarations. An entry whose id is dirty is never returned.
//
// The cache is mutated between frames only; it is not safe for concurrent
// use.
type MatchCache struct {
	entries map[NodeID][]Matched
	dirty   mapset.Set[NodeID]
}

// NewMatchCache returns an empty cache.
func NewMatchCache() *MatchCache {
	return &MatchCache{
		entries: map[NodeID][]Matched{},
		dirty:   mapset.NewThreadUnsafeSet[NodeID](),
	}
}

// Get returns the cached declarations for id, or false if there is no entry
// or the entry is dirty.
func (c *MatchCache) Get(id NodeID) ([]Matched, bool) {
	if c.dirty.Contains(id) {
		return nil, false
	}
	m, ok := c.entries[id]
	return m, ok
}

// Insert stores a fresh match result for id and clears its dirty mark.
func (c *MatchCache) Insert(id NodeID, matched []Matched) {
	c.entries[id] = matched
	c.dirty.Remove(id)
}

// Invalidate marks id dirty.
func (c *MatchCache) Invalidate(id NodeID) {
	c.dirty.Add(id)
}

// InvalidateSubtree marks id and every descendant in tree dirty.
func (c *MatchCache) InvalidateSubtree(tree *WidgetTree, id NodeID) {
	tree.Walk(id, func(n *WidgetNode) {
		c.dirty.Add(n.ID)
	})
}

// InvalidateAll marks every cached id dirty, as needed when the stylesheet
// changes.
func (c *MatchCache) InvalidateAll() {
	for id := range c.entries {
		c.dirty.Add(id)
	}
}

// Forget drops id entirely, for nodes removed from the tree.
func (c *MatchCache) Forget(id NodeID) {
	delete(c.entries, id)
	c.dirty.Remove(id)
}

// IsDirty reports whether id is marked dirty.
func (c *MatchCache) IsDirty(id NodeID) bool {
	return c.dirty.Contains(id)
}

// Len returns the number of entries, dirty or not.
func (c *MatchCache) Len() int {
	return len(c.entries)
}

// Dirty returns the number of dirty ids.
func (c *MatchCache) Dirty() int {
	return c.dirty.Cardinality()
}
