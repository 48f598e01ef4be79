// Package cascade resolves a computed style for every node of a widget tree
// from a stylesheet: selector matching, specificity ordering, variable
// environments and inheritance, with a per-node match cache.
package cascade

import (
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/vito/pitui/pkg/css"
)

// NodeID identifies a node of a WidgetTree. Zero is never a valid id.
type NodeID uint64

// WidgetNode is the matching-relevant view of a widget. Parent is a weak
// reference by id; the tree owns every node.
type WidgetNode struct {
	ID       NodeID
	Type     string
	CSSID    string
	Classes  mapset.Set[string]
	Pseudo   mapset.Set[string]
	Parent   NodeID
	Children []NodeID
	Inline   []css.Declaration
}

// SortedClasses returns the node's classes in lexical order.
func (n *WidgetNode) SortedClasses() []string {
	cls := n.Classes.ToSlice()
	slices.Sort(cls)
	return cls
}

func (n *WidgetNode) String() string {
	s := n.Type
	if n.CSSID != "" {
		s += "#" + n.CSSID
	}
	for _, c := range n.SortedClasses() {
		s += "." + c
	}
	return fmt.Sprintf("%s<%d>", s, n.ID)
}

// WidgetTree is the owning table of widget nodes, independent of the widget
// objects themselves.
type WidgetTree struct {
	nodes  map[NodeID]*WidgetNode
	nextID NodeID
	root   NodeID
}

// NewWidgetTree creates a tree holding a root node of the given type.
func NewWidgetTree(rootType string) *WidgetTree {
	t := &WidgetTree{nodes: map[NodeID]*WidgetNode{}}
	t.root = t.newNode(0, rootType)
	return t
}

func (t *WidgetTree) newNode(parent NodeID, typ string) NodeID {
	t.nextID++
	n := &WidgetNode{
		ID:      t.nextID,
		Type:    typ,
		Classes: mapset.NewThreadUnsafeSet[string](),
		Pseudo:  mapset.NewThreadUnsafeSet[string](),
		Parent:  parent,
	}
	t.nodes[n.ID] = n
	return n.ID
}

// Root returns the root node's id.
func (t *WidgetTree) Root() NodeID {
	return t.root
}

// Len returns the number of nodes.
func (t *WidgetTree) Len() int {
	return len(t.nodes)
}

// Add appends a new child of the given type to parent.
func (t *WidgetTree) Add(parent NodeID, typ string) NodeID {
	p := t.Node(parent)
	id := t.newNode(parent, typ)
	p.Children = append(p.Children, id)
	return id
}

// Remove detaches id and its subtree and returns the removed ids in
// pre-order. The root cannot be removed.
func (t *WidgetTree) Remove(id NodeID) []NodeID {
	n := t.Node(id)
	if id == t.root {
		panic("cascade: cannot remove the root node")
	}
	var removed []NodeID
	t.Walk(id, func(n *WidgetNode) {
		removed = append(removed, n.ID)
	})
	if p, ok := t.nodes[n.Parent]; ok {
		p.Children = slices.DeleteFunc(p.Children, func(c NodeID) bool { return c == id })
	}
	for _, r := range removed {
		delete(t.nodes, r)
	}
	return removed
}

// Node returns the node with the given id. Asking for an id that is not in
// the tree is a programming error and panics.
func (t *WidgetTree) Node(id NodeID) *WidgetNode {
	n, ok := t.nodes[id]
	if !ok {
		panic(fmt.Sprintf("cascade: no node #%d in tree", id))
	}
	return n
}

// Lookup returns the node with the given id, if present.
func (t *WidgetTree) Lookup(id NodeID) (*WidgetNode, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// SetClasses replaces the node's classes. It reports whether they changed.
func (t *WidgetTree) SetClasses(id NodeID, classes ...string) bool {
	n := t.Node(id)
	next := mapset.NewThreadUnsafeSet(classes...)
	if n.Classes.Equal(next) {
		return false
	}
	n.Classes = next
	return true
}

// AddClass adds a class and reports whether it was absent.
func (t *WidgetTree) AddClass(id NodeID, class string) bool {
	return t.Node(id).Classes.Add(class)
}

// RemoveClass removes a class and reports whether it was present.
func (t *WidgetTree) RemoveClass(id NodeID, class string) bool {
	n := t.Node(id)
	if !n.Classes.Contains(class) {
		return false
	}
	n.Classes.Remove(class)
	return true
}

// HasClass reports whether the node has class.
func (t *WidgetTree) HasClass(id NodeID, class string) bool {
	return t.Node(id).Classes.Contains(class)
}

// SetCSSID sets the node's CSS id and reports whether it changed.
func (t *WidgetTree) SetCSSID(id NodeID, cssID string) bool {
	n := t.Node(id)
	if n.CSSID == cssID {
		return false
	}
	n.CSSID = cssID
	return true
}

// SetPseudo turns a pseudo-class such as "focus" on or off and reports
// whether the state changed.
func (t *WidgetTree) SetPseudo(id NodeID, name string, on bool) bool {
	n := t.Node(id)
	if n.Pseudo.Contains(name) == on {
		return false
	}
	if on {
		n.Pseudo.Add(name)
	} else {
		n.Pseudo.Remove(name)
	}
	return true
}

// SetInline replaces the node's inline declarations.
func (t *WidgetTree) SetInline(id NodeID, decls []css.Declaration) {
	t.Node(id).Inline = decls
}

// Walk calls fn for id and every descendant, in pre-order.
func (t *WidgetTree) Walk(id NodeID, fn func(*WidgetNode)) {
	n := t.Node(id)
	fn(n)
	for _, c := range n.Children {
		t.Walk(c, fn)
	}
}

// Ancestors returns the ids from id's parent up to the root.
func (t *WidgetTree) Ancestors(id NodeID) []NodeID {
	var out []NodeID
	for p := t.Node(id).Parent; p != 0; p = t.Node(p).Parent {
		out = append(out, p)
	}
	return out
}

// PrevSiblings returns the siblings before id, nearest first.
func (t *WidgetTree) PrevSiblings(id NodeID) []NodeID {
	sibs, i := t.siblings(id)
	if i <= 0 {
		return nil
	}
	out := make([]NodeID, 0, i)
	for j := i - 1; j >= 0; j-- {
		out = append(out, sibs[j])
	}
	return out
}

// NextSiblings returns the siblings after id, nearest first.
func (t *WidgetTree) NextSiblings(id NodeID) []NodeID {
	sibs, i := t.siblings(id)
	if i < 0 {
		return nil
	}
	return slices.Clone(sibs[i+1:])
}

func (t *WidgetTree) siblings(id NodeID) ([]NodeID, int) {
	n := t.Node(id)
	if n.Parent == 0 {
		return nil, -1
	}
	sibs := t.Node(n.Parent).Children
	return sibs, slices.Index(sibs, id)
}
