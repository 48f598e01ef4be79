package cascade

import (
	"cmp"
	"slices"

	"github.com/vito/pitui/pkg/css"
)

// Match collects the declarations of sheet that apply to node id, followed
// by its inline declarations, sorted ascending by (important, inline,
// specificity, source order): when two declarations set the same property
// the later one wins. Matching never fails.
func Match(tree *WidgetTree, sheet *css.Stylesheet, id NodeID) []Matched {
	var out []Matched
	if sheet != nil {
		for _, rule := range sheet.Rules {
			spec, ok := bestMatch(tree, rule.Selectors, id)
			if !ok {
				continue
			}
			for _, d := range rule.Declarations {
				out = append(out, Matched{
					Declaration: d,
					Specificity: spec,
					Order:       rule.Order,
				})
			}
		}
	}
	for i, d := range tree.Node(id).Inline {
		out = append(out, Matched{Declaration: d, Order: i, Inline: true})
	}
	slices.SortStableFunc(out, compareMatched)
	return out
}

func compareMatched(a, b Matched) int {
	if c := cmpBool(a.Declaration.Important, b.Declaration.Important); c != 0 {
		return c
	}
	if c := cmpBool(a.Inline, b.Inline); c != 0 {
		return c
	}
	if c := a.Specificity.Compare(b.Specificity); c != 0 {
		return c
	}
	return cmp.Compare(a.Order, b.Order)
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}

// bestMatch returns the highest specificity among the selectors matching
// id.
func bestMatch(tree *WidgetTree, sels []css.Selector, id NodeID) (css.Specificity, bool) {
	var (
		best  css.Specificity
		found bool
	)
	for _, sel := range sels {
		if !Matches(tree, sel, id) {
			continue
		}
		if !found || best.Less(sel.Specificity) {
			best = sel.Specificity
			found = true
		}
	}
	return best, found
}

// Matches reports whether sel applies to node id.
func Matches(tree *WidgetTree, sel css.Selector, id NodeID) bool {
	if len(sel.Parts) == 0 {
		return false
	}
	return matchFrom(tree, sel.Parts, len(sel.Parts)-1, id)
}

// matchFrom matches parts[:i+1] right to left, with parts[i] applying to
// id. Descendant and general sibling combinators backtrack over every
// candidate.
func matchFrom(tree *WidgetTree, parts []css.SelectorPart, i int, id NodeID) bool {
	n := tree.Node(id)
	if !matchCompound(tree, n, parts[i].Compound) {
		return false
	}
	if i == 0 {
		return true
	}
	switch parts[i].Combinator {
	case css.Child:
		return n.Parent != 0 && matchFrom(tree, parts, i-1, n.Parent)
	case css.Adjacent:
		prev := tree.PrevSiblings(id)
		return len(prev) > 0 && matchFrom(tree, parts, i-1, prev[0])
	case css.Sibling:
		for _, s := range tree.PrevSiblings(id) {
			if matchFrom(tree, parts, i-1, s) {
				return true
			}
		}
		return false
	default:
		for p := n.Parent; p != 0; p = tree.Node(p).Parent {
			if matchFrom(tree, parts, i-1, p) {
				return true
			}
		}
		return false
	}
}

func matchCompound(tree *WidgetTree, n *WidgetNode, c css.Compound) bool {
	if c.Type != "" && c.Type != n.Type {
		return false
	}
	if c.ID != "" && c.ID != n.CSSID {
		return false
	}
	for _, cls := range c.Classes {
		if !n.Classes.Contains(cls) {
			return false
		}
	}
	for _, ps := range c.Pseudo {
		if !hasPseudo(tree, n, ps) {
			return false
		}
	}
	return true
}

func hasPseudo(tree *WidgetTree, n *WidgetNode, name string) bool {
	if !css.IsStructuralPseudo(name) {
		return n.Pseudo.Contains(name)
	}
	if n.Parent == 0 {
		return true
	}
	sibs := tree.Node(n.Parent).Children
	first := len(sibs) > 0 && sibs[0] == n.ID
	last := len(sibs) > 0 && sibs[len(sibs)-1] == n.ID
	switch name {
	case "first-child":
		return first
	case "last-child":
		return last
	default:
		return first && last
	}
}
