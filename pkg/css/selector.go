package css

import (
	"fmt"
	"strings"

	"github.com/gorilla/css/scanner"
)

// Combinator relates a compound selector to the one before it.
type Combinator uint8

const (
	// Descendant matches any ancestor (whitespace).
	Descendant Combinator = iota
	// Child matches the parent ('>').
	Child
	// Adjacent matches the immediately preceding sibling ('+').
	Adjacent
	// Sibling matches any preceding sibling ('~').
	Sibling
)

func (c Combinator) String() string {
	switch c {
	case Child:
		return " > "
	case Adjacent:
		return " + "
	case Sibling:
		return " ~ "
	default:
		return " "
	}
}

// Compound is a sequence of simple selectors that all apply to one node.
type Compound struct {
	Type      string
	Universal bool
	ID        string
	Classes   []string
	Pseudo    []string
}

func (c Compound) String() string {
	var sb strings.Builder
	switch {
	case c.Type != "":
		sb.WriteString(c.Type)
	case c.Universal || c.ID == "" && len(c.Classes) == 0 && len(c.Pseudo) == 0:
		sb.WriteByte('*')
	}
	if c.ID != "" {
		sb.WriteString("#" + c.ID)
	}
	for _, cls := range c.Classes {
		sb.WriteString("." + cls)
	}
	for _, p := range c.Pseudo {
		sb.WriteString(":" + p)
	}
	return sb.String()
}

// SelectorPart is a compound selector and its relation to the previous
// part. The first part's Combinator is unused.
type SelectorPart struct {
	Combinator Combinator
	Compound
}

// Selector is a complex selector. The last part is the subject: the node
// the selector's rule applies to.
type Selector struct {
	Parts       []SelectorPart
	Specificity Specificity
}

func (s Selector) String() string {
	var sb strings.Builder
	for i, p := range s.Parts {
		if i > 0 {
			sb.WriteString(p.Combinator.String())
		}
		sb.WriteString(p.Compound.String())
	}
	return sb.String()
}

// Subject returns the compound the selector applies to.
func (s Selector) Subject() Compound {
	return s.Parts[len(s.Parts)-1].Compound
}

// UsesSiblings reports whether s has an adjacent or general sibling
// combinator, or a structural pseudo-class that depends on siblings.
func (s Selector) UsesSiblings() bool {
	for _, p := range s.Parts {
		if p.Combinator == Adjacent || p.Combinator == Sibling {
			return true
		}
		for _, ps := range p.Pseudo {
			if IsStructuralPseudo(ps) {
				return true
			}
		}
	}
	return false
}

// IsStructuralPseudo reports whether the pseudo-class is derived from the
// node's position among its siblings rather than from node state.
func IsStructuralPseudo(name string) bool {
	switch name {
	case "first-child", "last-child", "only-child":
		return true
	}
	return false
}

// Specificity orders selectors by precision: ids, then classes and
// pseudo-classes, then types.
type Specificity struct {
	IDs, Classes, Types int
}

// Compare returns -1, 0 or +1.
func (s Specificity) Compare(o Specificity) int {
	switch {
	case s.IDs != o.IDs:
		return cmpInt(s.IDs, o.IDs)
	case s.Classes != o.Classes:
		return cmpInt(s.Classes, o.Classes)
	default:
		return cmpInt(s.Types, o.Types)
	}
}

// Less reports whether s is strictly less specific than o.
func (s Specificity) Less(o Specificity) bool {
	return s.Compare(o) < 0
}

func (s Specificity) String() string {
	return fmt.Sprintf("(%d,%d,%d)", s.IDs, s.Classes, s.Types)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// selectorError is a problem found in a selector prelude, pointing at the
// offending token.
type selectorError struct {
	tok *scanner.Token
	msg string
}

// parseSelectors parses a comma-separated selector list from prelude
// tokens, which still include whitespace.
func parseSelectors(toks []*scanner.Token) ([]Selector, *selectorError) {
	var (
		sels []Selector
		cur  []*scanner.Token
	)
	for _, t := range append(toks, nil) {
		if t != nil && !isChar(t, ",") {
			cur = append(cur, t)
			continue
		}
		sel, err := parseSelector(trimWS(cur))
		if err != nil {
			if err.tok == nil && t != nil {
				err.tok = t
			}
			return nil, err
		}
		sels = append(sels, sel)
		cur = nil
	}
	return sels, nil
}

func parseSelector(toks []*scanner.Token) (Selector, *selectorError) {
	var sel Selector
	if len(toks) == 0 {
		return sel, &selectorError{msg: "empty selector"}
	}

	var (
		cur      *SelectorPart
		comb     = Descendant
		explicit bool // a combinator token awaits its right-hand compound
	)
	flush := func() {
		if cur != nil {
			sel.Parts = append(sel.Parts, *cur)
			cur = nil
		}
	}

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.Type == scanner.TokenS:
			flush()
		case isChar(t, ">") || isChar(t, "+") || isChar(t, "~"):
			flush()
			if len(sel.Parts) == 0 || explicit {
				return sel, &selectorError{tok: t, msg: fmt.Sprintf("unexpected combinator %q", t.Value)}
			}
			switch t.Value {
			case ">":
				comb = Child
			case "+":
				comb = Adjacent
			default:
				comb = Sibling
			}
			explicit = true
		default:
			if cur == nil {
				cur = &SelectorPart{Combinator: comb}
				comb = Descendant
				explicit = false
			}
			n, err := parseSimple(&cur.Compound, toks[i:])
			if err != nil {
				return sel, err
			}
			i += n - 1
		}
	}
	flush()
	if explicit {
		return sel, &selectorError{tok: toks[len(toks)-1], msg: "selector ends with a combinator"}
	}

	for _, p := range sel.Parts {
		if p.ID != "" {
			sel.Specificity.IDs++
		}
		sel.Specificity.Classes += len(p.Classes) + len(p.Pseudo)
		if p.Type != "" {
			sel.Specificity.Types++
		}
	}
	return sel, nil
}

// parseSimple consumes one simple selector into c and returns the number of
// tokens used.
func parseSimple(c *Compound, toks []*scanner.Token) (int, *selectorError) {
	t := toks[0]
	switch {
	case t.Type == scanner.TokenIdent:
		if c.Type != "" || c.Universal || c.ID != "" || len(c.Classes) > 0 || len(c.Pseudo) > 0 {
			return 0, &selectorError{tok: t, msg: fmt.Sprintf("type selector %q must come first", t.Value)}
		}
		c.Type = t.Value
		return 1, nil
	case isChar(t, "*"):
		if c.Type != "" || c.Universal {
			return 0, &selectorError{tok: t, msg: "unexpected *"}
		}
		c.Universal = true
		return 1, nil
	case t.Type == scanner.TokenHash:
		if c.ID != "" {
			return 0, &selectorError{tok: t, msg: "a selector can only have one id"}
		}
		c.ID = strings.TrimPrefix(t.Value, "#")
		return 1, nil
	case isChar(t, "."), isChar(t, ":"):
		if len(toks) < 2 || toks[1].Type != scanner.TokenIdent {
			return 0, &selectorError{tok: t, msg: fmt.Sprintf("expected a name after %q", t.Value)}
		}
		if t.Value == "." {
			c.Classes = append(c.Classes, toks[1].Value)
		} else {
			c.Pseudo = append(c.Pseudo, toks[1].Value)
		}
		return 2, nil
	default:
		return 0, &selectorError{tok: t, msg: fmt.Sprintf("unexpected %q in selector", t.Value)}
	}
}

func trimWS(toks []*scanner.Token) []*scanner.Token {
	for len(toks) > 0 && toks[0].Type == scanner.TokenS {
		toks = toks[1:]
	}
	for len(toks) > 0 && toks[len(toks)-1].Type == scanner.TokenS {
		toks = toks[:len(toks)-1]
	}
	return toks
}

func isChar(t *scanner.Token, c string) bool {
	return t.Type == scanner.TokenChar && t.Value == c
}
