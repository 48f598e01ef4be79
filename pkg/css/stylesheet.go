// Package css parses the stylesheets that drive the cascade: rules made of
// selectors and declarations, plus $variables usable in declaration values.
package css

import (
	"encoding/binary"
	"maps"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Declaration is one property assignment, or a variable definition when
// Property begins with '$'.
type Declaration struct {
	Property  string
	Value     Value
	Important bool
	Location  Location

	// Parsed is the typed value, set at load time when Value references no
	// variables.
	Parsed any
}

// IsVariable reports whether d defines a variable.
func (d Declaration) IsVariable() bool {
	return strings.HasPrefix(d.Property, "$")
}

// VariableName returns the defined variable's name without '$'.
func (d Declaration) VariableName() string {
	return strings.TrimPrefix(d.Property, "$")
}

func (d Declaration) String() string {
	s := d.Property + ": " + d.Value.String()
	if d.Important {
		s += " !important"
	}
	return s + ";"
}

// Rule is a selector list and the declarations it applies.
type Rule struct {
	Selectors    []Selector
	Declarations []Declaration
	// Order is the rule's position in its stylesheet.
	Order    int
	Location Location
}

func (r *Rule) String() string {
	sels := make([]string, len(r.Selectors))
	for i, s := range r.Selectors {
		sels[i] = s.String()
	}
	var sb strings.Builder
	sb.WriteString(strings.Join(sels, ", "))
	sb.WriteString(" {\n")
	for _, d := range r.Declarations {
		sb.WriteString("  " + d.String() + "\n")
	}
	sb.WriteString("}")
	return sb.String()
}

// Stylesheet is an ordered list of rules plus top-level variables.
type Stylesheet struct {
	Name      string
	Rules     []*Rule
	Variables map[string]Value
	// Fingerprint identifies the source text; reloading a stylesheet with
	// an unchanged fingerprint is a no-op.
	Fingerprint uint64
}

// NewStylesheet returns an empty stylesheet.
func NewStylesheet(name string) *Stylesheet {
	return &Stylesheet{
		Name:      name,
		Variables: map[string]Value{},
	}
}

// AddRule appends r, assigning it the next source order.
func (s *Stylesheet) AddRule(r *Rule) {
	r.Order = len(s.Rules)
	s.Rules = append(s.Rules, r)
}

// Append adds other's rules after s's own and merges its variables, with
// other's definitions winning. The fingerprint covers both sources.
func (s *Stylesheet) Append(other *Stylesheet) {
	for _, r := range other.Rules {
		cp := *r
		s.AddRule(&cp)
	}
	for name, v := range other.Variables {
		s.Variables[name] = v
	}
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], s.Fingerprint)
	binary.LittleEndian.PutUint64(buf[8:], other.Fingerprint)
	s.Fingerprint = xxhash.Sum64(buf[:])
}

// Lookup returns a top-level variable.
func (s *Stylesheet) Lookup(name string) (Value, bool) {
	v, ok := s.Variables[name]
	return v, ok
}

// UsesSiblings reports whether any selector depends on sibling position,
// in which case a tree change can restyle following siblings.
func (s *Stylesheet) UsesSiblings() bool {
	for _, r := range s.Rules {
		for _, sel := range r.Selectors {
			if sel.UsesSiblings() {
				return true
			}
		}
	}
	return false
}

func (s *Stylesheet) String() string {
	var sb strings.Builder
	for _, name := range slices.Sorted(maps.Keys(s.Variables)) {
		sb.WriteString("$" + name + ": " + s.Variables[name].String() + ";\n")
	}
	for _, r := range s.Rules {
		sb.WriteString(r.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
