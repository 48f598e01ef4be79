package css

import (
	"strconv"
	"strings"
)

// TokenKind identifies a component of a declaration value.
type TokenKind uint8

const (
	KindIdent TokenKind = iota + 1
	KindNumber
	KindPercentage
	KindDimension
	KindHash
	KindString
	KindFunction
	KindVar
	KindComma
	KindDelim
)

// Token is one component of a declaration value. Function tokens carry
// their arguments in Args; Var tokens carry the variable name without the
// leading '$'.
type Token struct {
	Kind TokenKind
	Text string
	Args []Token
}

func (t Token) String() string {
	switch t.Kind {
	case KindVar:
		return "$" + t.Text
	case KindString:
		return strconv.Quote(t.Text)
	case KindFunction:
		return t.Text + "(" + Value(t.Args).String() + ")"
	default:
		return t.Text
	}
}

// Value is the token list of a declaration or variable definition.
type Value []Token

func (v Value) String() string {
	var sb strings.Builder
	for i, t := range v {
		if i > 0 && t.Kind != KindComma {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.String())
	}
	return sb.String()
}

// HasVars reports whether v references any variable, including inside
// function arguments.
func (v Value) HasVars() bool {
	for _, t := range v {
		if t.Kind == KindVar || t.Kind == KindFunction && Value(t.Args).HasVars() {
			return true
		}
	}
	return false
}

// Vars lists the variable names referenced by v, in order of appearance.
func (v Value) Vars() []string {
	var names []string
	for _, t := range v {
		switch t.Kind {
		case KindVar:
			names = append(names, t.Text)
		case KindFunction:
			names = append(names, Value(t.Args).Vars()...)
		}
	}
	return names
}

// maxVarDepth bounds nested substitution so that cyclic definitions resolve
// as unresolved instead of recursing forever.
const maxVarDepth = 16

// Substitute replaces every variable reference with its definition from
// lookup, recursively. It returns false if any reference is unresolved or
// the definitions are cyclic.
func (v Value) Substitute(lookup func(name string) (Value, bool)) (Value, bool) {
	return v.substitute(lookup, 0)
}

func (v Value) substitute(lookup func(string) (Value, bool), depth int) (Value, bool) {
	if !v.HasVars() {
		return v, true
	}
	if depth > maxVarDepth {
		return nil, false
	}
	out := make(Value, 0, len(v))
	for _, t := range v {
		switch {
		case t.Kind == KindVar:
			def, ok := lookup(t.Text)
			if !ok {
				return nil, false
			}
			def, ok = def.substitute(lookup, depth+1)
			if !ok {
				return nil, false
			}
			out = append(out, def...)
		case t.Kind == KindFunction && Value(t.Args).HasVars():
			args, ok := Value(t.Args).substitute(lookup, depth+1)
			if !ok {
				return nil, false
			}
			t.Args = args
			out = append(out, t)
		default:
			out = append(out, t)
		}
	}
	return out, true
}

// split separates v at top-level commas.
func (v Value) split() []Value {
	var parts []Value
	start := 0
	for i, t := range v {
		if t.Kind == KindComma {
			parts = append(parts, v[start:i])
			start = i + 1
		}
	}
	return append(parts, v[start:])
}
