package cascade

import (
	"maps"
	"slices"

	"github.com/vito/pitui/pkg/css"
)

// Env is a chain of variable scopes. A node's environment extends its
// parent's with the variables defined by the node's matched rules; the
// nearest definition wins.
type Env struct {
	parent *Env
	vars   map[string]css.Value
}

// RootEnv returns the environment of a stylesheet's top-level variables.
func RootEnv(sheet *css.Stylesheet) *Env {
	env := &Env{vars: map[string]css.Value{}}
	if sheet != nil {
		maps.Copy(env.vars, sheet.Variables)
	}
	return env
}

// Extend returns a child environment holding the variable definitions in
// matched. Later definitions override earlier ones. If matched defines no
// variables, e itself is returned.
func (e *Env) Extend(matched []Matched) *Env {
	var vars map[string]css.Value
	for _, m := range matched {
		if !m.Declaration.IsVariable() {
			continue
		}
		if vars == nil {
			vars = map[string]css.Value{}
		}
		vars[m.Declaration.VariableName()] = m.Declaration.Value
	}
	if vars == nil {
		return e
	}
	return &Env{parent: e, vars: vars}
}

// Lookup finds a variable, searching outward from e.
func (e *Env) Lookup(name string) (css.Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Names returns every visible variable name, sorted.
func (e *Env) Names() []string {
	seen := map[string]bool{}
	for env := e; env != nil; env = env.parent {
		for name := range env.vars {
			seen[name] = true
		}
	}
	return slices.Sorted(maps.Keys(seen))
}
