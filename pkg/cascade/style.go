package cascade

import (
	"fmt"
	"reflect"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/iancoleman/strcase"

	"github.com/vito/pitui/pkg/css"
	"github.com/vito/pitui/pkg/screen"
)

// ComputedStyle is the resolved style of one node. Each registered property
// has a field named after it ("text-style" is TextStyle); unset properties
// keep their zero value.
type ComputedStyle struct {
	Color       screen.Color
	Background  screen.Color
	BorderColor screen.Color
	TextStyle   screen.Attr
	TextAlign   css.Align

	Display    css.Display
	Visibility css.Visibility

	Width     css.Length
	Height    css.Length
	MinWidth  css.Length
	MaxWidth  css.Length
	MinHeight css.Length
	MaxHeight css.Length

	Margin  css.Edges
	Padding css.Edges
	Border  css.Border

	ZIndex int

	set mapset.Set[string]
}

// styleFields maps property names to ComputedStyle field indexes.
var styleFields = map[string]int{}

func init() {
	t := reflect.TypeFor[ComputedStyle]()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		styleFields[strcase.ToKebab(f.Name)] = i
	}
}

// NewComputedStyle returns a style with nothing set.
func NewComputedStyle() *ComputedStyle {
	return &ComputedStyle{set: mapset.NewThreadUnsafeSet[string]()}
}

// IsSet reports whether prop was given a value by a declaration or by
// inheritance.
func (cs *ComputedStyle) IsSet(prop string) bool {
	return cs.set != nil && cs.set.Contains(css.NormalizeProperty(prop))
}

// Get returns the value of prop, and whether it is set.
func (cs *ComputedStyle) Get(prop string) (any, bool) {
	i, ok := styleFields[css.NormalizeProperty(prop)]
	if !ok {
		return nil, false
	}
	return reflect.ValueOf(cs).Elem().Field(i).Interface(), cs.IsSet(prop)
}

func (cs *ComputedStyle) apply(prop string, val any) {
	i, ok := styleFields[prop]
	if !ok {
		panic(fmt.Sprintf("cascade: no style field for property %q", prop))
	}
	field := reflect.ValueOf(cs).Elem().Field(i)
	v := reflect.ValueOf(val)
	if !v.Type().AssignableTo(field.Type()) {
		panic(fmt.Sprintf("cascade: %s value has type %s, want %s", prop, v.Type(), field.Type()))
	}
	field.Set(v)
	cs.set.Add(prop)
}

// inherit copies inherited properties that cs leaves unset from parent.
func (cs *ComputedStyle) inherit(parent *ComputedStyle) {
	if parent == nil {
		return
	}
	for _, p := range css.Properties() {
		if !p.Inherited || cs.set.Contains(p.Name) || !parent.set.Contains(p.Name) {
			continue
		}
		val, _ := parent.Get(p.Name)
		cs.apply(p.Name, val)
	}
}

// Style returns the cell style the node paints its content with.
func (cs *ComputedStyle) Style() screen.Style {
	return screen.Style{Fg: cs.Color, Bg: cs.Background, Attrs: cs.TextStyle}
}

// Hidden reports whether the node takes up space but paints nothing.
func (cs *ComputedStyle) Hidden() bool {
	return cs.Visibility == css.Hidden
}

// Displayed reports whether the node takes part in layout at all.
func (cs *ComputedStyle) Displayed() bool {
	return cs.Display != css.DisplayNone
}

// PropertyValue is one set property of a computed style, for dumps.
type PropertyValue struct {
	Name  string
	Value string
}

// Properties returns the set properties sorted by name.
func (cs *ComputedStyle) Properties() []PropertyValue {
	names := cs.set.ToSlice()
	slices.Sort(names)
	out := make([]PropertyValue, len(names))
	for i, name := range names {
		val, _ := cs.Get(name)
		out[i] = PropertyValue{Name: name, Value: fmt.Sprint(val)}
	}
	return out
}
