package css

import (
	"strings"

	douceur "github.com/aymerick/douceur/parser"
)

// InlineFilename is the location filename used for inline declarations.
const InlineFilename = "<inline>"

// ParseInline parses the declarations of an inline style, such as
// "color: red; padding: 1 2". Values referencing variables are kept
// unvalidated and resolved by the cascade. Unknown properties and invalid
// values are reported as ParseErrors and dropped from the result.
func ParseInline(src string) ([]Declaration, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, nil
	}
	if !strings.HasSuffix(src, ";") {
		// the last declaration only terminates at ';' or '}'
		src += ";"
	}

	raw, err := douceur.ParseDeclarations(src)
	if err != nil {
		return nil, ParseErrors{{
			Kind:     Syntax,
			Message:  err.Error(),
			Location: Location{Filename: InlineFilename, Line: 1, Column: 1},
		}}
	}

	var (
		decls []Declaration
		errs  ParseErrors
		pos   int
	)
	for _, r := range raw {
		col := pos + 1
		if off := strings.Index(src[pos:], r.Property); off >= 0 {
			col = pos + off + 1
			pos += off + len(r.Property)
		}
		loc := Location{Filename: InlineFilename, Line: 1, Column: col, Length: len(r.Property)}

		vp := newParser(InlineFilename, r.Value)
		value, important, ok := vp.parseValue()
		if !ok || !vp.eof() {
			errs = append(errs, vp.errs...)
			if ok {
				errs = append(errs, &ParseError{Kind: Syntax, Message: "unexpected " + vp.peek().Value, Location: loc})
			}
			continue
		}
		important = important || r.Important

		if strings.HasPrefix(r.Property, "$") {
			decls = append(decls, Declaration{Property: r.Property, Value: value, Location: loc})
			continue
		}

		prop, found := LookupProperty(r.Property)
		if !found {
			errs = append(errs, &ParseError{Kind: UnknownProperty, Message: "unknown property " + strings.TrimSpace(r.Property), Location: loc})
			continue
		}
		d := Declaration{Property: prop.Name, Value: value, Important: important, Location: loc}
		if !value.HasVars() {
			parsed, err := prop.Parse(value)
			if err != nil {
				errs = append(errs, &ParseError{Kind: InvalidValue, Message: err.Error(), Location: loc})
				continue
			}
			d.Parsed = parsed
		}
		decls = append(decls, d)
	}
	if len(errs) > 0 {
		return decls, errs
	}
	return decls, nil
}
