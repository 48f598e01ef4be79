package css

import (
	"errors"
	"fmt"
	"strings"
)

// Location is a position in a stylesheet source.
type Location struct {
	Filename string
	Line     int
	Column   int
	Length   int // Length of the token that caused the error
}

func (l Location) String() string {
	if l.Filename == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.Filename, l.Line, l.Column)
}

// ErrorKind classifies a ParseError.
type ErrorKind int

const (
	// Syntax is malformed stylesheet structure: unbalanced braces, missing
	// colons, stray tokens.
	Syntax ErrorKind = iota
	// SelectorSyntax is a selector that could not be parsed.
	SelectorSyntax
	// UnknownProperty is a declaration naming no registered property.
	UnknownProperty
	// InvalidValue is a value the property cannot accept.
	InvalidValue
)

func (k ErrorKind) String() string {
	switch k {
	case Syntax:
		return "syntax error"
	case SelectorSyntax:
		return "selector error"
	case UnknownProperty:
		return "unknown property"
	case InvalidValue:
		return "invalid value"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ParseError is a stylesheet problem found at load time.
type ParseError struct {
	Kind     ErrorKind
	Message  string
	Location Location
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Location, e.Message)
}

// Format renders the error with the offending source line and a caret
// underline, for command-line reporting.
func (e *ParseError) Format(source string) string {
	lines := strings.Split(source, "\n")
	if e.Location.Line < 1 || e.Location.Line > len(lines) {
		return e.Error()
	}

	var result strings.Builder
	fmt.Fprintf(&result, "%s: %s\n", e.Kind, e.Message)
	fmt.Fprintf(&result, "  --> %s\n", e.Location)
	fmt.Fprintf(&result, " %s |\n", padLeft("", 3))

	start := max(1, e.Location.Line-1)
	end := min(len(lines), e.Location.Line+1)
	for i := start; i <= end; i++ {
		fmt.Fprintf(&result, " %s | %s\n", padLeft(fmt.Sprint(i), 3), lines[i-1])
		if i == e.Location.Line {
			padding := strings.Repeat(" ", 1+3+3+max(0, e.Location.Column-1))
			fmt.Fprintf(&result, "%s%s\n", padding, strings.Repeat("^", max(1, e.Location.Length)))
		}
	}
	return result.String()
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// ParseErrors is every error found in one stylesheet, in source order.
type ParseErrors []*ParseError

func (errs ParseErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

func (errs ParseErrors) Unwrap() []error {
	out := make([]error, len(errs))
	for i, err := range errs {
		out[i] = err
	}
	return out
}

// Errors extracts every ParseError wrapped in err.
func Errors(err error) []*ParseError {
	var errs ParseErrors
	if errors.As(err, &errs) {
		return errs
	}
	var single *ParseError
	if errors.As(err, &single) {
		return []*ParseError{single}
	}
	return nil
}
