package render

import (
	"fmt"

	"github.com/pkg/errors"
)

// TerminalError is a failure writing to or flushing the terminal. The frame
// that failed is not retried; the next frame repaints every cell.
type TerminalError struct {
	Op  string
	Err error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("terminal %s: %v", e.Op, e.Err)
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

func terminalError(op string, err error) error {
	return &TerminalError{Op: op, Err: errors.WithStack(err)}
}

// IsTerminalError reports whether err is or wraps a *TerminalError.
func IsTerminalError(err error) bool {
	var te *TerminalError
	return errors.As(err, &te)
}
