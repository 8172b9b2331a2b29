package expander

import (
	"errors"
	"fmt"
)

// Operations reported in Error.Op.
const (
	OpName   = "name"
	OpFormat = "format"
	OpWrite  = "write"
)

// ErrNoOutDir is returned by the OUT_DIR helpers when the variable is unset.
var ErrNoOutDir = errors.New("OUT_DIR is not set")

// Error is the single error kind returned by materialization.
type Error struct {
	Op   string
	Path string // destination or offending name; may be empty
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("expander: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("expander: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
