package filter

import (
	"errors"
	"fmt"

	"github.com/s0up4200/tvcatalog/tvdb"
)

// ErrUnknownFilter is returned when a preset name has not been registered.
var ErrUnknownFilter = errors.New("filter not registered")

// CompilationError reports an expression that could not be compiled.
// Position is -1 when the compiler gave no location.
type CompilationError struct {
	Expression string
	Reason     string
	Position   int
	Err        error
}

func (e *CompilationError) Error() string {
	msg := fmt.Sprintf("cannot compile %q: %s", e.Expression, e.Reason)
	if e.Position >= 0 {
		msg = fmt.Sprintf("cannot compile %q at offset %d: %s", e.Expression, e.Position, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// EvaluationError reports a runtime failure of a filter on one episode.
// FilterName is the preset name, or the expression for ad-hoc filters.
type EvaluationError struct {
	FilterName string
	Episode    *tvdb.Episode
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("filter %q failed on %s: %v", e.FilterName, e.Episode, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
