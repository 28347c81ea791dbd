package layout

import (
	"errors"
	"fmt"
)

var (
	// ErrStateDecode indicates a malformed description.
	ErrStateDecode = errors.New("layout: malformed state description")

	// ErrDidNotConverge indicates the step ceiling was reached.
	ErrDidNotConverge = errors.New("layout: did not converge")

	errNoStart = errors.New("layout: every start diverged")
)

// StateDecodeError reports why a description could not become a State.
type StateDecodeError struct {
	Shape   string
	Field   string
	Message string
	Cause   error
}

func (e *StateDecodeError) Error() string {
	msg := "layout: decode"
	if e.Shape != "" {
		msg += fmt.Sprintf(" shape %q", e.Shape)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" field %q", e.Field)
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StateDecodeError) Is(target error) bool { return target == ErrStateDecode }

func (e *StateDecodeError) Unwrap() error { return e.Cause }

func decodeErr(shape, field, format string, args ...any) *StateDecodeError {
	return &StateDecodeError{Shape: shape, Field: field, Message: fmt.Sprintf(format, args...)}
}

// DidNotConvergeWarning is returned alongside a usable State when the step
// ceiling is reached before the gradient norm falls below threshold.
type DidNotConvergeWarning struct {
	Steps    int
	Energy   float64
	GradNorm float64
}

func (w *DidNotConvergeWarning) Error() string {
	return fmt.Sprintf("layout: did not converge after %d steps (energy %.6g, grad norm %.6g)", w.Steps, w.Energy, w.GradNorm)
}

func (w *DidNotConvergeWarning) Unwrap() error { return ErrDidNotConverge }

// IsWarning reports whether err only signals a best-effort result.
func IsWarning(err error) bool {
	var w *DidNotConvergeWarning
	return errors.As(err, &w)
}
