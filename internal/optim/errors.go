package optim

import (
	"errors"
	"fmt"
)

var (
	ErrNumericDivergence = errors.New("optim: non-finite energy or gradient")
	ErrInvalidOptions    = errors.New("optim: invalid options")
)

// NumericDivergenceError reports a NaN or Inf produced mid-run. X is the last
// point at which energy and gradient were finite.
type NumericDivergenceError struct {
	Iteration int
	What      string
	X         []float64
}

func (e *NumericDivergenceError) Error() string {
	return fmt.Sprintf("optim: non-finite %s at iteration %d", e.What, e.Iteration)
}

func (e *NumericDivergenceError) Unwrap() error { return ErrNumericDivergence }
