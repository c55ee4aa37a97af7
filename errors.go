package kalman

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidParameter is returned for malformed model or noise parameters.
	ErrInvalidParameter = errors.New("kalman: invalid parameter")

	// ErrNumerical matches every *NumericalError via errors.Is.
	ErrNumerical = errors.New("kalman: numerical error")
)

// NumericalError reports a matrix that could not be inverted during an
// update. The filter state is left untouched when it is returned.
type NumericalError struct {
	Op   string  // operation that failed, e.g. "update"
	Cond float64 // condition number reported by the solver, +Inf if singular
	Err  error
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("kalman: %s: innovation covariance not invertible (cond=%g): %v", e.Op, e.Cond, e.Err)
}

func (e *NumericalError) Unwrap() error { return e.Err }

func (e *NumericalError) Is(target error) bool { return target == ErrNumerical }

func newNumericalError(op string, err error) *NumericalError {
	cond := math.Inf(1)
	var c mat.Condition
	if errors.As(err, &c) {
		cond = float64(c)
	}
	return &NumericalError{Op: op, Cond: cond, Err: err}
}
