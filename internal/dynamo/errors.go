package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrDimensionMismatch indicates the Brownian array, time grid and
	// initial condition disagree on path or time-point counts.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between brownian, times and initial condition")

	// ErrOutOfRange indicates a step was requested after the last grid point.
	ErrOutOfRange = errors.New("dynamo: no grid points left to advance to")

	// ErrDomain indicates a coefficient was evaluated outside its valid domain.
	ErrDomain = errors.New("dynamo: coefficient evaluated outside its domain")

	// ErrInvalidGrid indicates a time grid with fewer than two points or a
	// non-positive increment.
	ErrInvalidGrid = errors.New("dynamo: time grid must be strictly increasing with at least two points")

	// ErrInvalidState indicates a step produced NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrInvalidScheme indicates a missing or unusable scheme.
	ErrInvalidScheme = errors.New("dynamo: invalid scheme")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	Path    int
	Wrapped error
}

func (e *SimulationError) Error() string {
	if e.Path < 0 {
		return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
	}
	return fmt.Sprintf("step %d (t=%.4f) path %d: %v", e.Step, e.Time, e.Path, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// DomainError reports a coefficient evaluated outside its domain.
func DomainError(coef string, t, x float64) error {
	return fmt.Errorf("%w: %s(t=%g, x=%g)", ErrDomain, coef, t, x)
}
