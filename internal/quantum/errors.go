package quantum

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidConfig indicates a non-positive length, mass, ħ or time step,
	// or fewer than two grid points.
	ErrInvalidConfig = errors.New("quantum: invalid configuration")

	// ErrDimensionMismatch indicates an array whose length differs from the grid.
	ErrDimensionMismatch = errors.New("quantum: dimension mismatch between array and grid")

	// ErrUninitialized indicates a step or query before a wavefunction was installed.
	ErrUninitialized = errors.New("quantum: wavefunction not initialized")

	// ErrInvalidState indicates a wavefunction with NaN/Inf amplitudes or zero norm.
	ErrInvalidState = errors.New("quantum: invalid state (NaN, Inf or zero norm)")

	// ErrNotConverged indicates the propagator could not reach its tolerance.
	ErrNotConverged = errors.New("quantum: propagator did not converge")
)

// StepError wraps an error with the step and clock at which it happened.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.6f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
