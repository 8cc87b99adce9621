package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/qbox/internal/quantum"
)

// Config describes a simulator. The zero values of Potential, Propagator
// and History select a flat potential, the Krylov propagator and full
// history retention.
type Config struct {
	Length float64
	Mass   float64
	Hbar   float64
	Dt     float64
	Points int

	Potential  []float64
	Propagator quantum.Propagator
	History    HistoryPolicy
}

// DefaultConfig returns L=1, N=500, m=1, ħ=1, dt=0.001 with a flat potential.
func DefaultConfig() Config {
	return Config{
		Length: 1.0,
		Mass:   1.0,
		Hbar:   1.0,
		Dt:     0.001,
		Points: 500,
	}
}

func (c Config) validate() error {
	check := func(name string, v float64) error {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be positive, got %g", quantum.ErrInvalidConfig, name, v)
		}
		return nil
	}
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"length", c.Length},
		{"mass", c.Mass},
		{"hbar", c.Hbar},
		{"dt", c.Dt},
	} {
		if err := check(p.name, p.v); err != nil {
			return err
		}
	}
	if c.Points < 2 {
		return fmt.Errorf("%w: need at least 2 grid points, got %d", quantum.ErrInvalidConfig, c.Points)
	}
	if c.Potential != nil && len(c.Potential) != c.Points {
		return fmt.Errorf("%w: potential has %d values, grid has %d", quantum.ErrDimensionMismatch, len(c.Potential), c.Points)
	}
	return c.History.validate()
}
