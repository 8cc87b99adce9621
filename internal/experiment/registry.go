package experiment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/qbox/internal/config"
	"github.com/san-kum/qbox/internal/fields"
	"github.com/san-kum/qbox/internal/metrics"
	"github.com/san-kum/qbox/internal/propagators"
	"github.com/san-kum/qbox/internal/quantum"
	"github.com/san-kum/qbox/internal/sim"
)

var (
	ErrUnknownPotential  = errors.New("experiment: unknown potential")
	ErrUnknownState      = errors.New("experiment: unknown initial state")
	ErrUnknownPropagator = errors.New("experiment: unknown propagator")
)

// PotentialFunc builds V on the grid positions x.
type PotentialFunc func(x []float64, p config.PotentialConfig, mass float64) ([]float64, error)

// StateFunc builds an unnormalized ψ₀ on the grid positions x.
type StateFunc func(x []float64, s config.StateConfig, length float64) ([]complex128, error)

type Registry struct {
	potentials  map[string]PotentialFunc
	states      map[string]StateFunc
	propagators map[string]func() quantum.Propagator
}

func NewRegistry() *Registry {
	r := &Registry{
		potentials:  make(map[string]PotentialFunc),
		states:      make(map[string]StateFunc),
		propagators: make(map[string]func() quantum.Propagator),
	}

	r.potentials["flat"] = func(x []float64, _ config.PotentialConfig, _ float64) ([]float64, error) {
		return fields.Flat(x), nil
	}
	r.potentials["barrier"] = func(x []float64, p config.PotentialConfig, _ float64) ([]float64, error) {
		return fields.Barrier(x, p.Height, p.Width, p.CenterIn(boxLength(x)))
	}
	r.potentials["double_barrier"] = func(x []float64, p config.PotentialConfig, _ float64) ([]float64, error) {
		return fields.DoubleBarrier(x, p.Height, p.Width, p.Separation)
	}
	r.potentials["harmonic"] = func(x []float64, p config.PotentialConfig, mass float64) ([]float64, error) {
		return fields.Harmonic(x, p.Omega, mass, p.CenterIn(boxLength(x)))
	}
	r.potentials["step"] = func(x []float64, p config.PotentialConfig, _ float64) ([]float64, error) {
		return fields.Step(x, p.Height, p.At)
	}

	r.states["gaussian"] = func(x []float64, s config.StateConfig, _ float64) ([]complex128, error) {
		return fields.Gaussian(x, s.X0, s.Sigma, s.K0)
	}
	r.states["eigenstate"] = func(x []float64, s config.StateConfig, length float64) ([]complex128, error) {
		return fields.Eigenstate(x, s.N, length)
	}
	r.states["superposition"] = func(x []float64, s config.StateConfig, length float64) ([]complex128, error) {
		return fields.Superposition(x, s.N1, s.N2, length)
	}

	r.propagators["krylov"] = func() quantum.Propagator { return propagators.NewKrylov() }
	r.propagators["eigen"] = func() quantum.Propagator { return propagators.NewEigen() }
	r.propagators["crank-nicolson"] = func() quantum.Propagator { return propagators.NewCrankNicolson() }

	return r
}

// boxLength recovers the box length from grid positions spanning [0, L].
func boxLength(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return x[len(x)-1]
}

func (r *Registry) RegisterPotential(name string, fn PotentialFunc) { r.potentials[name] = fn }
func (r *Registry) RegisterState(name string, fn StateFunc)         { r.states[name] = fn }

func (r *Registry) RegisterPropagator(name string, fn func() quantum.Propagator) {
	r.propagators[name] = fn
}

func (r *Registry) Potential(x []float64, p config.PotentialConfig, mass float64) ([]float64, error) {
	fn, ok := r.potentials[p.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPotential, p.Kind)
	}
	return fn(x, p, mass)
}

func (r *Registry) State(x []float64, s config.StateConfig, length float64) ([]complex128, error) {
	fn, ok := r.states[s.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, s.Kind)
	}
	return fn(x, s, length)
}

// Propagator returns a fresh propagator; instances are never shared.
func (r *Registry) Propagator(name string) (quantum.Propagator, error) {
	fn, ok := r.propagators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPropagator, name)
	}
	return fn(), nil
}

func (r *Registry) ListPotentials() []string  { return sortedKeys(r.potentials) }
func (r *Registry) ListStates() []string      { return sortedKeys(r.states) }
func (r *Registry) ListPropagators() []string { return sortedKeys(r.propagators) }

// DefaultMetrics returns the step metrics attached to every experiment.
func (r *Registry) DefaultMetrics(s *sim.Simulator) []quantum.Metric {
	return []quantum.Metric{
		metrics.NewNormDrift(s.Grid()),
		metrics.NewPositionMean(s.Grid()),
		metrics.NewEnergyDrift(s),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
