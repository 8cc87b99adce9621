// Package sim owns a single simulation: the grid, the Hamiltonian, the
// current wavefunction, the clock and the snapshot history. A Simulator is
// synchronous and not safe for concurrent use; run one per goroutine.
package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/qbox/internal/propagators"
	"github.com/san-kum/qbox/internal/quantum"
	"gonum.org/v1/gonum/floats"
)

type Simulator struct {
	grid quantum.Grid
	x    []float64
	ham  quantum.Hamiltonian
	prop quantum.Propagator
	dt   float64
	tau  float64

	psi   quantum.Wavefunction
	steps int

	history   *ring
	observers []quantum.Observer
}

func New(cfg Config) (*Simulator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	grid, err := quantum.NewGrid(cfg.Length, cfg.Points)
	if err != nil {
		return nil, err
	}
	kin := quantum.NewKinetic(cfg.Points, cfg.Mass, cfg.Hbar, grid.Dx())
	ham, err := quantum.NewHamiltonian(kin, cfg.Potential)
	if err != nil {
		return nil, err
	}

	prop := cfg.Propagator
	if prop == nil {
		prop = propagators.NewKrylov()
	}

	return &Simulator{
		grid:    grid,
		x:       grid.X(),
		ham:     ham,
		prop:    prop,
		dt:      cfg.Dt,
		tau:     cfg.Dt / cfg.Hbar,
		history: newRing(cfg.History),
	}, nil
}

func (s *Simulator) AddObserver(o quantum.Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Grid() quantum.Grid               { return s.grid }
func (s *Simulator) Hamiltonian() quantum.Hamiltonian { return s.ham }
func (s *Simulator) Propagator() quantum.Propagator   { return s.prop }
func (s *Simulator) Potential() []float64             { return s.ham.Potential() }
func (s *Simulator) Dt() float64                      { return s.dt }
func (s *Simulator) Steps() int                       { return s.steps }
func (s *Simulator) History() History                 { return s.history }
func (s *Simulator) Initialized() bool                { return s.psi != nil }

// Time is steps·dt; it restarts at zero on every installation.
func (s *Simulator) Time() float64 { return float64(s.steps) * s.dt }

// Wavefunction returns a copy of the current state.
func (s *Simulator) Wavefunction() (quantum.Wavefunction, error) {
	if s.psi == nil {
		return nil, quantum.ErrUninitialized
	}
	return s.psi.Clone(), nil
}

// SetInitialWavefunction normalizes psi0 to ∑|ψ|²dx = 1, installs it,
// resets the clock and restarts the history with it as frame 0.
func (s *Simulator) SetInitialWavefunction(psi0 []complex128) error {
	if len(psi0) != s.grid.Len() {
		return fmt.Errorf("%w: wavefunction has %d values, grid has %d", quantum.ErrDimensionMismatch, len(psi0), s.grid.Len())
	}
	psi, err := quantum.Wavefunction(psi0).Normalized(s.grid.Dx())
	if err != nil {
		return err
	}

	s.psi = psi
	s.steps = 0
	s.history.reset(Snapshot{Step: 0, Time: 0, Psi: psi.Clone()})
	s.notify()
	return nil
}

// Step advances the state by one dt. On failure the state, clock and
// history are left at the last completed step.
func (s *Simulator) Step() error {
	if s.psi == nil {
		return quantum.ErrUninitialized
	}

	next, err := s.prop.Propagate(s.ham, s.psi, s.tau)
	if err != nil {
		return &quantum.StepError{Step: s.steps + 1, Time: s.Time(), Wrapped: err}
	}
	if !next.IsValid() {
		return &quantum.StepError{Step: s.steps + 1, Time: s.Time(), Wrapped: quantum.ErrInvalidState}
	}

	s.psi = next
	s.steps++
	s.history.append(Snapshot{Step: s.steps, Time: s.Time(), Psi: next.Clone()})
	s.notify()
	return nil
}

// StepsFor returns floor(totalTime/dt). The fractional remainder is dropped.
func (s *Simulator) StepsFor(totalTime float64) (int, error) {
	if math.IsNaN(totalTime) || math.IsInf(totalTime, 0) || totalTime < 0 {
		return 0, fmt.Errorf("%w: total time must be finite and non-negative, got %g", quantum.ErrInvalidConfig, totalTime)
	}
	n := math.Floor(totalTime / s.dt)
	if n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %g steps requested", quantum.ErrInvalidConfig, n)
	}
	return int(n), nil
}

// Evolve performs StepsFor(totalTime) steps and returns how many completed.
// It stops at the first failing step.
func (s *Simulator) Evolve(totalTime float64) (int, error) {
	n, err := s.StepsFor(totalTime)
	if err != nil {
		return 0, err
	}
	if s.psi == nil {
		return 0, quantum.ErrUninitialized
	}
	for i := 0; i < n; i++ {
		if err := s.Step(); err != nil {
			return i, err
		}
	}
	return n, nil
}

// UpdatePotential replaces V. Only the diagonal of H is rebuilt; the
// wavefunction, clock and history are untouched.
func (s *Simulator) UpdatePotential(v []float64) error {
	if len(v) != s.grid.Len() {
		return fmt.Errorf("%w: potential has %d values, grid has %d", quantum.ErrDimensionMismatch, len(v), s.grid.Len())
	}
	ham, err := s.ham.WithPotential(v)
	if err != nil {
		return err
	}
	s.ham = ham
	if inv, ok := s.prop.(quantum.Invalidator); ok {
		inv.Invalidate()
	}
	return nil
}

// UpdatePotentialFunc evaluates fn on the grid positions and installs the
// result as the new potential.
func (s *Simulator) UpdatePotentialFunc(fn func(x []float64) []float64) error {
	if fn == nil {
		return fmt.Errorf("%w: nil potential function", quantum.ErrInvalidConfig)
	}
	return s.UpdatePotential(fn(s.grid.X()))
}

func (s *Simulator) ProbabilityDensity() ([]float64, error) {
	if s.psi == nil {
		return nil, quantum.ErrUninitialized
	}
	return s.psi.Density(), nil
}

// ExpectationPosition returns ⟨x⟩ = ∑ xᵢ|ψᵢ|²dx.
func (s *Simulator) ExpectationPosition() (float64, error) {
	if s.psi == nil {
		return 0, quantum.ErrUninitialized
	}
	return floats.Dot(s.x, s.psi.Density()) * s.grid.Dx(), nil
}

// ExpectationEnergy returns ⟨ψ|H|ψ⟩ for the current state and Hamiltonian.
func (s *Simulator) ExpectationEnergy() (float64, error) {
	if s.psi == nil {
		return 0, quantum.ErrUninitialized
	}
	return s.ham.Expectation(s.psi, s.grid.Dx()), nil
}

func (s *Simulator) notify() {
	if len(s.observers) == 0 {
		return
	}
	t := s.Time()
	for _, o := range s.observers {
		o.OnStep(s.steps, t, s.psi)
	}
}
