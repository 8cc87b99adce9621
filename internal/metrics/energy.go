package metrics

import (
	"math"

	"github.com/san-kum/qbox/internal/quantum"
)

// HamiltonianSource exposes the operator and grid a run is evolving under.
// *sim.Simulator satisfies it.
type HamiltonianSource interface {
	Hamiltonian() quantum.Hamiltonian
	Grid() quantum.Grid
}

// EnergyDrift tracks the largest relative deviation of ⟨H⟩ from its value at
// the most recent installation (step 0). A potential swap changes ⟨H⟩ by
// design, so drift is only meaningful between swaps.
type EnergyDrift struct {
	name     string
	src      HamiltonianSource
	initial  float64
	current  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift(src HamiltonianSource) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		src:  src,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) OnStep(step int, t float64, psi quantum.Wavefunction) {
	energy := e.src.Hamiltonian().Expectation(psi, e.src.Grid().Dx())

	if step == 0 || e.samples == 0 {
		e.initial = energy
		e.maxDrift = 0
	}
	e.current = energy
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(energy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64   { return e.maxDrift }
func (e *EnergyDrift) Current() float64 { return e.current }

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.current = 0
	e.maxDrift = 0
	e.samples = 0
}
