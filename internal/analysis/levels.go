package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/qbox/internal/quantum"
	"gonum.org/v1/gonum/mat"
)

// Level is a stationary state of the discrete Hamiltonian.
type Level struct {
	N      int
	Energy float64
	State  quantum.Wavefunction
}

// EnergyLevels diagonalizes h and returns its count lowest levels, each
// state normalized to ∑|ψ|²dx = 1 with a positive first lobe.
func EnergyLevels(h quantum.Hamiltonian, dx float64, count int) ([]Level, error) {
	n := h.Size()
	if count < 1 || count > n {
		return nil, fmt.Errorf("%w: cannot take %d levels of a %d point grid", quantum.ErrInvalidConfig, count, n)
	}

	var es mat.EigenSym
	if !es.Factorize(h.Band(), true) {
		return nil, fmt.Errorf("%w: eigendecomposition failed", quantum.ErrNotConverged)
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	scale := 1 / math.Sqrt(dx)
	levels := make([]Level, count)
	for l := 0; l < count; l++ {
		state := make(quantum.Wavefunction, n)
		sign := 1.0
		for i := 0; i < n; i++ {
			if v := vecs.At(i, l); math.Abs(v) > 1e-12 {
				if v < 0 {
					sign = -1
				}
				break
			}
		}
		for i := range state {
			state[i] = complex(sign*scale*vecs.At(i, l), 0)
		}
		levels[l] = Level{N: l + 1, Energy: vals[l], State: state}
	}
	return levels, nil
}

// InfiniteWellLevels returns Eₙ = n²π²ħ²/(2mL²) for n = 1..count.
func InfiniteWellLevels(count int, mass, hbar, length float64) []float64 {
	out := make([]float64, count)
	base := math.Pi * math.Pi * hbar * hbar / (2 * mass * length * length)
	for i := range out {
		n := float64(i + 1)
		out[i] = n * n * base
	}
	return out
}
