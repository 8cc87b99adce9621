package analysis

import (
	"math"

	"github.com/san-kum/qbox/internal/quantum"
	"gonum.org/v1/gonum/floats"
)

// Transmission is the probability found strictly to the right of cut.
func Transmission(psi quantum.Wavefunction, grid quantum.Grid, cut float64) float64 {
	return sideProbability(psi, grid, func(x float64) bool { return x > cut })
}

// Reflection is the probability found strictly to the left of cut.
func Reflection(psi quantum.Wavefunction, grid quantum.Grid, cut float64) float64 {
	return sideProbability(psi, grid, func(x float64) bool { return x < cut })
}

func sideProbability(psi quantum.Wavefunction, grid quantum.Grid, in func(float64) bool) float64 {
	density := psi.Density()
	sum := 0.0
	for i, d := range density {
		if in(grid.At(i)) {
			sum += d
		}
	}
	return sum * grid.Dx()
}

// Moments returns ⟨x⟩ and √(⟨x²⟩-⟨x⟩²) of a normalized state.
func Moments(psi quantum.Wavefunction, grid quantum.Grid) (mean, width float64) {
	x := grid.X()
	density := psi.Density()
	dx := grid.Dx()

	mean = floats.Dot(x, density) * dx
	floats.Mul(x, x)
	second := floats.Dot(x, density) * dx
	return mean, math.Sqrt(math.Max(second-mean*mean, 0))
}

// Energy returns ⟨ψ|H|ψ⟩.
func Energy(h quantum.Hamiltonian, psi quantum.Wavefunction, grid quantum.Grid) float64 {
	return h.Expectation(psi, grid.Dx())
}
