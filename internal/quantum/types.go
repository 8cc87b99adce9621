package quantum

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/cmplxs"
)

// Wavefunction holds ψ at each grid point.
type Wavefunction []complex128

func (w Wavefunction) Clone() Wavefunction {
	c := make(Wavefunction, len(w))
	copy(c, w)
	return c
}

func (w Wavefunction) IsValid() bool {
	for _, v := range w {
		if cmplx.IsNaN(v) || cmplx.IsInf(v) {
			return false
		}
	}
	return true
}

// NormSquared is the Riemann sum ∑|ψᵢ|²·dx.
func (w Wavefunction) NormSquared(dx float64) float64 {
	n := cmplxs.Norm(w, 2)
	return n * n * dx
}

// Density returns |ψᵢ|² pointwise.
func (w Wavefunction) Density() []float64 {
	out := make([]float64, len(w))
	for i, v := range w {
		out[i] = real(v)*real(v) + imag(v)*imag(v)
	}
	return out
}

// Normalized returns a copy scaled so that ∑|ψᵢ|²·dx = 1.
func (w Wavefunction) Normalized(dx float64) (Wavefunction, error) {
	if !w.IsValid() {
		return nil, ErrInvalidState
	}
	norm := math.Sqrt(w.NormSquared(dx))
	if norm == 0 || math.IsInf(norm, 0) {
		return nil, ErrInvalidState
	}
	out := w.Clone()
	cmplxs.Scale(complex(1/norm, 0), out)
	return out, nil
}

// Propagator computes the action of exp(-i·H·τ) on ψ, where τ = dt/ħ.
type Propagator interface {
	Name() string
	Propagate(h Hamiltonian, psi Wavefunction, tau float64) (Wavefunction, error)
}

// Invalidator is implemented by propagators that cache a representation of
// H. Invalidate is called whenever the Hamiltonian is replaced.
type Invalidator interface {
	Invalidate()
}

// Observer is notified after installation (step 0) and every completed step.
// psi must be treated as read-only.
type Observer interface {
	OnStep(step int, t float64, psi Wavefunction)
}

type Metric interface {
	Observer
	Name() string
	Value() float64
	Reset()
}
