package quantum

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Kinetic is the finite-difference kinetic operator -ħ²/(2m) d²/dx² on a
// uniform grid: 2k on the diagonal and -k on both off-diagonals, with
// k = ħ²/(2·m·dx²). Points outside the box are treated as ψ = 0.
type Kinetic struct {
	n     int
	coeff float64
}

// NewKinetic derives the kinetic operator from mass, ħ and grid spacing.
func NewKinetic(n int, mass, hbar, dx float64) Kinetic {
	return Kinetic{n: n, coeff: hbar * hbar / (2 * mass * dx * dx)}
}

func (k Kinetic) Size() int            { return k.n }
func (k Kinetic) Coefficient() float64 { return k.coeff }
func (k Kinetic) Diagonal() float64    { return 2 * k.coeff }
func (k Kinetic) OffDiagonal() float64 { return -k.coeff }

// Hamiltonian is H = T + V with T tridiagonal and V diagonal. The two terms
// are stored separately; only V changes when the potential is replaced.
type Hamiltonian struct {
	kinetic   Kinetic
	potential []float64
}

// NewHamiltonian combines a kinetic term with a potential. A nil potential
// is the flat (infinite well) profile.
func NewHamiltonian(k Kinetic, v []float64) (Hamiltonian, error) {
	if k.n < 2 {
		return Hamiltonian{}, fmt.Errorf("%w: kinetic operator has %d points", ErrInvalidConfig, k.n)
	}
	pot := make([]float64, k.n)
	if v != nil {
		if len(v) != k.n {
			return Hamiltonian{}, fmt.Errorf("%w: potential has %d values, grid has %d", ErrDimensionMismatch, len(v), k.n)
		}
		if !finite(v) {
			return Hamiltonian{}, fmt.Errorf("%w: potential contains NaN or Inf", ErrInvalidConfig)
		}
		copy(pot, v)
	}
	return Hamiltonian{kinetic: k, potential: pot}, nil
}

// WithPotential returns a new Hamiltonian sharing the kinetic term and
// holding a copy of v. The receiver is left untouched.
func (h Hamiltonian) WithPotential(v []float64) (Hamiltonian, error) {
	if v == nil {
		return Hamiltonian{}, fmt.Errorf("%w: nil potential", ErrDimensionMismatch)
	}
	return NewHamiltonian(h.kinetic, v)
}

func (h Hamiltonian) Kinetic() Kinetic { return h.kinetic }
func (h Hamiltonian) Size() int        { return h.kinetic.n }

// Potential returns a copy of the diagonal potential term.
func (h Hamiltonian) Potential() []float64 {
	out := make([]float64, len(h.potential))
	copy(out, h.potential)
	return out
}

// DiagonalAt is the full diagonal entry 2k + V_i.
func (h Hamiltonian) DiagonalAt(i int) float64 {
	return h.kinetic.Diagonal() + h.potential[i]
}

// Apply writes Hψ into dst. dst and psi must not alias.
func (h Hamiltonian) Apply(dst, psi Wavefunction) {
	n := h.kinetic.n
	d := h.kinetic.Diagonal()
	off := complex(h.kinetic.OffDiagonal(), 0)
	for i := 0; i < n; i++ {
		acc := complex(d+h.potential[i], 0) * psi[i]
		if i > 0 {
			acc += off * psi[i-1]
		}
		if i < n-1 {
			acc += off * psi[i+1]
		}
		dst[i] = acc
	}
}

// Expectation returns <ψ|H|ψ>·dx, the energy of a normalized state.
func (h Hamiltonian) Expectation(psi Wavefunction, dx float64) float64 {
	hpsi := make(Wavefunction, len(psi))
	h.Apply(hpsi, psi)
	sum := 0.0
	for i := range psi {
		sum += real(conj(psi[i]) * hpsi[i])
	}
	return sum * dx
}

// SpectralBound is a Gershgorin bound on the largest eigenvalue magnitude.
func (h Hamiltonian) SpectralBound() float64 {
	vmax := math.Max(math.Abs(floats.Max(h.potential)), math.Abs(floats.Min(h.potential)))
	return 4*h.kinetic.coeff + vmax
}

// Band returns H as a gonum symmetric band matrix with one off-diagonal.
func (h Hamiltonian) Band() *mat.SymBandDense {
	n := h.kinetic.n
	data := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		data[2*i] = h.DiagonalAt(i)
		if i < n-1 {
			data[2*i+1] = h.kinetic.OffDiagonal()
		}
	}
	return mat.NewSymBandDense(n, 1, data)
}

// Dense expands H into a dense symmetric matrix. Use only for small grids.
func (h Hamiltonian) Dense() *mat.SymDense {
	n := h.kinetic.n
	d := mat.NewSymDense(n, nil)
	d.CopySym(h.Band())
	return d
}

func conj(c complex128) complex128 { return complex(real(c), -imag(c)) }

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
