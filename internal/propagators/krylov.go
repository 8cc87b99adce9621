package propagators

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/san-kum/qbox/internal/quantum"
	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/mat"
)

const (
	defaultKrylovDim   = 40
	defaultKrylovTol   = 1e-10
	defaultKrylovDepth = 16
	defaultKrylovPhase = 20
	krylovCheckEvery   = 4
)

// Krylov approximates exp(-iHτ)ψ by Lanczos iteration: H is projected onto
// span{ψ, Hψ, H²ψ, ...}, the small tridiagonal projection is exponentiated
// exactly, and the result is lifted back.
//
// τ is split up front into substeps of at most MaxPhase/‖H‖, using the
// Gershgorin bound of H. A substep whose error estimate still exceeds
// Tolerance at MaxDim is halved recursively up to MaxDepth times.
type Krylov struct {
	MaxDim    int
	Tolerance float64
	MaxDepth  int
	MaxPhase  float64

	basis []quantum.Wavefunction
}

func NewKrylov() *Krylov {
	return &Krylov{
		MaxDim:    defaultKrylovDim,
		Tolerance: defaultKrylovTol,
		MaxDepth:  defaultKrylovDepth,
		MaxPhase:  defaultKrylovPhase,
	}
}

func (k *Krylov) Name() string { return "krylov" }

func (k *Krylov) ensureBasis(m, n int) {
	if len(k.basis) >= m && len(k.basis[0]) == n {
		return
	}
	k.basis = make([]quantum.Wavefunction, m)
	for i := range k.basis {
		k.basis[i] = make(quantum.Wavefunction, n)
	}
}

func (k *Krylov) Propagate(h quantum.Hamiltonian, psi quantum.Wavefunction, tau float64) (quantum.Wavefunction, error) {
	if len(psi) != h.Size() {
		return nil, fmt.Errorf("%w: state has %d values, operator has %d", quantum.ErrDimensionMismatch, len(psi), h.Size())
	}
	steps := k.substeps(h, tau)
	sub := tau / float64(steps)
	out := psi
	for i := 0; i < steps; i++ {
		next, err := k.propagate(h, out, sub, 0)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

// substeps is the number of equal pieces τ is cut into so that each piece
// has |τ|·‖H‖ <= MaxPhase.
func (k *Krylov) substeps(h quantum.Hamiltonian, tau float64) int {
	phase := k.MaxPhase
	if phase <= 0 {
		phase = defaultKrylovPhase
	}
	s := math.Ceil(math.Abs(tau) * h.SpectralBound() / phase)
	if s < 1 || math.IsNaN(s) {
		return 1
	}
	return int(s)
}

func (k *Krylov) propagate(h quantum.Hamiltonian, psi quantum.Wavefunction, tau float64, depth int) (quantum.Wavefunction, error) {
	out, est, err := k.expAction(h, psi, tau)
	if err != nil {
		return nil, err
	}
	if est <= k.Tolerance {
		return out, nil
	}
	if depth >= k.MaxDepth {
		return nil, fmt.Errorf("%w: krylov error estimate %.3g after %d halvings", quantum.ErrNotConverged, est, depth)
	}
	half, err := k.propagate(h, psi, tau/2, depth+1)
	if err != nil {
		return nil, err
	}
	return k.propagate(h, half, tau/2, depth+1)
}

// expAction runs one Lanczos pass and returns the lifted result with its
// relative error estimate.
func (k *Krylov) expAction(h quantum.Hamiltonian, psi quantum.Wavefunction, tau float64) (quantum.Wavefunction, float64, error) {
	n := len(psi)
	norm := cmplxs.Norm(psi, 2)
	if norm == 0 {
		return psi.Clone(), 0, nil
	}

	m := k.MaxDim
	if m > n {
		m = n
	}
	if m < 1 {
		m = 1
	}
	k.ensureBasis(m+1, n)
	v := k.basis

	copy(v[0], psi)
	cmplxs.Scale(complex(1/norm, 0), v[0])

	alpha := make([]float64, 0, m)
	beta := make([]float64, 0, m)

	var y []complex128
	est := math.Inf(1)
	for j := 0; j < m; j++ {
		w := v[j+1]
		h.Apply(w, v[j])

		// Gram-Schmidt against the whole basis, twice.
		var a float64
		for pass := 0; pass < 2; pass++ {
			for i := 0; i <= j; i++ {
				c := cmplxs.Dot(v[i], w)
				if i == j {
					a += real(c)
				}
				cmplxs.AddScaled(w, -c, v[i])
			}
		}
		alpha = append(alpha, a)

		b := cmplxs.Norm(w, 2)
		invariant := b <= 1e-13*math.Max(1, math.Abs(a))
		last := invariant || j == m-1

		if last || (j+1)%krylovCheckEvery == 0 {
			var err error
			y, err = expTridiagonal(alpha, beta, tau)
			if err != nil {
				return nil, 0, err
			}
			if invariant {
				est = 0
			} else {
				est = b * cmplx.Abs(y[len(y)-1])
			}
			if est <= k.Tolerance || last {
				break
			}
		}

		beta = append(beta, b)
		cmplxs.Scale(complex(1/b, 0), w)
	}

	out := make(quantum.Wavefunction, n)
	for r, c := range y {
		cmplxs.AddScaled(out, complex(norm, 0)*c, v[r])
	}
	return out, est, nil
}

// expTridiagonal returns exp(-iτT)e₁ for the symmetric tridiagonal T with
// diagonal alpha and off-diagonal beta[:len(alpha)-1].
func expTridiagonal(alpha, beta []float64, tau float64) ([]complex128, error) {
	m := len(alpha)
	t := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		t.SetSym(i, i, alpha[i])
		if i+1 < m {
			t.SetSym(i, i+1, beta[i])
		}
	}

	var es mat.EigenSym
	if !es.Factorize(t, true) {
		return nil, fmt.Errorf("%w: eigendecomposition of %dx%d Lanczos matrix failed", quantum.ErrNotConverged, m, m)
	}
	vals := es.Values(nil)
	var q mat.Dense
	es.VectorsTo(&q)

	phases := make([]complex128, m)
	for l, lambda := range vals {
		phases[l] = cmplx.Exp(complex(0, -tau*lambda)) * complex(q.At(0, l), 0)
	}

	y := make([]complex128, m)
	for r := 0; r < m; r++ {
		var acc complex128
		for l := 0; l < m; l++ {
			acc += complex(q.At(r, l), 0) * phases[l]
		}
		y[r] = acc
	}
	return y, nil
}
