package propagators

import (
	"fmt"
	"math/cmplx"

	"github.com/san-kum/qbox/internal/quantum"
	"gonum.org/v1/gonum/mat"
)

// Eigen diagonalizes H once, H = QΛQᵀ, and evolves ψ as Q·exp(-iτΛ)·Qᵀψ.
// Factorization is O(N³) and each step O(N²), so it suits small grids.
// The factorization is reused until the Hamiltonian changes.
type Eigen struct {
	values  []float64
	vectors *mat.Dense

	kinetic   quantum.Kinetic
	potential []float64
	valid     bool

	re, im, cr, ci *mat.VecDense
}

func NewEigen() *Eigen {
	return &Eigen{}
}

func (e *Eigen) Name() string { return "eigen" }

// Invalidate drops the cached factorization.
func (e *Eigen) Invalidate() {
	e.valid = false
	e.values = nil
	e.vectors = nil
	e.potential = nil
}

func (e *Eigen) matches(h quantum.Hamiltonian) bool {
	if !e.valid || h.Kinetic() != e.kinetic || len(e.potential) != h.Size() {
		return false
	}
	v := h.Potential()
	for i := range v {
		if v[i] != e.potential[i] {
			return false
		}
	}
	return true
}

func (e *Eigen) factorize(h quantum.Hamiltonian) error {
	var es mat.EigenSym
	if !es.Factorize(h.Dense(), true) {
		return fmt.Errorf("%w: eigendecomposition of %dx%d Hamiltonian failed", quantum.ErrNotConverged, h.Size(), h.Size())
	}
	e.values = es.Values(nil)
	e.vectors = &mat.Dense{}
	es.VectorsTo(e.vectors)
	e.kinetic = h.Kinetic()
	e.potential = h.Potential()

	n := h.Size()
	e.re = mat.NewVecDense(n, nil)
	e.im = mat.NewVecDense(n, nil)
	e.cr = mat.NewVecDense(n, nil)
	e.ci = mat.NewVecDense(n, nil)
	e.valid = true
	return nil
}

// Eigenpairs returns the cached eigenvalues and eigenvectors (columns),
// factorizing h if needed.
func (e *Eigen) Eigenpairs(h quantum.Hamiltonian) ([]float64, *mat.Dense, error) {
	if !e.matches(h) {
		if err := e.factorize(h); err != nil {
			return nil, nil, err
		}
	}
	return e.values, e.vectors, nil
}

func (e *Eigen) Propagate(h quantum.Hamiltonian, psi quantum.Wavefunction, tau float64) (quantum.Wavefunction, error) {
	n := h.Size()
	if len(psi) != n {
		return nil, fmt.Errorf("%w: state has %d values, operator has %d", quantum.ErrDimensionMismatch, len(psi), n)
	}
	if _, _, err := e.Eigenpairs(h); err != nil {
		return nil, err
	}

	for i, c := range psi {
		e.re.SetVec(i, real(c))
		e.im.SetVec(i, imag(c))
	}
	e.cr.MulVec(e.vectors.T(), e.re)
	e.ci.MulVec(e.vectors.T(), e.im)

	for l, lambda := range e.values {
		c := complex(e.cr.AtVec(l), e.ci.AtVec(l)) * cmplx.Exp(complex(0, -tau*lambda))
		e.cr.SetVec(l, real(c))
		e.ci.SetVec(l, imag(c))
	}

	e.re.MulVec(e.vectors, e.cr)
	e.im.MulVec(e.vectors, e.ci)

	out := make(quantum.Wavefunction, n)
	for i := range out {
		out[i] = complex(e.re.AtVec(i), e.im.AtVec(i))
	}
	return out, nil
}
