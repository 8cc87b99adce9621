package analysis

import (
	"math"
	"sort"

	"github.com/mjibson/go-dsp/fft"
	"github.com/san-kum/qbox/internal/quantum"
)

// MomentumDistribution is |φ(k)|² sampled on the FFT wavenumbers, sorted by
// k and normalized so that ∑ρ·dk = 1.
type MomentumDistribution struct {
	K       []float64
	Density []float64
	Dk      float64
}

// Momentum transforms psi to wavenumber space. Multiply K by ħ for momentum.
func Momentum(psi quantum.Wavefunction, dx float64) MomentumDistribution {
	n := len(psi)
	if n == 0 {
		return MomentumDistribution{}
	}
	spec := fft.FFT([]complex128(psi))
	dk := 2 * math.Pi / (float64(n) * dx)

	idx := make([]int, n)
	k := make([]float64, n)
	for j := range k {
		f := j
		if j >= (n+1)/2 {
			f = j - n
		}
		k[j] = float64(f) * dk
		idx[j] = j
	}
	sort.Slice(idx, func(a, b int) bool { return k[idx[a]] < k[idx[b]] })

	out := MomentumDistribution{
		K:       make([]float64, n),
		Density: make([]float64, n),
		Dk:      dk,
	}
	total := 0.0
	for i, j := range idx {
		c := spec[j]
		out.K[i] = k[j]
		out.Density[i] = real(c)*real(c) + imag(c)*imag(c)
		total += out.Density[i]
	}
	if total > 0 {
		for i := range out.Density {
			out.Density[i] /= total * dk
		}
	}
	return out
}

// Mean returns ⟨k⟩.
func (m MomentumDistribution) Mean() float64 {
	s := 0.0
	for i, k := range m.K {
		s += k * m.Density[i]
	}
	return s * m.Dk
}
