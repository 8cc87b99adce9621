package fields

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Gaussian returns (2πσ²)^(-1/4)·exp(-(x-x0)²/(4σ²))·exp(i·k0·x), a
// wavepacket centred at x0 moving with mean wavenumber k0.
func Gaussian(x []float64, x0, sigma, k0 float64) ([]complex128, error) {
	if err := finite("x0", x0); err != nil {
		return nil, err
	}
	if err := positive("sigma", sigma); err != nil {
		return nil, err
	}
	if err := finite("k0", k0); err != nil {
		return nil, err
	}
	norm := math.Pow(2*math.Pi*sigma*sigma, -0.25)
	psi := make([]complex128, len(x))
	for i, xi := range x {
		d := xi - x0
		env := norm * math.Exp(-d*d/(4*sigma*sigma))
		psi[i] = complex(env, 0) * cmplx.Exp(complex(0, k0*xi))
	}
	return psi, nil
}

// Eigenstate returns the n-th stationary state of the infinite well of
// width length, √(2/L)·sin(nπx/L).
func Eigenstate(x []float64, n int, length float64) ([]complex128, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: quantum number must be at least 1, got %d", ErrInvalidParameter, n)
	}
	if err := positive("length", length); err != nil {
		return nil, err
	}
	amp := math.Sqrt(2 / length)
	k := float64(n) * math.Pi / length
	psi := make([]complex128, len(x))
	for i, xi := range x {
		psi[i] = complex(amp*math.Sin(k*xi), 0)
	}
	return psi, nil
}

// Superposition returns (ψn1 + ψn2)/√2.
func Superposition(x []float64, n1, n2 int, length float64) ([]complex128, error) {
	a, err := Eigenstate(x, n1, length)
	if err != nil {
		return nil, err
	}
	b, err := Eigenstate(x, n2, length)
	if err != nil {
		return nil, err
	}
	for i := range a {
		a[i] = (a[i] + b[i]) / math.Sqrt2
	}
	return a, nil
}
