package fields

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidParameter = errors.New("fields: invalid parameter")

// doubleBarrierStart is the centre of the first barrier of DoubleBarrier.
const doubleBarrierStart = 0.4

// Flat returns V = 0 everywhere.
func Flat(x []float64) []float64 {
	return make([]float64, len(x))
}

// Barrier returns height inside (center-width/2, center+width/2), 0 elsewhere.
func Barrier(x []float64, height, width, center float64) ([]float64, error) {
	if err := finite("height", height); err != nil {
		return nil, err
	}
	if err := finite("center", center); err != nil {
		return nil, err
	}
	if err := positive("width", width); err != nil {
		return nil, err
	}
	v := make([]float64, len(x))
	addWindow(v, x, height, center, width)
	return v, nil
}

// DoubleBarrier places two barriers of equal height and width, centred at
// 0.4 and 0.4+separation.
func DoubleBarrier(x []float64, height, width, separation float64) ([]float64, error) {
	if err := finite("height", height); err != nil {
		return nil, err
	}
	if err := positive("width", width); err != nil {
		return nil, err
	}
	if err := positive("separation", separation); err != nil {
		return nil, err
	}
	v := make([]float64, len(x))
	addWindow(v, x, height, doubleBarrierStart, width)
	addWindow(v, x, height, doubleBarrierStart+separation, width)
	return v, nil
}

// Harmonic returns ½·m·ω²·(x-center)².
func Harmonic(x []float64, omega, mass, center float64) ([]float64, error) {
	if err := positive("omega", omega); err != nil {
		return nil, err
	}
	if err := positive("mass", mass); err != nil {
		return nil, err
	}
	if err := finite("center", center); err != nil {
		return nil, err
	}
	v := make([]float64, len(x))
	for i, xi := range x {
		d := xi - center
		v[i] = 0.5 * mass * omega * omega * d * d
	}
	return v, nil
}

// Step returns height for x > at and 0 otherwise.
func Step(x []float64, height, at float64) ([]float64, error) {
	if err := finite("height", height); err != nil {
		return nil, err
	}
	if err := finite("at", at); err != nil {
		return nil, err
	}
	v := make([]float64, len(x))
	for i, xi := range x {
		if xi > at {
			v[i] = height
		}
	}
	return v, nil
}

func addWindow(v, x []float64, height, center, width float64) {
	lo, hi := center-width/2, center+width/2
	for i, xi := range x {
		if xi > lo && xi < hi {
			v[i] = height
		}
	}
}

func finite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be finite, got %g", ErrInvalidParameter, name, v)
	}
	return nil
}

func positive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidParameter, name, v)
	}
	return nil
}
