package quantum

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Grid is a uniform grid of N points over [0, L], endpoints included.
type Grid struct {
	x      []float64
	length float64
	dx     float64
}

// NewGrid builds a grid with spacing length/(n-1).
func NewGrid(length float64, n int) (Grid, error) {
	if n < 2 {
		return Grid{}, fmt.Errorf("%w: need at least 2 grid points, got %d", ErrInvalidConfig, n)
	}
	if !(length > 0) || math.IsInf(length, 0) {
		return Grid{}, fmt.Errorf("%w: box length must be positive, got %g", ErrInvalidConfig, length)
	}
	x := make([]float64, n)
	floats.Span(x, 0, length)
	return Grid{x: x, length: length, dx: length / float64(n-1)}, nil
}

func (g Grid) Len() int         { return len(g.x) }
func (g Grid) Dx() float64      { return g.dx }
func (g Grid) Length() float64  { return g.length }
func (g Grid) At(i int) float64 { return g.x[i] }
func (g Grid) IsZero() bool     { return g.x == nil }

// X returns a copy of the grid positions.
func (g Grid) X() []float64 {
	out := make([]float64, len(g.x))
	copy(out, g.x)
	return out
}

// Index returns the grid index closest to position p, clamped to the box.
func (g Grid) Index(p float64) int {
	if len(g.x) == 0 {
		return 0
	}
	i := int(math.Round(p / g.dx))
	if i < 0 {
		return 0
	}
	if i >= len(g.x) {
		return len(g.x) - 1
	}
	return i
}
