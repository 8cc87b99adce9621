package metrics

import (
	"math"

	"github.com/san-kum/qbox/internal/quantum"
	"gonum.org/v1/gonum/floats"
)

// PositionMean averages ⟨x⟩ over every observed step.
type PositionMean struct {
	name    string
	x       []float64
	dx      float64
	sum     float64
	samples int
}

func NewPositionMean(grid quantum.Grid) *PositionMean {
	return &PositionMean{
		name: "position_mean",
		x:    grid.X(),
		dx:   grid.Dx(),
	}
}

func (p *PositionMean) Name() string { return p.name }

func (p *PositionMean) OnStep(step int, t float64, psi quantum.Wavefunction) {
	p.sum += floats.Dot(p.x, psi.Density()) * p.dx
	p.samples++
}

func (p *PositionMean) Value() float64 {
	if p.samples == 0 {
		return math.NaN()
	}
	return p.sum / float64(p.samples)
}

func (p *PositionMean) Reset() {
	p.sum = 0
	p.samples = 0
}
