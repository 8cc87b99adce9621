package metrics

import (
	"math"

	"github.com/san-kum/qbox/internal/quantum"
)

// NormDrift is the largest |∑|ψ|²dx - 1| seen so far.
type NormDrift struct {
	name  string
	dx    float64
	worst float64
}

func NewNormDrift(grid quantum.Grid) *NormDrift {
	return &NormDrift{
		name: "norm_drift",
		dx:   grid.Dx(),
	}
}

func (n *NormDrift) Name() string { return n.name }

func (n *NormDrift) OnStep(step int, t float64, psi quantum.Wavefunction) {
	n.worst = math.Max(n.worst, math.Abs(psi.NormSquared(n.dx)-1))
}

func (n *NormDrift) Value() float64 { return n.worst }

func (n *NormDrift) Reset() {
	n.worst = 0
}
