package metrics

import (
	"log/slog"

	"github.com/san-kum/qbox/internal/analysis"
	"github.com/san-kum/qbox/internal/quantum"
)

// Observation is one row of the observables table.
type Observation struct {
	Step     int     `csv:"step" json:"step"`
	Time     float64 `csv:"time" json:"time"`
	Norm     float64 `csv:"norm" json:"norm"`
	Position float64 `csv:"position" json:"position"`
	Width    float64 `csv:"width" json:"width"`
	Energy   float64 `csv:"energy" json:"energy"`
}

func (o Observation) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("step", o.Step),
		slog.Float64("time", o.Time),
		slog.Float64("norm", o.Norm),
		slog.Float64("position", o.Position),
		slog.Float64("energy", o.Energy),
	)
}

// Recorder samples observables every Stride steps. Step 0 is always kept.
type Recorder struct {
	src    HamiltonianSource
	stride int
	rows   []Observation
}

func NewRecorder(src HamiltonianSource, stride int) *Recorder {
	if stride < 1 {
		stride = 1
	}
	return &Recorder{src: src, stride: stride}
}

func (r *Recorder) OnStep(step int, t float64, psi quantum.Wavefunction) {
	if step == 0 {
		r.rows = r.rows[:0]
	} else if step%r.stride != 0 {
		return
	}
	r.rows = append(r.rows, r.observe(step, t, psi))
}

func (r *Recorder) observe(step int, t float64, psi quantum.Wavefunction) Observation {
	grid := r.src.Grid()
	dx := grid.Dx()
	mean, width := analysis.Moments(psi, grid)
	return Observation{
		Step:     step,
		Time:     t,
		Norm:     psi.NormSquared(dx),
		Position: mean,
		Width:    width,
		Energy:   r.src.Hamiltonian().Expectation(psi, dx),
	}
}

func (r *Recorder) Observations() []Observation {
	out := make([]Observation, len(r.rows))
	copy(out, r.rows)
	return out
}

func (r *Recorder) Latest() (Observation, bool) {
	if len(r.rows) == 0 {
		return Observation{}, false
	}
	return r.rows[len(r.rows)-1], true
}
