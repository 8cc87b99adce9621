package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/qbox/internal/analysis"
	"github.com/san-kum/qbox/internal/config"
	"github.com/san-kum/qbox/internal/metrics"
	"github.com/san-kum/qbox/internal/quantum"
	"github.com/san-kum/qbox/internal/sim"
)

// Result is everything a finished (or aborted) run produced.
type Result struct {
	Config       *config.Config
	Grid         []float64
	Potential    []float64
	Steps        int
	Time         float64
	Wall         time.Duration
	Metrics      map[string]float64
	Observations []metrics.Observation
	Frames       []sim.Snapshot
	Transmission float64
	Reflection   float64
}

func (r *Result) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("steps", r.Steps),
		slog.Float64("time", r.Time),
		slog.Duration("wall", r.Wall),
		slog.Float64("transmission", r.Transmission),
		slog.Float64("reflection", r.Reflection),
	)
}

type Experiment struct {
	cfg      *config.Config
	reg      *Registry
	log      *slog.Logger
	sim      *sim.Simulator
	metrics  []quantum.Metric
	recorder *metrics.Recorder
	frames   *frameSampler
}

func New(cfg *config.Config, reg *Registry, logger *slog.Logger) *Experiment {
	if reg == nil {
		reg = NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Experiment{cfg: cfg, reg: reg, log: logger}
}

// Setup validates the configuration, builds the simulator and installs the
// initial wavefunction.
func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	policy, err := e.historyPolicy()
	if err != nil {
		return err
	}
	s, psi0, err := Build(e.cfg, e.reg, policy)
	if err != nil {
		return err
	}

	e.metrics = e.reg.DefaultMetrics(s)
	for _, m := range e.metrics {
		s.AddObserver(m)
	}
	e.recorder = metrics.NewRecorder(s, e.cfg.Output.ObserveStride)
	s.AddObserver(e.recorder)
	e.frames = &frameSampler{stride: max(e.cfg.Output.FrameStride, 1)}
	s.AddObserver(e.frames)

	if err := s.SetInitialWavefunction(psi0); err != nil {
		return fmt.Errorf("initial state %s: %w", e.cfg.Initial.Kind, err)
	}
	e.sim = s

	e.log.Debug("experiment ready",
		"points", e.cfg.Points,
		"dt", e.cfg.Dt,
		"propagator", s.Propagator().Name(),
		"potential", e.cfg.Potential.Kind,
		"initial", e.cfg.Initial.Kind,
	)
	return nil
}

// Build constructs a simulator for cfg with its potential applied and
// returns the initial wavefunction separately, so callers can attach
// observers before installing it.
func Build(cfg *config.Config, reg *Registry, policy sim.HistoryPolicy) (*sim.Simulator, []complex128, error) {
	prop, err := reg.Propagator(cfg.Propagator)
	if err != nil {
		return nil, nil, err
	}
	s, err := sim.New(sim.Config{
		Length:     cfg.Length,
		Mass:       cfg.Mass,
		Hbar:       cfg.Hbar,
		Dt:         cfg.Dt,
		Points:     cfg.Points,
		Propagator: prop,
		History:    policy,
	})
	if err != nil {
		return nil, nil, err
	}

	x := s.Grid().X()
	v, err := reg.Potential(x, cfg.Potential, cfg.Mass)
	if err != nil {
		return nil, nil, fmt.Errorf("potential %s: %w", cfg.Potential.Kind, err)
	}
	if err := s.UpdatePotential(v); err != nil {
		return nil, nil, err
	}
	psi0, err := reg.State(x, cfg.Initial, cfg.Length)
	if err != nil {
		return nil, nil, fmt.Errorf("initial state %s: %w", cfg.Initial.Kind, err)
	}
	return s, psi0, nil
}

func (e *Experiment) historyPolicy() (sim.HistoryPolicy, error) {
	mode, err := sim.ParseHistoryMode(e.cfg.History.Mode)
	if err != nil {
		return sim.HistoryPolicy{}, err
	}
	p := sim.HistoryPolicy{Mode: mode, Window: e.cfg.History.Window}
	if mode == sim.HistoryStream {
		p.Sink = func(f sim.Snapshot) {
			e.log.Debug("frame", "step", f.Step, "time", f.Time)
		}
	}
	return p, nil
}

// Run evolves for the configured duration. A failed step still yields a
// Result covering the completed steps, alongside the error.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if e.sim == nil {
		return nil, errors.New("experiment: not set up")
	}

	start := time.Now()
	n, _ := e.sim.StepsFor(e.cfg.Duration)
	e.log.Info("run started", "steps", n, "duration", e.cfg.Duration, "propagator", e.sim.Propagator().Name())

	runErr := sim.EvolveContext(ctx, e.sim, e.cfg.Duration)
	res := e.collect(time.Since(start))

	if runErr != nil {
		e.log.Error("run aborted", "err", runErr, "completed", res.Steps)
		return res, runErr
	}
	e.log.Info("run complete", "result", res)
	return res, nil
}

func (e *Experiment) collect(wall time.Duration) *Result {
	s := e.sim
	res := &Result{
		Config:       e.cfg,
		Grid:         s.Grid().X(),
		Potential:    s.Potential(),
		Steps:        s.Steps(),
		Time:         s.Time(),
		Wall:         wall,
		Metrics:      make(map[string]float64, len(e.metrics)),
		Observations: e.recorder.Observations(),
		Frames:       append([]sim.Snapshot(nil), e.frames.frames...),
	}
	for _, m := range e.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	if psi, err := s.Wavefunction(); err == nil {
		res.Transmission = analysis.Transmission(psi, s.Grid(), e.cfg.Output.Cut)
		res.Reflection = analysis.Reflection(psi, s.Grid(), e.cfg.Output.Cut)
	}
	return res
}

func (e *Experiment) Simulator() *sim.Simulator { return e.sim }

// frameSampler keeps a copy of every stride-th state, independent of the
// simulator's history policy.
type frameSampler struct {
	stride int
	frames []sim.Snapshot
}

func (f *frameSampler) OnStep(step int, t float64, psi quantum.Wavefunction) {
	if step == 0 {
		f.frames = f.frames[:0]
	} else if step%f.stride != 0 {
		return
	}
	f.frames = append(f.frames, sim.Snapshot{Step: step, Time: t, Psi: psi.Clone()})
}

// Value looks up a named scalar of the result: any metric, or one of
// "transmission", "reflection", "steps", "time".
func (r *Result) Value(name string) (float64, bool) {
	switch name {
	case "transmission":
		return r.Transmission, true
	case "reflection":
		return r.Reflection, true
	case "steps":
		return float64(r.Steps), true
	case "time":
		return r.Time, true
	}
	v, ok := r.Metrics[name]
	return v, ok
}

// Run builds, sets up and runs one experiment.
func Run(ctx context.Context, cfg *config.Config, reg *Registry, logger *slog.Logger) (*Result, error) {
	exp := New(cfg, reg, logger)
	if err := exp.Setup(); err != nil {
		return nil, err
	}
	return exp.Run(ctx)
}
