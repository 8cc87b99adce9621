package automation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/san-kum/qbox/internal/analysis"
	"github.com/san-kum/qbox/internal/config"
	"github.com/san-kum/qbox/internal/experiment"
	"github.com/san-kum/qbox/internal/quantum"
	"github.com/san-kum/qbox/internal/sim"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted run: one simulator carried through a sequence of
// phases, each of which may swap the potential or reinstall a state first.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Preset      string         `yaml:"preset"`
	Config      *config.Config `yaml:"config"`
	Phases      []Phase        `yaml:"phases"`
}

type Phase struct {
	Name      string                  `yaml:"name"`
	Duration  float64                 `yaml:"duration"`
	Potential *config.PotentialConfig `yaml:"potential"`
	Initial   *config.StateConfig     `yaml:"initial"`
}

// PhaseResult summarises the state at the end of a phase.
type PhaseResult struct {
	Phase        string  `json:"phase" csv:"phase"`
	Steps        int     `json:"steps" csv:"steps"`
	Time         float64 `json:"time" csv:"time"`
	Norm         float64 `json:"norm" csv:"norm"`
	Position     float64 `json:"position" csv:"position"`
	Width        float64 `json:"width" csv:"width"`
	Energy       float64 `json:"energy" csv:"energy"`
	Transmission float64 `json:"transmission" csv:"transmission"`
	Reflection   float64 `json:"reflection" csv:"reflection"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Phases) == 0 {
		return nil, fmt.Errorf("%w: scenario %q has no phases", quantum.ErrInvalidConfig, scenario.Name)
	}
	return &scenario, nil
}

// BaseConfig resolves the scenario's starting configuration: the inline
// config if present, else the named preset, else the defaults.
func (s *Scenario) BaseConfig() (*config.Config, error) {
	switch {
	case s.Config != nil:
		return s.Config.Clone(), nil
	case s.Preset != "":
		cfg := config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("%w: unknown preset %q", quantum.ErrInvalidConfig, s.Preset)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

// RunScenario executes all phases in order on a single simulator.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, logger *slog.Logger) ([]PhaseResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = experiment.NewRegistry()
	}
	cfg, err := scenario.BaseConfig()
	if err != nil {
		return nil, err
	}

	exp := experiment.New(cfg, registry, logger)
	if err := exp.Setup(); err != nil {
		return nil, fmt.Errorf("scenario %s setup: %w", scenario.Name, err)
	}
	s := exp.Simulator()
	x := s.Grid().X()

	results := make([]PhaseResult, 0, len(scenario.Phases))
	for i, phase := range scenario.Phases {
		name := phase.Name
		if name == "" {
			name = fmt.Sprintf("phase-%d", i+1)
		}
		logger.Info("phase started", "scenario", scenario.Name, "phase", name, "index", i+1, "of", len(scenario.Phases))

		if phase.Potential != nil {
			v, err := registry.Potential(x, *phase.Potential, cfg.Mass)
			if err != nil {
				return results, fmt.Errorf("phase %s: %w", name, err)
			}
			if err := s.UpdatePotential(v); err != nil {
				return results, fmt.Errorf("phase %s: %w", name, err)
			}
		}
		if phase.Initial != nil {
			psi, err := registry.State(x, *phase.Initial, cfg.Length)
			if err != nil {
				return results, fmt.Errorf("phase %s: %w", name, err)
			}
			if err := s.SetInitialWavefunction(psi); err != nil {
				return results, fmt.Errorf("phase %s: %w", name, err)
			}
		}

		if err := sim.EvolveContext(ctx, s, phase.Duration); err != nil {
			return results, fmt.Errorf("phase %s: %w", name, err)
		}

		res, err := summarise(name, s, cfg.Output.Cut)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func summarise(name string, s *sim.Simulator, cut float64) (PhaseResult, error) {
	psi, err := s.Wavefunction()
	if err != nil {
		return PhaseResult{}, err
	}
	grid := s.Grid()
	mean, width := analysis.Moments(psi, grid)
	return PhaseResult{
		Phase:        name,
		Steps:        s.Steps(),
		Time:         s.Time(),
		Norm:         psi.NormSquared(grid.Dx()),
		Position:     mean,
		Width:        width,
		Energy:       analysis.Energy(s.Hamiltonian(), psi, grid),
		Transmission: analysis.Transmission(psi, grid, cut),
		Reflection:   analysis.Reflection(psi, grid, cut),
	}, nil
}

// MonteCarloConfig jitters the initial packet of a base configuration.
// Each trial draws x0 and k0 uniformly within ±Jitter of the base values.
type MonteCarloConfig struct {
	Base      *config.Config
	JitterX0  float64
	JitterK0  float64
	NumTrials int
	Workers   int
	Seed      int64
}

type MonteCarloResult struct {
	TrialID      int     `json:"trial" csv:"trial"`
	X0           float64 `json:"x0" csv:"x0"`
	K0           float64 `json:"k0" csv:"k0"`
	Transmission float64 `json:"transmission" csv:"transmission"`
	Position     float64 `json:"position" csv:"position"`
	Norm         float64 `json:"norm" csv:"norm"`
}

// RunMonteCarlo evolves NumTrials perturbed packets in parallel.
func RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig, registry *experiment.Registry) ([]MonteCarloResult, error) {
	if mc.Base == nil || mc.NumTrials < 1 {
		return nil, fmt.Errorf("%w: monte carlo needs a base config and at least one trial", quantum.ErrInvalidConfig)
	}
	if err := mc.Base.Validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		registry = experiment.NewRegistry()
	}

	seed := mc.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	results := make([]MonteCarloResult, mc.NumTrials)
	jobs := make([]sim.Job, mc.NumTrials)
	for trial := range jobs {
		cfg := mc.Base.Clone()
		cfg.Initial.X0 += (rng.Float64() - 0.5) * 2 * mc.JitterX0
		cfg.Initial.K0 += (rng.Float64() - 0.5) * 2 * mc.JitterK0
		results[trial] = MonteCarloResult{TrialID: trial, X0: cfg.Initial.X0, K0: cfg.Initial.K0}

		jobs[trial] = sim.Job{
			Duration: cfg.Duration,
			Build:    func() (*sim.Simulator, error) { return build(cfg, registry) },
		}
	}

	sims, err := sim.NewEnsemble(mc.Workers).Run(ctx, jobs)
	if err != nil {
		return nil, err
	}
	for i, s := range sims {
		psi, err := s.Wavefunction()
		if err != nil {
			return nil, err
		}
		results[i].Transmission = analysis.Transmission(psi, s.Grid(), mc.Base.Output.Cut)
		results[i].Position, _ = analysis.Moments(psi, s.Grid())
		results[i].Norm = psi.NormSquared(s.Grid().Dx())
	}
	return results, nil
}

func build(cfg *config.Config, registry *experiment.Registry) (*sim.Simulator, error) {
	s, psi0, err := experiment.Build(cfg, registry, sim.HistoryPolicy{Mode: sim.HistoryWindow, Window: 1})
	if err != nil {
		return nil, err
	}
	return s, s.SetInitialWavefunction(psi0)
}

// MonteCarloStats returns the mean and standard deviation of the
// transmitted probability across trials.
func MonteCarloStats(results []MonteCarloResult) (mean, stddev float64) {
	if len(results) == 0 {
		return math.NaN(), math.NaN()
	}
	t := make([]float64, len(results))
	for i, r := range results {
		t[i] = r.Transmission
	}
	if len(t) == 1 {
		return t[0], 0
	}
	return stat.MeanStdDev(t, nil)
}
