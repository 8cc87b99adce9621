package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/san-kum/qbox/internal/quantum"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLength   = 1.0
	DefaultPoints   = 500
	DefaultMass     = 1.0
	DefaultHbar     = 1.0
	DefaultDt       = 0.001
	DefaultDuration = 0.5
	DefaultX0       = 0.2
	DefaultSigma    = 0.05
	DefaultK0       = 50.0
	DefaultStride   = 10
)

var ErrUnknownParam = errors.New("config: unknown parameter")

type Config struct {
	Length     float64         `yaml:"length"`
	Points     int             `yaml:"points"`
	Mass       float64         `yaml:"mass"`
	Hbar       float64         `yaml:"hbar"`
	Dt         float64         `yaml:"dt"`
	Duration   float64         `yaml:"duration"`
	Propagator string          `yaml:"propagator"`
	Potential  PotentialConfig `yaml:"potential"`
	Initial    StateConfig     `yaml:"initial"`
	History    HistoryConfig   `yaml:"history"`
	Output     OutputConfig    `yaml:"output"`
}

// PotentialConfig parameterizes the potential generators. A nil Center
// places barrier and harmonic potentials in the middle of the box.
type PotentialConfig struct {
	Kind       string   `yaml:"kind"`
	Height     float64  `yaml:"height,omitempty"`
	Width      float64  `yaml:"width,omitempty"`
	Center     *float64 `yaml:"center,omitempty"`
	Separation float64  `yaml:"separation,omitempty"`
	Omega      float64  `yaml:"omega,omitempty"`
	At         float64  `yaml:"at,omitempty"`
}

// CenterIn resolves Center for a box of the given length.
func (p PotentialConfig) CenterIn(length float64) float64 {
	if p.Center == nil {
		return length / 2
	}
	return *p.Center
}

// SetCenter stores a copy of c as the potential center.
func (p *PotentialConfig) SetCenter(c float64) {
	p.Center = &c
}

type StateConfig struct {
	Kind  string  `yaml:"kind"`
	X0    float64 `yaml:"x0,omitempty"`
	Sigma float64 `yaml:"sigma,omitempty"`
	K0    float64 `yaml:"k0,omitempty"`
	N     int     `yaml:"n,omitempty"`
	N1    int     `yaml:"n1,omitempty"`
	N2    int     `yaml:"n2,omitempty"`
}

type HistoryConfig struct {
	Mode   string `yaml:"mode"`
	Window int    `yaml:"window,omitempty"`
}

// OutputConfig controls what a run records. Strides are in steps; Cut is
// the position separating reflected from transmitted probability.
type OutputConfig struct {
	FrameStride   int     `yaml:"frame_stride"`
	ObserveStride int     `yaml:"observe_stride"`
	Cut           float64 `yaml:"cut"`
}

func DefaultConfig() *Config {
	return &Config{
		Length:     DefaultLength,
		Points:     DefaultPoints,
		Mass:       DefaultMass,
		Hbar:       DefaultHbar,
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Propagator: "krylov",
		Potential:  PotentialConfig{Kind: "flat"},
		Initial: StateConfig{
			Kind:  "gaussian",
			X0:    DefaultX0,
			Sigma: DefaultSigma,
			K0:    DefaultK0,
		},
		History: HistoryConfig{Mode: "full"},
		Output: OutputConfig{
			FrameStride:   DefaultStride,
			ObserveStride: DefaultStride,
			Cut:           0.5,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	cp := *c
	if c.Potential.Center != nil {
		cp.Potential.SetCenter(*c.Potential.Center)
	}
	return &cp
}

// Validate checks the numeric parameters. Names of potentials, states and
// propagators are resolved later by the experiment registry.
func (c *Config) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"length", c.Length},
		{"mass", c.Mass},
		{"hbar", c.Hbar},
		{"dt", c.Dt},
	}
	for _, p := range positive {
		if !(p.v > 0) || math.IsInf(p.v, 0) {
			return fmt.Errorf("%w: %s must be positive, got %g", quantum.ErrInvalidConfig, p.name, p.v)
		}
	}
	if c.Points < 2 {
		return fmt.Errorf("%w: points must be at least 2, got %d", quantum.ErrInvalidConfig, c.Points)
	}
	if !(c.Duration >= 0) || math.IsInf(c.Duration, 0) {
		return fmt.Errorf("%w: duration must be finite and non-negative, got %g", quantum.ErrInvalidConfig, c.Duration)
	}
	switch c.History.Mode {
	case "", "full", "stream":
	case "window":
		if c.History.Window < 1 {
			return fmt.Errorf("%w: history window must be at least 1", quantum.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown history mode %q", quantum.ErrInvalidConfig, c.History.Mode)
	}
	if c.Output.FrameStride < 0 || c.Output.ObserveStride < 0 {
		return fmt.Errorf("%w: output strides must not be negative", quantum.ErrInvalidConfig)
	}
	return nil
}

var setters = map[string]func(c *Config, v float64){
	"length":               func(c *Config, v float64) { c.Length = v },
	"points":               func(c *Config, v float64) { c.Points = int(v) },
	"mass":                 func(c *Config, v float64) { c.Mass = v },
	"hbar":                 func(c *Config, v float64) { c.Hbar = v },
	"dt":                   func(c *Config, v float64) { c.Dt = v },
	"duration":             func(c *Config, v float64) { c.Duration = v },
	"potential.height":     func(c *Config, v float64) { c.Potential.Height = v },
	"potential.width":      func(c *Config, v float64) { c.Potential.Width = v },
	"potential.center":     func(c *Config, v float64) { c.Potential.SetCenter(v) },
	"potential.separation": func(c *Config, v float64) { c.Potential.Separation = v },
	"potential.omega":      func(c *Config, v float64) { c.Potential.Omega = v },
	"potential.at":         func(c *Config, v float64) { c.Potential.At = v },
	"initial.x0":           func(c *Config, v float64) { c.Initial.X0 = v },
	"initial.sigma":        func(c *Config, v float64) { c.Initial.Sigma = v },
	"initial.k0":           func(c *Config, v float64) { c.Initial.K0 = v },
	"initial.n":            func(c *Config, v float64) { c.Initial.N = int(v) },
	"initial.n1":           func(c *Config, v float64) { c.Initial.N1 = int(v) },
	"initial.n2":           func(c *Config, v float64) { c.Initial.N2 = int(v) },
	"output.cut":           func(c *Config, v float64) { c.Output.Cut = v },
}

// SetParam assigns a numeric parameter by dotted name, e.g. "potential.height".
func (c *Config) SetParam(name string, value float64) error {
	set, ok := setters[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	set(c, value)
	return nil
}

// Params lists the names accepted by SetParam.
func Params() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
