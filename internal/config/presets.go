package config

import "sort"

// Presets are the demo runs: N=500 and dt=1e-4 throughout.
var Presets = map[string]*Config{
	"gaussian": {
		Length: 1, Points: 500, Mass: 1, Hbar: 1, Dt: 1e-4, Duration: 0.5, Propagator: "krylov",
		Potential: PotentialConfig{Kind: "flat"},
		Initial:   StateConfig{Kind: "gaussian", X0: 0.2, Sigma: 0.05, K0: 50},
		History:   HistoryConfig{Mode: "full"},
		Output:    OutputConfig{FrameStride: 50, ObserveStride: 10, Cut: 0.5},
	},
	"tunneling": {
		Length: 1, Points: 500, Mass: 1, Hbar: 1, Dt: 1e-4, Duration: 0.4, Propagator: "krylov",
		Potential: PotentialConfig{Kind: "barrier", Height: 50, Width: 0.05},
		Initial:   StateConfig{Kind: "gaussian", X0: 0.2, Sigma: 0.05, K0: 80},
		History:   HistoryConfig{Mode: "full"},
		Output:    OutputConfig{FrameStride: 40, ObserveStride: 10, Cut: 0.5},
	},
	"double_barrier": {
		Length: 1, Points: 500, Mass: 1, Hbar: 1, Dt: 1e-4, Duration: 0.6, Propagator: "krylov",
		Potential: PotentialConfig{Kind: "double_barrier", Height: 30, Width: 0.03, Separation: 0.15},
		Initial:   StateConfig{Kind: "gaussian", X0: 0.1, Sigma: 0.05, K0: 60},
		History:   HistoryConfig{Mode: "full"},
		Output:    OutputConfig{FrameStride: 60, ObserveStride: 10, Cut: 0.475},
	},
	"superposition": {
		Length: 1, Points: 500, Mass: 1, Hbar: 1, Dt: 1e-4, Duration: 1.0, Propagator: "krylov",
		Potential: PotentialConfig{Kind: "flat"},
		Initial:   StateConfig{Kind: "superposition", N1: 1, N2: 3},
		History:   HistoryConfig{Mode: "full"},
		Output:    OutputConfig{FrameStride: 100, ObserveStride: 20, Cut: 0.5},
	},
	"eigenstate": {
		Length: 1, Points: 500, Mass: 1, Hbar: 1, Dt: 1e-4, Duration: 0.2, Propagator: "krylov",
		Potential: PotentialConfig{Kind: "flat"},
		Initial:   StateConfig{Kind: "eigenstate", N: 2},
		History:   HistoryConfig{Mode: "window", Window: 100},
		Output:    OutputConfig{FrameStride: 50, ObserveStride: 20, Cut: 0.5},
	},
	"harmonic": {
		Length: 1, Points: 300, Mass: 1, Hbar: 1, Dt: 1e-4, Duration: 0.3, Propagator: "crank-nicolson",
		Potential: PotentialConfig{Kind: "harmonic", Omega: 200},
		Initial:   StateConfig{Kind: "gaussian", X0: 0.4, Sigma: 0.05, K0: 0},
		History:   HistoryConfig{Mode: "full"},
		Output:    OutputConfig{FrameStride: 30, ObserveStride: 10, Cut: 0.5},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
