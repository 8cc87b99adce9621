package automation

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/qbox/internal/config"
	"github.com/san-kum/qbox/internal/quantum"
)

const scenarioYAML = `
name: trap
description: free flight, then a wall drops in behind the packet
preset: gaussian
phases:
  - name: flight
    duration: 0.002
  - name: wall
    duration: 0.002
    potential:
      kind: barrier
      height: 5000
      width: 0.05
      center: 0.1
  - name: restart
    duration: 0.001
    initial:
      kind: eigenstate
      n: 1
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sc.Name != "trap" || len(sc.Phases) != 3 {
		t.Fatalf("unexpected scenario: %+v", sc)
	}
	if sc.Phases[1].Potential == nil || sc.Phases[1].Potential.Height != 5000 {
		t.Errorf("potential swap not parsed: %+v", sc.Phases[1])
	}
	if sc.Phases[2].Initial == nil || sc.Phases[2].Initial.N != 1 {
		t.Errorf("reinstall not parsed: %+v", sc.Phases[2])
	}
}

func TestLoadScenario_NoPhases(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, "name: empty\n"))
	if !errors.Is(err, quantum.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestRunScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatal(err)
	}
	sc.Preset = ""
	sc.Config = config.GetPreset("gaussian")
	sc.Config.Points = 120

	results, err := RunScenario(context.Background(), sc, nil, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 phase results, got %d", len(results))
	}

	wantSteps := []int{20, 40, 10}
	for i, r := range results {
		if r.Steps != wantSteps[i] {
			t.Errorf("%s: steps %d, want %d", r.Phase, r.Steps, wantSteps[i])
		}
		if math.Abs(r.Norm-1) > 1e-9 {
			t.Errorf("%s: norm %v", r.Phase, r.Norm)
		}
	}

	// the wall raises the energy of whatever overlaps it
	if results[1].Energy <= results[0].Energy-1e-6 {
		t.Errorf("energy did not rise with the wall: %v -> %v", results[0].Energy, results[1].Energy)
	}
	if results[2].Phase != "restart" || results[2].Time > 0.0011 {
		t.Errorf("reinstall did not reset the clock: %+v", results[2])
	}
}

func TestRunScenario_BadPhase(t *testing.T) {
	sc := &Scenario{
		Name:   "bad",
		Config: config.GetPreset("gaussian"),
		Phases: []Phase{{Duration: 0.001, Potential: &config.PotentialConfig{Kind: "volcano"}}},
	}
	sc.Config.Points = 50
	if _, err := RunScenario(context.Background(), sc, nil, slog.New(slog.DiscardHandler)); err == nil {
		t.Error("expected error for an unknown potential")
	}
}

func TestBaseConfig(t *testing.T) {
	sc := &Scenario{Preset: "nope"}
	if _, err := sc.BaseConfig(); !errors.Is(err, quantum.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	sc = &Scenario{}
	cfg, err := sc.BaseConfig()
	if err != nil || cfg.Points != config.DefaultPoints {
		t.Errorf("expected defaults, got %+v, %v", cfg, err)
	}
}

func TestRunMonteCarlo(t *testing.T) {
	base := config.GetPreset("tunneling")
	base.Points = 100
	base.Duration = 0.002

	mc := &MonteCarloConfig{Base: base, JitterX0: 0.02, JitterK0: 5, NumTrials: 6, Workers: 3, Seed: 7}
	results, err := RunMonteCarlo(context.Background(), mc, nil)
	if err != nil {
		t.Fatalf("monte carlo: %v", err)
	}
	if len(results) != 6 {
		t.Fatalf("expected 6 trials, got %d", len(results))
	}
	for _, r := range results {
		if math.Abs(r.X0-0.2) > 0.02 || math.Abs(r.K0-80) > 5 {
			t.Errorf("trial %d outside jitter: %+v", r.TrialID, r)
		}
		if math.Abs(r.Norm-1) > 1e-9 {
			t.Errorf("trial %d norm %v", r.TrialID, r.Norm)
		}
	}

	again, err := RunMonteCarlo(context.Background(), mc, nil)
	if err != nil {
		t.Fatal(err)
	}
	if again[3].K0 != results[3].K0 {
		t.Error("same seed produced different trials")
	}

	mean, std := MonteCarloStats(results)
	if mean < 0 || mean > 1 || std < 0 {
		t.Errorf("stats out of range: %v ± %v", mean, std)
	}
}

func TestMonteCarloStats(t *testing.T) {
	mean, _ := MonteCarloStats(nil)
	if !math.IsNaN(mean) {
		t.Error("expected NaN for no trials")
	}
	mean, std := MonteCarloStats([]MonteCarloResult{{Transmission: 0.2}, {Transmission: 0.4}})
	if math.Abs(mean-0.3) > 1e-12 || math.Abs(std-math.Sqrt(0.02)) > 1e-12 {
		t.Errorf("got %v ± %v", mean, std)
	}
}
