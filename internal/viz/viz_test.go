package viz

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/qbox/internal/fields"
	"github.com/san-kum/qbox/internal/quantum"
	"github.com/san-kum/qbox/internal/sim"
)

func key(s string) tea.Msg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestSim(t *testing.T, points int) *sim.Simulator {
	t.Helper()
	s, err := sim.New(sim.Config{Length: 1, Mass: 1, Hbar: 1, Dt: 1e-4, Points: points})
	if err != nil {
		t.Fatal(err)
	}
	psi, err := fields.Gaussian(s.Grid().X(), 0.3, 0.05, 40)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetInitialWavefunction(psi); err != nil {
		t.Fatal(err)
	}
	return s
}

func recordedFrames(t *testing.T, steps int) (*sim.Simulator, []sim.Snapshot) {
	t.Helper()
	s := newTestSim(t, 100)
	for i := 0; i < steps; i++ {
		if err := s.Step(); err != nil {
			t.Fatal(err)
		}
	}
	return s, s.History().Frames()
}

func TestNewPlayer_Validation(t *testing.T) {
	s, frames := recordedFrames(t, 2)
	if _, err := NewPlayer(s.Grid(), nil, nil, Options{}); !errors.Is(err, quantum.ErrInvalidConfig) {
		t.Errorf("no frames: got %v", err)
	}
	if _, err := NewPlayer(s.Grid(), make([]float64, 3), frames, Options{}); !errors.Is(err, quantum.ErrDimensionMismatch) {
		t.Errorf("short potential: got %v", err)
	}
	bad := append([]sim.Snapshot{}, frames...)
	bad[1].Psi = bad[1].Psi[:10]
	if _, err := NewPlayer(s.Grid(), nil, bad, Options{}); !errors.Is(err, quantum.ErrDimensionMismatch) {
		t.Errorf("short frame: got %v", err)
	}
}

func TestPlayer_Playback(t *testing.T) {
	s, frames := recordedFrames(t, 9)
	p, err := NewPlayer(s.Grid(), s.Potential(), frames, Options{Title: "test"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Frames() != 10 || !p.Playing() {
		t.Fatalf("frames=%d playing=%v", p.Frames(), p.Playing())
	}

	update := func(msg tea.Msg) {
		m, _ := p.Update(msg)
		p = m.(Player)
	}

	update(TickMsg{})
	if p.Position() != 1 {
		t.Errorf("after tick pos = %d, want 1", p.Position())
	}
	update(key("+"))
	update(key("+"))
	if p.Speed() != 4 {
		t.Errorf("speed = %d, want 4", p.Speed())
	}
	update(TickMsg{})
	update(TickMsg{})
	update(TickMsg{})
	if p.Position() != 9 || p.Playing() {
		t.Errorf("should stop on last frame, pos=%d playing=%v", p.Position(), p.Playing())
	}

	update(key("["))
	update(key("["))
	if p.Position() != 7 || p.Playing() {
		t.Errorf("scrub back: pos=%d playing=%v", p.Position(), p.Playing())
	}
	update(key("-"))
	update(key("-"))
	update(key("-"))
	if p.Speed() != 1 {
		t.Errorf("speed floor = %d, want 1", p.Speed())
	}

	update(tea.KeyMsg{Type: tea.KeyEnd})
	update(key(" "))
	if p.Position() != 0 || !p.Playing() {
		t.Errorf("play at end should restart: pos=%d playing=%v", p.Position(), p.Playing())
	}
}

func TestPlayer_View(t *testing.T) {
	s, frames := recordedFrames(t, 3)
	v, err := fields.Barrier(s.Grid().X(), 50, 0.05, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewPlayer(s.Grid(), v, frames, Options{Title: "tunnel", Cut: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	out := p.View()
	for _, want := range []string{"TUNNEL", "PLAYING", "Norm", "T(x>cut)", "chart"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m, _ := p.Update(key("m"))
	p = m.(Player)
	if p.Mode() != ModeBraille {
		t.Fatalf("mode = %v", p.Mode())
	}
	if out := p.View(); !strings.Contains(out, "braille") {
		t.Error("view should report braille mode")
	}

	m, _ = p.Update(key("t"))
	p = m.(Player)
	if p.Theme().Name != ThemeRetroGreen.Name {
		t.Errorf("theme = %s", p.Theme().Name)
	}

	if _, cmd := p.Update(key("q")); cmd == nil {
		t.Error("q should return a quit command")
	}
}

func TestPlayer_RecordGIF(t *testing.T) {
	s, frames := recordedFrames(t, 3)
	path := filepath.Join(t.TempDir(), "out.gif")
	p, err := NewPlayer(s.Grid(), nil, frames, Options{GIFPath: path})
	if err != nil {
		t.Fatal(err)
	}
	update := func(msg tea.Msg) {
		m, _ := p.Update(msg)
		p = m.(Player)
	}
	update(key("g"))
	update(TickMsg{})
	update(TickMsg{})
	update(key("g"))

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("empty gif")
	}
	if !strings.Contains(p.View(), "saved 2 frames") {
		t.Error("missing save status")
	}
}

func TestLive_Steps(t *testing.T) {
	s := newTestSim(t, 100)
	l, err := NewLive(s, LiveOptions{StepsPerTick: 5, Duration: 1e-3})
	if err != nil {
		t.Fatal(err)
	}
	update := func(msg tea.Msg) {
		m, _ := l.Update(msg)
		l = m.(Live)
	}

	update(TickMsg{})
	if s.Steps() != 5 {
		t.Errorf("steps = %d, want 5", s.Steps())
	}
	update(key(" "))
	update(TickMsg{})
	if s.Steps() != 5 || l.Running() {
		t.Errorf("paused model stepped: %d", s.Steps())
	}
	update(key("]"))
	if s.Steps() != 6 {
		t.Errorf("single step: %d", s.Steps())
	}
	update(key(" "))
	for i := 0; i < 10; i++ {
		update(TickMsg{})
	}
	// 1e-3 / 1e-4 is not exact in floating point, so allow one extra step.
	if got := s.Steps(); got < 10 || got > 11 {
		t.Errorf("duration should stop the run near 10 steps, got %d", got)
	}
	if l.Running() {
		t.Error("should stop after duration")
	}
	if !strings.Contains(l.View(), "DONE") {
		t.Error("view should report DONE")
	}

	update(key("r"))
	if s.Steps() != 0 || !l.Running() {
		t.Errorf("reset: steps=%d running=%v", s.Steps(), l.Running())
	}
}

type failingProp struct{}

func (failingProp) Name() string { return "failing" }

func (failingProp) Propagate(quantum.Hamiltonian, quantum.Wavefunction, float64) (quantum.Wavefunction, error) {
	return nil, errors.New("boom")
}

func TestLive_StopsOnStepError(t *testing.T) {
	s, err := sim.New(sim.Config{Length: 1, Mass: 1, Hbar: 1, Dt: 1e-3, Points: 50, Propagator: failingProp{}})
	if err != nil {
		t.Fatal(err)
	}
	psi, _ := fields.Eigenstate(s.Grid().X(), 1, 1)
	if err := s.SetInitialWavefunction(psi); err != nil {
		t.Fatal(err)
	}
	l, err := NewLive(s, LiveOptions{})
	if err != nil {
		t.Fatal(err)
	}
	m, _ := l.Update(TickMsg{})
	l = m.(Live)
	var se *quantum.StepError
	if !errors.As(l.Err(), &se) || l.Running() {
		t.Fatalf("err = %v running = %v", l.Err(), l.Running())
	}
	if !strings.Contains(l.View(), "FAILED") {
		t.Error("view should report failure")
	}
}

func TestNewLive_Uninitialized(t *testing.T) {
	s, err := sim.New(sim.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewLive(s, LiveOptions{}); !errors.Is(err, quantum.ErrUninitialized) {
		t.Errorf("got %v", err)
	}
}

func TestCanvas_Plot(t *testing.T) {
	c := NewCanvas(10, 2)
	c.Plot([]float64{0, 0, 0}, 0, 1)
	w, h := c.Dots()
	for x := 0; x < w; x++ {
		if !c.IsSet(x, h-1) {
			t.Fatalf("dot (%d,%d) should be set", x, h-1)
		}
		if c.IsSet(x, 0) {
			t.Fatalf("dot (%d,0) should be clear", x)
		}
	}
	c.Clear()
	c.DrawLine(0, 0, w-1, h-1)
	if !c.IsSet(0, 0) || !c.IsSet(w-1, h-1) {
		t.Error("line endpoints not drawn")
	}
	if lines := strings.Count(c.String(), "\n"); lines != 2 {
		t.Errorf("rows = %d", lines)
	}
}

func TestSparklineAndProgress(t *testing.T) {
	if got := []rune(Sparkline([]float64{1, 2, 3, 4, 5}, 3)); len(got) != 3 || got[2] != '█' || got[0] != '▁' {
		t.Errorf("sparkline = %q", string(got))
	}
	if got := ProgressBar(0.5, 10); strings.Count(got, "█") != 5 {
		t.Errorf("progress = %q", got)
	}
	if got := ProgressBar(2, 4); got != "████" {
		t.Errorf("clamped progress = %q", got)
	}
}
