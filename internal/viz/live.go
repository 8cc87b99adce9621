package viz

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/qbox/internal/quantum"
	"github.com/san-kum/qbox/internal/sim"
)

const energyCapacity = 600

// Live advances a simulator by StepsPerTick steps on every tick and draws
// the current state.
type Live struct {
	screen
	sim          *sim.Simulator
	initial      quantum.Wavefunction
	stepsPerTick int
	duration     float64
	running      bool
	energy       []float64
	err          error
	fps          int
	cut          float64
}

// LiveOptions extend Options with stepping controls. Duration of 0 runs
// until the user quits.
type LiveOptions struct {
	Options
	StepsPerTick int
	Duration     float64
}

func NewLive(s *sim.Simulator, opts LiveOptions) (Live, error) {
	psi, err := s.Wavefunction()
	if err != nil {
		return Live{}, err
	}
	if opts.StepsPerTick < 1 {
		opts.StepsPerTick = 1
	}
	if opts.Title == "" {
		opts.Title = "live"
	}
	l := Live{
		screen:       newScreen(opts.Title, opts.Theme, opts.Mode, opts.GIFPath),
		sim:          s,
		initial:      psi,
		stepsPerTick: opts.StepsPerTick,
		duration:     opts.Duration,
		running:      true,
		energy:       make([]float64, 0, energyCapacity),
		fps:          opts.FPS,
		cut:          opts.Cut,
	}
	l.recordEnergy()
	return l, nil
}

func (l Live) Running() bool       { return l.running }
func (l Live) StepsPerTick() int   { return l.stepsPerTick }
func (l Live) Err() error          { return l.err }
func (l Live) Sim() *sim.Simulator { return l.sim }
func (l Live) Init() tea.Cmd       { return tick(l.fps) }

func (l Live) done() bool     { return l.duration > 0 && l.sim.Time() >= l.duration }
func (l *Live) recordEnergy() { l.pushEnergy(l.sim.ExpectationEnergy()) }

func (l *Live) pushEnergy(e float64, err error) {
	if err != nil {
		return
	}
	l.energy = append(l.energy, e)
	if len(l.energy) > energyCapacity {
		l.energy = l.energy[1:]
	}
}

// advance runs one tick worth of steps, stopping at the first failure.
func (l *Live) advance() {
	for i := 0; i < l.stepsPerTick && !l.done(); i++ {
		if err := l.sim.Step(); err != nil {
			l.err = err
			l.running = false
			var se *quantum.StepError
			if errors.As(err, &se) {
				l.status = fmt.Sprintf("stopped at step %d: %v", se.Step, se.Wrapped)
			} else {
				l.status = err.Error()
			}
			return
		}
	}
	l.recordEnergy()
	if l.done() {
		l.running = false
	}
}

func (l *Live) reset() {
	if err := l.sim.SetInitialWavefunction(l.initial); err != nil {
		l.err = err
		return
	}
	l.err = nil
	l.status = ""
	l.energy = l.energy[:0]
	l.recordEnergy()
	l.running = true
}

func (l Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c":
			return l, tea.Quit
		case " ":
			if l.err == nil && !l.done() {
				l.running = !l.running
			}
		case "]", "right":
			l.running = false
			if l.err == nil {
				saved := l.stepsPerTick
				l.stepsPerTick = 1
				l.advance()
				l.stepsPerTick = saved
			}
		case "+", "=":
			l.stepsPerTick = min(l.stepsPerTick*2, 4096)
		case "-", "_":
			l.stepsPerTick = max(l.stepsPerTick/2, 1)
		case "r":
			l.reset()
		default:
			l.handleKey(key)
		}
	case tea.WindowSizeMsg:
		l.resize(msg.Width, msg.Height)
	case TickMsg:
		if l.running {
			l.advance()
		}
		if l.rec.active {
			psi, _ := l.sim.Wavefunction()
			density := psi.Density()
			peak := 0.0
			for _, d := range density {
				peak = max(peak, d)
			}
			vs, _ := scaledPotential(l.sim.Potential(), peak)
			l.rec.capture(drawCanvas(density, vs, peak, l.width, l.height))
		}
		return l, tick(l.fps)
	}
	return l, nil
}

func (l Live) View() string {
	psi, err := l.sim.Wavefunction()
	if err != nil {
		return err.Error()
	}
	var state string
	switch {
	case l.err != nil:
		state = l.st.recording.Render("FAILED")
	case l.running:
		state = l.st.running.Render(fmt.Sprintf("RUNNING %d steps/tick", l.stepsPerTick))
	case l.done():
		state = l.st.paused.Render("DONE")
	default:
		state = l.st.paused.Render("PAUSED")
	}
	energy := "n/a"
	if n := len(l.energy); n > 0 {
		energy = fmt.Sprintf("%.6f", l.energy[n-1])
	}
	stats := l.stats(l.sim.Grid(), psi, l.sim.Steps(), l.sim.Time(), l.cut,
		l.st.label.Render("<H>")+l.st.value.Render(energy),
		l.st.label.Render("Energy")+Sparkline(l.energy, 24),
	)
	return l.frame(state, l.plot(psi, l.sim.Potential()), stats, "SP:Run/Pause ]:Step +/-:Steps R:Reset M:Mode T:Theme G:GIF ?:Help Q:Quit")
}

// RunLive runs the live model until the user quits.
func RunLive(s *sim.Simulator, opts LiveOptions) error {
	l, err := NewLive(s, opts)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(l, tea.WithAltScreen()).Run()
	return err
}
