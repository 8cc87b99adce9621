package viz

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/qbox/internal/quantum"
	"github.com/san-kum/qbox/internal/sim"
)

const maxSpeed = 64

type TickMsg time.Time

func tick(fps int) tea.Cmd {
	if fps <= 0 {
		fps = 30
	}
	return tea.Tick(time.Second/time.Duration(fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Options configure either model.
type Options struct {
	Title   string
	Theme   string
	Mode    Mode
	FPS     int
	Cut     float64 // transmission cut shown in the stats column; 0 hides it
	GIFPath string
}

// Player plays back a recorded sequence of frames.
type Player struct {
	screen
	grid    quantum.Grid
	v       []float64
	frames  []sim.Snapshot
	norms   []float64
	pos     int
	speed   int
	playing bool
	fps     int
	cut     float64
}

// NewPlayer validates that every frame and the potential live on grid.
func NewPlayer(grid quantum.Grid, v []float64, frames []sim.Snapshot, opts Options) (Player, error) {
	if len(frames) == 0 {
		return Player{}, fmt.Errorf("%w: no frames to play", quantum.ErrInvalidConfig)
	}
	n := grid.Len()
	if v != nil && len(v) != n {
		return Player{}, fmt.Errorf("%w: potential has %d points, grid has %d", quantum.ErrDimensionMismatch, len(v), n)
	}
	norms := make([]float64, len(frames))
	for i, f := range frames {
		if len(f.Psi) != n {
			return Player{}, fmt.Errorf("%w: frame %d has %d points, grid has %d", quantum.ErrDimensionMismatch, i, len(f.Psi), n)
		}
		norms[i] = f.Psi.NormSquared(grid.Dx())
	}
	if opts.Title == "" {
		opts.Title = "playback"
	}
	return Player{
		screen:  newScreen(opts.Title, opts.Theme, opts.Mode, opts.GIFPath),
		grid:    grid,
		v:       v,
		frames:  frames,
		norms:   norms,
		speed:   1,
		playing: true,
		fps:     opts.FPS,
		cut:     opts.Cut,
	}, nil
}

func (p Player) Position() int { return p.pos }
func (p Player) Playing() bool { return p.playing }
func (p Player) Speed() int    { return p.speed }
func (p Player) Mode() Mode    { return p.mode }
func (p Player) Theme() Theme  { return p.theme }
func (p Player) Frames() int   { return len(p.frames) }
func (p Player) Init() tea.Cmd { return tick(p.fps) }

func (p Player) last() int   { return len(p.frames) - 1 }
func (p *Player) seek(i int) { p.pos = max(0, min(i, p.last())) }

func (p *Player) scrub(step int) {
	p.playing = false
	p.seek(p.pos + step)
}

func (p Player) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c":
			return p, tea.Quit
		case " ":
			if !p.playing && p.pos == p.last() {
				p.pos = 0
			}
			p.playing = !p.playing
		case "[", "left":
			p.scrub(-1)
		case "]", "right":
			p.scrub(1)
		case "+", "=":
			p.speed = min(p.speed*2, maxSpeed)
		case "-", "_":
			p.speed = max(p.speed/2, 1)
		case "home":
			p.seek(0)
		case "end":
			p.seek(p.last())
		case "r":
			p.seek(0)
			p.playing = true
		default:
			p.handleKey(key)
		}
	case tea.WindowSizeMsg:
		p.resize(msg.Width, msg.Height)
	case TickMsg:
		if p.playing {
			p.seek(p.pos + p.speed)
			if p.pos == p.last() {
				p.playing = false
			}
		}
		if p.rec.active {
			p.rec.capture(p.canvas())
		}
		return p, tick(p.fps)
	}
	return p, nil
}

func (p Player) canvas() *Canvas {
	f := p.frames[p.pos]
	density := f.Psi.Density()
	peak := 0.0
	for _, d := range density {
		peak = max(peak, d)
	}
	vs, _ := scaledPotential(p.v, peak)
	return drawCanvas(density, vs, peak, p.width, p.height)
}

func (p Player) View() string {
	f := p.frames[p.pos]
	state := p.st.paused.Render("PAUSED")
	if p.playing {
		state = p.st.running.Render(fmt.Sprintf("PLAYING x%d", p.speed))
	}
	progress := fmt.Sprintf("%s %d/%d", ProgressBar(float64(p.pos)/float64(max(1, p.last())), 24), p.pos+1, len(p.frames))
	upto := p.norms[:p.pos+1]
	stats := p.stats(p.grid, f.Psi, f.Step, f.Time, p.cut,
		p.st.label.Render("Frame")+progress,
		p.st.label.Render("Norm")+Sparkline(upto, 24),
	)
	return p.frame(state, p.plot(f.Psi, p.v), stats, "SP:Play/Pause [ ]:Step +/-:Speed M:Mode T:Theme G:GIF ?:Help Q:Quit")
}

// Play runs the playback model until the user quits.
func Play(grid quantum.Grid, v []float64, frames []sim.Snapshot, opts Options) error {
	p, err := NewPlayer(grid, v, frames, opts)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(p, tea.WithAltScreen()).Run()
	return err
}
