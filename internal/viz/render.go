package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/qbox/internal/analysis"
	"github.com/san-kum/qbox/internal/quantum"
)

// Mode selects how frames are drawn.
type Mode int

const (
	ModeChart Mode = iota
	ModeBraille
)

func (m Mode) String() string {
	if m == ModeBraille {
		return "braille"
	}
	return "chart"
}

const (
	defaultPlotWidth  = 72
	defaultPlotHeight = 16
)

// screen is the state shared by the playback and live models.
type screen struct {
	title         string
	theme         Theme
	st            styles
	mode          Mode
	showHelp      bool
	width, height int
	rec           *gifRecorder
	status        string
}

func newScreen(title, theme string, mode Mode, gifPath string) screen {
	t := GetTheme(theme)
	return screen{
		title:  title,
		theme:  t,
		st:     newStyles(t),
		mode:   mode,
		width:  defaultPlotWidth,
		height: defaultPlotHeight,
		rec:    newGIFRecorder(gifPath),
	}
}

// handleKey applies the bindings common to both models and reports whether
// the key was consumed.
func (s *screen) handleKey(key string) bool {
	switch key {
	case "m":
		s.mode = 1 - s.mode
	case "t":
		s.theme = s.theme.Next()
		s.st = newStyles(s.theme)
	case "?":
		s.showHelp = !s.showHelp
	case "g":
		if s.rec.active {
			n, err := s.rec.stop()
			if err != nil {
				s.status = "gif: " + err.Error()
			} else {
				s.status = fmt.Sprintf("saved %d frames to %s", n, s.rec.path)
			}
		} else {
			s.rec.start()
			s.status = ""
		}
	default:
		return false
	}
	return true
}

func (s *screen) resize(w, h int) {
	// leave room for the stats column and the header/hint lines
	s.width = max(20, w-56)
	s.height = max(6, h-8)
}

// plot draws a frame in the current mode.
func (s *screen) plot(psi quantum.Wavefunction, v []float64) string {
	density := psi.Density()
	peak := 0.0
	for _, d := range density {
		peak = math.Max(peak, d)
	}
	vs, hasV := scaledPotential(v, peak)

	if s.mode == ModeBraille {
		return drawCanvas(density, vs, peak, s.width, s.height).String()
	}
	series := [][]float64{density}
	colors := []asciigraph.AnsiColor{s.theme.Density}
	if hasV {
		series = append(series, vs)
		colors = append(colors, s.theme.Potential)
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(s.height),
		asciigraph.Width(s.width),
		asciigraph.LowerBound(0),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption("|ψ|² with V (scaled)"),
	)
}

// drawCanvas renders density and the rescaled potential on a fresh canvas.
func drawCanvas(density, v []float64, peak float64, w, h int) *Canvas {
	c := NewCanvas(w, h)
	lo := 0.0
	for _, e := range v {
		lo = math.Min(lo, e)
	}
	hi := peak
	if hi <= lo {
		hi = lo + 1
	}
	if v != nil {
		c.Plot(v, lo, hi)
	}
	c.Plot(density, lo, hi)
	return c
}

// scaledPotential maps v so its largest magnitude is 80% of peak.
func scaledPotential(v []float64, peak float64) ([]float64, bool) {
	vmax := 0.0
	for _, e := range v {
		vmax = math.Max(vmax, math.Abs(e))
	}
	if vmax == 0 || peak == 0 {
		return nil, false
	}
	out := make([]float64, len(v))
	for i, e := range v {
		out[i] = e / vmax * 0.8 * peak
	}
	return out, true
}

// stats renders the observable column for one state.
func (s *screen) stats(grid quantum.Grid, psi quantum.Wavefunction, step int, t, cut float64, extra ...string) string {
	mean, width := analysis.Moments(psi, grid)
	row := func(label, value string) string {
		return s.st.label.Render(label) + s.st.value.Render(value) + "\n"
	}
	var b strings.Builder
	b.WriteString(row("Time", fmt.Sprintf("%.5f", t)))
	b.WriteString(row("Step", fmt.Sprintf("%d", step)))
	b.WriteString(row("Norm", fmt.Sprintf("%.8f", psi.NormSquared(grid.Dx()))))
	b.WriteString(row("<x>", fmt.Sprintf("%.4f", mean)))
	b.WriteString(row("Width", fmt.Sprintf("%.4f", width)))
	if cut > 0 {
		b.WriteString(row("T(x>cut)", fmt.Sprintf("%.4f", analysis.Transmission(psi, grid, cut))))
	}
	for _, e := range extra {
		b.WriteString(e + "\n")
	}
	b.WriteString(row("Render", s.mode.String()))
	b.WriteString(row("Theme", s.theme.Name))
	return s.st.stats.Render(b.String())
}

// frame assembles header, plot, stats and hint line.
func (s *screen) frame(state, plot, stats, hint string) string {
	var b strings.Builder
	b.WriteString(s.st.header.Render(strings.ToUpper(s.title)) + "\n")
	b.WriteString(state)
	if s.rec.active {
		b.WriteString("  " + s.st.recording.Render(fmt.Sprintf("● REC %d", len(s.rec.frames))))
	}
	if s.status != "" {
		b.WriteString("  " + s.st.hint.Render(s.status))
	}
	b.WriteString("\n")
	main := lipgloss.JoinHorizontal(lipgloss.Top, s.st.panel.Render(plot), stats)
	b.WriteString(main + "\n")
	b.WriteString(s.st.hint.Render(hint))
	if s.showHelp {
		return helpText + "\n\n" + b.String()
	}
	return b.String()
}

const helpText = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  [ ]      - Step back/forward        ║
║  + -      - Faster/slower            ║
║  Home/End - First/last frame         ║
║  R        - Restart                  ║
║  M        - Chart/Braille rendering  ║
║  T        - Cycle themes             ║
║  G        - Toggle GIF recording     ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`
