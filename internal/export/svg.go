package export

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/san-kum/qbox/internal/sim"
)

const (
	densityColor   = "#00ff88"
	realColor      = "#00ccff"
	imagColor      = "#ff00ff"
	potentialColor = "#ffaa00"
	background     = "#0a0a0a"
)

// viewport maps data coordinates onto an SVG canvas with a small margin.
type viewport struct {
	minX, maxX, minY, maxY float64
	width, height          int
}

func newViewport(minX, maxX, minY, maxY float64, width, height int) viewport {
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	return viewport{
		minX:   minX - rangeX*0.05,
		maxX:   maxX + rangeX*0.05,
		minY:   minY - rangeY*0.1,
		maxY:   maxY + rangeY*0.1,
		width:  width,
		height: height,
	}
}

func (vp viewport) project(x, y float64) (float64, float64) {
	px := (x - vp.minX) / (vp.maxX - vp.minX) * float64(vp.width)
	py := float64(vp.height) - (y-vp.minY)/(vp.maxY-vp.minY)*float64(vp.height)
	return px, py
}

// polyline renders xs/ys as a single SVG path element.
func (vp viewport) polyline(sb *strings.Builder, xs, ys []float64, stroke string, dashed bool) {
	if len(xs) < 2 {
		return
	}
	dash := ""
	if dashed {
		dash = ` stroke-dasharray="4,3"`
	}
	fmt.Fprintf(sb, `<path fill="none" stroke="%s" stroke-width="1.5"%s d="M`, stroke, dash)
	for i := range xs {
		px, py := vp.project(xs[i], ys[i])
		if i == 0 {
			fmt.Fprintf(sb, "%.1f,%.1f", px, py)
		} else {
			fmt.Fprintf(sb, " L%.1f,%.1f", px, py)
		}
	}
	sb.WriteString("\"/>\n")
}

// FrameToSVG draws one history frame: |psi|^2 filled line, Re and Im psi,
// and the potential rescaled to the frame's vertical range. The potential is
// skipped when it is identically zero. Returns "" when x and the frame do not
// describe the same grid.
func FrameToSVG(x, v []float64, frame sim.Snapshot, width, height int) string {
	n := len(frame.Psi)
	if n < 2 || len(x) != n || (v != nil && len(v) != n) {
		return ""
	}

	density := frame.Psi.Density()
	re := make([]float64, n)
	im := make([]float64, n)
	peak, amp := 0.0, 0.0
	for i, c := range frame.Psi {
		re[i], im[i] = real(c), imag(c)
		peak = math.Max(peak, density[i])
		amp = math.Max(amp, cmplx.Abs(c))
	}
	top := math.Max(peak, amp)
	vp := newViewport(x[0], x[n-1], -amp, top, width, height)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)

	_, zy := vp.project(0, 0)
	fmt.Fprintf(&sb, `<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#444466" stroke-width="0.5"/>`+"\n", zy, width, zy)

	if vScaled, ok := scalePotential(v, top); ok {
		vp.polyline(&sb, x, vScaled, potentialColor, true)
	}
	vp.polyline(&sb, x, re, realColor, false)
	vp.polyline(&sb, x, im, imagColor, false)
	vp.polyline(&sb, x, density, densityColor, false)

	fmt.Fprintf(&sb, `<text x="8" y="18" fill="#ffffff" font-family="monospace" font-size="12">t = %.4f  step %d</text>`+"\n",
		frame.Time, frame.Step)
	sb.WriteString("</svg>")
	return sb.String()
}

// scalePotential maps v onto [0, 0.8*top] (negative wells onto [-0.8*top, 0]).
func scalePotential(v []float64, top float64) ([]float64, bool) {
	vmax := 0.0
	for _, e := range v {
		vmax = math.Max(vmax, math.Abs(e))
	}
	if vmax == 0 || top == 0 {
		return nil, false
	}
	out := make([]float64, len(v))
	for i, e := range v {
		out[i] = e / vmax * 0.8 * top
	}
	return out, true
}
