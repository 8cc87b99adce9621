package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/qbox/internal/analysis"
	"github.com/san-kum/qbox/internal/config"
	"github.com/san-kum/qbox/internal/experiment"
	"github.com/san-kum/qbox/internal/export"
	"github.com/san-kum/qbox/internal/quantum"
	"github.com/san-kum/qbox/internal/sim"
	"github.com/san-kum/qbox/internal/storage"
	"github.com/san-kum/qbox/internal/viz"
	"github.com/spf13/cobra"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	name := runName
	if name == "" {
		name = preset
	}

	result, err := experiment.Run(cmd.Context(), cfg, experiment.NewRegistry(), slog.Default())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "steps\t%d\n", result.Steps)
	fmt.Fprintf(w, "time\t%.6f\n", result.Time)
	fmt.Fprintf(w, "wall\t%v\n", result.Wall)
	fmt.Fprintf(w, "transmission\t%.6f\n", result.Transmission)
	fmt.Fprintf(w, "reflection\t%.6f\n", result.Reflection)
	for _, k := range sortedNames(result.Metrics) {
		fmt.Fprintf(w, "%s\t%.3e\n", k, result.Metrics[k])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if noSave {
		return nil
	}
	st := storage.New(dataDir, slog.Default())
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(name, result)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir, slog.Default()).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tN\tDT\tT\tPROP\tPOTENTIAL\tINITIAL\tTRANS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.1e\t%.3f\t%s\t%s\t%s\t%.4f\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Points,
			run.Dt,
			run.Time,
			run.Propagator,
			run.Potential,
			run.Initial,
			run.Transmission,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir, slog.Default())
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	obs, err := st.LoadObservations(runID)
	if err != nil {
		return err
	}
	if len(obs) < 2 {
		return fmt.Errorf("run %s: not enough observations to plot", runID)
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("potential: %s, initial: %s, propagator: %s\n", meta.Potential, meta.Initial, meta.Propagator)
	fmt.Printf("samples: %d\n\n", len(obs))

	series := []struct {
		caption string
		value   func(i int) float64
	}{
		{"<x> vs time", func(i int) float64 { return obs[i].Position }},
		{"packet width vs time", func(i int) float64 { return obs[i].Width }},
		{"<H> vs time", func(i int) float64 { return obs[i].Energy }},
		{"norm - 1 vs time", func(i int) float64 { return obs[i].Norm - 1 }},
	}
	for _, s := range series {
		data := make([]float64, len(obs))
		for i := range obs {
			data[i] = s.value(i)
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		))
		fmt.Println()
	}

	frames, err := st.LoadFrames(runID)
	if err != nil || len(frames) == 0 {
		return err
	}
	last := frames[len(frames)-1]
	fmt.Println(asciigraph.Plot(last.Psi.Density(),
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.LowerBound(0),
		asciigraph.Caption(fmt.Sprintf("|ψ|² at t = %.4f", last.Time)),
	))
	return nil
}

// output returns stdout or a created file; the caller closes it.
func output(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportCSV(cmd *cobra.Command, args []string) error {
	return exportWith(args[0], storage.ExportCSV)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	return exportWith(args[0], storage.ExportJSON)
}

func exportWith(runID string, write func(io.Writer, *experiment.Result) error) error {
	res, err := storage.New(dataDir, slog.Default()).LoadResult(runID)
	if err != nil {
		return err
	}
	out, err := output(outPath)
	if err != nil {
		return err
	}
	if err := write(out, res); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir, slog.Default())
	x, v, err := st.LoadPotential(runID)
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("run %s has no saved frames", runID)
	}

	if allFrames {
		dir := outPath
		if dir == "" {
			dir = runID + "_svg"
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		for _, f := range frames {
			path := filepath.Join(dir, fmt.Sprintf("frame_%06d.svg", f.Step))
			if err := os.WriteFile(path, []byte(export.FrameToSVG(x, v, f, svgWidth, svgHeight)), 0644); err != nil {
				return err
			}
		}
		slog.Info("frames written", "dir", dir, "count", len(frames))
		return nil
	}

	i := frameIdx
	if i < 0 {
		i += len(frames)
	}
	if i < 0 || i >= len(frames) {
		return fmt.Errorf("frame %d out of range (run has %d frames)", frameIdx, len(frames))
	}
	svg := export.FrameToSVG(x, v, frames[i], svgWidth, svgHeight)
	if svg == "" {
		return fmt.Errorf("run %s: frame and potential grids disagree", runID)
	}
	out, err := output(outPath)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(out, svg); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func viewOptions(title string, cut float64) viz.Options {
	mode := viz.ModeChart
	if braille {
		mode = viz.ModeBraille
	}
	return viz.Options{Title: title, Theme: theme, Mode: mode, FPS: frameRate, Cut: cut, GIFPath: gifPath}
}

func playRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir, slog.Default())
	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return err
	}
	grid, err := quantum.NewGrid(cfg.Length, cfg.Points)
	if err != nil {
		return err
	}
	_, v, err := st.LoadPotential(runID)
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	return viz.Play(grid, v, frames, viewOptions(runID, cfg.Output.Cut))
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	s, psi0, err := experiment.Build(cfg, experiment.NewRegistry(), sim.HistoryPolicy{Mode: sim.HistoryWindow, Window: 1})
	if err != nil {
		return err
	}
	if err := s.SetInitialWavefunction(psi0); err != nil {
		return err
	}
	title := preset
	if title == "" {
		title = cfg.Potential.Kind + " / " + cfg.Initial.Kind
	}
	return viz.RunLive(s, viz.LiveOptions{
		Options:      viewOptions(title, cfg.Output.Cut),
		StepsPerTick: perTick,
		Duration:     cfg.Duration,
	})
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tPOTENTIAL\tINITIAL\tPROPAGATOR\tN\tDT\tT")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.1e\t%.2f\n",
			name, p.Potential.Kind, p.Initial.Kind, p.Propagator, p.Points, p.Dt, p.Duration)
	}
	return w.Flush()
}

func energyLevels(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	s, _, err := experiment.Build(cfg, experiment.NewRegistry(), sim.HistoryPolicy{})
	if err != nil {
		return err
	}
	levels, err := analysis.EnergyLevels(s.Hamiltonian(), s.Grid().Dx(), numLevels)
	if err != nil {
		return err
	}
	well := analysis.InfiniteWellLevels(len(levels), cfg.Mass, cfg.Hbar, cfg.Length)

	fmt.Printf("potential: %s, N=%d, L=%g\n\n", cfg.Potential.Kind, cfg.Points, cfg.Length)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "N\tENERGY\tINFINITE WELL\tRATIO")
	for i, l := range levels {
		fmt.Fprintf(w, "%d\t%.6f\t%.6f\t%.4f\n", l.N, l.Energy, well[i], l.Energy/well[i])
	}
	return w.Flush()
}

func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
