package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/san-kum/qbox/internal/config"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	preset     string

	dt         float64
	duration   float64
	points     int
	length     float64
	mass       float64
	hbar       float64
	propagator string

	potentialKind string
	height        float64
	width         float64
	center        float64

	initialKind string
	x0          float64
	sigma       float64
	k0          float64

	historyMode   string
	historyWindow int
	overrides     []string

	// presentation
	runName   string
	noSave    bool
	frameIdx  int
	outPath   string
	svgWidth  int
	svgHeight int
	allFrames bool
	frameRate int
	theme     string
	braille   bool
	gifPath   string
	perTick   int
	numLevels int
)

// main registers the qbox commands and executes the root command. It exits
// with status 1 if the command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "qbox",
		Short:         "1-d time-dependent schrödinger lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".qbox", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and save it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().StringVar(&runName, "name", "", "run name (defaults to the preset or \"run\")")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not persist the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot observables of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export the observables of a run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run with frames as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	svgCmd := &cobra.Command{
		Use:   "svg [run_id]",
		Short: "render saved frames as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	svgCmd.Flags().IntVar(&frameIdx, "frame", -1, "frame index (negative counts from the end)")
	svgCmd.Flags().BoolVar(&allFrames, "all", false, "write every frame into the --out directory")
	svgCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file or directory")
	svgCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	svgCmd.Flags().IntVar(&svgHeight, "height", 400, "image height")

	playCmd := &cobra.Command{
		Use:   "play [run_id]",
		Short: "play back the frames of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  playRun,
	}
	addViewFlags(playCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a simulation with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)
	addViewFlags(liveCmd)
	liveCmd.Flags().IntVar(&perTick, "steps-per-tick", 10, "simulation steps per frame")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	levelsCmd := &cobra.Command{
		Use:   "levels",
		Short: "lowest energy levels of the configured potential",
		Args:  cobra.NoArgs,
		RunE:  energyLevels,
	}
	addConfigFlags(levelsCmd)
	levelsCmd.Flags().IntVarP(&numLevels, "count", "n", 5, "number of levels")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, svgCmd,
		playCmd, liveCmd, presetsCmd, levelsCmd, newSweepCmd(), newScenarioCmd(),
		newMonteCarloCmd(), newBenchCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	f.Float64Var(&duration, "time", config.DefaultDuration, "total simulated time")
	f.IntVar(&points, "points", config.DefaultPoints, "grid points")
	f.Float64Var(&length, "length", config.DefaultLength, "box length")
	f.Float64Var(&mass, "mass", config.DefaultMass, "particle mass")
	f.Float64Var(&hbar, "hbar", config.DefaultHbar, "reduced Planck constant")
	f.StringVar(&propagator, "propagator", "krylov", "propagator (krylov, eigen, crank-nicolson)")
	f.StringVar(&potentialKind, "potential", "flat", "potential kind")
	f.Float64Var(&height, "height", 0, "potential height")
	f.Float64Var(&width, "width", 0, "potential width")
	f.Float64Var(&center, "center", 0, "potential center (default: middle of the box)")
	f.StringVar(&initialKind, "initial", "gaussian", "initial state kind")
	f.Float64Var(&x0, "x0", config.DefaultX0, "packet center")
	f.Float64Var(&sigma, "sigma", config.DefaultSigma, "packet width")
	f.Float64Var(&k0, "k0", config.DefaultK0, "packet wavenumber")
	f.StringVar(&historyMode, "history", "full", "history policy (full, window, stream)")
	f.IntVar(&historyWindow, "window", 0, "frames kept by the window history policy")
	f.StringArrayVar(&overrides, "set", nil, "set a parameter by dotted name, e.g. --set potential.separation=0.2")
}

func addViewFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&frameRate, "fps", 30, "frame rate")
	f.StringVar(&theme, "theme", "cyberpunk", "color theme")
	f.BoolVar(&braille, "braille", false, "start in Braille rendering")
	f.StringVar(&gifPath, "gif", "qbox.gif", "GIF recording path")
}

// resolveConfig layers preset, config file and explicitly set flags, in
// that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	changed := flags.Changed
	if changed("dt") {
		cfg.Dt = dt
	}
	if changed("time") {
		cfg.Duration = duration
	}
	if changed("points") {
		cfg.Points = points
	}
	if changed("length") {
		cfg.Length = length
	}
	if changed("mass") {
		cfg.Mass = mass
	}
	if changed("hbar") {
		cfg.Hbar = hbar
	}
	if changed("propagator") {
		cfg.Propagator = propagator
	}
	if changed("potential") {
		cfg.Potential.Kind = potentialKind
	}
	if changed("height") {
		cfg.Potential.Height = height
	}
	if changed("width") {
		cfg.Potential.Width = width
	}
	if changed("center") {
		cfg.Potential.SetCenter(center)
	}
	if changed("initial") {
		cfg.Initial.Kind = initialKind
	}
	if changed("x0") {
		cfg.Initial.X0 = x0
	}
	if changed("sigma") {
		cfg.Initial.Sigma = sigma
	}
	if changed("k0") {
		cfg.Initial.K0 = k0
	}
	if changed("history") {
		cfg.History.Mode = historyMode
	}
	if changed("window") {
		cfg.History.Window = historyWindow
	}
	for _, kv := range overrides {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set %q: want name=value", kv)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --set %q: %w", kv, err)
		}
		if err := cfg.SetParam(name, v); err != nil {
			return nil, err
		}
	}
	return cfg, cfg.Validate()
}
