package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/san-kum/qbox/internal/automation"
	"github.com/san-kum/qbox/internal/experiment"
	"github.com/san-kum/qbox/internal/optim"
	"github.com/san-kum/qbox/internal/sim"
	"github.com/spf13/cobra"
)

// parseRange parses "name=lo:hi:n".
func parseRange(spec string) (string, []float64, error) {
	name, rng, ok := strings.Cut(spec, "=")
	if !ok {
		return "", nil, fmt.Errorf("invalid --param %q: want name=lo:hi:n", spec)
	}
	parts := strings.Split(rng, ":")
	if len(parts) != 3 {
		return "", nil, fmt.Errorf("invalid --param %q: want name=lo:hi:n", spec)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return "", nil, fmt.Errorf("invalid --param %q: %w", spec, err)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", nil, fmt.Errorf("invalid --param %q: %w", spec, err)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return "", nil, fmt.Errorf("invalid --param %q: count must be a positive integer", spec)
	}
	return name, optim.Linspace(lo, hi, n), nil
}

func newSweepCmd() *cobra.Command {
	var (
		params   []string
		metric   string
		maximize bool
		workers  int
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "evaluate a metric over a parameter grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(params) == 0 {
				return fmt.Errorf("at least one --param is required")
			}
			base, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			names := make([]string, len(params))
			ranges := make([][]float64, len(params))
			for i, p := range params {
				if names[i], ranges[i], err = parseRange(p); err != nil {
					return err
				}
			}

			gs := optim.NewGridSearch(names, ranges)
			gs.Workers = workers
			gs.Logger = slog.Default()
			points, err := gs.Sweep(cmd.Context(), base, experiment.NewRegistry(), metric)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\t"+strings.ToUpper(metric))
			for _, p := range points {
				for _, n := range names {
					fmt.Fprintf(w, "%.4g\t", p.Params[n])
				}
				fmt.Fprintf(w, "%.6f\n", p.Value)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			best := optim.Best(points, maximize)
			sum := optim.Summarize(points)
			fmt.Printf("\nbest: %v -> %.6f\n", best.Params, best.Value)
			fmt.Printf("mean %.6f  stddev %.6f  min %.6f  median %.6f  max %.6f\n",
				sum.Mean, sum.StdDev, sum.Min, sum.Median, sum.Max)
			return nil
		},
	}
	addConfigFlags(cmd)
	cmd.Flags().StringArrayVar(&params, "param", nil, "swept parameter as name=lo:hi:n (repeatable)")
	cmd.Flags().StringVar(&metric, "metric", "transmission", "result value to evaluate")
	cmd.Flags().BoolVar(&maximize, "maximize", false, "report the maximum instead of the minimum")
	cmd.Flags().IntVar(&workers, "workers", runtime.GOMAXPROCS(0), "concurrent simulations")
	return cmd
}

func newScenarioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted multi-phase scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			results, err := automation.RunScenario(cmd.Context(), sc, experiment.NewRegistry(), slog.Default())
			if err != nil {
				return err
			}
			if sc.Description != "" {
				fmt.Println(sc.Description)
				fmt.Println()
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PHASE\tSTEPS\tTIME\tNORM\t<X>\tWIDTH\t<H>\tTRANS\tREFL")
			for _, r := range results {
				fmt.Fprintf(w, "%s\t%d\t%.4f\t%.8f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n",
					r.Phase, r.Steps, r.Time, r.Norm, r.Position, r.Width, r.Energy, r.Transmission, r.Reflection)
			}
			return w.Flush()
		},
	}
}

func newMonteCarloCmd() *cobra.Command {
	var (
		trials           int
		workers          int
		seed             int64
		jitterX, jitterK float64
	)
	cmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "transmission statistics over jittered initial packets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			results, err := automation.RunMonteCarlo(cmd.Context(), &automation.MonteCarloConfig{
				Base:      base,
				JitterX0:  jitterX,
				JitterK0:  jitterK,
				NumTrials: trials,
				Workers:   workers,
				Seed:      seed,
			}, experiment.NewRegistry())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TRIAL\tX0\tK0\tTRANS\t<X>\tNORM")
			for _, r := range results {
				fmt.Fprintf(w, "%d\t%.4f\t%.3f\t%.6f\t%.4f\t%.8f\n", r.TrialID, r.X0, r.K0, r.Transmission, r.Position, r.Norm)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			mean, std := automation.MonteCarloStats(results)
			fmt.Printf("\ntransmission: %.6f ± %.6f\n", mean, std)
			return nil
		},
	}
	addConfigFlags(cmd)
	cmd.Flags().IntVar(&trials, "trials", 16, "number of trials")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent simulations (0 = GOMAXPROCS)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = time based)")
	cmd.Flags().Float64Var(&jitterX, "jitter-x0", 0.02, "uniform jitter of the packet center")
	cmd.Flags().Float64Var(&jitterK, "jitter-k0", 5, "uniform jitter of the packet wavenumber")
	return cmd
}

func newBenchCmd() *cobra.Command {
	var (
		steps int
		sizes []int
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark the propagators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			reg := experiment.NewRegistry()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROPAGATOR\tN\tSTEPS\tTIME\tSTEPS/SEC\tNORM ERR")
			for _, name := range reg.ListPropagators() {
				for _, n := range sizes {
					cfg := base.Clone()
					cfg.Propagator = name
					cfg.Points = n
					s, psi0, err := experiment.Build(cfg, reg, sim.HistoryPolicy{Mode: sim.HistoryWindow, Window: 1})
					if err != nil {
						return err
					}
					if err := s.SetInitialWavefunction(psi0); err != nil {
						return err
					}

					start := time.Now()
					for i := 0; i < steps; i++ {
						if err := s.Step(); err != nil {
							return err
						}
					}
					elapsed := time.Since(start)

					psi, err := s.Wavefunction()
					if err != nil {
						return err
					}
					drift := psi.NormSquared(s.Grid().Dx()) - 1
					fmt.Fprintf(w, "%s\t%d\t%d\t%v\t%.0f\t%.1e\n",
						name, n, steps, elapsed.Round(time.Microsecond), float64(steps)/elapsed.Seconds(), drift)
				}
			}
			return w.Flush()
		},
	}
	addConfigFlags(cmd)
	cmd.Flags().IntVar(&steps, "steps", 200, "steps per measurement")
	cmd.Flags().IntSliceVar(&sizes, "sizes", []int{200, 500, 1000}, "grid sizes")
	return cmd
}
