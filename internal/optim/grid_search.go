package optim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/san-kum/qbox/internal/config"
	"github.com/san-kum/qbox/internal/experiment"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Point is one evaluated parameter combination.
type Point struct {
	Params map[string]float64
	Value  float64
}

// GridSearch evaluates a metric over the cartesian product of parameter
// values. Parameters are dotted config names accepted by config.SetParam.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	Workers    int
	Logger     *slog.Logger
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, Workers: runtime.GOMAXPROCS(0)}
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

func (g *GridSearch) combinations() []map[string]float64 {
	combos := []map[string]float64{{}}
	for d, name := range g.paramNames {
		next := make([]map[string]float64, 0, len(combos)*len(g.ranges[d]))
		for _, c := range combos {
			for _, v := range g.ranges[d] {
				m := make(map[string]float64, len(c)+1)
				for k, cv := range c {
					m[k] = cv
				}
				m[name] = v
				next = append(next, m)
			}
		}
		combos = next
	}
	return combos
}

// Sweep runs one experiment per combination and returns every point in
// grid order. Each run clones base, so nothing is shared between workers.
func (g *GridSearch) Sweep(ctx context.Context, base *config.Config, registry *experiment.Registry, metric string) ([]Point, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("optim: %d parameter names but %d ranges", len(g.paramNames), len(g.ranges))
	}
	if registry == nil {
		registry = experiment.NewRegistry()
	}
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}

	combos := g.combinations()
	points := make([]Point, len(combos))
	quiet := slog.New(slog.DiscardHandler)

	var mu sync.Mutex
	done := 0

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(g.Workers, 1))
	for i, params := range combos {
		eg.Go(func() error {
			cfg := base.Clone()
			for name, v := range params {
				if err := cfg.SetParam(name, v); err != nil {
					return err
				}
			}
			res, err := experiment.Run(ctx, cfg, registry, quiet)
			if err != nil {
				return fmt.Errorf("point %v: %w", params, err)
			}
			val, ok := res.Value(metric)
			if !ok {
				return fmt.Errorf("optim: result has no value %q", metric)
			}
			points[i] = Point{Params: params, Value: val}

			mu.Lock()
			done++
			logger.Info("sweep point", "done", done, "of", len(combos), "params", params, metric, val)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// Search returns the combination minimizing the metric.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, registry *experiment.Registry, metric string) (map[string]float64, float64, error) {
	points, err := g.Sweep(ctx, base, registry, metric)
	if err != nil {
		return nil, math.NaN(), err
	}
	best := Best(points, false)
	return best.Params, best.Value, nil
}

// Best returns the point with the smallest (or largest) value.
func Best(points []Point, maximize bool) Point {
	if len(points) == 0 {
		return Point{Value: math.NaN()}
	}
	best := points[0]
	for _, p := range points[1:] {
		if (maximize && p.Value > best.Value) || (!maximize && p.Value < best.Value) {
			best = p
		}
	}
	return best
}

// Summary describes the distribution of values over a sweep.
type Summary struct {
	Mean, StdDev, Min, Max, Median float64
}

func Summarize(points []Point) Summary {
	if len(points) == 0 {
		return Summary{Mean: math.NaN(), StdDev: math.NaN(), Min: math.NaN(), Max: math.NaN(), Median: math.NaN()}
	}
	vals := make([]float64, len(points))
	for i, p := range points {
		vals[i] = p.Value
	}
	sort.Float64s(vals)

	s := Summary{Min: vals[0], Max: vals[len(vals)-1]}
	s.Median = stat.Quantile(0.5, stat.Empirical, vals, nil)
	if len(vals) > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(vals, nil)
	} else {
		s.Mean = vals[0]
	}
	return s
}
