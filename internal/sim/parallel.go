package sim

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ctxCheckEvery is how many steps a job takes between context checks.
const ctxCheckEvery = 64

// Job is one independent run in an ensemble. Build must return a fresh
// simulator, with its own propagator and an installed initial state.
type Job struct {
	Build    func() (*Simulator, error)
	Duration float64
}

// Ensemble evolves independent simulators in parallel, at most Workers at a
// time.
type Ensemble struct {
	Workers int
}

func NewEnsemble(workers int) *Ensemble {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Ensemble{Workers: workers}
}

// Run evolves every job for its duration and returns the simulators in job
// order. The first failure cancels the remaining jobs.
func (e *Ensemble) Run(ctx context.Context, jobs []Job) ([]*Simulator, error) {
	out := make([]*Simulator, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Workers)
	for i, job := range jobs {
		g.Go(func() error {
			s, err := job.Build()
			if err != nil {
				return fmt.Errorf("job %d: %w", i, err)
			}
			if err := EvolveContext(ctx, s, job.Duration); err != nil {
				return fmt.Errorf("job %d: %w", i, err)
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// EvolveContext is Evolve with a cancellation check between steps.
func EvolveContext(ctx context.Context, s *Simulator, totalTime float64) error {
	n, err := s.StepsFor(totalTime)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}
