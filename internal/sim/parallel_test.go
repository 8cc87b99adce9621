package sim_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/qbox/internal/fields"
	"github.com/san-kum/qbox/internal/propagators"
	"github.com/san-kum/qbox/internal/sim"
)

var _ = Describe("Ensemble", func() {
	job := func(height float64) sim.Job {
		return sim.Job{
			Duration: 2e-3,
			Build: func() (*sim.Simulator, error) {
				cfg := smallConfig()
				cfg.Points = 100
				cfg.Propagator = propagators.NewCrankNicolson()
				s, err := sim.New(cfg)
				if err != nil {
					return nil, err
				}
				v, err := fields.Barrier(s.Grid().X(), height, 0.05, 0.5)
				if err != nil {
					return nil, err
				}
				if err := s.UpdatePotential(v); err != nil {
					return nil, err
				}
				psi, err := fields.Gaussian(s.Grid().X(), 0.3, 0.05, 40)
				if err != nil {
					return nil, err
				}
				return s, s.SetInitialWavefunction(psi)
			},
		}
	}

	It("runs independent simulators and keeps job order", func() {
		jobs := []sim.Job{job(0), job(10), job(100), job(1000)}
		out, err := sim.NewEnsemble(2).Run(context.Background(), jobs)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(4))
		for i, s := range out {
			Expect(s.Steps()).To(Equal(20))
			Expect(s.Potential()[50]).To(Equal([]float64{0, 10, 100, 1000}[i]))
		}
	})

	It("reports the first build failure", func() {
		boom := errors.New("boom")
		jobs := []sim.Job{job(0), {Build: func() (*sim.Simulator, error) { return nil, boom }}}
		_, err := sim.NewEnsemble(0).Run(context.Background(), jobs)
		Expect(err).To(MatchError(boom))
	})

	It("stops on cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := sim.NewEnsemble(1).Run(ctx, []sim.Job{job(0)})
		Expect(err).To(MatchError(context.Canceled))
	})
})
