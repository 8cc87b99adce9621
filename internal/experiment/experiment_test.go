package experiment_test

import (
	"bytes"
	"context"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/qbox/internal/config"
	"github.com/san-kum/qbox/internal/experiment"
	"github.com/san-kum/qbox/internal/quantum"
)

func quickConfig() *config.Config {
	cfg := config.GetPreset("tunneling")
	cfg.Points = 150
	cfg.Duration = 0.005
	cfg.Output.FrameStride = 10
	cfg.Output.ObserveStride = 5
	return cfg
}

var _ = Describe("Registry", func() {
	reg := experiment.NewRegistry()

	It("lists the built-in names", func() {
		Expect(reg.ListPotentials()).To(Equal([]string{"barrier", "double_barrier", "flat", "harmonic", "step"}))
		Expect(reg.ListStates()).To(Equal([]string{"eigenstate", "gaussian", "superposition"}))
		Expect(reg.ListPropagators()).To(Equal([]string{"crank-nicolson", "eigen", "krylov"}))
	})

	It("hands out fresh propagators", func() {
		a, err := reg.Propagator("eigen")
		Expect(err).NotTo(HaveOccurred())
		b, err := reg.Propagator("eigen")
		Expect(err).NotTo(HaveOccurred())
		Expect(a).NotTo(BeIdenticalTo(b))
	})

	It("reports unknown names", func() {
		_, err := reg.Propagator("euler")
		Expect(err).To(MatchError(experiment.ErrUnknownPropagator))
		_, err = reg.Potential([]float64{0, 1}, config.PotentialConfig{Kind: "well"}, 1)
		Expect(err).To(MatchError(experiment.ErrUnknownPotential))
		_, err = reg.State([]float64{0, 1}, config.StateConfig{Kind: "coherent"}, 1)
		Expect(err).To(MatchError(experiment.ErrUnknownState))
	})

	It("centres barrier and harmonic potentials in the box by default", func() {
		x := []float64{0, 0.5, 1, 1.5, 2}
		v, err := reg.Potential(x, config.PotentialConfig{Kind: "barrier", Height: 5, Width: 0.2}, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal([]float64{0, 0, 5, 0, 0}))

		v, err = reg.Potential(x, config.PotentialConfig{Kind: "harmonic", Omega: 1}, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(v[2]).To(BeZero())
		Expect(v[0]).To(Equal(v[4]))

		p := config.PotentialConfig{Kind: "barrier", Height: 5, Width: 0.2}
		p.SetCenter(0.5)
		v, err = reg.Potential(x, p, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal([]float64{0, 5, 0, 0, 0}))
	})

	It("accepts custom generators", func() {
		r := experiment.NewRegistry()
		r.RegisterPotential("ramp", func(x []float64, p config.PotentialConfig, _ float64) ([]float64, error) {
			v := make([]float64, len(x))
			for i, xi := range x {
				v[i] = p.Height * xi
			}
			return v, nil
		})
		v, err := r.Potential([]float64{0, 0.5, 1}, config.PotentialConfig{Kind: "ramp", Height: 2}, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal([]float64{0, 1, 2}))
	})
})

var _ = Describe("Experiment", func() {
	var logs *bytes.Buffer
	var logger *slog.Logger

	BeforeEach(func() {
		logs = &bytes.Buffer{}
		logger = slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	})

	It("runs a configured tunneling experiment", func() {
		exp := experiment.New(quickConfig(), nil, logger)
		Expect(exp.Setup()).To(Succeed())

		res, err := exp.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Steps).To(Equal(50))
		Expect(res.Time).To(BeNumerically("~", 0.005, 1e-12))
		Expect(res.Grid).To(HaveLen(150))
		Expect(res.Potential).To(ContainElement(50.0))

		Expect(res.Frames).To(HaveLen(6))
		Expect(res.Frames[5].Step).To(Equal(50))
		Expect(res.Observations).To(HaveLen(11))

		Expect(res.Metrics).To(HaveKey("norm_drift"))
		Expect(res.Metrics["norm_drift"]).To(BeNumerically("<", 1e-9))
		Expect(res.Metrics).To(HaveKey("energy_drift"))
		Expect(res.Metrics).To(HaveKey("position_mean"))

		Expect(res.Transmission + res.Reflection).To(BeNumerically("~", 1.0, 1e-6))
		Expect(res.Transmission).To(BeNumerically(">", 0))

		Expect(logs.String()).To(ContainSubstring("run complete"))
		Expect(logs.String()).To(ContainSubstring("experiment ready"))
	})

	It("streams frames through the logger in stream mode", func() {
		cfg := quickConfig()
		cfg.History = config.HistoryConfig{Mode: "stream"}
		exp := experiment.New(cfg, nil, logger)
		Expect(exp.Setup()).To(Succeed())
		_, err := exp.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(exp.Simulator().History().Len()).To(Equal(1))
		Expect(exp.Simulator().History().Total()).To(Equal(51))
		Expect(logs.String()).To(ContainSubstring("msg=frame"))
	})

	It("fails setup on a bad configuration", func() {
		cfg := quickConfig()
		cfg.Dt = 0
		Expect(experiment.New(cfg, nil, logger).Setup()).To(MatchError(quantum.ErrInvalidConfig))

		cfg = quickConfig()
		cfg.Propagator = "leapfrog"
		Expect(experiment.New(cfg, nil, logger).Setup()).To(MatchError(experiment.ErrUnknownPropagator))

		cfg = quickConfig()
		cfg.Potential.Width = 0
		Expect(experiment.New(cfg, nil, logger).Setup()).To(HaveOccurred())
	})

	It("refuses to run before setup", func() {
		_, err := experiment.New(quickConfig(), nil, logger).Run(context.Background())
		Expect(err).To(HaveOccurred())
	})

	It("stops when the context is cancelled", func() {
		exp := experiment.New(quickConfig(), nil, logger)
		Expect(exp.Setup()).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := exp.Run(ctx)
		Expect(err).To(MatchError(context.Canceled))
		Expect(res.Steps).To(BeZero())
		Expect(logs.String()).To(ContainSubstring("run aborted"))
	})

	DescribeTable("runs every preset briefly",
		func(name string) {
			cfg := config.GetPreset(name)
			Expect(cfg).NotTo(BeNil())
			cfg.Points = 100
			cfg.Duration = 10 * cfg.Dt
			exp := experiment.New(cfg, nil, logger)
			Expect(exp.Setup()).To(Succeed())
			res, err := exp.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Steps).To(Equal(10))
		},
		Entry("gaussian", "gaussian"),
		Entry("tunneling", "tunneling"),
		Entry("double_barrier", "double_barrier"),
		Entry("superposition", "superposition"),
		Entry("eigenstate", "eigenstate"),
		Entry("harmonic", "harmonic"),
	)
})

var _ = Describe("Result values", func() {
	It("resolves metrics and derived quantities", func() {
		res, err := experiment.Run(context.Background(), quickConfig(), nil, slog.New(slog.DiscardHandler))
		Expect(err).NotTo(HaveOccurred())

		for _, name := range []string{"transmission", "reflection", "steps", "time", "norm_drift", "energy_drift", "position_mean"} {
			_, ok := res.Value(name)
			Expect(ok).To(BeTrue(), name)
		}
		steps, _ := res.Value("steps")
		Expect(steps).To(Equal(50.0))
		_, ok := res.Value("lyapunov")
		Expect(ok).To(BeFalse())
	})
})
