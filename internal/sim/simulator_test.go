package sim_test

import (
	"math"
	"math/cmplx"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/qbox/internal/fields"
	"github.com/san-kum/qbox/internal/propagators"
	"github.com/san-kum/qbox/internal/quantum"
	"github.com/san-kum/qbox/internal/sim"
)

func smallConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.Points = 200
	cfg.Dt = 1e-4
	return cfg
}

func gaussianOn(s *sim.Simulator, x0, sigma, k0 float64) []complex128 {
	psi, err := fields.Gaussian(s.Grid().X(), x0, sigma, k0)
	Expect(err).NotTo(HaveOccurred())
	return psi
}

func norm(s *sim.Simulator) float64 {
	psi, err := s.Wavefunction()
	Expect(err).NotTo(HaveOccurred())
	return psi.NormSquared(s.Grid().Dx())
}

type recorder struct {
	steps []int
	times []float64
}

func (r *recorder) OnStep(step int, t float64, _ quantum.Wavefunction) {
	r.steps = append(r.steps, step)
	r.times = append(r.times, t)
}

type failing struct{ after int }

func (f *failing) Name() string { return "failing" }

func (f *failing) Propagate(h quantum.Hamiltonian, psi quantum.Wavefunction, tau float64) (quantum.Wavefunction, error) {
	if f.after == 0 {
		out := psi.Clone()
		out[0] = complex(math.NaN(), 0)
		return out, nil
	}
	f.after--
	return psi.Clone(), nil
}

var _ = Describe("Simulator", func() {
	Describe("construction", func() {
		It("uses the documented defaults", func() {
			cfg := sim.DefaultConfig()
			Expect(cfg.Length).To(Equal(1.0))
			Expect(cfg.Points).To(Equal(500))
			Expect(cfg.Mass).To(Equal(1.0))
			Expect(cfg.Hbar).To(Equal(1.0))
			Expect(cfg.Dt).To(Equal(0.001))

			s, err := sim.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Potential()).To(HaveLen(500))
			Expect(s.Potential()).To(HaveEach(0.0))
			Expect(s.Propagator().Name()).To(Equal("krylov"))
			Expect(s.Grid().Dx()).To(BeNumerically("~", 1.0/499, 1e-15))
		})

		DescribeTable("rejects invalid configuration",
			func(mutate func(*sim.Config)) {
				cfg := sim.DefaultConfig()
				mutate(&cfg)
				_, err := sim.New(cfg)
				Expect(err).To(MatchError(quantum.ErrInvalidConfig))
			},
			Entry("zero length", func(c *sim.Config) { c.Length = 0 }),
			Entry("negative mass", func(c *sim.Config) { c.Mass = -1 }),
			Entry("zero hbar", func(c *sim.Config) { c.Hbar = 0 }),
			Entry("negative dt", func(c *sim.Config) { c.Dt = -0.1 }),
			Entry("NaN dt", func(c *sim.Config) { c.Dt = math.NaN() }),
			Entry("one point", func(c *sim.Config) { c.Points = 1 }),
			Entry("window without size", func(c *sim.Config) { c.History = sim.HistoryPolicy{Mode: sim.HistoryWindow} }),
			Entry("stream without sink", func(c *sim.Config) { c.History = sim.HistoryPolicy{Mode: sim.HistoryStream} }),
		)

		It("rejects a potential of the wrong length", func() {
			cfg := sim.DefaultConfig()
			cfg.Potential = make([]float64, 10)
			_, err := sim.New(cfg)
			Expect(err).To(MatchError(quantum.ErrDimensionMismatch))
		})
	})

	Describe("before installation", func() {
		var s *sim.Simulator

		BeforeEach(func() {
			var err error
			s, err = sim.New(smallConfig())
			Expect(err).NotTo(HaveOccurred())
		})

		It("refuses to step", func() {
			Expect(s.Step()).To(MatchError(quantum.ErrUninitialized))
			_, err := s.Evolve(0.01)
			Expect(err).To(MatchError(quantum.ErrUninitialized))
		})

		It("refuses observable queries", func() {
			_, err := s.ProbabilityDensity()
			Expect(err).To(MatchError(quantum.ErrUninitialized))
			_, err = s.ExpectationPosition()
			Expect(err).To(MatchError(quantum.ErrUninitialized))
			_, err = s.Wavefunction()
			Expect(err).To(MatchError(quantum.ErrUninitialized))
		})
	})

	Describe("installing a wavefunction", func() {
		var s *sim.Simulator

		BeforeEach(func() {
			var err error
			s, err = sim.New(smallConfig())
			Expect(err).NotTo(HaveOccurred())
		})

		It("normalizes to unit probability", func() {
			psi := gaussianOn(s, 0.5, 0.05, 10)
			for i := range psi {
				psi[i] *= 7
			}
			Expect(s.SetInitialWavefunction(psi)).To(Succeed())
			Expect(norm(s)).To(BeNumerically("~", 1.0, 1e-9))
		})

		It("keeps a defensive copy", func() {
			psi := gaussianOn(s, 0.5, 0.05, 10)
			Expect(s.SetInitialWavefunction(psi)).To(Succeed())
			first := s.History().At(0).Psi[100]
			psi[100] = 1000
			Expect(s.History().At(0).Psi[100]).To(Equal(first))
		})

		It("resets the clock and history", func() {
			Expect(s.SetInitialWavefunction(gaussianOn(s, 0.5, 0.05, 10))).To(Succeed())
			_, err := s.Evolve(0.001)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Time()).To(BeNumerically(">", 0))

			Expect(s.SetInitialWavefunction(gaussianOn(s, 0.3, 0.05, 10))).To(Succeed())
			Expect(s.Time()).To(Equal(0.0))
			Expect(s.Steps()).To(Equal(0))
			Expect(s.History().Len()).To(Equal(1))
		})

		It("rejects a length mismatch without mutating", func() {
			Expect(s.SetInitialWavefunction(gaussianOn(s, 0.5, 0.05, 10))).To(Succeed())
			before, _ := s.Wavefunction()

			err := s.SetInitialWavefunction(make([]complex128, 199))
			Expect(err).To(MatchError(quantum.ErrDimensionMismatch))

			after, _ := s.Wavefunction()
			Expect(after).To(Equal(before))
			Expect(s.History().Len()).To(Equal(1))
		})

		It("rejects a zero state", func() {
			err := s.SetInitialWavefunction(make([]complex128, 200))
			Expect(err).To(MatchError(quantum.ErrInvalidState))
		})
	})

	Describe("stepping", func() {
		var s *sim.Simulator

		BeforeEach(func() {
			var err error
			s, err = sim.New(smallConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.SetInitialWavefunction(gaussianOn(s, 0.3, 0.05, 20))).To(Succeed())
		})

		It("follows the history and clock laws for single steps", func() {
			for i := 0; i < 7; i++ {
				Expect(s.Step()).To(Succeed())
			}
			Expect(s.History().Len()).To(Equal(8))
			Expect(s.Steps()).To(Equal(7))
			Expect(s.Time()).To(BeNumerically("~", 7*1e-4, 1e-15))
			Expect(s.History().Latest().Step).To(Equal(7))
		})

		It("truncates the fractional step in bulk evolution", func() {
			total := 0.00125
			want := int(math.Floor(total / 1e-4))

			n, err := s.StepsFor(total)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(want))

			done, err := s.Evolve(total)
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(Equal(want))
			Expect(s.History().Len()).To(Equal(1 + want))
			Expect(s.Time()).To(BeNumerically("~", float64(want)*1e-4, 1e-15))
		})

		It("treats zero total time as no steps", func() {
			n, err := s.Evolve(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())
			Expect(s.History().Len()).To(Equal(1))
		})

		DescribeTable("rejects bad total times",
			func(total float64) {
				_, err := s.Evolve(total)
				Expect(err).To(MatchError(quantum.ErrInvalidConfig))
				Expect(s.History().Len()).To(Equal(1))
			},
			Entry("negative", -1.0),
			Entry("NaN", math.NaN()),
			Entry("infinite", math.Inf(1)),
		)

		It("stores independent snapshots", func() {
			Expect(s.Step()).To(Succeed())
			Expect(s.Step()).To(Succeed())
			a := s.History().At(1).Psi
			b := s.History().At(2).Psi
			Expect(&a[0]).NotTo(BeIdenticalTo(&b[0]))
			Expect(a).NotTo(Equal(b))
		})

		It("notifies observers on install and every step", func() {
			r := &recorder{}
			s.AddObserver(r)
			Expect(s.SetInitialWavefunction(gaussianOn(s, 0.3, 0.05, 20))).To(Succeed())
			_, err := s.Evolve(3e-4 + 1e-12)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.steps).To(Equal([]int{0, 1, 2, 3}))
			Expect(r.times[3]).To(BeNumerically("~", 3e-4, 1e-15))
		})
	})

	Describe("failure handling", func() {
		It("stops at the first failing step and keeps the completed ones", func() {
			cfg := smallConfig()
			cfg.Propagator = &failing{after: 3}
			s, err := sim.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.SetInitialWavefunction(gaussianOn(s, 0.5, 0.05, 0))).To(Succeed())

			n, err := s.Evolve(1e-3)
			Expect(n).To(Equal(3))
			Expect(err).To(MatchError(quantum.ErrInvalidState))

			var se *quantum.StepError
			Expect(err).To(BeAssignableToTypeOf(se))
			Expect(s.History().Len()).To(Equal(4))
			Expect(s.Steps()).To(Equal(3))

			psi, _ := s.Wavefunction()
			Expect(psi.IsValid()).To(BeTrue())
		})
	})

	Describe("potential updates", func() {
		var s *sim.Simulator

		BeforeEach(func() {
			var err error
			s, err = sim.New(smallConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.SetInitialWavefunction(gaussianOn(s, 0.3, 0.05, 20))).To(Succeed())
			_, err = s.Evolve(5e-4)
			Expect(err).NotTo(HaveOccurred())
		})

		It("leaves the kinetic term, state, clock and history untouched", func() {
			kin := s.Hamiltonian().Kinetic()
			psi, _ := s.Wavefunction()
			t, frames := s.Time(), s.History().Len()

			v, err := fields.Barrier(s.Grid().X(), 50, 0.05, 0.5)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.UpdatePotential(v)).To(Succeed())

			Expect(s.Hamiltonian().Kinetic()).To(Equal(kin))
			Expect(s.Potential()).To(Equal(v))
			after, _ := s.Wavefunction()
			Expect(after).To(Equal(psi))
			Expect(s.Time()).To(Equal(t))
			Expect(s.History().Len()).To(Equal(frames))
		})

		It("accepts a function of the grid", func() {
			err := s.UpdatePotentialFunc(func(x []float64) []float64 {
				v, _ := fields.Harmonic(x, 100, 1, 0.5)
				return v
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Potential()[0]).To(BeNumerically("~", 0.5*100*100*0.25, 1e-9))
		})

		It("rejects a length mismatch without mutating", func() {
			before := s.Potential()
			err := s.UpdatePotential(make([]float64, 3))
			Expect(err).To(MatchError(quantum.ErrDimensionMismatch))
			Expect(s.Potential()).To(Equal(before))
		})

		It("refreshes cached propagator data", func() {
			cfg := smallConfig()
			cfg.Points = 60
			cfg.Propagator = propagators.NewEigen()
			a, err := sim.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			cfg.Propagator = propagators.NewEigen()
			b, err := sim.New(cfg)
			Expect(err).NotTo(HaveOccurred())

			psi := gaussianOn(a, 0.3, 0.05, 20)
			Expect(a.SetInitialWavefunction(psi)).To(Succeed())
			Expect(b.SetInitialWavefunction(psi)).To(Succeed())
			Expect(a.Step()).To(Succeed())

			v, _ := fields.Barrier(a.Grid().X(), 500, 0.2, 0.5)
			Expect(a.UpdatePotential(v)).To(Succeed())
			Expect(b.UpdatePotential(v)).To(Succeed())
			Expect(b.SetInitialWavefunction(psi)).To(Succeed())
			Expect(b.Step()).To(Succeed())

			// a was factorized for the flat well; after the update both must agree
			Expect(a.SetInitialWavefunction(psi)).To(Succeed())
			Expect(a.Step()).To(Succeed())
			pa, _ := a.Wavefunction()
			pb, _ := b.Wavefunction()
			for i := range pa {
				Expect(cmplx.Abs(pa[i] - pb[i])).To(BeNumerically("<", 1e-12))
			}
		})
	})

	Describe("observables", func() {
		It("are idempotent", func() {
			s, err := sim.New(smallConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.SetInitialWavefunction(gaussianOn(s, 0.4, 0.05, 30))).To(Succeed())
			_, err = s.Evolve(1e-3)
			Expect(err).NotTo(HaveOccurred())

			d1, _ := s.ProbabilityDensity()
			x1, _ := s.ExpectationPosition()
			d2, _ := s.ProbabilityDensity()
			x2, _ := s.ExpectationPosition()
			Expect(d2).To(Equal(d1))
			Expect(x2).To(Equal(x1))
			Expect(s.Steps()).To(Equal(10))
		})

		It("keeps a symmetric free wavepacket centred", func() {
			s, err := sim.New(smallConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.SetInitialWavefunction(gaussianOn(s, 0.5, 0.05, 0))).To(Succeed())
			_, err = s.Evolve(0.01)
			Expect(err).NotTo(HaveOccurred())

			x, err := s.ExpectationPosition()
			Expect(err).NotTo(HaveOccurred())
			Expect(x).To(BeNumerically("~", 0.5, 1e-6))
		})

		It("conserves energy", func() {
			s, err := sim.New(smallConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.SetInitialWavefunction(gaussianOn(s, 0.3, 0.05, 20))).To(Succeed())
			e0, _ := s.ExpectationEnergy()
			_, err = s.Evolve(0.01)
			Expect(err).NotTo(HaveOccurred())
			e1, _ := s.ExpectationEnergy()
			Expect(math.Abs(e1-e0) / e0).To(BeNumerically("<", 1e-6))
		})
	})
})

var _ = Describe("Scenarios", Label("slow"), func() {
	It("A: free Gaussian packet over 5000 steps", func() {
		cfg := sim.DefaultConfig()
		cfg.Dt = 1e-4
		s, err := sim.New(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.SetInitialWavefunction(gaussianOn(s, 0.2, 0.05, 50))).To(Succeed())

		n, err := s.Evolve(0.5)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(5000))
		Expect(s.History().Len()).To(Equal(5001))
		Expect(s.Time()).To(BeNumerically("~", 0.5, 1e-12))
		Expect(norm(s)).To(BeNumerically("~", 1.0, 1e-6))
	})

	It("B: tunneling through a single barrier preserves the norm", func() {
		cfg := sim.DefaultConfig()
		cfg.Dt = 1e-4
		s, err := sim.New(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.UpdatePotentialFunc(func(x []float64) []float64 {
			v, _ := fields.Barrier(x, 50, 0.05, 0.5)
			return v
		})).To(Succeed())
		Expect(s.SetInitialWavefunction(gaussianOn(s, 0.2, 0.05, 80))).To(Succeed())

		_, err = s.Evolve(0.05)
		Expect(err).NotTo(HaveOccurred())
		Expect(norm(s)).To(BeNumerically("~", 1.0, 1e-6))
	})
})
