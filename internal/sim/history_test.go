package sim_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/qbox/internal/quantum"
	"github.com/san-kum/qbox/internal/sim"
)

var _ = Describe("History policies", func() {
	build := func(p sim.HistoryPolicy) *sim.Simulator {
		cfg := smallConfig()
		cfg.Points = 64
		cfg.History = p
		s, err := sim.New(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.SetInitialWavefunction(gaussianOn(s, 0.5, 0.05, 5))).To(Succeed())
		return s
	}

	It("retains every frame in full mode", func() {
		s := build(sim.HistoryPolicy{})
		for i := 0; i < 10; i++ {
			Expect(s.Step()).To(Succeed())
		}
		h := s.History()
		Expect(h.Len()).To(Equal(11))
		Expect(h.Total()).To(Equal(11))
		for i, f := range h.Frames() {
			Expect(f.Step).To(Equal(i))
		}
	})

	It("keeps the most recent frames in window mode", func() {
		s := build(sim.HistoryPolicy{Mode: sim.HistoryWindow, Window: 4})
		for i := 0; i < 10; i++ {
			Expect(s.Step()).To(Succeed())
		}
		h := s.History()
		Expect(h.Len()).To(Equal(4))
		Expect(h.Total()).To(Equal(11))
		Expect(h.At(0).Step).To(Equal(7))
		Expect(h.Latest().Step).To(Equal(10))

		steps := []int{}
		for _, f := range h.Frames() {
			steps = append(steps, f.Step)
		}
		Expect(steps).To(Equal([]int{7, 8, 9, 10}))
	})

	It("hands every frame to the sink in stream mode", func() {
		var seen []sim.Snapshot
		s := build(sim.HistoryPolicy{Mode: sim.HistoryStream, Sink: func(f sim.Snapshot) {
			seen = append(seen, f)
		}})
		for i := 0; i < 5; i++ {
			Expect(s.Step()).To(Succeed())
		}

		Expect(seen).To(HaveLen(6))
		Expect(seen[0].Step).To(Equal(0))
		Expect(seen[5].Time).To(BeNumerically("~", 5e-4, 1e-15))
		Expect(s.History().Len()).To(Equal(1))
		Expect(s.History().Total()).To(Equal(6))
		Expect(s.History().Latest().Step).To(Equal(5))
	})

	It("restarts on reinstallation", func() {
		s := build(sim.HistoryPolicy{Mode: sim.HistoryWindow, Window: 3})
		for i := 0; i < 5; i++ {
			Expect(s.Step()).To(Succeed())
		}
		Expect(s.SetInitialWavefunction(gaussianOn(s, 0.4, 0.05, 5))).To(Succeed())
		Expect(s.History().Len()).To(Equal(1))
		Expect(s.History().Total()).To(Equal(1))
		Expect(s.History().At(0).Step).To(BeZero())
	})

	It("panics on an out of range index", func() {
		s := build(sim.HistoryPolicy{})
		Expect(func() { s.History().At(1) }).To(Panic())
	})

	DescribeTable("parses mode names",
		func(name string, want sim.HistoryMode) {
			got, err := sim.ParseHistoryMode(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
			Expect(got.String()).To(Equal(map[sim.HistoryMode]string{
				sim.HistoryFull: "full", sim.HistoryWindow: "window", sim.HistoryStream: "stream",
			}[want]))
		},
		Entry("empty", "", sim.HistoryFull),
		Entry("full", "full", sim.HistoryFull),
		Entry("window", "Window", sim.HistoryWindow),
		Entry("stream", " stream ", sim.HistoryStream),
	)

	It("rejects unknown mode names", func() {
		_, err := sim.ParseHistoryMode("ring")
		Expect(err).To(MatchError(quantum.ErrInvalidConfig))
	})
})
