package storage

import (
	"encoding/json"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/san-kum/qbox/internal/experiment"
	"github.com/san-kum/qbox/internal/metrics"
)

// ExportFrame is a frame in the JSON export, split into parts.
type ExportFrame struct {
	Step    int       `json:"step"`
	Time    float64   `json:"time"`
	Re      []float64 `json:"re"`
	Im      []float64 `json:"im"`
	Density []float64 `json:"density"`
}

type ExportData struct {
	Points       int                   `json:"points"`
	Dt           float64               `json:"dt"`
	Duration     float64               `json:"duration"`
	Steps        int                   `json:"steps"`
	Propagator   string                `json:"propagator"`
	Grid         []float64             `json:"grid"`
	Potential    []float64             `json:"potential"`
	Observations []metrics.Observation `json:"observations"`
	Frames       []ExportFrame         `json:"frames"`
	Metrics      map[string]float64    `json:"metrics"`
	Transmission float64               `json:"transmission"`
	Reflection   float64               `json:"reflection"`
}

func NewExportData(res *experiment.Result) ExportData {
	data := ExportData{
		Points:       res.Config.Points,
		Dt:           res.Config.Dt,
		Duration:     res.Config.Duration,
		Steps:        res.Steps,
		Propagator:   res.Config.Propagator,
		Grid:         res.Grid,
		Potential:    res.Potential,
		Observations: res.Observations,
		Frames:       make([]ExportFrame, len(res.Frames)),
		Metrics:      res.Metrics,
		Transmission: res.Transmission,
		Reflection:   res.Reflection,
	}
	for i, f := range res.Frames {
		ef := ExportFrame{
			Step:    f.Step,
			Time:    f.Time,
			Re:      make([]float64, len(f.Psi)),
			Im:      make([]float64, len(f.Psi)),
			Density: f.Psi.Density(),
		}
		for j, c := range f.Psi {
			ef.Re[j], ef.Im[j] = real(c), imag(c)
		}
		data.Frames[i] = ef
	}
	return data
}

// ExportJSON writes the run as indented JSON.
func ExportJSON(w io.Writer, res *experiment.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewExportData(res))
}

// ExportCSV writes the observables table.
func ExportCSV(w io.Writer, res *experiment.Result) error {
	return gocsv.Marshal(res.Observations, w)
}
