package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/san-kum/qbox/internal/config"
	"github.com/san-kum/qbox/internal/experiment"
	"github.com/san-kum/qbox/internal/metrics"
	"github.com/san-kum/qbox/internal/quantum"
	"github.com/san-kum/qbox/internal/sim"
)

const (
	metadataFile    = "metadata.json"
	configFile      = "config.yaml"
	observablesFile = "observables.csv"
	framesFile      = "frames.csv"
	potentialFile   = "potential.csv"
)

// Store keeps one directory per run under baseDir.
type Store struct {
	baseDir string
	log     *slog.Logger
}

func New(baseDir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{baseDir: baseDir, log: logger}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Timestamp    time.Time          `json:"timestamp"`
	Points       int                `json:"points"`
	Dt           float64            `json:"dt"`
	Duration     float64            `json:"duration"`
	Steps        int                `json:"steps"`
	Time         float64            `json:"time"`
	Propagator   string             `json:"propagator"`
	Potential    string             `json:"potential"`
	Initial      string             `json:"initial"`
	Transmission float64            `json:"transmission"`
	Reflection   float64            `json:"reflection"`
	WallSeconds  float64            `json:"wall_seconds"`
	Metrics      map[string]float64 `json:"metrics"`
}

// PotentialRow is one line of potential.csv.
type PotentialRow struct {
	X float64 `csv:"x"`
	V float64 `csv:"v"`
}

// FrameRow is one grid point of one saved frame in frames.csv.
type FrameRow struct {
	Step    int     `csv:"step"`
	Time    float64 `csv:"time"`
	Index   int     `csv:"index"`
	X       float64 `csv:"x"`
	Re      float64 `csv:"re"`
	Im      float64 `csv:"im"`
	Density float64 `csv:"density"`
}

// Save writes a run directory and returns its id.
func (s *Store) Save(name string, res *experiment.Result) (string, error) {
	if name == "" {
		name = "run"
	}
	runID := fmt.Sprintf("%s_%d", name, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	cfg := res.Config
	meta := RunMetadata{
		ID:           runID,
		Name:         name,
		Timestamp:    time.Now(),
		Points:       cfg.Points,
		Dt:           cfg.Dt,
		Duration:     cfg.Duration,
		Steps:        res.Steps,
		Time:         res.Time,
		Propagator:   cfg.Propagator,
		Potential:    cfg.Potential.Kind,
		Initial:      cfg.Initial.Kind,
		Transmission: res.Transmission,
		Reflection:   res.Reflection,
		WallSeconds:  res.Wall.Seconds(),
		Metrics:      res.Metrics,
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
		return "", err
	}

	if err := writeCSV(filepath.Join(runDir, observablesFile), res.Observations); err != nil {
		return "", err
	}

	pot := make([]PotentialRow, len(res.Grid))
	for i, x := range res.Grid {
		pot[i] = PotentialRow{X: x, V: res.Potential[i]}
	}
	if err := writeCSV(filepath.Join(runDir, potentialFile), pot); err != nil {
		return "", err
	}

	rows := make([]FrameRow, 0, len(res.Frames)*len(res.Grid))
	for _, f := range res.Frames {
		for i, c := range f.Psi {
			rows = append(rows, FrameRow{
				Step:    f.Step,
				Time:    f.Time,
				Index:   i,
				X:       res.Grid[i],
				Re:      real(c),
				Im:      imag(c),
				Density: real(c)*real(c) + imag(c)*imag(c),
			})
		}
	}
	if err := writeCSV(filepath.Join(runDir, framesFile), rows); err != nil {
		return "", err
	}

	s.log.Info("run saved", "id", runID, "frames", len(res.Frames), "observations", len(res.Observations))
	return runID, nil
}

// List returns the metadata of every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			s.log.Debug("skipping run directory", "dir", entry.Name(), "err", err)
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, configFile))
}

func (s *Store) LoadObservations(runID string) ([]metrics.Observation, error) {
	var rows []metrics.Observation
	if err := readCSV(filepath.Join(s.baseDir, runID, observablesFile), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) LoadPotential(runID string) (x, v []float64, err error) {
	var rows []PotentialRow
	if err := readCSV(filepath.Join(s.baseDir, runID, potentialFile), &rows); err != nil {
		return nil, nil, err
	}
	x = make([]float64, len(rows))
	v = make([]float64, len(rows))
	for i, r := range rows {
		x[i], v[i] = r.X, r.V
	}
	return x, v, nil
}

// LoadFrames rebuilds the saved snapshots in step order.
func (s *Store) LoadFrames(runID string) ([]sim.Snapshot, error) {
	var rows []FrameRow
	if err := readCSV(filepath.Join(s.baseDir, runID, framesFile), &rows); err != nil {
		return nil, err
	}

	var frames []sim.Snapshot
	for _, r := range rows {
		if len(frames) == 0 || frames[len(frames)-1].Step != r.Step {
			frames = append(frames, sim.Snapshot{Step: r.Step, Time: r.Time})
		}
		f := &frames[len(frames)-1]
		if r.Index != len(f.Psi) {
			return nil, fmt.Errorf("run %s: frame %d has point %d out of order", runID, r.Step, r.Index)
		}
		f.Psi = append(f.Psi, complex(r.Re, r.Im))
	}
	for _, f := range frames {
		if len(f.Psi) != len(frames[0].Psi) {
			return nil, fmt.Errorf("%w: run %s frame %d has %d points", quantum.ErrDimensionMismatch, runID, f.Step, len(f.Psi))
		}
	}
	return frames, nil
}

// LoadResult reassembles a saved run into the shape the exporters take.
// Wall time is restored from the metadata at second resolution.
func (s *Store) LoadResult(runID string) (*experiment.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.LoadConfig(runID)
	if err != nil {
		return nil, err
	}
	obs, err := s.LoadObservations(runID)
	if err != nil {
		return nil, err
	}
	x, v, err := s.LoadPotential(runID)
	if err != nil {
		return nil, err
	}
	frames, err := s.LoadFrames(runID)
	if err != nil {
		return nil, err
	}
	return &experiment.Result{
		Config:       cfg,
		Grid:         x,
		Potential:    v,
		Steps:        meta.Steps,
		Time:         meta.Time,
		Wall:         time.Duration(meta.WallSeconds * float64(time.Second)),
		Metrics:      meta.Metrics,
		Observations: obs,
		Frames:       frames,
		Transmission: meta.Transmission,
		Reflection:   meta.Reflection,
	}, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return closeWith(f, enc.Encode(v))
}

func writeCSV[T any](path string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return f.Close()
	}
	return closeWith(f, gocsv.Marshal(rows, f))
}

// closeWith closes c and returns err, or the close error when err is nil.
func closeWith(c io.Closer, err error) error {
	if err != nil {
		c.Close()
		return err
	}
	return c.Close()
}

func readCSV[T any](path string, out *[]T) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		*out = nil
		return nil
	}
	return gocsv.UnmarshalFile(f, out)
}
