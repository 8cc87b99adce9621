package sim

import (
	"fmt"
	"strings"

	"github.com/san-kum/qbox/internal/quantum"
)

// Snapshot is one history frame. Psi is an independent copy owned by the
// history and must not be modified.
type Snapshot struct {
	Step int
	Time float64
	Psi  quantum.Wavefunction
}

type HistoryMode int

const (
	// HistoryFull retains every frame.
	HistoryFull HistoryMode = iota
	// HistoryWindow retains the most recent Window frames.
	HistoryWindow
	// HistoryStream hands every frame to Sink and retains only the latest.
	HistoryStream
)

func (m HistoryMode) String() string {
	switch m {
	case HistoryFull:
		return "full"
	case HistoryWindow:
		return "window"
	case HistoryStream:
		return "stream"
	}
	return fmt.Sprintf("HistoryMode(%d)", int(m))
}

func ParseHistoryMode(s string) (HistoryMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return HistoryFull, nil
	case "window":
		return HistoryWindow, nil
	case "stream":
		return HistoryStream, nil
	}
	return 0, fmt.Errorf("%w: unknown history mode %q", quantum.ErrInvalidConfig, s)
}

type HistoryPolicy struct {
	Mode   HistoryMode
	Window int
	Sink   func(Snapshot)
}

func (p HistoryPolicy) validate() error {
	switch p.Mode {
	case HistoryFull:
	case HistoryWindow:
		if p.Window < 1 {
			return fmt.Errorf("%w: history window must be at least 1, got %d", quantum.ErrInvalidConfig, p.Window)
		}
	case HistoryStream:
		if p.Sink == nil {
			return fmt.Errorf("%w: stream history needs a sink", quantum.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown history mode %d", quantum.ErrInvalidConfig, int(p.Mode))
	}
	return nil
}

// History is the read side of the frame store. At indexes retained frames,
// oldest first, and panics when i is outside [0, Len()).
type History interface {
	Len() int
	Total() int
	At(i int) Snapshot
	Latest() Snapshot
	Frames() []Snapshot
}

// ring stores frames for all three modes; limit 0 means unbounded.
type ring struct {
	limit  int
	sink   func(Snapshot)
	frames []Snapshot
	head   int
	total  int
}

func newRing(p HistoryPolicy) *ring {
	r := &ring{}
	switch p.Mode {
	case HistoryWindow:
		r.limit = p.Window
	case HistoryStream:
		r.limit = 1
		r.sink = p.Sink
	}
	return r
}

func (r *ring) reset(s Snapshot) {
	for i := range r.frames {
		r.frames[i] = Snapshot{}
	}
	r.frames = r.frames[:0]
	r.head = 0
	r.total = 0
	r.append(s)
}

func (r *ring) append(s Snapshot) {
	r.total++
	if r.sink != nil {
		r.sink(s)
	}
	if r.limit == 0 || len(r.frames) < r.limit {
		r.frames = append(r.frames, s)
		return
	}
	r.frames[r.head] = s
	r.head = (r.head + 1) % r.limit
}

func (r *ring) Len() int   { return len(r.frames) }
func (r *ring) Total() int { return r.total }

func (r *ring) At(i int) Snapshot {
	if i < 0 || i >= len(r.frames) {
		panic(fmt.Sprintf("sim: history index %d out of range [0, %d)", i, len(r.frames)))
	}
	return r.frames[(r.head+i)%len(r.frames)]
}

func (r *ring) Latest() Snapshot {
	if len(r.frames) == 0 {
		return Snapshot{}
	}
	return r.At(len(r.frames) - 1)
}

func (r *ring) Frames() []Snapshot {
	out := make([]Snapshot, len(r.frames))
	for i := range out {
		out[i] = r.At(i)
	}
	return out
}
