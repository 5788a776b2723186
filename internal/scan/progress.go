package scan

import "sync/atomic"

// Progress holds live counters updated by the coordinator's goroutines.
// All fields are atomic so they can be written from worker goroutines and
// read from a progress callback without locks. Progress reporting happens
// no more often than every 100 ms or every 64 files, whichever comes
// first.
type Progress struct {
	// Phase 1 — pre-scan (walker only)
	FilesSeen atomic.Int64
	BytesSeen atomic.Int64
	DirsSeen  atomic.Int64

	// Phase 2 — ingest
	FilesHashed  atomic.Int64
	FilesSkipped atomic.Int64
	BytesRead    atomic.Int64

	// TotalFiles and TotalBytes are Phase 1's totals, carried into Phase 2
	// to drive determinate progress. Zero until Phase 1 finishes (or, for
	// RunFromTotals, until the caller-supplied totals are stored).
	TotalFiles atomic.Int64
	TotalBytes atomic.Int64

	current atomic.Pointer[currentState]
}

// currentState is the most recently reported (path, step) pair, published
// as a single immutable value so readers never see a torn combination of
// an old path with a new step or vice versa.
type currentState struct {
	path string
	step string
}

// setCurrent records the path and step a progress snapshot should report
// next: current path and current step during Phase 2, or the most
// recently visited directory during Phase 1.
func (p *Progress) setCurrent(path, step string) {
	p.current.Store(&currentState{path: path, step: step})
}

// Snapshot is an immutable copy of Progress for delivery to a callback.
type Snapshot struct {
	Phase        Phase
	FilesSeen    int64
	BytesSeen    int64
	DirsSeen     int64
	FilesHashed  int64
	FilesSkipped int64
	BytesRead    int64
	TotalFiles   int64
	TotalBytes   int64
	CurrentPath  string
	CurrentStep  string
}

func (p *Progress) snapshot(phase Phase) Snapshot {
	s := Snapshot{
		Phase:        phase,
		FilesSeen:    p.FilesSeen.Load(),
		BytesSeen:    p.BytesSeen.Load(),
		DirsSeen:     p.DirsSeen.Load(),
		FilesHashed:  p.FilesHashed.Load(),
		FilesSkipped: p.FilesSkipped.Load(),
		BytesRead:    p.BytesRead.Load(),
		TotalFiles:   p.TotalFiles.Load(),
		TotalBytes:   p.TotalBytes.Load(),
	}
	if cur := p.current.Load(); cur != nil {
		s.CurrentPath = cur.path
		s.CurrentStep = cur.step
	}
	return s
}

// Phase identifies which half of the two-phase pipeline is running.
type Phase int

const (
	PhasePreScan Phase = iota
	PhaseIngest
)

func (p Phase) String() string {
	switch p {
	case PhasePreScan:
		return "pre_scan"
	case PhaseIngest:
		return "ingest"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress snapshots during a scan. It must return
// quickly; the coordinator does not wait for slow callbacks beyond the
// reporting interval.
type ProgressFunc func(Snapshot)
