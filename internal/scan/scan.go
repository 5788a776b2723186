// Package scan implements a two-phase pre-scan/ingest pipeline built on
// top of internal/walk, internal/contenthash, internal/imagehash,
// internal/videosnap, and internal/db.
package scan

import (
	"runtime"
	"time"

	"github.com/mnj/dupdupninja-v2/internal/videosnap"
	"github.com/mnj/dupdupninja-v2/internal/walk"
)

// Options configures one scan run.
type Options struct {
	// ExcludeDotfiles and ExcludePaths are forwarded to the walker unchanged.
	ExcludeDotfiles bool
	ExcludePaths    map[string]struct{}

	// Workers bounds the ingest worker pool. Zero selects the default,
	// max(1, min(logical_cpus, 8)).
	Workers int
	// Serial forces a single-worker pool regardless of Workers, matching
	// the ABI's `concurrent_processing=0` case. The zero value (false)
	// preserves the historical default of using the full pool.
	Serial bool

	// CaptureSnapshots gates the video snapshotter entirely. When false,
	// video files are still content-hashed but receive zero snapshot
	// rows — the same outcome as a nil VideoDecoder. The zero value
	// (false) means snapshots are off unless both this flag and a
	// VideoDecoder are set; ABI/CLI callers wire both together.
	CaptureSnapshots bool
	// VideoDecoder is the pluggable frame decoder used for video snapshots.
	// A nil decoder still ingests content hashes for video files, with
	// zero snapshot rows.
	VideoDecoder videosnap.Decoder
	// SnapshotCount and SnapshotMaxDim configure the Video Snapshotter;
	// zero values fall back to its own clamp defaults.
	SnapshotCount  int
	SnapshotMaxDim int
}

func (o Options) workers() int {
	if o.Serial {
		return 1
	}
	if o.Workers > 0 {
		return o.Workers
	}
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (o Options) walkOptions() walk.Options {
	return walk.Options{
		ExcludeDotfiles: o.ExcludeDotfiles,
		ExcludePaths:    o.ExcludePaths,
		NumWorkers:      o.workers(),
	}
}

func (o Options) videoOptions() videosnap.Options {
	return videosnap.Options{N: o.SnapshotCount, MaxDim: o.SnapshotMaxDim}
}

// commitBatchMaxSize and commitBatchMaxWait bound how long staged rows
// sit in memory before being flushed to the store: batches of up to 256
// staged sets, or every 500 ms, whichever comes first.
const (
	commitBatchMaxSize = 256
	commitBatchMaxWait = 500 * time.Millisecond
)

// progressReportInterval and progressReportFiles bound the progress
// callback's firing rate: no more often than every 100 ms or every 64
// files, whichever comes first.
const (
	progressReportInterval = 100 * time.Millisecond
	progressReportFiles    = 64
)

// Result summarises a finished scan run (fatal or successful).
type Result struct {
	Outcome      string // "completed", "cancelled", or "failed"
	FilesSeen    int64
	FilesHashed  int64
	FilesSkipped int64
	BytesSeen    int64
	ScanRunID    int64
	Err          error
}
