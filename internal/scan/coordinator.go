package scan

import (
	"errors"
	"log/slog"
	"time"

	"github.com/mnj/dupdupninja-v2/internal/cancel"
	"github.com/mnj/dupdupninja-v2/internal/db"
	"github.com/mnj/dupdupninja-v2/internal/volume"
	"github.com/mnj/dupdupninja-v2/internal/walk"
)

// Run executes one full two-phase scan of root against store: Phase 1
// totals the walk, Phase 2 hashes and commits. It always records a
// scan_run row, even on cancellation or fatal error, so the fileset
// retains a history of every attempt.
func Run(store *db.Store, root string, tok *cancel.Token, opts Options, progress *Progress, onProgress ProgressFunc) Result {
	startedAt := time.Now()

	rootIsMount := volume.IsMountPoint(root)
	if err := store.EnsureMetadata(root, rootIsMount); err != nil {
		return finalise(store, root, startedAt, progress, "failed", err)
	}

	rep := &reporter{}

	if err := preScan(root, tok, opts, progress, rep, onProgress); err != nil {
		if errors.Is(err, walk.ErrCancelled) || tok.Cancelled() {
			return finalise(store, root, startedAt, progress, "cancelled", nil)
		}
		return finalise(store, root, startedAt, progress, "failed", err)
	}

	if tok.Cancelled() {
		return finalise(store, root, startedAt, progress, "cancelled", nil)
	}

	progress.TotalFiles.Store(progress.FilesSeen.Load())
	progress.TotalBytes.Store(progress.BytesSeen.Load())

	return runIngestPhase(store, root, tok, opts, progress, rep, onProgress, startedAt)
}

// RunFromTotals executes Phase 2 only, seeding Phase 1's totals from a
// prior standalone PreScan call rather than re-walking the tree to compute
// them. This backs the ABI's
// scan_folder_to_sqlite_with_progress_totals_and_options, whose signature
// accepts total_files/total_bytes as explicit parameters — a caller that
// already ran prescan_folder for an early progress bar passes those totals
// straight through instead of paying for a second enumeration pass. A
// zero PreScanResult falls back to running Phase 1 internally, matching
// Run.
func RunFromTotals(store *db.Store, root string, tok *cancel.Token, opts Options, progress *Progress, totals PreScanResult, onProgress ProgressFunc) Result {
	if totals.FilesSeen == 0 && totals.BytesSeen == 0 {
		return Run(store, root, tok, opts, progress, onProgress)
	}

	startedAt := time.Now()

	rootIsMount := volume.IsMountPoint(root)
	if err := store.EnsureMetadata(root, rootIsMount); err != nil {
		return finalise(store, root, startedAt, progress, "failed", err)
	}

	// No Phase 1 walk runs here, so FilesSeen/BytesSeen (normally
	// incremented by the walker) have to be seeded from the caller's
	// totals directly, alongside TotalFiles/TotalBytes.
	progress.FilesSeen.Store(totals.FilesSeen)
	progress.BytesSeen.Store(totals.BytesSeen)
	progress.TotalFiles.Store(totals.FilesSeen)
	progress.TotalBytes.Store(totals.BytesSeen)
	progress.DirsSeen.Store(totals.DirsSeen)

	rep := &reporter{}
	return runIngestPhase(store, root, tok, opts, progress, rep, onProgress, startedAt)
}

func runIngestPhase(store *db.Store, root string, tok *cancel.Token, opts Options, progress *Progress, rep *reporter, onProgress ProgressFunc, startedAt time.Time) Result {
	ingestErr := ingest(store, root, tok, opts, progress, rep, onProgress)

	outcome := "completed"
	var resultErr error
	switch {
	case ingestErr != nil && !errors.Is(ingestErr, walk.ErrCancelled):
		// A fatal error also fires tok (see abortSignal), so it must be
		// checked before the plain cancellation case.
		outcome = "failed"
		resultErr = ingestErr
	case tok.Cancelled():
		outcome = "cancelled"
	}

	return finalise(store, root, startedAt, progress, outcome, resultErr)
}

func finalise(store *db.Store, root string, startedAt time.Time, progress *Progress, outcome string, err error) Result {
	finishedAt := time.Now().UnixMilli()
	snap := progress.snapshot(PhaseIngest)

	runID, insErr := store.InsertScanRun(db.ScanRun{
		Root:         root,
		StartedAtMs:  startedAt.UnixMilli(),
		FinishedAtMs: &finishedAt,
		Outcome:      outcome,
		FilesSeen:    snap.FilesSeen,
		FilesHashed:  snap.FilesHashed,
		FilesSkipped: snap.FilesSkipped,
		BytesSeen:    snap.BytesSeen,
	})
	if insErr != nil {
		slog.Error("scan: failed to record scan_run", "error", insErr)
	}

	return Result{
		Outcome:      outcome,
		FilesSeen:    snap.FilesSeen,
		FilesHashed:  snap.FilesHashed,
		FilesSkipped: snap.FilesSkipped,
		BytesSeen:    snap.BytesSeen,
		ScanRunID:    runID,
		Err:          err,
	}
}
