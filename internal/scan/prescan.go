package scan

import (
	"errors"
	"log/slog"

	"github.com/mnj/dupdupninja-v2/internal/cancel"
	"github.com/mnj/dupdupninja-v2/internal/scanerr"
	"github.com/mnj/dupdupninja-v2/internal/walk"
)

// preScan runs Phase 1: a walker-only pass that totals file counts and
// bytes without hashing, reporting progress as it goes.
func preScan(root string, tok *cancel.Token, opts Options, progress *Progress, rep *reporter, onProgress ProgressFunc) error {
	out := make(chan walk.FileInfo, 256)
	errCh := make(chan error, 1)

	walkOpts := opts.walkOptions()
	walkOpts.OnDir = func(dir string) {
		progress.DirsSeen.Add(1)
		progress.setCurrent(dir, "enumerate")
	}

	go func() {
		errCh <- walk.Walk(root, tok, walkOpts, out, func(path, reason string) {
			slog.Debug("scan: pre-scan skip", "path", path, "reason", reason)
		})
	}()

	for fi := range out {
		progress.FilesSeen.Add(1)
		progress.BytesSeen.Add(fi.Size)
		rep.maybeReport(progress, PhasePreScan, onProgress)
	}

	if onProgress != nil {
		onProgress(progress.snapshot(PhasePreScan))
	}

	return <-errCh
}

// PreScanResult carries the totals a standalone pre-scan pass computed,
// used to drive determinate progress in a subsequent ingest call and
// returned directly through the ABI's prescan_folder.
type PreScanResult struct {
	FilesSeen int64
	BytesSeen int64
	DirsSeen  int64
}

// PreScan runs Phase 1 in isolation, touching no fileset database at
// all: a read-only walk of root that counts files and bytes. Progress
// callbacks during this call carry only the pre-scan fields (files_seen,
// bytes_seen, dirs_seen, current_path).
func PreScan(root string, tok *cancel.Token, opts Options, onProgress ProgressFunc) (PreScanResult, error) {
	progress := &Progress{}
	rep := &reporter{}

	err := preScan(root, tok, opts, progress, rep, onProgress)
	snap := progress.snapshot(PhasePreScan)
	result := PreScanResult{FilesSeen: snap.FilesSeen, BytesSeen: snap.BytesSeen, DirsSeen: snap.DirsSeen}

	if err != nil {
		if errors.Is(err, walk.ErrCancelled) || tok.Cancelled() {
			return result, scanerr.New("scan.PreScan", scanerr.Cancelled, err)
		}
		return result, scanerr.New("scan.PreScan", scanerr.Io, err)
	}
	return result, nil
}
