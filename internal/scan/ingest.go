package scan

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mnj/dupdupninja-v2/internal/cancel"
	"github.com/mnj/dupdupninja-v2/internal/contenthash"
	"github.com/mnj/dupdupninja-v2/internal/db"
	"github.com/mnj/dupdupninja-v2/internal/imagehash"
	"github.com/mnj/dupdupninja-v2/internal/scanerr"
	"github.com/mnj/dupdupninja-v2/internal/videosnap"
	"github.com/mnj/dupdupninja-v2/internal/walk"
)

// reporter throttles progress callbacks to at most every
// progressReportFiles files or progressReportInterval, whichever comes
// first. Shared across ingest workers behind a mutex since the frequency
// bound is generous relative to lock contention.
type reporter struct {
	mu    sync.Mutex
	last  time.Time
	count int
}

func (r *reporter) maybeReport(progress *Progress, phase Phase, onProgress ProgressFunc) {
	if onProgress == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	if r.count < progressReportFiles && time.Since(r.last) < progressReportInterval {
		return
	}
	r.count = 0
	r.last = time.Now()
	onProgress(progress.snapshot(phase))
}

// abortSignal lets any ingest goroutine escalate a fatal error (writer
// failure, DB invariant violation) into cancelling the whole run while
// keeping only the first such error.
type abortSignal struct {
	once sync.Once
	err  error
	tok  *cancel.Token
}

func (a *abortSignal) trigger(err error) {
	a.once.Do(func() {
		a.err = err
		a.tok.Cancel()
	})
}

// ingest runs Phase 2: bounded-parallel hashing and a single-writer
// commit queue. Per-file Io/Decode failures are isolated (recorded as
// skips); everything else aborts the run.
func ingest(store *db.Store, root string, tok *cancel.Token, opts Options, progress *Progress, rep *reporter, onProgress ProgressFunc) error {
	walkOut := make(chan walk.FileInfo, 256)
	walkErrCh := make(chan error, 1)
	walkOpts := opts.walkOptions()
	walkOpts.OnDir = func(dir string) {
		progress.setCurrent(dir, "enumerate")
	}
	go func() {
		walkErrCh <- walk.Walk(root, tok, walkOpts, walkOut, func(path, reason string) {
			slog.Debug("scan: ingest skip", "path", path, "reason", reason)
		})
	}()

	commitCh := make(chan db.StagedFile, opts.workers()*4)
	abort := &abortSignal{tok: tok}

	var wg sync.WaitGroup
	numWorkers := opts.workers()
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ingestWorker(walkOut, commitCh, tok, opts, progress, rep, onProgress, abort)
		}()
	}

	writerDone := runWriter(store, commitCh, abort, progress)

	wg.Wait()
	close(commitCh)
	<-writerDone

	walkErr := <-walkErrCh

	if abort.err != nil {
		return abort.err
	}
	return walkErr
}

func ingestWorker(in <-chan walk.FileInfo, commitCh chan<- db.StagedFile, tok *cancel.Token, opts Options, progress *Progress, rep *reporter, onProgress ProgressFunc, abort *abortSignal) {
	for fi := range in {
		if tok.Cancelled() {
			continue // drain without processing; scan is ending
		}

		progress.setCurrent(fi.Path, "hash")
		staged, err := processFile(fi, opts, tok, progress)
		if err != nil {
			if scanerr.KindOf(err) == scanerr.Cancelled {
				continue
			}
			if scanerr.KindOf(err).Isolated() {
				progress.FilesSkipped.Add(1)
				slog.Warn("scan: ingest isolated failure", "path", fi.Path, "error", err)
				continue
			}
			abort.trigger(err)
			continue
		}

		if tok.Cancelled() {
			continue
		}

		commitCh <- staged

		progress.FilesHashed.Add(1)
		progress.BytesRead.Add(fi.Size)
		rep.maybeReport(progress, PhaseIngest, onProgress)
	}
}

// processFile computes the content hash and, for image/video media, the
// perceptual hashes for one file. Isolated failures (Io, Decode) leave the
// corresponding optional fields unset rather than failing the whole file,
// except when the content hash itself fails (no file row is worth writing
// without it).
func processFile(fi walk.FileInfo, opts Options, tok *cancel.Token, progress *Progress) (db.StagedFile, error) {
	digest, err := contenthash.File(fi.Path, tok)
	if err != nil {
		return db.StagedFile{}, err
	}

	staged := db.StagedFile{
		Path:         fi.Path,
		SizeBytes:    fi.Size,
		FileType:     fi.MediaClass.String(),
		Blake3Hex:    digest.Blake3Hex,
		SHA256Hex:    digest.SHA256Hex,
		MTimeMs:      fi.MTime.UnixMilli(),
		IngestedAtMs: time.Now().UnixMilli(),
	}

	switch fi.MediaClass {
	case walk.Image:
		progress.setCurrent(fi.Path, "image")
		if img, err := imagehash.Decode(fi.Path); err != nil {
			slog.Warn("scan: image hash skipped", "path", fi.Path, "error", err)
		} else {
			hashes := imagehash.Compute(img)
			bounds := img.Bounds()
			width, height := imagehash.ResolveDimensions(fi.Path, bounds.Dx(), bounds.Dy())
			staged.ImageHash = &db.StagedImageHash{
				AHash: hashes.AHash, HasAHash: true,
				DHash: hashes.DHash, HasDHash: true,
				PHash: hashes.PHash, HasPHash: true,
				Width: width, Height: height,
			}
		}
	case walk.Video:
		progress.setCurrent(fi.Path, "video")
		decoder := opts.VideoDecoder
		if !opts.CaptureSnapshots {
			decoder = nil
		}
		res, err := videosnap.Capture(fi.Path, decoder, tok, opts.videoOptions())
		if err != nil {
			slog.Warn("scan: video snapshots skipped", "path", fi.Path, "error", err)
		} else {
			for _, snap := range res.Snapshots {
				ss := db.StagedSnapshot{Idx: snap.Index, Cnt: snap.Count, AtMs: snap.AtMs, DurationMs: snap.DurationMs}
				if snap.Hashes != nil {
					ss.AHash, ss.HasAHash = snap.Hashes.AHash, true
					ss.DHash, ss.HasDHash = snap.Hashes.DHash, true
					ss.PHash, ss.HasPHash = snap.Hashes.PHash, true
				}
				staged.Snapshots = append(staged.Snapshots, ss)
			}
		}
	}

	return staged, nil
}

// runWriter drains commitCh, batching up to commitBatchMaxSize staged sets
// or commitBatchMaxWait, whichever comes first, and commits each batch in
// one transaction. A commit failure aborts the run.
func runWriter(store *db.Store, commitCh <-chan db.StagedFile, abort *abortSignal, progress *Progress) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		batch := make([]db.StagedFile, 0, commitBatchMaxSize)
		ticker := time.NewTicker(commitBatchMaxWait)
		defer ticker.Stop()

		flush := func() {
			if len(batch) == 0 {
				return
			}
			progress.setCurrent(batch[len(batch)-1].Path, "commit")
			if err := store.CommitBatch(batch); err != nil {
				abort.trigger(err)
			}
			batch = batch[:0]
		}

		for {
			select {
			case sf, ok := <-commitCh:
				if !ok {
					flush()
					return
				}
				batch = append(batch, sf)
				if len(batch) >= commitBatchMaxSize {
					flush()
				}
			case <-ticker.C:
				flush()
			}
		}
	}()
	return done
}
