package main

/*
#include <stdint.h>

typedef struct {
    uint64_t files_seen;
    uint64_t files_hashed;
    uint64_t files_skipped;
    uint64_t bytes_seen;
    uint64_t total_files;
    uint64_t total_bytes;
    int phase;
    const char *current_path;
    const char *current_step;
} dupdup_scan_progress;

typedef void (*dupdup_progress_cb)(uint64_t files_seen, uint64_t files_hashed,
                                    uint64_t files_skipped, uint64_t bytes_seen,
                                    int phase, void *user_data);

typedef void (*dupdup_progress_totals_cb)(const dupdup_scan_progress *progress, void *user_data);

static inline void dupdup_call_progress_cb(dupdup_progress_cb cb,
                                            uint64_t files_seen, uint64_t files_hashed,
                                            uint64_t files_skipped, uint64_t bytes_seen,
                                            int phase, void *user_data) {
    if (cb != NULL) {
        cb(files_seen, files_hashed, files_skipped, bytes_seen, phase, user_data);
    }
}

static inline void dupdup_call_progress_totals_cb(dupdup_progress_totals_cb cb,
                                                    dupdup_scan_progress *progress, void *user_data) {
    if (cb != NULL) {
        cb(progress, user_data);
    }
}

typedef struct {
    uint64_t files_seen;
    uint64_t bytes_seen;
    uint64_t dirs_seen;
    const char *current_path;
} dupdup_prescan_progress;

typedef void (*dupdup_prescan_progress_cb)(const dupdup_prescan_progress *progress, void *user_data);

static inline void dupdup_call_prescan_progress_cb(dupdup_prescan_progress_cb cb,
                                                     dupdup_prescan_progress *progress, void *user_data) {
    if (cb != NULL) {
        cb(progress, user_data);
    }
}

typedef struct {
    uint64_t files_seen;
    uint64_t bytes_seen;
    uint64_t dirs_seen;
} dupdup_prescan_totals;

typedef struct {
    uint8_t capture_snapshots;
    uint32_t snapshots_per_video;
    uint32_t snapshot_max_dim;
    uint8_t concurrent_processing;
} dupdup_scan_options;
*/
import "C"

import (
	"unsafe"

	"github.com/mnj/dupdupninja-v2/internal/cancel"
	"github.com/mnj/dupdupninja-v2/internal/db"
	"github.com/mnj/dupdupninja-v2/internal/scan"
	"github.com/mnj/dupdupninja-v2/internal/videosnap"
)

// dupdupninja_prescan_folder runs Phase 1 alone: a read-only walk of
// root_path that totals file counts and bytes without opening any
// database, writing the result into out_totals. cancel_handle may be 0,
// meaning the pre-scan cannot be cancelled once started.
//
//export dupdupninja_prescan_folder
func dupdupninja_prescan_folder(
	rootPath *C.char,
	cancelHandle C.uintptr_t,
	cb C.dupdup_prescan_progress_cb,
	userData unsafe.Pointer,
	outTotals *C.dupdup_prescan_totals,
) C.int {
	clearLastError()
	if rootPath == nil || outTotals == nil {
		setLastError("root_path and out_totals must not be null")
		return StatusNullPointer
	}

	tok := cancel.New()
	if cancelHandle != 0 {
		t, ok := tokenFromHandle(cancelHandle)
		if !ok {
			setLastError("invalid cancel token handle")
			return StatusInvalidArgument
		}
		tok = t
	}

	var onProgress scan.ProgressFunc
	if cb != nil {
		onProgress = func(s scan.Snapshot) {
			cPath := C.CString(s.CurrentPath)
			defer C.free(unsafe.Pointer(cPath))
			prog := C.dupdup_prescan_progress{
				files_seen:   C.uint64_t(s.FilesSeen),
				bytes_seen:   C.uint64_t(s.BytesSeen),
				dirs_seen:    C.uint64_t(s.DirsSeen),
				current_path: cPath,
			}
			C.dupdup_call_prescan_progress_cb(cb, &prog, userData)
		}
	}

	result, err := scan.PreScan(C.GoString(rootPath), tok, scan.Options{}, onProgress)
	outTotals.files_seen = C.uint64_t(result.FilesSeen)
	outTotals.bytes_seen = C.uint64_t(result.BytesSeen)
	outTotals.dirs_seen = C.uint64_t(result.DirsSeen)
	if err != nil {
		setLastError(err.Error())
		return statusFor(err)
	}
	return StatusOk
}

// dupdupninja_scan_folder_to_sqlite runs a full scan of root_path, writing
// results into the fileset database at db_path (created if absent), and
// blocks until it finishes. cancel_handle may be 0, meaning the scan
// cannot be cancelled once started.
//
//export dupdupninja_scan_folder_to_sqlite
func dupdupninja_scan_folder_to_sqlite(engineHandle C.uintptr_t, rootPath *C.char, dbPath *C.char, cancelHandle C.uintptr_t) C.int {
	return dupdupninja_scan_folder_to_sqlite_with_progress(engineHandle, rootPath, dbPath, cancelHandle, nil, nil)
}

// dupdupninja_scan_folder_to_sqlite_with_progress is the same call with an
// optional progress callback using the legacy four-counter signature. The
// callback is invoked on an internal goroutine, no more often than every
// 100ms or every 64 files; its arguments are only valid for the duration
// of the call and must not be retained.
//
//export dupdupninja_scan_folder_to_sqlite_with_progress
func dupdupninja_scan_folder_to_sqlite_with_progress(
	engineHandle C.uintptr_t,
	rootPath *C.char,
	dbPath *C.char,
	cancelHandle C.uintptr_t,
	cb C.dupdup_progress_cb,
	userData unsafe.Pointer,
) C.int {
	var totalsCb C.dupdup_progress_totals_cb
	return runScanToSqlite(engineHandle, rootPath, dbPath, cancelHandle, 0, 0, nil, cb, totalsCb, userData)
}

// dupdupninja_scan_folder_to_sqlite_with_progress_totals_and_options is the
// canonical two-phase entry point: the caller supplies totals
// from a prior dupdupninja_prescan_folder call (both zero re-enables an
// internal Phase 1 pass) plus scan options, and receives progress via the
// extended dupdup_scan_progress struct carrying totals and the current
// path/step.
//
//export dupdupninja_scan_folder_to_sqlite_with_progress_totals_and_options
func dupdupninja_scan_folder_to_sqlite_with_progress_totals_and_options(
	engineHandle C.uintptr_t,
	rootPath *C.char,
	dbPath *C.char,
	cancelHandle C.uintptr_t,
	totalFiles, totalBytes C.uint64_t,
	options *C.dupdup_scan_options,
	cb C.dupdup_progress_totals_cb,
	userData unsafe.Pointer,
) C.int {
	var legacyCb C.dupdup_progress_cb
	return runScanToSqlite(engineHandle, rootPath, dbPath, cancelHandle, totalFiles, totalBytes, options, legacyCb, cb, userData)
}

// runScanToSqlite is the shared implementation behind every
// scan-to-sqlite export. Exactly one of cb/totalsCb is non-nil (or both
// nil), selecting which callback shape gets invoked.
func runScanToSqlite(
	engineHandle C.uintptr_t,
	rootPath, dbPath *C.char,
	cancelHandle C.uintptr_t,
	totalFiles, totalBytes C.uint64_t,
	options *C.dupdup_scan_options,
	cb C.dupdup_progress_cb,
	totalsCb C.dupdup_progress_totals_cb,
	userData unsafe.Pointer,
) C.int {
	clearLastError()

	if rootPath == nil || dbPath == nil {
		setLastError("root_path and db_path must not be null")
		return StatusNullPointer
	}

	eng, ok := engineFromHandle(engineHandle)
	if !ok {
		setLastError("invalid engine handle")
		return StatusInvalidArgument
	}

	tok := cancel.New()
	if cancelHandle != 0 {
		t, ok := tokenFromHandle(cancelHandle)
		if !ok {
			setLastError("invalid cancel token handle")
			return StatusInvalidArgument
		}
		tok = t
	}

	root := C.GoString(rootPath)
	dbFile := C.GoString(dbPath)

	store, err := db.Open(dbFile)
	if err != nil {
		setLastError(err.Error())
		return statusFor(err)
	}
	defer store.Close()

	opts := scanOptionsFromC(options)

	var onProgress scan.ProgressFunc
	switch {
	case totalsCb != nil:
		onProgress = func(s scan.Snapshot) {
			cPath := C.CString(s.CurrentPath)
			cStep := C.CString(s.CurrentStep)
			defer C.free(unsafe.Pointer(cPath))
			defer C.free(unsafe.Pointer(cStep))
			prog := C.dupdup_scan_progress{
				files_seen:    C.uint64_t(s.FilesSeen),
				files_hashed:  C.uint64_t(s.FilesHashed),
				files_skipped: C.uint64_t(s.FilesSkipped),
				bytes_seen:    C.uint64_t(s.BytesSeen),
				total_files:   C.uint64_t(s.TotalFiles),
				total_bytes:   C.uint64_t(s.TotalBytes),
				phase:         C.int(s.Phase),
				current_path:  cPath,
				current_step:  cStep,
			}
			C.dupdup_call_progress_totals_cb(totalsCb, &prog, userData)
		}
	case cb != nil:
		onProgress = func(s scan.Snapshot) {
			C.dupdup_call_progress_cb(cb,
				C.uint64_t(s.FilesSeen), C.uint64_t(s.FilesHashed),
				C.uint64_t(s.FilesSkipped), C.uint64_t(s.BytesSeen),
				C.int(s.Phase), userData)
		}
	}

	progress := &scan.Progress{}
	totals := scan.PreScanResult{FilesSeen: int64(totalFiles), BytesSeen: int64(totalBytes)}
	res, err := eng.manager.RunBlocking(store, root, tok, opts, progress, totals, onProgress)
	if err != nil {
		setLastError(err.Error())
		return StatusInvalidArgument
	}
	if res.Err != nil {
		setLastError(res.Err.Error())
		return statusFor(res.Err)
	}
	if res.Outcome == "cancelled" {
		setLastError("Cancelled: scan was cancelled")
		return StatusError
	}
	return StatusOk
}

// scanOptionsFromC translates the ABI's dupdup_scan_options (or a nil
// pointer, meaning "every default") into scan.Options.
func scanOptionsFromC(o *C.dupdup_scan_options) scan.Options {
	if o == nil {
		return scan.Options{}
	}
	opts := scan.Options{
		CaptureSnapshots: o.capture_snapshots != 0,
		SnapshotCount:    int(o.snapshots_per_video),
		SnapshotMaxDim:   int(o.snapshot_max_dim),
		Serial:           o.concurrent_processing == 0,
	}
	if opts.CaptureSnapshots {
		opts.VideoDecoder = videosnap.NewFFmpegDecoder()
	}
	return opts
}
