package db

import (
	"fmt"

	"github.com/mnj/dupdupninja-v2/internal/scanerr"
)

// StagedFile is one worker's output for a single ingested file: the file
// row plus an optional image_hash row and zero or more snapshot rows.
// The writer commits these as one atomic unit.
type StagedFile struct {
	Path         string
	SizeBytes    int64
	FileType     string
	Blake3Hex    string
	SHA256Hex    string
	MTimeMs      int64
	IngestedAtMs int64

	ImageHash *StagedImageHash
	Snapshots []StagedSnapshot
}

type StagedImageHash struct {
	AHash, DHash, PHash       uint64
	HasAHash, HasDHash, HasPHash bool
	Width, Height             int
}

type StagedSnapshot struct {
	Idx, Cnt                     int
	AtMs                         int64
	DurationMs                   *int64
	AHash, DHash, PHash          uint64
	HasAHash, HasDHash, HasPHash bool
}

// CommitBatch writes a batch of staged files inside one transaction,
// respecting the single-writer invariant. file.id assignment is monotonic
// in commit order because SQLite's AUTOINCREMENT rowid only ever
// increases within one connection.
func (s *Store) CommitBatch(batch []StagedFile) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return scanerr.New("db.CommitBatch", scanerr.Internal, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after a successful Commit

	insertFile, err := tx.Prepare(`
		INSERT INTO file (path, size_bytes, file_type, blake3_hex, sha256_hex, mtime_ms, ingested_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size_bytes = excluded.size_bytes, file_type = excluded.file_type,
			blake3_hex = excluded.blake3_hex, sha256_hex = excluded.sha256_hex,
			mtime_ms = excluded.mtime_ms, ingested_at_ms = excluded.ingested_at_ms
		RETURNING id`)
	if err != nil {
		return scanerr.New("db.CommitBatch", scanerr.Internal, err)
	}
	defer insertFile.Close()

	insertImageHash, err := tx.Prepare(`
		INSERT INTO image_hash (file_id, ahash, dhash, phash, width, height)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET
			ahash = excluded.ahash, dhash = excluded.dhash, phash = excluded.phash,
			width = excluded.width, height = excluded.height`)
	if err != nil {
		return scanerr.New("db.CommitBatch", scanerr.Internal, err)
	}
	defer insertImageHash.Close()

	deleteSnapshots, err := tx.Prepare(`DELETE FROM snapshot WHERE file_id = ?`)
	if err != nil {
		return scanerr.New("db.CommitBatch", scanerr.Internal, err)
	}
	defer deleteSnapshots.Close()

	insertSnapshot, err := tx.Prepare(`
		INSERT INTO snapshot (file_id, idx, cnt, at_ms, duration_ms, ahash, dhash, phash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return scanerr.New("db.CommitBatch", scanerr.Internal, err)
	}
	defer insertSnapshot.Close()

	for _, sf := range batch {
		var fileID int64
		err := insertFile.QueryRow(sf.Path, sf.SizeBytes, sf.FileType, sf.Blake3Hex, sf.SHA256Hex, sf.MTimeMs, sf.IngestedAtMs).Scan(&fileID)
		if err != nil {
			return scanerr.New("db.CommitBatch", scanerr.Internal, fmt.Errorf("insert file %q: %w", sf.Path, err))
		}

		if sf.ImageHash != nil {
			ih := sf.ImageHash
			_, err := insertImageHash.Exec(fileID,
				nullableUint64(ih.AHash, ih.HasAHash), nullableUint64(ih.DHash, ih.HasDHash), nullableUint64(ih.PHash, ih.HasPHash),
				nullableInt(ih.Width), nullableInt(ih.Height))
			if err != nil {
				return scanerr.New("db.CommitBatch", scanerr.Internal, fmt.Errorf("insert image_hash for %q: %w", sf.Path, err))
			}
		}

		if len(sf.Snapshots) > 0 {
			if _, err := deleteSnapshots.Exec(fileID); err != nil {
				return scanerr.New("db.CommitBatch", scanerr.Internal, fmt.Errorf("clear snapshots for %q: %w", sf.Path, err))
			}
			for _, snap := range sf.Snapshots {
				_, err := insertSnapshot.Exec(fileID, snap.Idx, snap.Cnt, snap.AtMs, snap.DurationMs,
					nullableUint64(snap.AHash, snap.HasAHash), nullableUint64(snap.DHash, snap.HasDHash), nullableUint64(snap.PHash, snap.HasPHash))
				if err != nil {
					return scanerr.New("db.CommitBatch", scanerr.Internal, fmt.Errorf("insert snapshot %d for %q: %w", snap.Idx, sf.Path, err))
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return scanerr.New("db.CommitBatch", scanerr.Internal, err)
	}
	return nil
}

func nullableUint64(v uint64, has bool) any {
	if !has {
		return nil
	}
	// SQLite integers are signed 64-bit; store the bit pattern and
	// re-interpret on read (query.go does this consistently).
	return int64(v)
}

func nullableInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

// ScanRun records one completed, cancelled, or failed scan, appended to
// scan_run's history.
type ScanRun struct {
	Root          string
	StartedAtMs   int64
	FinishedAtMs  *int64
	Outcome       string
	FilesSeen     int64
	FilesHashed   int64
	FilesSkipped  int64
	BytesSeen     int64
}

// InsertScanRun appends a scan_run row and returns its id.
func (s *Store) InsertScanRun(run ScanRun) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO scan_run (root, started_at_ms, finished_at_ms, outcome, files_seen, files_hashed, files_skipped, bytes_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Root, run.StartedAtMs, run.FinishedAtMs, run.Outcome, run.FilesSeen, run.FilesHashed, run.FilesSkipped, run.BytesSeen)
	if err != nil {
		return 0, scanerr.New("db.InsertScanRun", scanerr.Internal, err)
	}
	return res.LastInsertId()
}
