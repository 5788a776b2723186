package db

import (
	"path/filepath"
	"testing"

	"github.com/mnj/dupdupninja-v2/internal/scanerr"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.ddn")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesAndMigrates(t *testing.T) {
	s := openTestStore(t)
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='file'`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected file table to exist after migration, got count=%d", count)
	}
}

func TestOpenSecondHandleIsLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.ddn")
	s1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s1.Close()

	_, err = Open(path)
	if !scanerr.Of(err, scanerr.DbLocked) {
		t.Fatalf("second Open err = %v, want DbLocked", err)
	}
}

func TestEnsureMetadataIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.EnsureMetadata("/scan/MyFolder", false); err != nil {
		t.Fatal(err)
	}
	m, err := s.GetMetadata()
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "MyFolder" {
		t.Errorf("Name = %q, want MyFolder", m.Name)
	}
	if m.RootKind != "folder" {
		t.Errorf("RootKind = %q, want folder", m.RootKind)
	}

	if err := s.SetMetadata("Renamed", "desc", "notes", "active"); err != nil {
		t.Fatal(err)
	}
	// A second EnsureMetadata call must not clobber the user's edits.
	if err := s.EnsureMetadata("/scan/MyFolder", false); err != nil {
		t.Fatal(err)
	}
	m2, err := s.GetMetadata()
	if err != nil {
		t.Fatal(err)
	}
	if m2.Name != "Renamed" {
		t.Errorf("Name after second EnsureMetadata = %q, want Renamed (unchanged)", m2.Name)
	}
}

func TestCommitBatchAssignsMonotonicIDsAndDeleteCascades(t *testing.T) {
	s := openTestStore(t)

	batch := []StagedFile{
		{Path: "/a.bin", SizeBytes: 3, FileType: "other", Blake3Hex: "b1", SHA256Hex: "s1", MTimeMs: 1, IngestedAtMs: 1},
		{
			Path: "/b.jpg", SizeBytes: 10, FileType: "image", Blake3Hex: "b2", SHA256Hex: "s2", MTimeMs: 2, IngestedAtMs: 2,
			ImageHash: &StagedImageHash{AHash: 42, HasAHash: true, Width: 100, Height: 50},
		},
	}
	if err := s.CommitBatch(batch); err != nil {
		t.Fatal(err)
	}

	var id1, id2 int64
	if err := s.db.QueryRow(`SELECT id FROM file WHERE path = ?`, "/a.bin").Scan(&id1); err != nil {
		t.Fatal(err)
	}
	if err := s.db.QueryRow(`SELECT id FROM file WHERE path = ?`, "/b.jpg").Scan(&id2); err != nil {
		t.Fatal(err)
	}
	if id2 <= id1 {
		t.Errorf("expected monotonic ids, got id1=%d id2=%d", id1, id2)
	}

	var ihCount int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM image_hash WHERE file_id = ?`, id2).Scan(&ihCount); err != nil {
		t.Fatal(err)
	}
	if ihCount != 1 {
		t.Fatalf("expected one image_hash row, got %d", ihCount)
	}

	if err := s.DeleteFileByPath("/b.jpg"); err != nil {
		t.Fatal(err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM image_hash WHERE file_id = ?`, id2).Scan(&ihCount); err != nil {
		t.Fatal(err)
	}
	if ihCount != 0 {
		t.Errorf("expected image_hash row to cascade-delete, still have %d", ihCount)
	}
}

func TestOpenRejectsNewerSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.ddn")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.db.Exec(`
		INSERT INTO fileset_meta
			(rowid, name, description, notes, status, schema_version,
			 root_kind, drive_id, drive_label, drive_fs_type, host_os, host_os_version)
		VALUES (1, 'future', '', '', 'active', ?, 'folder', '', '', '', '', '')`,
		schemaVersion+1)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	_, err = Open(path)
	if !scanerr.Of(err, scanerr.DbMigrate) {
		t.Fatalf("reopening a fileset with schema_version=%d err = %v, want DbMigrate", schemaVersion+1, err)
	}
}

func TestOpenReadOnlyDoesNotBlockOnExclusiveLock(t *testing.T) {
	s := openTestStore(t)
	if err := s.EnsureMetadata("/scan/MyFolder", false); err != nil {
		t.Fatal(err)
	}

	reader, err := OpenReadOnly(s.path)
	if err != nil {
		t.Fatalf("OpenReadOnly while writer holds exclusive lock: %v", err)
	}
	defer reader.Close()

	m, err := reader.GetMetadata()
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "MyFolder" {
		t.Errorf("Name = %q, want MyFolder", m.Name)
	}
}

func TestOpenReadOnlyAllowsConcurrentReaders(t *testing.T) {
	s := openTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	r1, err := OpenReadOnly(s.path)
	if err != nil {
		t.Fatal(err)
	}
	defer r1.Close()

	r2, err := OpenReadOnly(s.path)
	if err != nil {
		t.Fatalf("second concurrent OpenReadOnly failed: %v", err)
	}
	defer r2.Close()
}

func TestOpenReadOnlyRejectsNewerSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.ddn")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.db.Exec(`
		INSERT INTO fileset_meta
			(rowid, name, description, notes, status, schema_version,
			 root_kind, drive_id, drive_label, drive_fs_type, host_os, host_os_version)
		VALUES (1, 'future', '', '', 'active', ?, 'folder', '', '', '', '', '')`,
		schemaVersion+1)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	_, err = OpenReadOnly(path)
	if !scanerr.Of(err, scanerr.DbMigrate) {
		t.Fatalf("OpenReadOnly on a newer-schema fileset err = %v, want DbMigrate", err)
	}
}

func TestInsertScanRunAppendsRows(t *testing.T) {
	s := openTestStore(t)
	id1, err := s.InsertScanRun(ScanRun{Root: "/x", StartedAtMs: 1, Outcome: "completed"})
	if err != nil {
		t.Fatal(err)
	}
	id2, err := s.InsertScanRun(ScanRun{Root: "/y", StartedAtMs: 2, Outcome: "cancelled"})
	if err != nil {
		t.Fatal(err)
	}
	if id2 <= id1 {
		t.Errorf("expected append-only monotonic ids, got %d then %d", id1, id2)
	}
}
