package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mnj/dupdupninja-v2/internal/cancel"
	"github.com/mnj/dupdupninja-v2/internal/db"
)

func openTestStore(t *testing.T) *db.Store {
	t.Helper()
	s, err := db.Open(filepath.Join(t.TempDir(), "test.ddn"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		path := filepath.Join(dir, n)
		if err := os.WriteFile(path, []byte("contents of "+n), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRunCompletesAndCommitsAllFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt", "b.txt", "c.txt")

	store := openTestStore(t)
	tok := cancel.New()
	progress := &Progress{}

	var reports []Snapshot
	res := Run(store, root, tok, Options{}, progress, func(s Snapshot) { reports = append(reports, s) })

	if res.Outcome != "completed" {
		t.Fatalf("Outcome = %q, want completed (err=%v)", res.Outcome, res.Err)
	}
	if res.FilesSeen != 3 {
		t.Errorf("FilesSeen = %d, want 3", res.FilesSeen)
	}
	if res.FilesHashed != 3 {
		t.Errorf("FilesHashed = %d, want 3", res.FilesHashed)
	}
	if res.FilesSkipped != 0 {
		t.Errorf("FilesSkipped = %d, want 0", res.FilesSkipped)
	}
	if res.ScanRunID == 0 {
		t.Error("expected a non-zero scan_run id")
	}

	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM file`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("committed file rows = %d, want 3", count)
	}
}

func TestRunHonoursPreCancelledToken(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt")

	store := openTestStore(t)
	tok := cancel.New()
	tok.Cancel()
	progress := &Progress{}

	res := Run(store, root, tok, Options{}, progress, nil)
	if res.Outcome != "cancelled" {
		t.Fatalf("Outcome = %q, want cancelled", res.Outcome)
	}
	if res.FilesHashed != 0 {
		t.Errorf("FilesHashed = %d, want 0 for a pre-cancelled run", res.FilesHashed)
	}
}

func TestRunFromTotalsRecordsFilesSeenAndBytesSeen(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt", "b.txt")

	store := openTestStore(t)
	tok := cancel.New()
	progress := &Progress{}
	totals := PreScanResult{FilesSeen: 2, BytesSeen: 24, DirsSeen: 1}

	res := RunFromTotals(store, root, tok, Options{}, progress, totals, nil)
	if res.Outcome != "completed" {
		t.Fatalf("Outcome = %q, want completed (err=%v)", res.Outcome, res.Err)
	}
	if res.FilesSeen != totals.FilesSeen {
		t.Errorf("FilesSeen = %d, want %d", res.FilesSeen, totals.FilesSeen)
	}
	if res.BytesSeen != totals.BytesSeen {
		t.Errorf("BytesSeen = %d, want %d", res.BytesSeen, totals.BytesSeen)
	}

	var filesSeen, bytesSeen int64
	err := store.DB().QueryRow(`SELECT files_seen, bytes_seen FROM scan_run WHERE id = ?`, res.ScanRunID).
		Scan(&filesSeen, &bytesSeen)
	if err != nil {
		t.Fatal(err)
	}
	if filesSeen != totals.FilesSeen || bytesSeen != totals.BytesSeen {
		t.Errorf("scan_run row files_seen=%d bytes_seen=%d, want %d/%d",
			filesSeen, bytesSeen, totals.FilesSeen, totals.BytesSeen)
	}
}

func TestManagerRejectsConcurrentStart(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt")
	store := openTestStore(t)

	mgr := NewManager()
	_, resultCh, err := mgr.Start(context.Background(), store, root, Options{}, nil)
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}

	if _, _, err := mgr.Start(context.Background(), store, root, Options{}, nil); err != ErrAlreadyRunning {
		t.Fatalf("second Start err = %v, want ErrAlreadyRunning", err)
	}

	<-resultCh
}

func TestManagerRunBlockingCompletesAndReleasesInvariant(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt", "b.txt")
	store := openTestStore(t)

	mgr := NewManager()
	tok := cancel.New()
	progress := &Progress{}
	res, err := mgr.RunBlocking(store, root, tok, Options{}, progress, PreScanResult{}, nil)
	if err != nil {
		t.Fatalf("RunBlocking: %v", err)
	}
	if res.Outcome != "completed" {
		t.Fatalf("Outcome = %q, want completed (err=%v)", res.Outcome, res.Err)
	}
	if res.FilesHashed != 2 {
		t.Errorf("FilesHashed = %d, want 2", res.FilesHashed)
	}
	if mgr.ActiveScan() != nil {
		t.Error("expected no active scan once RunBlocking has returned")
	}
}

func TestManagerRunBlockingRejectsConcurrentRun(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt")
	store := openTestStore(t)

	mgr := NewManager()
	if _, ok := mgr.beginScan(root, &Progress{}); !ok {
		t.Fatal("beginScan: expected the first call to succeed")
	}
	defer mgr.endScan()

	if _, err := mgr.RunBlocking(store, root, cancel.New(), Options{}, &Progress{}, PreScanResult{}, nil); err != ErrAlreadyRunning {
		t.Fatalf("RunBlocking err = %v, want ErrAlreadyRunning", err)
	}
}
