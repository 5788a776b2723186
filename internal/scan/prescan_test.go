package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mnj/dupdupninja-v2/internal/cancel"
)

func TestPreScanCountsFilesAndBytesWithoutDB(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt", "b.txt")

	tok := cancel.New()
	result, err := PreScan(root, tok, Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.FilesSeen != 2 {
		t.Errorf("FilesSeen = %d, want 2", result.FilesSeen)
	}
	if result.BytesSeen == 0 {
		t.Error("BytesSeen = 0, want > 0")
	}
}

func TestPreScanIsReadOnly(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt")

	store := openTestStore(t)
	tok := cancel.New()
	if _, err := PreScan(root, tok, Options{}, nil); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM file`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("committed file rows = %d, want 0 (prescan touches no db)", count)
	}
}

func TestRunFromTotalsSkipsReenumeration(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt", "b.txt", "c.txt")

	store := openTestStore(t)
	tok := cancel.New()

	totals, err := PreScan(root, tok, Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	progress := &Progress{}
	res := RunFromTotals(store, root, tok, Options{}, progress, totals, nil)
	if res.Outcome != "completed" {
		t.Fatalf("Outcome = %q, want completed (err=%v)", res.Outcome, res.Err)
	}
	if res.FilesHashed != 3 {
		t.Errorf("FilesHashed = %d, want 3", res.FilesHashed)
	}

	snap := progress.snapshot(PhaseIngest)
	if snap.TotalFiles != totals.FilesSeen {
		t.Errorf("TotalFiles = %d, want %d (seeded from prescan)", snap.TotalFiles, totals.FilesSeen)
	}
}

func TestRunFromTotalsFallsBackToFullRunOnZeroTotals(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt")

	store := openTestStore(t)
	tok := cancel.New()
	progress := &Progress{}

	res := RunFromTotals(store, root, tok, Options{}, progress, PreScanResult{}, nil)
	if res.Outcome != "completed" {
		t.Fatalf("Outcome = %q, want completed (err=%v)", res.Outcome, res.Err)
	}
	if res.FilesHashed != 1 {
		t.Errorf("FilesHashed = %d, want 1", res.FilesHashed)
	}
}

func TestPreScanCountsDirsViaOnDir(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, sub, "a.txt")

	tok := cancel.New()
	result, err := PreScan(root, tok, Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.DirsSeen < 2 {
		t.Errorf("DirsSeen = %d, want >= 2 (root + sub)", result.DirsSeen)
	}
}
