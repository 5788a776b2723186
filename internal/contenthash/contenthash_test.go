package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mnj/dupdupninja-v2/internal/cancel"
	"github.com/mnj/dupdupninja-v2/internal/scanerr"
)

func TestFileProducesLowercase64CharHex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := File(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Blake3Hex) != 64 || strings.ToLower(d.Blake3Hex) != d.Blake3Hex {
		t.Errorf("Blake3Hex = %q, want 64 lowercase hex chars", d.Blake3Hex)
	}
	if len(d.SHA256Hex) != 64 || strings.ToLower(d.SHA256Hex) != d.SHA256Hex {
		t.Errorf("SHA256Hex = %q, want 64 lowercase hex chars", d.SHA256Hex)
	}

	want := sha256.Sum256([]byte("hello world"))
	if d.SHA256Hex != hex.EncodeToString(want[:]) {
		t.Errorf("SHA256Hex mismatch: got %s want %s", d.SHA256Hex, hex.EncodeToString(want[:]))
	}
}

func TestFileIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	data := make([]byte, bufferSize*3+17)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	d1, err := File(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := File(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Errorf("hashing the same file twice produced different digests: %v vs %v", d1, d2)
	}
}

func TestEmptyDigestMatchesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := File(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if d != EmptyDigest() {
		t.Errorf("File(empty) = %v, want EmptyDigest() = %v", d, EmptyDigest())
	}
}

func TestFileCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	tok := cancel.New()
	tok.Cancel()

	_, err := File(path, tok)
	if !scanerr.Of(err, scanerr.Cancelled) {
		t.Fatalf("err = %v, want Cancelled kind", err)
	}
}

func TestFileMissingIsIoError(t *testing.T) {
	_, err := File("/nonexistent/path/does-not-exist", nil)
	if !scanerr.Of(err, scanerr.Io) {
		t.Fatalf("err = %v, want Io kind", err)
	}
}
