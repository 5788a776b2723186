package walk

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/mnj/dupdupninja-v2/internal/cancel"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkFindsRegularFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"), []byte("x"))
	writeFile(t, filepath.Join(root, "sub", "b.mp4"), []byte("y"))
	writeFile(t, filepath.Join(root, "sub", "c.txt"), []byte("z"))

	out := make(chan FileInfo, 16)
	var skips []string
	err := Walk(root, nil, Options{NumWorkers: 2}, out, func(path, reason string) {
		skips = append(skips, path+": "+reason)
	})
	if err != nil {
		t.Fatalf("Walk error: %v, skips=%v", err, skips)
	}

	var got []string
	classes := map[string]MediaClass{}
	for fi := range out {
		got = append(got, fi.Path)
		classes[fi.Path] = fi.MediaClass
	}
	sort.Strings(got)

	want := []string{
		filepath.Join(root, "a.jpg"),
		filepath.Join(root, "sub", "b.mp4"),
		filepath.Join(root, "sub", "c.txt"),
	}
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if classes[filepath.Join(root, "a.jpg")] != Image {
		t.Errorf("expected a.jpg to classify as Image")
	}
	if classes[filepath.Join(root, "sub", "b.mp4")] != Video {
		t.Errorf("expected b.mp4 to classify as Video")
	}
}

func TestWalkExcludesDotfilesWhenEnabled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".hidden"), []byte("x"))
	writeFile(t, filepath.Join(root, "visible.txt"), []byte("y"))

	out := make(chan FileInfo, 16)
	err := Walk(root, nil, Options{NumWorkers: 1, ExcludeDotfiles: true}, out, func(string, string) {})
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for fi := range out {
		got = append(got, filepath.Base(fi.Path))
	}
	if len(got) != 1 || got[0] != "visible.txt" {
		t.Fatalf("got %v, want [visible.txt]", got)
	}
}

func TestWalkCancelReturnsErrCancelled(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 10; i++ {
		writeFile(t, filepath.Join(root, "d"+string(rune('a'+i)), "f.bin"), []byte("x"))
	}
	tok := cancel.New()
	tok.Cancel()

	out := make(chan FileInfo, 64)
	err := Walk(root, tok, Options{NumWorkers: 2}, out, func(string, string) {})
	for range out {
		// drain
	}
	if err != ErrCancelled {
		t.Fatalf("Walk error = %v, want ErrCancelled", err)
	}
}

func TestClassifyExt(t *testing.T) {
	cases := map[string]MediaClass{
		".JPG":  Image,
		".mp4":  Video,
		".flac": Audio,
		".txt":  Other,
	}
	for ext, want := range cases {
		if got := ClassifyExt(ext); got != want {
			t.Errorf("ClassifyExt(%q) = %v, want %v", ext, got, want)
		}
	}
}
