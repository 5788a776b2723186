package videosnap

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

type mockDecoder struct {
	durationMs int64
	durationErr error
	frameErrAt  map[int64]bool
}

func (m *mockDecoder) Open(path string) (Handle, error) { return path, nil }
func (m *mockDecoder) Close(h Handle) error              { return nil }
func (m *mockDecoder) Duration(h Handle) (int64, error) {
	if m.durationErr != nil {
		return 0, m.durationErr
	}
	return m.durationMs, nil
}
func (m *mockDecoder) FrameAt(h Handle, tsMs int64) (image.Image, error) {
	if m.frameErrAt[tsMs] {
		return nil, errors.New("decode failed")
	}
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = color.Gray{Y: uint8(tsMs % 255)}.Y
	}
	return img, nil
}

func TestCaptureTimestampFormula(t *testing.T) {
	// 10s video, 3 snapshots: expect at_ms ∈ {2500, 5000, 7500}.
	dec := &mockDecoder{durationMs: 10000}
	res, err := Capture("video.mp4", dec, nil, Options{N: 3, MaxDim: 512})
	if err != nil {
		t.Fatal(err)
	}
	if res.DurationMs == nil || *res.DurationMs != 10000 {
		t.Fatalf("DurationMs = %v, want 10000", res.DurationMs)
	}
	want := []int64{2500, 5000, 7500}
	if len(res.Snapshots) != len(want) {
		t.Fatalf("got %d snapshots, want %d", len(res.Snapshots), len(want))
	}
	for i, s := range res.Snapshots {
		if s.AtMs != want[i] {
			t.Errorf("snapshot %d at_ms = %d, want %d", i, s.AtMs, want[i])
		}
		if s.Count != 3 {
			t.Errorf("snapshot %d count = %d, want 3", i, s.Count)
		}
		if s.Hashes == nil {
			t.Errorf("snapshot %d expected hashes, got nil", i)
		}
	}
}

func TestCaptureClampsSnapshotCount(t *testing.T) {
	dec := &mockDecoder{durationMs: 10000}
	res, err := Capture("video.mp4", dec, nil, Options{N: 99, MaxDim: 4096})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Snapshots) != 10 {
		t.Fatalf("got %d snapshots, want 10 (clamped)", len(res.Snapshots))
	}
}

func TestCaptureDurationFailureYieldsZeroSnapshots(t *testing.T) {
	dec := &mockDecoder{durationErr: errors.New("no duration")}
	res, err := Capture("video.mp4", dec, nil, Options{N: 3, MaxDim: 512})
	if err != nil {
		t.Fatal(err)
	}
	if res.DurationMs != nil {
		t.Errorf("DurationMs = %v, want nil", res.DurationMs)
	}
	if len(res.Snapshots) != 0 {
		t.Errorf("got %d snapshots, want 0", len(res.Snapshots))
	}
}

func TestCaptureFrameFailureYieldsNullHashRow(t *testing.T) {
	dec := &mockDecoder{durationMs: 4000, frameErrAt: map[int64]bool{2000: true}}
	res, err := Capture("video.mp4", dec, nil, Options{N: 1, MaxDim: 512})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Snapshots) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(res.Snapshots))
	}
	if res.Snapshots[0].Hashes != nil {
		t.Errorf("expected null hashes for failed frame decode")
	}
}

func TestCaptureNilDecoderYieldsEmptyResult(t *testing.T) {
	res, err := Capture("video.mp4", nil, nil, Options{N: 3, MaxDim: 512})
	if err != nil {
		t.Fatal(err)
	}
	if res.DurationMs != nil || len(res.Snapshots) != 0 {
		t.Errorf("expected empty result for nil decoder, got %+v", res)
	}
}
