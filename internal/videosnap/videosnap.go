// Package videosnap samples N evenly spaced frames from a video,
// letterbox-downscales each, and feeds them to internal/imagehash. The
// frame decoder itself is a pluggable interface — implementations may be
// native, mocked, or absent.
package videosnap

import (
	"image"

	"github.com/mnj/dupdupninja-v2/internal/cancel"
	"github.com/mnj/dupdupninja-v2/internal/imagehash"
)

// Handle is an opaque reference to an open video, returned by a Decoder's
// Open and consumed by its other methods.
type Handle any

// Decoder is the pluggable frame-decode boundary. The core ships a
// default ffmpeg/ffprobe-backed implementation (see
// NewFFmpegDecoder); platforms without a decoder may pass a nil Decoder to
// Capture, in which case video files still ingest content hashes with zero
// snapshots.
type Decoder interface {
	Open(path string) (Handle, error)
	// Duration returns the video's duration in milliseconds.
	Duration(h Handle) (int64, error)
	// FrameAt decodes the frame nearest timestamp tsMs.
	FrameAt(h Handle, tsMs int64) (image.Image, error)
	Close(h Handle) error
}

// Options configures a capture.
type Options struct {
	// N is the number of snapshots per video, clamped to [1,10].
	N int
	// MaxDim is the longest-edge letterbox target, clamped to [128,2048].
	MaxDim int
}

func (o Options) clamped() Options {
	n := o.N
	if n < 1 {
		n = 1
	}
	if n > 10 {
		n = 10
	}
	dim := o.MaxDim
	if dim < 128 {
		dim = 128
	}
	if dim > 2048 {
		dim = 2048
	}
	return Options{N: n, MaxDim: dim}
}

// Snapshot is one sampled, hashed video frame. Hashes is nil when
// per-snapshot decode failed; the row is still recorded with null
// hashes.
type Snapshot struct {
	Index      int
	Count      int
	AtMs       int64
	DurationMs *int64
	Hashes     *imagehash.Hashes
}

// Result is the outcome of capturing snapshots for one video.
type Result struct {
	// DurationMs is nil when duration lookup failed; in that case Snapshots
	// is empty, so the video gets no snapshot rows.
	DurationMs *int64
	Snapshots  []Snapshot
}

// Capture samples opts.N timestamps evenly spaced in (0, duration), decodes
// each frame, letterbox-downscales it to opts.MaxDim, and hashes it. A nil
// decoder yields a Result with no duration and no snapshots, degrading
// gracefully when no decoder is available.
func Capture(path string, decoder Decoder, tok *cancel.Token, opts Options) (Result, error) {
	if decoder == nil {
		return Result{}, nil
	}
	opts = opts.clamped()

	h, err := decoder.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer decoder.Close(h)

	durationMs, err := decoder.Duration(h)
	if err != nil {
		return Result{}, nil // duration failure: snapshot_count=0, no rows
	}

	n := opts.N
	snapshots := make([]Snapshot, 0, n)
	for i := 0; i < n; i++ {
		if tok.Cancelled() {
			break
		}
		atMs := durationMs * int64(i+1) / int64(n+1)

		snap := Snapshot{Index: i, Count: n, AtMs: atMs, DurationMs: &durationMs}
		frame, err := decoder.FrameAt(h, atMs)
		if err != nil {
			snapshots = append(snapshots, snap) // null hashes
			continue
		}

		scaled := letterbox(frame, opts.MaxDim)
		hashes := imagehash.Compute(scaled)
		snap.Hashes = &hashes
		snapshots = append(snapshots, snap)
	}

	return Result{DurationMs: &durationMs, Snapshots: snapshots}, nil
}

// letterbox downscales img so that max(width,height) <= maxDim, preserving
// aspect ratio, using the same frozen box filter the Image Hasher uses.
func letterbox(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return img
	}
	longEdge := w
	if h > longEdge {
		longEdge = h
	}
	if longEdge <= maxDim {
		return img
	}
	scale := float64(maxDim) / float64(longEdge)
	newW := int(float64(w)*scale + 0.5)
	newH := int(float64(h)*scale + 0.5)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	return imagehash.ResizeGray(img, newW, newH)
}
