package videosnap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"time"

	"github.com/mnj/dupdupninja-v2/internal/imagehash"
)

// FFmpegDecoder is the default Decoder implementation. It shells out to
// ffprobe for duration lookup and ffmpeg for single-frame extraction,
// using a subprocess-with-timeout approach.
type FFmpegDecoder struct {
	// Timeout bounds each ffprobe/ffmpeg invocation. Zero means 30s.
	Timeout time.Duration
}

// NewFFmpegDecoder returns a Decoder backed by the ffmpeg/ffprobe binaries
// on PATH.
func NewFFmpegDecoder() *FFmpegDecoder { return &FFmpegDecoder{} }

func (d *FFmpegDecoder) timeout() time.Duration {
	if d.Timeout <= 0 {
		return 30 * time.Second
	}
	return d.Timeout
}

type ffmpegHandle struct {
	path string
}

func (d *FFmpegDecoder) Open(path string) (Handle, error) {
	return &ffmpegHandle{path: path}, nil
}

func (d *FFmpegDecoder) Close(h Handle) error { return nil }

type ffprobeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (d *FFmpegDecoder) Duration(h Handle) (int64, error) {
	fh, ok := h.(*ffmpegHandle)
	if !ok {
		return 0, errors.New("videosnap: invalid handle")
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"--", fh.path)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	var parsed ffprobeFormat
	if err := json.Unmarshal(stdout.Bytes(), &parsed); err != nil {
		return 0, fmt.Errorf("ffprobe: parse duration: %w", err)
	}
	secs, err := strconv.ParseFloat(parsed.Format.Duration, 64)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("ffprobe: no usable duration")
	}
	return int64(secs*1000 + 0.5), nil
}

func (d *FFmpegDecoder) FrameAt(h Handle, tsMs int64) (image.Image, error) {
	fh, ok := h.(*ffmpegHandle)
	if !ok {
		return nil, errors.New("videosnap: invalid handle")
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout())
	defer cancel()

	ts := fmt.Sprintf("%.3f", float64(tsMs)/1000.0)
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-ss", ts,
		"-i", fh.path,
		"-map", "0:v:0",
		"-frames:v", "1",
		"-an", "-sn", "-dn",
		"-c:v", "png",
		"-f", "image2pipe",
		"-")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	if stdout.Len() == 0 {
		return nil, errors.New("ffmpeg: empty frame output")
	}
	return imagehash.DecodeBytes(stdout.Bytes())
}
