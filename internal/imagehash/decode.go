// Package imagehash implements deterministic grayscale decode/resize plus
// aHash, dHash, and pHash computation.
package imagehash

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/mnj/dupdupninja-v2/internal/scanerr"
)

// Decode reads an image from path using any format registered via the
// stdlib image package or the golang.org/x/image decoder side-effect
// imports above (gif, jpeg, png, bmp, tiff, webp). It returns decode
// errors wrapped as scanerr.Decode so callers can treat them as a
// per-file skip rather than a fatal error.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, scanerr.New("imagehash.Decode", scanerr.Io, err)
	}
	defer f.Close()
	return DecodeReader(f)
}

// DecodeReader decodes an image from r.
func DecodeReader(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, scanerr.New("imagehash.Decode", scanerr.Decode, err)
	}
	return img, nil
}

// DecodeBytes decodes an image already held in memory (used by the Video
// Snapshotter to hash a decoded frame without a round trip through disk).
func DecodeBytes(data []byte) (image.Image, error) {
	return DecodeReader(bytes.NewReader(data))
}
