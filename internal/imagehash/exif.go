package imagehash

import (
	"os"

	"github.com/rwcarlsen/goexif/exif"
)

// ResolveDimensions corrects decodedWidth/decodedHeight for EXIF orientation
// tags 5-8, which rotate the image 90° relative to its stored raster — the
// decoder reports the raster's own width/height, not the displayed ones.
// Any failure to open or parse EXIF (no tag, non-JPEG, corrupt segment)
// leaves the decoded dimensions untouched; this is a best-effort
// enrichment, never a fatal path.
func ResolveDimensions(path string, decodedWidth, decodedHeight int) (width, height int) {
	f, err := os.Open(path)
	if err != nil {
		return decodedWidth, decodedHeight
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return decodedWidth, decodedHeight
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return decodedWidth, decodedHeight
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return decodedWidth, decodedHeight
	}

	switch orientation {
	case 5, 6, 7, 8:
		return decodedHeight, decodedWidth
	default:
		return decodedWidth, decodedHeight
	}
}
