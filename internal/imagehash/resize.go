package imagehash

import (
	"image"
	"image/color"
)

// grayscale converts img to a plain row-major float64 luminance buffer using
// image/color.GrayModel's standard luma weights, so results are reproducible
// regardless of the source decoder.
func grayscale(img image.Image) (pixels []float64, w, h int) {
	bounds := img.Bounds()
	w, h = bounds.Dx(), bounds.Dy()
	pixels = make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			pixels[y*w+x] = float64(c.Y)
		}
	}
	return pixels, w, h
}

// resizeBox downsamples a row-major pixel buffer of size srcW×srcH to
// dstW×dstH using a deterministic box (area-average) filter: every
// destination pixel is the mean of the source pixels whose box falls
// within it. This is the single frozen resize kernel used by aHash, dHash,
// and pHash so their output is bit-exact across platforms.
func resizeBox(src []float64, srcW, srcH, dstW, dstH int) []float64 {
	dst := make([]float64, dstW*dstH)
	for dy := 0; dy < dstH; dy++ {
		y0 := dy * srcH / dstH
		y1 := (dy + 1) * srcH / dstH
		if y1 <= y0 {
			y1 = y0 + 1
		}
		if y1 > srcH {
			y1 = srcH
		}
		for dx := 0; dx < dstW; dx++ {
			x0 := dx * srcW / dstW
			x1 := (dx + 1) * srcW / dstW
			if x1 <= x0 {
				x1 = x0 + 1
			}
			if x1 > srcW {
				x1 = srcW
			}

			var sum float64
			var count int
			for y := y0; y < y1; y++ {
				row := y * srcW
				for x := x0; x < x1; x++ {
					sum += src[row+x]
					count++
				}
			}
			if count == 0 {
				count = 1
			}
			dst[dy*dstW+dx] = sum / float64(count)
		}
	}
	return dst
}

// resizeTo decodes img to grayscale and resizes it to exactly w×h using the
// frozen box filter.
func resizeTo(img image.Image, w, h int) []float64 {
	pixels, srcW, srcH := grayscale(img)
	return resizeBox(pixels, srcW, srcH, w, h)
}

// ResizeGray resizes img to exactly w×h grayscale pixels using the same
// frozen box filter as the hash functions. Exported for the video
// snapshotter's letterbox downscale step, which feeds its output back
// into this package's hash functions.
func ResizeGray(img image.Image, w, h int) *image.Gray {
	pixels := resizeTo(img, w, h)
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.SetGray(x, y, color.Gray{Y: clampByte(pixels[y*w+x])})
		}
	}
	return dst
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
