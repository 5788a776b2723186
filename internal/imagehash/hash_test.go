package imagehash

import (
	"image"
	"image/color"
	"testing"
)

func solidImage(w, h int, c color.Gray) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, c)
		}
	}
	return img
}

func TestAHashIsDeterministic(t *testing.T) {
	img := solidImage(64, 64, color.Gray{Y: 128})
	h1 := AHash(img)
	h2 := AHash(img)
	if h1 != h2 {
		t.Fatalf("AHash not deterministic: %x vs %x", h1, h2)
	}
}

func TestDHashZeroOnSolidImage(t *testing.T) {
	// Every neighbor comparison on a solid-color image is equal, so no bit
	// should be set (the bit is only 1 when left < right).
	img := solidImage(64, 64, color.Gray{Y: 200})
	if got := DHash(img); got != 0 {
		t.Errorf("DHash(solid) = %064b, want 0", got)
	}
}

func TestPHashIsDeterministic(t *testing.T) {
	img := checkerboard(64, 64)
	h1 := PHash(img)
	h2 := PHash(img)
	if h1 != h2 {
		t.Fatalf("PHash not deterministic: %x vs %x", h1, h2)
	}
}

func TestHammingDistanceSelfIsZero(t *testing.T) {
	img := checkerboard(64, 64)
	h := PHash(img)
	if d := Hamming(h, h); d != 0 {
		t.Errorf("Hamming(h,h) = %d, want 0", d)
	}
}

func TestHammingCountsBitFlips(t *testing.T) {
	var a uint64 = 0b1010
	b := a ^ 1 // flip the low bit
	if d := Hamming(a, b); d != 1 {
		t.Errorf("Hamming after single bit flip = %d, want 1", d)
	}
}

func TestResizeBoxPreservesUniformValue(t *testing.T) {
	src := make([]float64, 16*16)
	for i := range src {
		src[i] = 50
	}
	dst := resizeBox(src, 16, 16, 8, 8)
	for i, v := range dst {
		if v != 50 {
			t.Fatalf("dst[%d] = %v, want 50", i, v)
		}
	}
}

func checkerboard(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := byte(0)
			if (x/8+y/8)%2 == 0 {
				v = 255
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}
