package imaging

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func writeTestImage(t *testing.T, dir string, name string, w, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create test image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return path
}

func TestNormalizeToCanvasDimensions(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name string
		w, h int
	}{
		{"square", 500, 500},
		{"wide", 1920, 400},
		{"tall", 300, 1600},
		{"tiny", 40, 60},
	}

	const canvasW, canvasH = 432, 768

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := writeTestImage(t, dir, tc.name+".png", tc.w, tc.h)
			dst := filepath.Join(dir, tc.name+"_safe.png")

			if err := NormalizeToCanvas(src, dst, canvasW, canvasH); err != nil {
				t.Fatalf("normalize: %v", err)
			}

			out, err := imaging.Open(dst)
			if err != nil {
				t.Fatalf("open output: %v", err)
			}
			bounds := out.Bounds()
			if bounds.Dx() != canvasW || bounds.Dy() != canvasH {
				t.Errorf("output is %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), canvasW, canvasH)
			}
		})
	}
}

func TestNormalizeMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := NormalizeToCanvas(filepath.Join(dir, "nope.png"), filepath.Join(dir, "out.png"), 432, 768)
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	if !errors.Is(err, ErrImageLoad) {
		t.Errorf("error %v does not wrap ErrImageLoad", err)
	}
}
