// Package imaging normalizes arbitrary product photos into the fixed vertical
// canvas used for scene generation: a blurred, canvas-filling copy of the
// source becomes the background, and the source scaled to fit entirely within
// the canvas is pasted sharp and centered on top.
package imaging

import (
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
)

// ErrImageLoad marks a missing or unreadable source image. It aborts the
// enclosing scene's generation.
var ErrImageLoad = errors.New("image load failed")

// Blur strength for the letterbox background.
const backgroundBlurSigma = 30

// NormalizeToCanvas reads the image at srcPath and writes a width×height
// render to dstPath. The output always has exactly the canvas dimensions
// regardless of the source aspect ratio.
func NormalizeToCanvas(srcPath, dstPath string, width, height int) error {
	src, err := imaging.Open(srcPath)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrImageLoad, srcPath, err)
	}

	// Canvas-filling blurred background. Resize ignores aspect ratio here on
	// purpose — the stretch is invisible under the blur.
	bg := imaging.Blur(imaging.Resize(src, width, height, imaging.Lanczos), backgroundBlurSigma)

	// Sharp foreground, scaled by min(W/w, H/h) so it fits entirely.
	fg := imaging.Fit(src, width, height, imaging.Lanczos)

	out := imaging.PasteCenter(bg, fg)

	if err := imaging.Save(out, dstPath); err != nil {
		return fmt.Errorf("save normalized image %s: %w", dstPath, err)
	}
	return nil
}
