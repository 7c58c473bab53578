// Package imageproc finishes worker renders into preview images: decode,
// reject effectively-empty frames, downscale with Lanczos resampling and
// write the final PNG.
package imageproc

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/transform"

	// Render output arrives as PNG or WebP depending on the worker script;
	// image/png registers itself via the encoder import above.
	_ "golang.org/x/image/webp"
)

// DefaultOutputSize is the preview edge length in pixels.
const DefaultOutputSize = 512

// emptyPixelThreshold is the minimum number of visible (non-transparent)
// pixels below which a render counts as empty.
const emptyPixelThreshold = 100

// ErrEmptyRender reports a render with effectively no visible pixels.
var ErrEmptyRender = errors.New("render produced empty/transparent image")

// Decode opens and decodes an image file (PNG or WebP).
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// IsEmpty reports whether the image has fewer visible pixels than the
// emptiness threshold.
func IsEmpty(img image.Image) bool {
	bounds := img.Bounds()
	visible := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a > 0 {
				visible++
				if visible >= emptyPixelThreshold {
					return false
				}
			}
		}
	}
	return true
}

// Finish validates a worker render and writes the final preview: decode,
// empty check, Lanczos downscale to size, PNG encode to outputPath.
func Finish(renderPath, outputPath string, size int) error {
	if size <= 0 {
		size = DefaultOutputSize
	}

	img, err := Decode(renderPath)
	if err != nil {
		return err
	}
	if IsEmpty(img) {
		return ErrEmptyRender
	}

	if b := img.Bounds(); b.Dx() != size || b.Dy() != size {
		img = transform.Resize(img, size, size, transform.Lanczos)
	}
	return writePNG(outputPath, img)
}

// WriteBlank writes a fully transparent preview, used for placeholder
// (invisible) clothing variants.
func WriteBlank(path string, size int) error {
	if size <= 0 {
		size = DefaultOutputSize
	}
	// A fresh RGBA canvas is already fully transparent.
	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	return writePNG(path, canvas)
}

func writePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
