package pipeline

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
)

var (
	ErrOutputLength = errors.New("output length does not match image size")
	ErrDimensions   = errors.New("invalid image dimensions")
)

// Decode reinterprets a flat [R, G, B, R, G, B, ...] vector as a width x height
// image. Pixels are laid out row-major, so triple k is pixel (k%width, k/width).
func Decode(out []float32, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || height > math.MaxInt/4/width {
		return nil, fmt.Errorf("%w: %dx%d", ErrDimensions, width, height)
	}

	if want := width * height * 3; len(out) != want {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrOutputLength, want, len(out))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	loc := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: channel(out[loc]),
				G: channel(out[loc+1]),
				B: channel(out[loc+2]),
				A: 0xff,
			})
			loc += 3
		}
	}

	return img, nil
}

// channel clamps v to [0, 255] and truncates it.
func channel(v float32) uint8 {
	switch {
	case math.IsNaN(float64(v)), v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}
