package pipeline

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// Upscaler resizes a decoded grid to the display size without interpolation.
type Upscaler interface {
	Resize(img image.Image, width, height int) image.Image
}

type ResizeUpscaler struct{}

func (ResizeUpscaler) Resize(img image.Image, width, height int) image.Image {
	return resize.Resize(uint(width), uint(height), img, resize.NearestNeighbor)
}

type DrawUpscaler struct{}

func (DrawUpscaler) Resize(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Rect, img, img.Bounds(), draw.Src, nil)
	return dst
}

func UpscalerByName(name string) (Upscaler, error) {
	switch name {
	case "", "resize":
		return ResizeUpscaler{}, nil
	case "draw":
		return DrawUpscaler{}, nil
	default:
		return nil, fmt.Errorf("unknown upscaler %q", name)
	}
}
