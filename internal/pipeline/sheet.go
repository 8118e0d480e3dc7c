package pipeline

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

const SheetSpacing = 4

var SheetBackground = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}

// Sheet arranges images in a grid with cols columns, separated by
// SheetSpacing pixels of SheetBackground. Every cell is sized to the first
// image.
func Sheet(images []image.Image, cols int) image.Image {
	if len(images) == 0 || cols <= 0 {
		return image.NewRGBA(image.Rect(0, 0, SheetSpacing, SheetSpacing))
	}
	if cols > len(images) {
		cols = len(images)
	}
	rows := (len(images) + cols - 1) / cols

	cell := images[0].Bounds().Size()
	width := cell.X*cols + (cols+1)*SheetSpacing
	height := cell.Y*rows + (rows+1)*SheetSpacing

	sheet := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(sheet, sheet.Bounds(), &image.Uniform{SheetBackground}, image.Point{}, draw.Src)

	for i, img := range images {
		x := SheetSpacing + (i%cols)*(cell.X+SheetSpacing)
		y := SheetSpacing + (i/cols)*(cell.Y+SheetSpacing)
		r := image.Rect(x, y, x+cell.X, y+cell.Y)
		draw.Draw(sheet, r, img, img.Bounds().Min, draw.Src)
	}

	return sheet
}
