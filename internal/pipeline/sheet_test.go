package pipeline

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSheet(t *testing.T) {
	images := []image.Image{checker(), checker(), checker()}
	sheet := Sheet(images, 2)

	// 2 columns, 2 rows of 2x2 cells
	assert.Equal(t, image.Rect(0, 0, 2*2+3*SheetSpacing, 2*2+3*SheetSpacing), sheet.Bounds())
	assert.Equal(t, color.RGBAModel.Convert(SheetBackground), color.RGBAModel.Convert(sheet.At(0, 0)))

	first := image.Pt(SheetSpacing, SheetSpacing)
	assert.Equal(t, color.RGBAModel.Convert(checker().At(0, 0)), color.RGBAModel.Convert(sheet.At(first.X, first.Y)))

	third := image.Pt(SheetSpacing, 2*SheetSpacing+2)
	assert.Equal(t, color.RGBAModel.Convert(checker().At(1, 1)), color.RGBAModel.Convert(sheet.At(third.X+1, third.Y+1)))

	// empty slot in the second row
	empty := image.Pt(2*SheetSpacing+2, 2*SheetSpacing+2)
	assert.Equal(t, color.RGBAModel.Convert(SheetBackground), color.RGBAModel.Convert(sheet.At(empty.X, empty.Y)))
}

func TestSheetEmpty(t *testing.T) {
	assert.Equal(t, image.Rect(0, 0, SheetSpacing, SheetSpacing), Sheet(nil, 3).Bounds())
}
