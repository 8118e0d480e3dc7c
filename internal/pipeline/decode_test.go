package pipeline

import (
	"image/color"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRowMajor(t *testing.T) {
	cases := []struct{ width, height int }{
		{1, 1}, {3, 2}, {2, 3}, {16, 16}, {20, 15},
	}

	for _, tt := range cases {
		out := make([]float32, tt.width*tt.height*3)
		for k := 0; k < tt.width*tt.height; k++ {
			out[3*k], out[3*k+1], out[3*k+2] = float32(k), float32(k), float32(k)
		}

		img, err := Decode(out, tt.width, tt.height)
		require.NoError(t, err)
		require.Equal(t, tt.width, img.Bounds().Dx())
		require.Equal(t, tt.height, img.Bounds().Dy())

		for y := 0; y < tt.height; y++ {
			for x := 0; x < tt.width; x++ {
				v := uint8(min(y*tt.width+x, 255))
				want := color.RGBA{v, v, v, 0xff}
				if got := img.RGBAAt(x, y); got != want {
					t.Fatalf("%dx%d: pixel (%d, %d) = %v, want %v", tt.width, tt.height, x, y, got, want)
				}
			}
		}
	}
}

func TestDecodeClamp(t *testing.T) {
	img, err := Decode([]float32{-5, 0, 255, 300, 127.9, float32(math.NaN())}, 2, 1)
	require.NoError(t, err)

	got := []color.RGBA{img.RGBAAt(0, 0), img.RGBAAt(1, 0)}
	want := []color.RGBA{{0, 0, 255, 0xff}, {255, 127, 0, 0xff}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeScenario(t *testing.T) {
	out := []float32{0, 0, 0, 255, 255, 255, 128, 128, 128, 300, -10, 0}
	img, err := Decode(out, 2, 2)
	require.NoError(t, err)

	want := map[[2]int]color.RGBA{
		{0, 0}: {0, 0, 0, 0xff},
		{1, 0}: {255, 255, 255, 0xff},
		{0, 1}: {128, 128, 128, 0xff},
		{1, 1}: {255, 0, 0, 0xff},
	}
	for p, c := range want {
		assert.Equal(t, c, img.RGBAAt(p[0], p[1]), "pixel %v", p)
	}
}

func TestDecodeLengthMismatch(t *testing.T) {
	_, err := Decode(make([]float32, 11), 2, 2)
	require.ErrorIs(t, err, ErrOutputLength)
	assert.Contains(t, err.Error(), "expected 12 values, got 11")

	_, err = Decode(nil, 2, 2)
	require.ErrorIs(t, err, ErrOutputLength)

	_, err = Decode(make([]float32, 13), 2, 2)
	require.ErrorIs(t, err, ErrOutputLength)
}

func TestDecodeDimensions(t *testing.T) {
	_, err := Decode(nil, 0, 2)
	require.ErrorIs(t, err, ErrDimensions)

	_, err = Decode(nil, 2, -1)
	require.ErrorIs(t, err, ErrDimensions)
}

func TestDecodeOverflowingDimensions(t *testing.T) {
	// 1<<32 * 1<<32 * 3 wraps to 0 in int
	_, err := Decode(nil, 1<<32, 1<<32)
	require.ErrorIs(t, err, ErrDimensions)

	_, err = Decode(nil, math.MaxInt, 2)
	require.ErrorIs(t, err, ErrDimensions)

	_, err = Decode(make([]float32, 3), 1<<30, 1)
	require.ErrorIs(t, err, ErrOutputLength)
}
