// Package pipeline turns a noise vector into a display image: it samples the
// generator input, runs the inference call, decodes the flat RGB output and
// upscales the result.
package pipeline

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

type Tensor struct {
	Shape []int64
	Data  []float32
}

// Noise samples standard-normal input vectors for the generator.
// A Noise is not safe for concurrent use.
type Noise struct {
	norm distuv.Normal
}

func NewNoise(seed uint64) *Noise {
	return &Noise{norm: distuv.Normal{
		Mu:    0,
		Sigma: 1,
		Src:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
	}}
}

func NewRandomNoise() *Noise {
	return NewNoise(rand.Uint64())
}

// Sample draws size independent N(0, 1) values shaped (1, size).
func (n *Noise) Sample(size int) Tensor {
	if size < 0 {
		size = 0
	}

	data := make([]float32, size)
	for i := range data {
		data[i] = float32(n.norm.Rand())
	}

	return Tensor{Shape: []int64{1, int64(size)}, Data: data}
}
