package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Brownie44l1/noise2img/internal/logutil"
)

// Inferer runs the frozen generator network: one (1, N) input vector in,
// one flat width*height*3 vector out.
type Inferer interface {
	Forward(input []float32) ([]float32, error)
}

type Config struct {
	InputSize     int
	Width         int
	Height        int
	DisplayWidth  int
	DisplayHeight int
}

type Pipeline struct {
	model    Inferer
	upscaler Upscaler
	cfg      Config
}

// Result is one generated image. Raw is the decoded grid and Image is the
// upscaled display image.
type Result struct {
	ID      string
	Raw     *image.RGBA
	Image   image.Image
	Elapsed time.Duration
}

func New(model Inferer, upscaler Upscaler, cfg Config) *Pipeline {
	if upscaler == nil {
		upscaler = ResizeUpscaler{}
	}
	return &Pipeline{model: model, upscaler: upscaler, cfg: cfg}
}

func (p *Pipeline) Config() Config {
	return p.cfg
}

// Render samples a noise vector from n and runs it through the whole pipeline.
// The inference call itself cannot be interrupted; when ctx ends first its
// result is dropped.
func (p *Pipeline) Render(ctx context.Context, n *Noise) (*Result, error) {
	start := time.Now()
	input := n.Sample(p.cfg.InputSize)
	logutil.Trace("sampled input", "shape", input.Shape, "elapsed", time.Since(start))

	out, err := p.forward(ctx, input.Data)
	if err != nil {
		return nil, err
	}
	logutil.Trace("forward pass", "values", len(out), "elapsed", time.Since(start))

	raw, err := Decode(out, p.cfg.Width, p.cfg.Height)
	if err != nil {
		return nil, err
	}
	logutil.Trace("decoded image", "width", p.cfg.Width, "height", p.cfg.Height, "elapsed", time.Since(start))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		ID:  uuid.NewString(),
		Raw: raw,
	}

	if p.cfg.DisplayWidth > 0 && p.cfg.DisplayHeight > 0 {
		res.Image = p.upscaler.Resize(raw, p.cfg.DisplayWidth, p.cfg.DisplayHeight)
	} else {
		res.Image = raw
	}

	res.Elapsed = time.Since(start)
	slog.Debug("rendered image", "id", res.ID, "elapsed", res.Elapsed)
	return res, nil
}

func (p *Pipeline) forward(ctx context.Context, input []float32) ([]float32, error) {
	type result struct {
		out []float32
		err error
	}

	ch := make(chan result, 1)
	go func() {
		out, err := p.model.Forward(input)
		ch <- result{out, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("inference failed: %w", r.err)
		}
		return r.out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
