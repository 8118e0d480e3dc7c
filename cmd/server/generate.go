package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/noise2img/internal/config"
	"github.com/Brownie44l1/noise2img/internal/pipeline"
)

type generateOptions struct {
	count    int
	output   string
	seed     uint64
	parallel int
	raw      bool
	grid     int
}

func runGenerate(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	var opts generateOptions
	var err error
	if opts.count, err = flags.GetInt("count"); err != nil {
		return err
	}
	if opts.output, err = flags.GetString("output"); err != nil {
		return err
	}
	if opts.parallel, err = flags.GetInt("parallel"); err != nil {
		return err
	}
	if opts.raw, err = flags.GetBool("raw"); err != nil {
		return err
	}
	if opts.grid, err = flags.GetInt("grid"); err != nil {
		return err
	}
	if opts.seed, err = flags.GetUint64("seed"); err != nil {
		return err
	}
	if !flags.Changed("seed") {
		opts.seed = rand.Uint64()
	}

	if opts.count < 1 {
		return fmt.Errorf("count must be at least 1")
	}

	m, err := loadModel()
	if err != nil {
		return err
	}
	defer m.Close()

	p, err := newPipeline(m)
	if err != nil {
		return err
	}

	_, err = generate(cmd.Context(), p, opts)
	return err
}

// generate renders opts.count images, image i from seed opts.seed+i, and
// writes them into opts.output. It returns the written paths in order.
func generate(ctx context.Context, p *pipeline.Pipeline, opts generateOptions) ([]string, error) {
	if err := os.MkdirAll(opts.output, 0o755); err != nil {
		return nil, err
	}

	images := make([]image.Image, opts.count)
	paths := make([]string, opts.count)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.parallel, 1))

	for i := range opts.count {
		g.Go(func() error {
			rctx := ctx
			if config.Timeout > 0 {
				var cancel context.CancelFunc
				rctx, cancel = context.WithTimeout(ctx, config.Timeout)
				defer cancel()
			}

			seed := opts.seed + uint64(i)
			res, err := p.Render(rctx, pipeline.NewNoise(seed))
			if err != nil {
				return fmt.Errorf("image %d (seed %d): %w", i, seed, err)
			}

			images[i] = res.Image
			if opts.raw {
				images[i] = res.Raw
			}

			paths[i] = filepath.Join(opts.output, fmt.Sprintf("generated-%03d.png", i))
			if err := writePNGFile(paths[i], images[i]); err != nil {
				return err
			}

			slog.Info("wrote image", "path", paths[i], "seed", seed, "elapsed", res.Elapsed)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.grid > 0 {
		sheet := filepath.Join(opts.output, "sheet.png")
		if err := writePNGFile(sheet, pipeline.Sheet(images, opts.grid)); err != nil {
			return nil, err
		}
		slog.Info("wrote contact sheet", "path", sheet, "columns", opts.grid)
		paths = append(paths, sheet)
	}

	return paths, nil
}

func writePNGFile(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
