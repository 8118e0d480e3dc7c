package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/noise2img/internal/config"
	"github.com/Brownie44l1/noise2img/internal/handlers"
	"github.com/Brownie44l1/noise2img/internal/pipeline"
	"github.com/Brownie44l1/noise2img/internal/presenter"
)

func runServer(cmd *cobra.Command, args []string) error {
	m, err := loadModel()
	if err != nil {
		slog.Error("failed to initialize model", "error", err)
		return err
	}
	defer m.Close()

	p, err := newPipeline(m)
	if err != nil {
		return err
	}

	pr := presenter.New(func(ctx context.Context) (*pipeline.Result, error) {
		return p.Render(ctx, pipeline.NewRandomNoise())
	}, config.Timeout)
	defer pr.Close()

	srv := &http.Server{
		Addr:    ":" + config.Port,
		Handler: handlers.NewHandler(p, pr).Routes(),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pr.Run(ctx)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	slog.Info("server config", "env", config.Values())
	slog.Info("server starting", "port", config.Port, "image", m.Metadata.ImageWidth, "display", m.Metadata.DisplayWidth, "upscaler", config.Upscaler)
	slog.Info("endpoints",
		"GET /", "single-screen generator page",
		"GET /health", "health check",
		"POST /generate", "render one PNG synchronously",
		"POST /decode", "decode a raw output vector to PNG",
		"POST /api/trigger", "start a background generation",
		"GET /api/events", "websocket state stream")

	if err := g.Wait(); err != nil {
		slog.Error("server failed", "error", err)
		return err
	}

	slog.Info("server stopped")
	return nil
}
