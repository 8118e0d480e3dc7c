package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/noise2img/internal/config"
	"github.com/Brownie44l1/noise2img/internal/logutil"
	"github.com/Brownie44l1/noise2img/internal/model"
	"github.com/Brownie44l1/noise2img/internal/pipeline"
)

func main() {
	if err := newCLI().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "imagegen",
		Short: "Generate images from random noise with a pretrained generator",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
			slog.SetDefault(logutil.NewLogger(os.Stderr, config.LogLevel))
		},
	}

	cobra.EnableCommandSorting = false

	serveCmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the generator server",
		Args:    cobra.NoArgs,
		RunE:    runServer,
	}
	serveCmd.SetUsageTemplate(serveCmd.UsageTemplate() + envUsage())

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate images and write them as PNG files",
		Args:  cobra.NoArgs,
		RunE:  runGenerate,
	}
	generateCmd.Flags().IntP("count", "n", 1, "Number of images to generate")
	generateCmd.Flags().StringP("output", "o", ".", "Directory to write images to")
	generateCmd.Flags().Uint64("seed", 0, "Seed for the first image, incremented per image (default random)")
	generateCmd.Flags().Int("parallel", 1, "Maximum number of images generated at once")
	generateCmd.Flags().Bool("raw", false, "Write the decoded image without upscaling")
	generateCmd.Flags().Int("grid", 0, "Also write a contact sheet with this many columns")

	rootCmd.AddCommand(serveCmd, generateCmd)
	rootCmd.RunE = serveCmd.RunE

	return rootCmd
}

func envUsage() string {
	var sb strings.Builder
	sb.WriteString("\nEnvironment Variables:\n")

	vars := config.AsMap()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(&sb, "      %-32s %s\n", name, vars[name].Description)
	}
	return sb.String()
}

// projectRoot resolves relative model paths against the repository root when
// run from cmd/server.
func projectRoot() (string, error) {
	execPath, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	// If running from cmd/server, go up two levels
	if filepath.Base(execPath) == "server" {
		execPath = filepath.Join(execPath, "../..")
	}
	return execPath, nil
}

// loadModel copies the bundled model into the data directory and opens it.
func loadModel() (*model.Server, error) {
	modelsDir := config.ModelsDir
	if !filepath.IsAbs(modelsDir) {
		root, err := projectRoot()
		if err != nil {
			return nil, err
		}
		modelsDir = filepath.Join(root, modelsDir)
	}

	metadataPath := filepath.Join(modelsDir, "model_metadata.json")
	metadata, err := model.LoadMetadata(metadataPath)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("no model metadata, using defaults", "path", metadataPath)
		metadata, err = model.DefaultMetadata(), nil
	}
	if err != nil {
		return nil, err
	}

	bundled := filepath.Join(modelsDir, config.ModelFile)
	modelPath, err := model.EnsureLocal(bundled, config.DataDir)
	if err != nil {
		return nil, err
	}

	slog.Info("loading model", "path", modelPath)
	return model.NewServer(modelPath, metadata, config.OrtLibrary)
}

func newPipeline(m *model.Server) (*pipeline.Pipeline, error) {
	upscaler, err := pipeline.UpscalerByName(config.Upscaler)
	if err != nil {
		return nil, err
	}

	return pipeline.New(m, upscaler, pipeline.Config{
		InputSize:     m.Metadata.InputSize(),
		Width:         m.Metadata.ImageWidth,
		Height:        m.Metadata.ImageHeight,
		DisplayWidth:  m.Metadata.DisplayWidth,
		DisplayHeight: m.Metadata.DisplayHeight,
	}), nil
}
