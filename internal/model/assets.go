package model

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// EnsureLocal copies the bundled file src into dstDir and returns the copy's
// path. An existing non-empty copy is reused as is.
func EnsureLocal(src, dstDir string) (string, error) {
	dst := filepath.Join(dstDir, filepath.Base(src))

	if fi, err := os.Stat(dst); err == nil && fi.Size() > 0 {
		slog.Debug("using existing model copy", "path", dst)
		return dst, nil
	}

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open bundled model: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(dstDir, filepath.Base(src)+".partial-*")
	if err != nil {
		return "", fmt.Errorf("create model copy: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, in)
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("copy bundled model: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("copy bundled model: %w", err)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("install model copy: %w", err)
	}

	slog.Info("copied bundled model", "src", src, "dst", dst, "bytes", n)
	return dst, nil
}
