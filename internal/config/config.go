package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Brownie44l1/noise2img/internal/logutil"
)

var (
	// Set via PORT in the environment
	Port string
	// Set via IMAGEGEN_MODELS in the environment
	ModelsDir string
	// Set via IMAGEGEN_DATA in the environment
	DataDir string
	// Set via IMAGEGEN_MODEL_FILE in the environment
	ModelFile string
	// Set via IMAGEGEN_DEBUG in the environment
	Debug bool
	// Derived from IMAGEGEN_DEBUG: 1 is debug, 2 is trace
	LogLevel slog.Level
	// Set via IMAGEGEN_TIMEOUT in the environment
	Timeout time.Duration
	// Set via IMAGEGEN_UPSCALER in the environment
	Upscaler string
	// Set via ONNXRUNTIME_SHARED_LIBRARY_PATH in the environment
	OrtLibrary string
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"PORT":                            {"PORT", Port, "Port the HTTP server listens on (default 8080)"},
		"IMAGEGEN_MODELS":                 {"IMAGEGEN_MODELS", ModelsDir, "Directory holding the bundled model and metadata (default ./models)"},
		"IMAGEGEN_DATA":                   {"IMAGEGEN_DATA", DataDir, "Writable directory the model is copied into before loading"},
		"IMAGEGEN_MODEL_FILE":             {"IMAGEGEN_MODEL_FILE", ModelFile, "File name of the bundled model (default generator.onnx)"},
		"IMAGEGEN_DEBUG":                  {"IMAGEGEN_DEBUG", Debug, "Show additional debug information (e.g. IMAGEGEN_DEBUG=1, or 2 for trace)"},
		"IMAGEGEN_TIMEOUT":                {"IMAGEGEN_TIMEOUT", Timeout, "Deadline for a single generation, 0 disables it (default 2m)"},
		"IMAGEGEN_UPSCALER":               {"IMAGEGEN_UPSCALER", Upscaler, "Upscaler used for the display image: resize or draw (default resize)"},
		"ONNXRUNTIME_SHARED_LIBRARY_PATH": {"ONNXRUNTIME_SHARED_LIBRARY_PATH", OrtLibrary, "Path to the onnxruntime shared library"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	// default values
	Port = "8080"
	ModelsDir = "models"
	ModelFile = "generator.onnx"
	Timeout = 2 * time.Minute
	Upscaler = "resize"

	LoadConfig()
}

func LoadConfig() {
	Debug = false
	LogLevel = slog.LevelInfo
	if debug := clean("IMAGEGEN_DEBUG"); debug != "" {
		if n, err := strconv.Atoi(debug); err == nil {
			Debug = n > 0
			if n >= 2 {
				LogLevel = logutil.LevelTrace
			}
		} else if d, err := strconv.ParseBool(debug); err == nil {
			Debug = d
		} else {
			Debug = true
		}
		if Debug && LogLevel == slog.LevelInfo {
			LogLevel = slog.LevelDebug
		}
	}

	if port := clean("PORT"); port != "" {
		Port = port
	}

	if dir := clean("IMAGEGEN_MODELS"); dir != "" {
		ModelsDir = dir
	}

	DataDir = clean("IMAGEGEN_DATA")
	if DataDir == "" {
		DataDir = defaultDataDir()
	}

	if file := clean("IMAGEGEN_MODEL_FILE"); file != "" {
		ModelFile = file
	}

	if timeout := clean("IMAGEGEN_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			if secs, serr := strconv.Atoi(timeout); serr == nil {
				d = time.Duration(secs) * time.Second
				err = nil
			}
		}
		if err != nil || d < 0 {
			slog.Error("invalid setting, ignoring", "IMAGEGEN_TIMEOUT", timeout)
		} else {
			Timeout = d
		}
	}

	if upscaler := clean("IMAGEGEN_UPSCALER"); upscaler != "" {
		Upscaler = strings.ToLower(upscaler)
	}

	OrtLibrary = clean("ONNXRUNTIME_SHARED_LIBRARY_PATH")
}

func defaultDataDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "imagegen")
	}
	return filepath.Join(dir, "imagegen")
}
