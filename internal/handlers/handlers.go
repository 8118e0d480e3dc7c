package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Brownie44l1/noise2img/internal/config"
	"github.com/Brownie44l1/noise2img/internal/pipeline"
	"github.com/Brownie44l1/noise2img/internal/presenter"
)

type Handler struct {
	pipeline  *pipeline.Pipeline
	presenter *presenter.Presenter
}

func NewHandler(p *pipeline.Pipeline, pr *presenter.Presenter) *Handler {
	return &Handler{
		pipeline:  p,
		presenter: pr,
	}
}

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.Index)
	mux.HandleFunc("/health", enableCORS(h.Health))
	mux.HandleFunc("/generate", enableCORS(h.Generate))
	mux.HandleFunc("/decode", enableCORS(h.Decode))
	mux.HandleFunc("/api/trigger", enableCORS(h.Trigger))
	mux.HandleFunc("/api/cancel", enableCORS(h.Cancel))
	mux.HandleFunc("/api/state", enableCORS(h.State))
	mux.HandleFunc("/api/image", enableCORS(h.Image))
	mux.HandleFunc("/api/events", h.Events)
	return mux
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Generate renders one image synchronously and returns it as PNG. The
// optional seed query parameter makes the noise vector reproducible and raw=1
// skips the upscaler.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	noise := pipeline.NewRandomNoise()
	if s := r.URL.Query().Get("seed"); s != "" {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			http.Error(w, "seed must be an unsigned integer", http.StatusBadRequest)
			return
		}
		noise = pipeline.NewNoise(seed)
	}

	ctx := r.Context()
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	res, err := h.pipeline.Render(ctx, noise)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.Error("generation failed", "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			http.Error(w, "Generation timed out", http.StatusGatewayTimeout)
			return
		}
		http.Error(w, "Generation failed", http.StatusInternalServerError)
		return
	}

	var img image.Image = res.Image
	if raw, _ := strconv.ParseBool(r.URL.Query().Get("raw")); raw {
		img = res.Raw
	}

	w.Header().Set("X-Image-Id", res.ID)
	writePNG(w, img)
}

type DecodeRequest struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Output []float32 `json:"output"`
}

func (h *Handler) Decode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<20))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req DecodeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Width == 0 && req.Height == 0 {
		cfg := h.pipeline.Config()
		req.Width, req.Height = cfg.Width, cfg.Height
	}

	img, err := pipeline.Decode(req.Output, req.Width, req.Height)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writePNG(w, img)
}

func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token, err := h.presenter.Trigger()
	switch {
	case errors.Is(err, presenter.ErrBusy):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "token": token})
	case errors.Is(err, presenter.ErrClosed):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusAccepted, map[string]any{"token": token})
	}
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": h.presenter.Cancel()})
}

func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.presenter.Snapshot())
}

func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	img, id := h.presenter.Image()
	if img == nil {
		http.Error(w, "No image generated yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Image-Id", id)
	writePNG(w, img)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "error", err)
	}
}

func writePNG(w http.ResponseWriter, img image.Image) {
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		slog.Error("failed to encode png", "error", err)
	}
}
