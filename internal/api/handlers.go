package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/velumlabs/adreel/internal/config"
	"github.com/velumlabs/adreel/internal/models"
	"github.com/velumlabs/adreel/internal/pipeline"
)

// maxUploadBytes bounds the multipart form when starting a run with uploaded
// product photos.
const maxUploadBytes = 32 << 20

type Handler struct {
	cfg     *config.Config
	manager *pipeline.Manager
}

func NewHandler(cfg *config.Config, manager *pipeline.Manager) *Handler {
	return &Handler{cfg: cfg, manager: manager}
}

// StartRun handles POST /api/start.
// The request may be empty (use configured scene images) or a multipart form
// with per-slot image uploads under the field names front/left/right/back.
// A second start while a run is in flight returns 409.
func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.collectUploads(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	runID, err := h.manager.Start(overrides)
	if err != nil {
		if errors.Is(err, pipeline.ErrRunActive) {
			respondError(w, http.StatusConflict, "A generation run is already in progress")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to start run")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"message": "Started",
		"run_id":  runID,
		"status":  string(models.StatusInitializing),
	})
}

// uploadFields maps multipart field names to scene slots.
var uploadFields = map[string]string{
	"front": config.SceneFront,
	"left":  config.SceneLeft,
	"right": config.SceneRight,
	"back":  config.SceneBack,
}

// collectUploads saves any uploaded product photos under the work dir and
// returns slot→path overrides. A non-multipart body yields no overrides.
func (h *Handler) collectUploads(r *http.Request) (map[string]string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil // no multipart body, run with configured images
	}

	uploadDir := filepath.Join(h.cfg.WorkDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to prepare upload dir")
	}

	overrides := make(map[string]string)
	for field, slot := range uploadFields {
		file, header, err := r.FormFile(field)
		if err != nil {
			continue // slot not uploaded, keep the configured default
		}

		dst := filepath.Join(uploadDir, slot+filepath.Ext(header.Filename))
		out, err := os.Create(dst)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to save uploaded %s image", field)
		}
		_, copyErr := io.Copy(out, file)
		out.Close()
		file.Close()
		if copyErr != nil {
			return nil, fmt.Errorf("failed to save uploaded %s image", field)
		}

		overrides[slot] = dst
	}
	return overrides, nil
}

// GetStatus handles GET /api/status: the live run's snapshot, or the last
// finished run's, or Idle.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.manager.Status())
}

// GetVideo handles GET /video/{filename}. Only known pipeline artifacts are
// served; anything else is 404 regardless of what exists in the work dir.
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	path, ok := h.artifactPath(filename)
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown artifact")
		return
	}
	if _, err := os.Stat(path); err != nil {
		respondError(w, http.StatusNotFound, "Artifact not generated yet")
		return
	}

	http.ServeFile(w, r, path)
}

// artifactPath resolves a requested filename against the fixed output set.
func (h *Handler) artifactPath(filename string) (string, bool) {
	known := []string{
		h.cfg.MergedVideoPath(),
		h.cfg.VoicedVideoPath(),
		h.cfg.CaptionedVideoPath(),
		h.cfg.SubtitlePath(),
	}
	for _, slot := range config.SceneOrder() {
		known = append(known, h.cfg.ScenePath(slot))
	}

	for _, p := range known {
		if filepath.Base(p) == filename {
			return p, true
		}
	}
	return "", false
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
