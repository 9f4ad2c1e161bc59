package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/velumlabs/adreel/internal/config"
	"github.com/velumlabs/adreel/internal/models"
	"github.com/velumlabs/adreel/internal/pipeline"
	"github.com/velumlabs/adreel/internal/services"
)

// Minimal provider fakes so the manager can run without external services.

type stubDesigner struct {
	gate chan struct{}
}

func (s *stubDesigner) DesignScenes(ctx context.Context, images map[string]string, order []string) (map[string]string, error) {
	if s.gate != nil {
		<-s.gate
	}
	return map[string]string{}, nil
}

func (s *stubDesigner) WriteVoiceoverScript(ctx context.Context, videoBytes []byte, durationSec float64) (string, error) {
	return "script", nil
}

type stubGenerator struct{}

func (stubGenerator) GenerateScene(ctx context.Context, req services.SceneRequest) error {
	return nil
}

type stubTTS struct{}

func (stubTTS) Synthesize(ctx context.Context, text string) (*services.TTSResponse, error) {
	return &services.TTSResponse{AudioData: []byte("mp3"), Format: "mp3"}, nil
}

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(ctx context.Context, mediaPath string) ([]services.WordTimestamp, error) {
	return nil, nil
}

type stubRenderer struct{}

func (stubRenderer) MergeScenes(ctx context.Context, clipPaths []string, outputPath string, width, height int) error {
	return nil
}
func (stubRenderer) VideoDuration(ctx context.Context, videoPath string) (float64, error) {
	return 0, nil
}
func (stubRenderer) AudioDuration(ctx context.Context, audioPath string) (float64, error) {
	return 0, nil
}
func (stubRenderer) PadAudio(ctx context.Context, inputPath, outputPath string, targetSec float64) error {
	return nil
}
func (stubRenderer) AttachAudio(ctx context.Context, videoPath, audioPath, outputPath string) error {
	return nil
}
func (stubRenderer) BurnCaptions(ctx context.Context, videoPath, srtPath, outputPath, fontName string, fontSize int) error {
	return nil
}

func testHandler(t *testing.T, designer pipeline.SceneDesigner) (*Handler, *config.Config) {
	t.Helper()
	cfg := &config.Config{
		SceneImages: map[string]string{
			config.SceneFront: "front.png",
			config.SceneLeft:  "left.png",
			config.SceneRight: "right.png",
			config.SceneBack:  "back.png",
		},
		TargetWidth:      432,
		TargetHeight:     768,
		MaxCaptionWords:  3,
		WorkDir:          t.TempDir(),
		ScenePollTimeout: time.Minute,
	}

	m := pipeline.NewManager(cfg, designer, stubGenerator{}, stubTTS{}, stubTranscriber{}, stubRenderer{})
	return NewHandler(cfg, m), cfg
}

func waitIdleOrTerminal(t *testing.T, h *Handler) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		rec := httptest.NewRecorder()
		h.GetStatus(rec, httptest.NewRequest("GET", "/api/status", nil))

		var snap models.RunSnapshot
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if snap.Status == models.StatusIdle || snap.Status.Terminal() {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("run stuck in %q", snap.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStartRunAndStatus(t *testing.T) {
	gate := make(chan struct{})
	h, _ := testHandler(t, &stubDesigner{gate: gate})

	rec := httptest.NewRecorder()
	h.StartRun(rec, httptest.NewRequest("POST", "/api/start", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d, want 202", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["message"] != "Started" || body["run_id"] == "" {
		t.Errorf("unexpected start response: %v", body)
	}

	// A second start while the run is gated must be rejected, not queued.
	rec2 := httptest.NewRecorder()
	h.StartRun(rec2, httptest.NewRequest("POST", "/api/start", nil))
	if rec2.Code != http.StatusConflict {
		t.Fatalf("concurrent start = %d, want 409", rec2.Code)
	}

	close(gate)
	waitIdleOrTerminal(t, h)
}

func TestStartRunWithUploads(t *testing.T) {
	gate := make(chan struct{})
	h, cfg := testHandler(t, &stubDesigner{gate: gate})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("front", "hero.png")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("png-bytes"))
	mw.Close()

	req := httptest.NewRequest("POST", "/api/start", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	h.StartRun(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d, want 202 (body: %s)", rec.Code, rec.Body.String())
	}

	saved := filepath.Join(cfg.WorkDir, "uploads", config.SceneFront+".png")
	data, err := os.ReadFile(saved)
	if err != nil {
		t.Fatalf("uploaded image not saved: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("saved upload = %q", data)
	}

	close(gate)
	waitIdleOrTerminal(t, h)
}

func TestGetStatusIdle(t *testing.T) {
	h, _ := testHandler(t, &stubDesigner{})

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest("GET", "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	var snap models.RunSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Status != models.StatusIdle {
		t.Errorf("status = %q, want Idle", snap.Status)
	}
}

func TestGetVideoWhitelist(t *testing.T) {
	h, cfg := testHandler(t, &stubDesigner{})
	router := NewRouter(h, RouterConfig{})

	// A known artifact that exists is served.
	if err := os.WriteFile(cfg.CaptionedVideoPath(), []byte("mp4"), 0644); err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/video/final_reel_captioned.mp4", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("known artifact = %d, want 200", rec.Code)
	}

	// A known artifact that doesn't exist yet is 404.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/video/final_video_with_voice.mp4", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing artifact = %d, want 404", rec.Code)
	}

	// Files outside the whitelist are never served, even if present.
	stray := filepath.Join(cfg.WorkDir, "secrets.txt")
	if err := os.WriteFile(stray, []byte("keys"), 0644); err != nil {
		t.Fatal(err)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/video/secrets.txt", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("stray file = %d, want 404", rec.Code)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	h, _ := testHandler(t, &stubDesigner{})
	router := NewRouter(h, RouterConfig{BackendAPIKey: "sekret"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/status", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no key = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/status", nil)
	req.Header.Set("X-API-Key", "wrong")
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("wrong key = %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/status", nil)
	req.Header.Set("X-API-Key", "sekret")
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid key = %d, want 200", rec.Code)
	}

	// Bearer form works too.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/status", nil)
	req.Header.Set("Authorization", "Bearer sekret")
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("bearer key = %d, want 200", rec.Code)
	}

	// Health stays public.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health = %d, want 200 without auth", rec.Code)
	}
}
