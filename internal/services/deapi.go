package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/velumlabs/adreel/internal/keypool"
)

// ---------------------------------------------------------------------------
// DeAPI img2video Service
// Turns one (image, prompt) pair into a rendered clip via DeAPI's asynchronous
// generation job: submit → poll by request_id → download result.
//
// Submission runs against a rotating credential pool: a rate-limit response
// rotates to the next key after a fixed backoff, bounded by a retry ceiling.
// Polling retries transient transport errors indefinitely within the caller's
// deadline, so a long-running remote job never loses accrued progress to a
// network blip.
// ---------------------------------------------------------------------------

const (
	deapiDefaultBaseURL = "https://api.deapi.ai/api/v1/client"

	deapiModel    = "Ltxv_13B_0_9_8_Distilled_FP8"
	deapiMotion   = "cinematic"
	deapiFPS      = 30
	deapiFrames   = 120
	deapiSteps    = 1
	deapiGuidance = 8

	// Rate-limit marker DeAPI puts in the response body when a key is throttled.
	deapiRateLimitMarker = "Too Many Attempts"

	deapiMaxAttempts      = 5 // submission attempts per scene, across all keys
	deapiRateLimitBackoff = 20 * time.Second
	deapiPollInterval     = 2 * time.Second
)

// SceneRequest describes one scene generation job.
type SceneRequest struct {
	Slot       string // scene slot key, for log lines
	Prompt     string // cinematic motion prompt for this scene
	ImagePath  string // normalized first-frame image (canvas-sized)
	OutputPath string // where the rendered clip is written
	Width      int
	Height     int

	// OnProgress receives the remote job's reported percentage (0-100) on
	// every poll. Optional.
	OnProgress func(pct int)

	// Logf appends to the run's observable log. Optional; process logging via
	// logrus happens regardless.
	Logf func(format string, args ...interface{})
}

func (r SceneRequest) logf(format string, args ...interface{}) {
	if r.Logf != nil {
		r.Logf(format, args...)
	}
}

type DeapiService struct {
	baseURL string
	keys    *keypool.Pool
	client  *http.Client

	// Tunables, defaulted from the constants. Tests shrink them.
	maxAttempts      int
	rateLimitBackoff time.Duration
	pollInterval     time.Duration
}

func NewDeapiService(keys *keypool.Pool) *DeapiService {
	return NewDeapiServiceWithBaseURL(keys, deapiDefaultBaseURL)
}

// NewDeapiServiceWithBaseURL creates a service against a non-default endpoint.
func NewDeapiServiceWithBaseURL(keys *keypool.Pool, baseURL string) *DeapiService {
	return &DeapiService{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		keys:    keys,
		client: &http.Client{
			Timeout: 60 * time.Second, // per-call timeout, not the full poll cycle
		},
		maxAttempts:      deapiMaxAttempts,
		rateLimitBackoff: deapiRateLimitBackoff,
		pollInterval:     deapiPollInterval,
	}
}

// deapiSubmitResponse is the (partial) response from POST /img2video.
// A throttled key shows up as a "message" containing the rate-limit marker
// and no "data" object.
type deapiSubmitResponse struct {
	Message string `json:"message"`
	Data    *struct {
		RequestID string `json:"request_id"`
	} `json:"data"`
}

// deapiStatusResponse is the response from GET /request-status/{request_id}.
type deapiStatusResponse struct {
	Data struct {
		Progress  float64 `json:"progress"`
		Status    string  `json:"status"`
		ResultURL string  `json:"result_url"`
	} `json:"data"`
}

// GenerateScene runs the full submit → poll → download state machine for one
// scene. The caller bounds the whole call with a deadline on ctx.
//
// Returns nil on success (the clip is written to req.OutputPath), or an error
// wrapping ErrNoCredentials, ErrRateLimited, ErrJobFailed, or the transport
// failure that aborted the scene.
func (s *DeapiService) GenerateScene(ctx context.Context, req SceneRequest) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		key, ok := s.keys.Current()
		if !ok {
			req.logf("Error: no DeAPI keys configured")
			return ErrNoCredentials
		}

		resp, raw, err := s.submit(ctx, req, key)
		if err != nil {
			req.logf("Video submit error for %s: %v", req.Slot, err)
			return fmt.Errorf("submit %s: %w", req.Slot, err)
		}

		if strings.Contains(resp.Message, deapiRateLimitMarker) {
			req.logf("Rate limit hit on key #%d", s.keys.Index()+1)
			logrus.Warnf("[DeAPI] Rate limited on attempt %d/%d (slot=%s)", attempt, s.maxAttempts, req.Slot)

			if attempt == s.maxAttempts {
				break
			}

			req.logf("Waiting %s before switching key...", s.rateLimitBackoff)
			if err := sleepCtx(ctx, s.rateLimitBackoff); err != nil {
				return err
			}
			s.keys.Advance()
			req.logf("Rotating API key (now #%d)", s.keys.Index()+1)
			continue
		}

		if resp.Data == nil || resp.Data.RequestID == "" {
			req.logf("API error for %s: %s", req.Slot, truncate(raw, 300))
			return fmt.Errorf("submit %s: unexpected response: %s", req.Slot, truncate(raw, 300))
		}

		logrus.Infof("[DeAPI] Submitted %s, request_id=%s", req.Slot, resp.Data.RequestID)
		return s.pollAndDownload(ctx, resp.Data.RequestID, key, req)
	}

	return fmt.Errorf("scene %s: %w after %d attempts", req.Slot, ErrRateLimited, s.maxAttempts)
}

// submit posts the multipart generation request. The image is re-read and the
// seed re-randomized on every attempt.
func (s *DeapiService) submit(ctx context.Context, req SceneRequest, key string) (*deapiSubmitResponse, string, error) {
	body, contentType, err := s.buildSubmitForm(req)
	if err != nil {
		return nil, "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/img2video", body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+key)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed deapiSubmitResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, string(raw), fmt.Errorf("failed to parse submit response: %w (body: %s)", err, truncate(string(raw), 300))
	}

	return &parsed, string(raw), nil
}

func (s *DeapiService) buildSubmitForm(req SceneRequest) (*bytes.Buffer, string, error) {
	f, err := os.Open(req.ImagePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image %s: %w", req.ImagePath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("first_frame_image", filepath.Base(req.ImagePath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to copy image into form: %w", err)
	}

	fields := map[string]string{
		"prompt":   req.Prompt,
		"width":    strconv.Itoa(req.Width),
		"height":   strconv.Itoa(req.Height),
		"fps":      strconv.Itoa(deapiFPS),
		"frames":   strconv.Itoa(deapiFrames),
		"steps":    strconv.Itoa(deapiSteps),
		"guidance": strconv.Itoa(deapiGuidance),
		"seed":     strconv.Itoa(rand.Intn(99999999) + 1),
		"model":    deapiModel,
		"motion":   deapiMotion,
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

// pollAndDownload polls the status endpoint every pollInterval with the key
// that submitted the job, publishing reported progress on every poll.
//
// Transient transport errors are logged and retried without a ceiling of
// their own — the ctx deadline is the only bound. A reported "failed" status
// terminates the scene without retry.
func (s *DeapiService) pollAndDownload(ctx context.Context, requestID, key string, req SceneRequest) error {
	statusURL := fmt.Sprintf("%s/request-status/%s", s.baseURL, requestID)

	for {
		status, err := s.getStatus(ctx, statusURL, key)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("scene %s polling stopped: %w", req.Slot, ctx.Err())
			}
			req.logf("Poll error for %s: %v (retrying)", req.Slot, err)
			if err := sleepCtx(ctx, s.pollInterval); err != nil {
				return err
			}
			continue
		}

		pct := int(status.Data.Progress)
		if req.OnProgress != nil {
			req.OnProgress(pct)
		}

		if pct >= 100 {
			if status.Data.ResultURL == "" {
				return fmt.Errorf("scene %s complete but no result_url (request_id=%s)", req.Slot, requestID)
			}
			if err := s.downloadResult(ctx, status.Data.ResultURL, req.OutputPath); err != nil {
				return fmt.Errorf("download %s: %w", req.Slot, err)
			}
			req.logf("Saved: %s", filepath.Base(req.OutputPath))
			logrus.Infof("[DeAPI] %s done → %s", req.Slot, req.OutputPath)
			return nil
		}

		if status.Data.Status == "failed" {
			req.logf("Generation failed for %s (request_id=%s)", req.Slot, requestID)
			return fmt.Errorf("scene %s (request_id=%s): %w", req.Slot, requestID, ErrJobFailed)
		}

		if err := sleepCtx(ctx, s.pollInterval); err != nil {
			return err
		}
	}
}

func (s *DeapiService) getStatus(ctx context.Context, statusURL, key string) (*deapiStatusResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+key)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read status response: %w", err)
	}

	var status deapiStatusResponse
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w (body: %s)", err, truncate(string(raw), 300))
	}

	return &status, nil
}

func (s *DeapiService) downloadResult(ctx context.Context, resultURL, outputPath string) error {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", resultURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read video data: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("downloaded video is empty (0 bytes)")
	}

	return os.WriteFile(outputPath, data, 0644)
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
