package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/velumlabs/adreel/internal/imaging"
)

// ---------------------------------------------------------------------------
// Gemini Service
// Uses the Google Gen AI SDK for the two multimodal calls in the pipeline:
//   - DesignScenes: 4 product photos → strict JSON of per-scene motion prompts
//   - WriteVoiceoverScript: rendered video bytes + duration → narration script
// ---------------------------------------------------------------------------

const geminiModel = "gemini-2.5-flash"

// sceneDirective is the fixed prompt for scene design. The response must be a
// strict JSON object keyed scene1..scene4.
const sceneDirective = `You are an elite cinematic advertisement director and AI video engineer.
You are given 4 images of the SAME product from different angles.
Infer product category, material, surface behavior, scale.

Rules:
- Same dark premium studio
- Soft volumetric fog
- Controlled rim lighting
- Glossy floor reflections
- Vertical 9:16 framing
- No distortion

Scene logic:
1. Hero reveal
2. Side geometry
3. 3D orbit / depth
4. Important detail close-up

Return STRICT JSON ONLY:
{
  "scene1": "",
  "scene2": "",
  "scene3": "",
  "scene4": ""
}`

type GeminiService struct {
	client *genai.Client
	model  string
}

func NewGeminiService(ctx context.Context, apiKey string) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiService{
		client: client,
		model:  geminiModel,
	}, nil
}

// DesignScenes sends the four product photos in slot order and parses the
// returned scene-prompt JSON. A malformed response degrades to an empty map
// (logged, not fatal); transport and auth errors propagate and fail the run.
// A missing source image also propagates — without all four angles there is
// nothing sensible to design.
func (s *GeminiService) DesignScenes(ctx context.Context, images map[string]string, order []string) (map[string]string, error) {
	parts := []*genai.Part{genai.NewPartFromText(sceneDirective)}

	for _, slot := range order {
		path := images[slot]
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", imaging.ErrImageLoad, path, err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, mimeTypeForImage(path)))
	}

	logrus.Infof("[Gemini] Designing scenes from %d images (model=%s)", len(order), s.model)

	resp, err := s.client.Models.GenerateContent(ctx, s.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini scene design failed: %w", err)
	}

	scenes := ParseSceneJSON(resp.Text())
	logrus.Infof("[Gemini] Designed %d scenes", len(scenes))
	return scenes, nil
}

// WriteVoiceoverScript asks Gemini to write a narration script for the actual
// rendered video, constrained to its measured duration.
func (s *GeminiService) WriteVoiceoverScript(ctx context.Context, videoBytes []byte, durationSec float64) (string, error) {
	prompt := fmt.Sprintf(`You are a professional cinematic advertisement voiceover writer.
STRICT RULES:
- Script MUST fit within %.2f seconds
- Use <emphasis> and <break> tags
- Natural sentences only
- Return only formatted text`, durationSec)

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(videoBytes, "video/mp4"),
	}

	logrus.Infof("[Gemini] Writing voiceover script (videoSize=%d bytes, duration=%.2fs)", len(videoBytes), durationSec)

	resp, err := s.client.Models.GenerateContent(ctx, s.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini script generation failed: %w", err)
	}

	script := strings.TrimSpace(resp.Text())
	if script == "" {
		return "", fmt.Errorf("gemini returned an empty script")
	}
	return script, nil
}

var codeFenceRe = regexp.MustCompile("```json|```")

// ParseSceneJSON strips markdown code fences and parses the scene-prompt
// object. On parse failure it logs and returns an empty map — the pipeline
// then has no scenes to render, which the merge stage reports downstream.
func ParseSceneJSON(text string) map[string]string {
	cleaned := strings.TrimSpace(codeFenceRe.ReplaceAllString(text, ""))

	scenes := map[string]string{}
	if err := json.Unmarshal([]byte(cleaned), &scenes); err != nil {
		logrus.Warnf("[Gemini] JSON parse error: %v", err)
		return map[string]string{}
	}
	return scenes
}

func mimeTypeForImage(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".png") {
		return "image/png"
	}
	return "image/jpeg"
}
