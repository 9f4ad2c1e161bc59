package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// ---------------------------------------------------------------------------
// Local Whisper Transcriber
// Shells out to the whisper CLI with word-level timestamps enabled, then
// flattens the segment/word JSON into a single word list.
// ---------------------------------------------------------------------------

// LocalWhisperService transcribes media with a locally installed whisper CLI.
type LocalWhisperService struct {
	modelSize string // "tiny", "base", "small", "medium", "large"
	outputDir string
}

var _ Transcriber = (*LocalWhisperService)(nil)

func NewLocalWhisperService(modelSize, outputDir string) *LocalWhisperService {
	if modelSize == "" {
		modelSize = "small"
	}
	return &LocalWhisperService{modelSize: modelSize, outputDir: outputDir}
}

// Transcribe runs whisper against mediaPath and returns word timestamps in
// spoken order. Whisper writes <base>.json into outputDir.
func (s *LocalWhisperService) Transcribe(ctx context.Context, mediaPath string) ([]WordTimestamp, error) {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create whisper output dir: %w", err)
	}

	logrus.Infof("[Whisper] Transcribing %s (model=%s)", filepath.Base(mediaPath), s.modelSize)

	cmd := exec.CommandContext(ctx,
		"whisper",
		mediaPath,
		"--model", s.modelSize,
		"--output_format", "json",
		"--output_dir", s.outputDir,
		"--word_timestamps", "True",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("whisper failed: %w (output: %s)", err, truncate(string(out), 300))
	}

	base := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	jsonPath := filepath.Join(s.outputDir, base+".json")

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read whisper output %s: %w", jsonPath, err)
	}

	words, err := parseWhisperJSON(data)
	if err != nil {
		return nil, err
	}

	logrus.Infof("[Whisper] Transcribed %d words", len(words))
	return words, nil
}

// whisperOutput mirrors the parts of whisper's JSON output we consume.
type whisperOutput struct {
	Segments []struct {
		Words []struct {
			Word  string  `json:"word"`
			Start float64 `json:"start"`
			End   float64 `json:"end"`
		} `json:"words"`
	} `json:"segments"`
}

// parseWhisperJSON flattens segments[].words[] into one ordered word list,
// trimming the leading spaces whisper keeps on each token.
func parseWhisperJSON(data []byte) ([]WordTimestamp, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse whisper JSON: %w", err)
	}

	var words []WordTimestamp
	for _, seg := range out.Segments {
		for _, w := range seg.Words {
			text := strings.TrimSpace(w.Word)
			if text == "" {
				continue
			}
			words = append(words, WordTimestamp{
				Word:  text,
				Start: w.Start,
				End:   w.End,
			})
		}
	}
	return words, nil
}
