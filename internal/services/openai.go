package services

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// ---------------------------------------------------------------------------
// OpenAI Whisper Transcriber
// Hosted alternative to the local whisper CLI, for deployments without Python.
// ---------------------------------------------------------------------------

// OpenAIWhisperService transcribes audio via OpenAI's Whisper API with
// word-level timestamps.
type OpenAIWhisperService struct {
	client *openai.Client
}

var _ Transcriber = (*OpenAIWhisperService)(nil)

func NewOpenAIWhisperService(apiKey string) *OpenAIWhisperService {
	return &OpenAIWhisperService{
		client: openai.NewClient(apiKey),
	}
}

// Transcribe sends the file at mediaPath to Whisper and returns word-level
// timestamps in spoken order.
func (s *OpenAIWhisperService) Transcribe(ctx context.Context, mediaPath string) ([]WordTimestamp, error) {
	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: mediaPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %w", err)
	}

	if len(resp.Words) == 0 {
		return nil, fmt.Errorf("whisper returned no word timestamps (text: %q)", resp.Text)
	}

	words := make([]WordTimestamp, len(resp.Words))
	for i, w := range resp.Words {
		words[i] = WordTimestamp{
			Word:  strings.TrimSpace(w.Word),
			Start: w.Start,
			End:   w.End,
		}
	}

	logrus.Infof("[Whisper API] Transcribed %d words (duration: %.1fs)", len(words), resp.Duration)
	return words, nil
}
