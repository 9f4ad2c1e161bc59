package services

import "context"

// ---------------------------------------------------------------------------
// Transcriber — interface for speech-to-text providers.
// LocalWhisperService (whisper CLI) is preferred; OpenAIService (Whisper API)
// is the fallback when no local model is configured.
// ---------------------------------------------------------------------------

// WordTimestamp is a single transcribed word with its precise timing.
// Caption cues are derived from runs of these.
type WordTimestamp struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"` // seconds
	End   float64 `json:"end"`   // seconds
}

// Transcriber is the interface that any speech-to-text provider must implement.
type Transcriber interface {
	// Transcribe returns word-level timestamps for the audio track of the
	// media file at mediaPath.
	Transcribe(ctx context.Context, mediaPath string) ([]WordTimestamp, error)
}
