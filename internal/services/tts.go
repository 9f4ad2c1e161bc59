package services

import "context"

// ---------------------------------------------------------------------------
// TTSService — interface for text-to-speech providers.
// ElevenLabs is the only shipped implementation; the pipeline depends on the
// interface so tests can substitute a fake synthesizer.
// ---------------------------------------------------------------------------

// TTSResponse is the common response type from any TTS provider.
type TTSResponse struct {
	AudioData []byte
	Format    string // "mp3", "wav", etc.
}

// TTSService is the interface that any TTS provider must implement.
type TTSService interface {
	// Synthesize converts the voiceover script to audio. The script may carry
	// <emphasis> and <break> markup, which the provider interprets or ignores.
	Synthesize(ctx context.Context, text string) (*TTSResponse, error)
}
