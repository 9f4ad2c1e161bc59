package services

import (
	"fmt"
	"os"
	"strings"
)

// ---------------------------------------------------------------------------
// Caption generation
// Word timestamps from the transcriber are grouped into short cues and written
// as SRT, which BurnCaptions then renders into the final video.
// ---------------------------------------------------------------------------

// captionFonts is the pool the auto-picker draws from. All four ship with the
// common ffmpeg/fontconfig setups this targets.
var captionFonts = []string{"Arial", "Verdana", "Times New Roman", "Courier New"}

// AutoFontAndSize derives the caption font and point size from the canvas
// width. The font choice is deterministic per width; the size scales so
// captions stay readable across output resolutions.
func AutoFontAndSize(width int) (string, int) {
	font := captionFonts[width%len(captionFonts)]
	size := int(float64(width) * 0.08)
	return font, size
}

// CaptionCue is one subtitle entry: a word group with its display window.
type CaptionCue struct {
	Start float64 // seconds
	End   float64 // seconds
	Text  string
}

// ChunkWords groups word timestamps into cues of at most maxWords words,
// preserving spoken order. Each cue spans from its first word's start to its
// last word's end.
func ChunkWords(words []WordTimestamp, maxWords int) []CaptionCue {
	if maxWords < 1 {
		maxWords = 1
	}

	var cues []CaptionCue
	for i := 0; i < len(words); i += maxWords {
		end := i + maxWords
		if end > len(words) {
			end = len(words)
		}
		group := words[i:end]

		texts := make([]string, len(group))
		for j, w := range group {
			texts[j] = w.Word
		}

		cues = append(cues, CaptionCue{
			Start: group[0].Start,
			End:   group[len(group)-1].End,
			Text:  strings.Join(texts, " "),
		})
	}
	return cues
}

// WriteSRT writes the cues to path in SubRip format.
func WriteSRT(cues []CaptionCue, path string) error {
	var b strings.Builder
	for i, cue := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, formatSRTTime(cue.Start), formatSRTTime(cue.End), cue.Text)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write SRT %s: %w", path, err)
	}
	return nil
}

// formatSRTTime renders seconds as the SRT timestamp HH:MM:SS,mmm.
func formatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int(seconds*1000 + 0.5)
	ms := totalMs % 1000
	totalSec := totalMs / 1000
	h := totalSec / 3600
	m := (totalSec % 3600) / 60
	s := totalSec % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
