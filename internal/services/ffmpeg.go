package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// ---------------------------------------------------------------------------
// FFmpegService
// All local media assembly: scene merge, duration probing, audio padding,
// voiceover muxing, and caption burn-in. Everything shells out to ffmpeg /
// ffprobe with a context so a cancelled run kills the subprocess.
// ---------------------------------------------------------------------------

const mergeFPS = 30

type FFmpegService struct {
	// Exec seams, defaulted to the real ffprobe/ffmpeg invocations. Tests
	// substitute them to cover branch logic without the binaries.
	probe func(ctx context.Context, mediaPath string) (float64, error)
	run   func(ctx context.Context, args []string, what string) error
}

func NewFFmpegService() *FFmpegService {
	return &FFmpegService{
		probe: probeDuration,
		run:   runFFmpeg,
	}
}

// MergeScenes concatenates the scene clips in order into one vertical reel.
// Every clip is normalized first (scale to fit, pad to the exact canvas,
// square pixels, uniform fps) so concat never fails on mismatched streams.
func (s *FFmpegService) MergeScenes(ctx context.Context, clipPaths []string, outputPath string, width, height int) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to merge")
	}

	logrus.Infof("[FFmpeg] Merging %d scenes into %s", len(clipPaths), filepath.Base(outputPath))

	args := []string{}
	for _, p := range clipPaths {
		args = append(args, "-i", p)
	}

	filter := buildMergeFilter(len(clipPaths), width, height)
	args = append(args,
		"-filter_complex", filter,
		"-map", "[outv]",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	)

	return s.run(ctx, args, "merge scenes")
}

// buildMergeFilter produces the filter_complex for an n-clip concat:
// per-clip scale/pad/setsar/fps chains feeding a video-only concat.
func buildMergeFilter(n, width, height int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b,
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%d[v%d];",
			i, width, height, width, height, mergeFPS, i)
	}
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "[v%d]", i)
	}
	fmt.Fprintf(&b, "concat=n=%d:v=1:a=0[outv]", n)
	return b.String()
}

// VideoDuration returns the duration of a video file in seconds via ffprobe.
func (s *FFmpegService) VideoDuration(ctx context.Context, videoPath string) (float64, error) {
	return s.probe(ctx, videoPath)
}

// AudioDuration returns the duration of an audio file in seconds via ffprobe.
func (s *FFmpegService) AudioDuration(ctx context.Context, audioPath string) (float64, error) {
	return s.probe(ctx, audioPath)
}

func probeDuration(ctx context.Context, mediaPath string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		mediaPath,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", filepath.Base(mediaPath), err)
	}

	var durationSec float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &durationSec); err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", strings.TrimSpace(string(output)), err)
	}

	return durationSec, nil
}

// PadAudio extends the audio with trailing silence up to targetSec. Audio is
// only ever padded, never trimmed, so narration can't be cut off mid-word.
// If the audio already covers targetSec the file is copied through unchanged.
func (s *FFmpegService) PadAudio(ctx context.Context, inputPath, outputPath string, targetSec float64) error {
	current, err := s.AudioDuration(ctx, inputPath)
	if err != nil {
		return err
	}

	if current >= targetSec {
		logrus.Infof("[FFmpeg] Audio already %.2fs >= %.2fs, no padding needed", current, targetSec)
		return CopyFile(inputPath, outputPath)
	}

	logrus.Infof("[FFmpeg] Padding audio %.2fs → %.2fs", current, targetSec)

	args := []string{
		"-i", inputPath,
		"-af", fmt.Sprintf("apad=whole_dur=%.3f", targetSec),
		"-y",
		outputPath,
	}

	return s.run(ctx, args, "pad audio")
}

// AttachAudio muxes the voiceover onto the merged video. The video stream is
// copied untouched; -shortest trims any excess padding silence.
func (s *FFmpegService) AttachAudio(ctx context.Context, videoPath, audioPath, outputPath string) error {
	logrus.Infof("[FFmpeg] Attaching voiceover to %s", filepath.Base(videoPath))

	args := []string{
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-y",
		outputPath,
	}

	return s.run(ctx, args, "attach audio")
}

// BurnCaptions renders the SRT file into the video with a styled subtitles
// filter: bold yellow text, black outline, bottom-centered.
func (s *FFmpegService) BurnCaptions(ctx context.Context, videoPath, srtPath, outputPath, fontName string, fontSize int) error {
	logrus.Infof("[FFmpeg] Burning captions (font=%s, size=%d)", fontName, fontSize)

	vf := fmt.Sprintf(
		"subtitles=%s:force_style='FontName=%s,FontSize=%d,Bold=1,PrimaryColour=&H0000FFFF,OutlineColour=&H00000000,Outline=2,Alignment=2,MarginV=40'",
		escapeFilterPath(srtPath), fontName, fontSize,
	)

	args := []string{
		"-i", videoPath,
		"-vf", vf,
		"-c:v", "libx264",
		"-c:a", "copy",
		"-y",
		outputPath,
	}

	return s.run(ctx, args, "burn captions")
}

func runFFmpeg(ctx context.Context, args []string, what string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s failed: %w (output: %s)", what, err, truncate(string(out), 500))
	}
	return nil
}

// escapeFilterPath escapes characters the subtitles filter treats specially.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.ReplaceAll(path, ":", "\\:")
	path = strings.ReplaceAll(path, "'", "'\\''")
	return path
}

// CopyFile copies src to dst, truncating dst if it exists.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s → %s: %w", src, dst, err)
	}
	return out.Sync()
}
