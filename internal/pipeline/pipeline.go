package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/velumlabs/adreel/internal/config"
	"github.com/velumlabs/adreel/internal/imaging"
	"github.com/velumlabs/adreel/internal/models"
	"github.com/velumlabs/adreel/internal/services"
)

// ---------------------------------------------------------------------------
// Pipeline orchestrator
// Runs one ad-reel build end to end: design scene prompts from the product
// photos, render each scene, merge, then voice, pad, mux, and caption.
//
// Every provider is an interface here so tests drive the full run with fakes
// and no external binaries.
// ---------------------------------------------------------------------------

// sceneSubmitInterval spaces out scene submissions so four back-to-back jobs
// don't trip the provider's burst limiting.
const sceneSubmitInterval = 5 // seconds

// SceneDesigner turns product photos into scene prompts and writes the
// voiceover script for the rendered reel.
type SceneDesigner interface {
	DesignScenes(ctx context.Context, images map[string]string, order []string) (map[string]string, error)
	WriteVoiceoverScript(ctx context.Context, videoBytes []byte, durationSec float64) (string, error)
}

// SceneGenerator renders one (image, prompt) pair into a video clip.
type SceneGenerator interface {
	GenerateScene(ctx context.Context, req services.SceneRequest) error
}

// Renderer is the local media toolchain: merge, probe, pad, mux, caption.
type Renderer interface {
	MergeScenes(ctx context.Context, clipPaths []string, outputPath string, width, height int) error
	VideoDuration(ctx context.Context, videoPath string) (float64, error)
	AudioDuration(ctx context.Context, audioPath string) (float64, error)
	PadAudio(ctx context.Context, inputPath, outputPath string, targetSec float64) error
	AttachAudio(ctx context.Context, videoPath, audioPath, outputPath string) error
	BurnCaptions(ctx context.Context, videoPath, srtPath, outputPath, fontName string, fontSize int) error
}

var (
	_ SceneDesigner  = (*services.GeminiService)(nil)
	_ SceneGenerator = (*services.DeapiService)(nil)
	_ Renderer       = (*services.FFmpegService)(nil)
)

type Pipeline struct {
	cfg       *config.Config
	designer  SceneDesigner
	generator SceneGenerator
	tts       services.TTSService
	stt       services.Transcriber
	renderer  Renderer
	limiter   *rate.Limiter

	// sceneImages is the per-run slot→path map, overrides already applied.
	sceneImages map[string]string

	// normalize preprocesses a source photo onto the render canvas. Defaults
	// to imaging.NormalizeToCanvas; tests substitute a stub.
	normalize func(srcPath, dstPath string, width, height int) error

	state *runState
}

func New(cfg *config.Config, runID string, sceneImages map[string]string,
	designer SceneDesigner, generator SceneGenerator,
	tts services.TTSService, stt services.Transcriber, renderer Renderer) *Pipeline {

	return &Pipeline{
		cfg:         cfg,
		designer:    designer,
		generator:   generator,
		tts:         tts,
		stt:         stt,
		renderer:    renderer,
		limiter:     rate.NewLimiter(rate.Limit(1.0/float64(sceneSubmitInterval)), 1),
		sceneImages: sceneImages,
		normalize:   imaging.NormalizeToCanvas,
		state:       newRunState(runID),
	}
}

// Snapshot returns the run's current externally visible state.
func (p *Pipeline) Snapshot() models.RunSnapshot {
	return p.state.Snapshot()
}

// Run executes the full pipeline. It always leaves the run in a terminal
// status, even on panic.
func (p *Pipeline) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.state.fail(fmt.Errorf("pipeline panic: %v", r))
		}
	}()

	p.state.logf("Starting ad reel pipeline (run %s)", p.state.runID)

	if err := os.MkdirAll(p.cfg.WorkDir, 0755); err != nil {
		p.state.fail(fmt.Errorf("failed to create work dir: %w", err))
		return
	}

	scenes := p.stageDesignPrompts(ctx)
	if !scenes.OK() {
		p.state.fail(scenes.Err)
		return
	}

	clips := p.stageGenerateScenes(ctx, scenes.Output)

	merged := p.stageMergeScenes(ctx, clips)
	if !merged.OK() {
		p.state.fail(merged.Err)
		return
	}

	final := p.stageFinalize(ctx, merged.Output)
	if !final.OK() {
		p.state.fail(final.Err)
		return
	}

	p.state.complete()
}

// stageScenes is the design stage's result: scene prompts or the error that
// aborted the run.
type stageScenes struct {
	Output map[string]string
	Err    error
}

func (r stageScenes) OK() bool { return r.Err == nil }

func (p *Pipeline) stageDesignPrompts(ctx context.Context) stageScenes {
	p.state.setStatus(models.StatusGeneratingPrompts)
	p.state.setProgress(5)
	p.state.logf("Designing cinematic scene prompts...")

	prompts, err := p.designer.DesignScenes(ctx, p.sceneImages, config.SceneOrder())
	if err != nil {
		return stageScenes{Err: fmt.Errorf("scene design: %w", err)}
	}

	p.state.logf("Received %d scene prompts", len(prompts))
	return stageScenes{Output: prompts}
}

// stageGenerateScenes renders each prompted scene in slot order. A scene
// failure aborts only that scene; the remaining scenes still render, and the
// merge step then fails the run on the missing clip.
func (p *Pipeline) stageGenerateScenes(ctx context.Context, prompts map[string]string) []string {
	var clips []string

	for _, slot := range config.SceneOrder() {
		prompt, ok := prompts[slot]
		if !ok || prompt == "" {
			p.state.logf("No prompt for %s, skipping", slot)
			continue
		}

		if err := p.limiter.Wait(ctx); err != nil {
			p.state.logf("Scene scheduling aborted: %v", err)
			break
		}

		p.state.setStatus(models.StatusGeneratingScene(slot))
		p.state.logf("Generating %s...", slot)

		safePath := filepath.Join(p.cfg.WorkDir, "safe_"+slot+".png")
		if err := p.normalize(p.sceneImages[slot], safePath, p.cfg.TargetWidth, p.cfg.TargetHeight); err != nil {
			p.state.logf("Image preprocessing failed for %s: %v", slot, err)
			continue
		}

		outputPath := p.cfg.ScenePath(slot)
		sceneCtx, cancel := context.WithTimeout(ctx, p.cfg.ScenePollTimeout)
		err := p.generator.GenerateScene(sceneCtx, services.SceneRequest{
			Slot:       slot,
			Prompt:     prompt,
			ImagePath:  safePath,
			OutputPath: outputPath,
			Width:      p.cfg.TargetWidth,
			Height:     p.cfg.TargetHeight,
			OnProgress: p.state.setProgress,
			Logf:       p.state.logf,
		})
		cancel()

		if err != nil {
			p.state.logf("Scene %s failed: %v", slot, err)
			continue
		}
		clips = append(clips, outputPath)
	}

	return clips
}

func (p *Pipeline) stageMergeScenes(ctx context.Context, clips []string) models.StageResult {
	p.state.setStatus(models.StatusMergingScenes)
	p.state.logf("Merging %d scenes...", len(clips))

	// The reel is all four scenes or nothing. A partial set means a scene
	// aborted upstream; surfacing that here keeps a clipped ad out of the
	// Completed state.
	if required := len(config.SceneOrder()); len(clips) < required {
		return models.Failed(fmt.Errorf("only %d of %d scenes rendered", len(clips), required))
	}

	mergedPath := p.cfg.MergedVideoPath()
	if err := p.renderer.MergeScenes(ctx, clips, mergedPath, p.cfg.TargetWidth, p.cfg.TargetHeight); err != nil {
		return models.Failed(fmt.Errorf("merge scenes: %w", err))
	}

	p.state.logf("Merged video saved: %s", filepath.Base(mergedPath))
	return models.Succeeded(mergedPath)
}

// stageFinalize layers voiceover and captions onto the merged reel:
// script → speech → pad → mux → transcribe → SRT → burn.
// Caption failures degrade to the voiced render; voiceover failures abort.
func (p *Pipeline) stageFinalize(ctx context.Context, mergedPath string) models.StageResult {
	p.state.setStatus(models.StatusFinalizing)
	p.state.setProgress(90)
	p.state.logf("Finalizing: voiceover and captions...")

	duration, err := p.renderer.VideoDuration(ctx, mergedPath)
	if err != nil {
		return models.Failed(fmt.Errorf("probe merged video: %w", err))
	}

	videoBytes, err := os.ReadFile(mergedPath)
	if err != nil {
		return models.Failed(fmt.Errorf("read merged video: %w", err))
	}

	script, err := p.designer.WriteVoiceoverScript(ctx, videoBytes, duration)
	if err != nil {
		return models.Failed(fmt.Errorf("voiceover script: %w", err))
	}
	p.state.logf("Voiceover script ready (%d chars)", len(script))

	speech, err := p.tts.Synthesize(ctx, script)
	if err != nil {
		return models.Failed(fmt.Errorf("voiceover synthesis: %w", err))
	}

	voicePath := p.cfg.VoiceAudioPath()
	if err := os.WriteFile(voicePath, speech.AudioData, 0644); err != nil {
		return models.Failed(fmt.Errorf("write voiceover audio: %w", err))
	}

	paddedPath := p.cfg.PaddedAudioPath()
	if err := p.renderer.PadAudio(ctx, voicePath, paddedPath, duration); err != nil {
		return models.Failed(fmt.Errorf("pad voiceover: %w", err))
	}

	voicedPath := p.cfg.VoicedVideoPath()
	if err := p.renderer.AttachAudio(ctx, mergedPath, paddedPath, voicedPath); err != nil {
		return models.Failed(fmt.Errorf("attach voiceover: %w", err))
	}
	p.state.logf("Voiceover attached")

	captionedPath := p.cfg.CaptionedVideoPath()
	if err := p.burnCaptions(ctx, voicedPath, captionedPath); err != nil {
		p.state.logf("Captioning failed, keeping voiced render: %v", err)
		if copyErr := services.CopyFile(voicedPath, captionedPath); copyErr != nil {
			return models.Failed(fmt.Errorf("caption fallback copy: %w", copyErr))
		}
	}

	return models.Succeeded(captionedPath)
}

// burnCaptions transcribes the voiced render, writes SRT cues, and burns
// them into it.
func (p *Pipeline) burnCaptions(ctx context.Context, voicedPath, outputPath string) error {
	words, err := p.stt.Transcribe(ctx, voicedPath)
	if err != nil {
		return fmt.Errorf("transcription: %w", err)
	}
	if len(words) == 0 {
		return fmt.Errorf("transcription produced no words")
	}

	cues := services.ChunkWords(words, p.cfg.MaxCaptionWords)
	srtPath := p.cfg.SubtitlePath()
	if err := services.WriteSRT(cues, srtPath); err != nil {
		return err
	}
	p.state.logf("Captions: %d cues", len(cues))

	font, size := services.AutoFontAndSize(p.cfg.TargetWidth)
	return p.renderer.BurnCaptions(ctx, voicedPath, srtPath, outputPath, font, size)
}
