package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Scene slot keys, in the fixed render order. scene1 is the hero/front shot,
// followed by the left and right side geometry and the back detail shot.
const (
	SceneFront = "scene1"
	SceneLeft  = "scene2"
	SceneRight = "scene3"
	SceneBack  = "scene4"
)

// SceneOrder returns the slot keys in their fixed enumeration order.
func SceneOrder() []string {
	return []string{SceneFront, SceneLeft, SceneRight, SceneBack}
}

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)
	LogDir             string

	// Gemini (scene prompt design + voiceover script writing)
	GenAIKey string

	// DeAPI img2video (rotating credential pool, comma-separated)
	DeapiKeys []string

	// ElevenLabs (voiceover synthesis)
	ElevenLabsKey     string
	ElevenLabsVoiceID string

	// OpenAI (Whisper API transcription, used when no local whisper model is configured)
	OpenAIKey string

	// Scene source images, keyed by slot (scene1..scene4).
	// Defaults come from env; a run may override them once before it starts.
	SceneImages map[string]string

	// Render target
	TargetWidth  int
	TargetHeight int

	// Captions
	MaxCaptionWords  int
	WhisperModelSize string // local whisper model size; empty = use Whisper API

	// Pipeline
	WorkDir          string
	ScenePollTimeout time.Duration // wall-clock bound per scene (submit + poll + download)
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		LogDir:             getEnv("LOG_DIR", "logs"),
		GenAIKey:           getEnv("GENAI_API_KEY", ""),
		DeapiKeys:          splitKeys(getEnv("DEAPI_KEYS", "")),
		ElevenLabsKey:      getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID:  getEnv("ELEVENLABS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
		OpenAIKey:          getEnv("OPENAI_API_KEY", ""),
		SceneImages: map[string]string{
			SceneFront: getEnv("SCENE_FRONT_IMAGE", "images/front.png"),
			SceneLeft:  getEnv("SCENE_LEFT_IMAGE", "images/left.png"),
			SceneRight: getEnv("SCENE_RIGHT_IMAGE", "images/right.png"),
			SceneBack:  getEnv("SCENE_BACK_IMAGE", "images/back.png"),
		},
		TargetWidth:      getEnvInt("TARGET_WIDTH", 432),
		TargetHeight:     getEnvInt("TARGET_HEIGHT", 768),
		MaxCaptionWords:  getEnvInt("MAX_CAPTION_WORDS", 3),
		WhisperModelSize: getEnv("WHISPER_MODEL_SIZE", "small"),
		WorkDir:          getEnv("WORK_DIR", "workdir"),
		ScenePollTimeout: getEnvDuration("SCENE_POLL_TIMEOUT", 15*time.Minute),
	}

	// Validate required fields
	if cfg.GenAIKey == "" {
		return nil, fmt.Errorf("GENAI_API_KEY is required")
	}

	if cfg.ElevenLabsKey == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY is required")
	}

	// A missing DEAPI key pool is not fatal at startup — scene generation
	// degrades to a logged per-scene failure instead.

	if cfg.WhisperModelSize == "" && cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("either WHISPER_MODEL_SIZE or OPENAI_API_KEY is required for transcription")
	}

	return cfg, nil
}

// SceneImagesWithOverrides returns a fresh slot→path map, applying any non-empty
// per-run overrides on top of the configured defaults. The base config is not
// mutated, so a new run always starts from the env-configured images.
func (c *Config) SceneImagesWithOverrides(overrides map[string]string) map[string]string {
	images := make(map[string]string, len(c.SceneImages))
	for slot, path := range c.SceneImages {
		images[slot] = path
	}
	for slot, path := range overrides {
		if path != "" {
			images[slot] = path
		}
	}
	return images
}

// Output artifact paths, all under WorkDir. The file names are fixed — the
// observer API serves them by name.

func (c *Config) ScenePath(slot string) string {
	return filepath.Join(c.WorkDir, slot+".mp4")
}

func (c *Config) MergedVideoPath() string {
	return filepath.Join(c.WorkDir, "final_reel_ad_9x16.mp4")
}

func (c *Config) VoicedVideoPath() string {
	return filepath.Join(c.WorkDir, "final_video_with_voice.mp4")
}

func (c *Config) VoiceAudioPath() string {
	return filepath.Join(c.WorkDir, "final_voice.mp3")
}

func (c *Config) PaddedAudioPath() string {
	return filepath.Join(c.WorkDir, "final_voice_safe.mp3")
}

func (c *Config) SubtitlePath() string {
	return filepath.Join(c.WorkDir, "adreel_captions.srt")
}

func (c *Config) CaptionedVideoPath() string {
	return filepath.Join(c.WorkDir, "final_reel_captioned.mp4")
}

func splitKeys(raw string) []string {
	var keys []string
	for _, part := range strings.Split(raw, ",") {
		if k := strings.TrimSpace(part); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
