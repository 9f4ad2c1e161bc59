package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/velumlabs/adreel/internal/api"
	"github.com/velumlabs/adreel/internal/config"
	"github.com/velumlabs/adreel/internal/keypool"
	"github.com/velumlabs/adreel/internal/pipeline"
	"github.com/velumlabs/adreel/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	setupLogging(cfg.LogDir)
	logrus.Info("Starting AdReel API...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Providers
	geminiSvc, err := services.NewGeminiService(ctx, cfg.GenAIKey)
	if err != nil {
		logrus.Fatalf("Failed to initialize Gemini: %v", err)
	}

	keys := keypool.New(cfg.DeapiKeys)
	deapiSvc := services.NewDeapiService(keys)
	logrus.Infof("DeAPI credential pool: %d keys", keys.Size())

	ttsSvc := services.NewElevenLabsService(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
	logrus.Infof("TTS provider: ElevenLabs (voice: %s)", cfg.ElevenLabsVoiceID)

	// Transcriber — local whisper CLI preferred, Whisper API as fallback
	var transcriber services.Transcriber
	if cfg.WhisperModelSize != "" {
		transcriber = services.NewLocalWhisperService(cfg.WhisperModelSize, filepath.Join(cfg.WorkDir, "whisper"))
		logrus.Infof("Transcriber: local whisper (model: %s)", cfg.WhisperModelSize)
	} else {
		transcriber = services.NewOpenAIWhisperService(cfg.OpenAIKey)
		logrus.Info("Transcriber: OpenAI Whisper API")
	}

	ffmpegSvc := services.NewFFmpegService()

	manager := pipeline.NewManager(cfg, geminiSvc, deapiSvc, ttsSvc, transcriber, ffmpegSvc)

	handler := api.NewHandler(cfg, manager)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		logrus.Info("API key authentication enabled")
	} else {
		logrus.Warn("No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logrus.Infof("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logrus.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logrus.Fatalf("Server error: %v", err)
	}
	logrus.Info("Server exited")
}

// setupLogging sends logs to stderr and a size-rotated file under logDir.
func setupLogging(logDir string) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	if err := os.MkdirAll(logDir, 0755); err != nil {
		logrus.Warnf("Failed to create log dir %s, logging to stderr only: %v", logDir, err)
		return
	}

	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "adreel.log"),
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, rotated))
}
