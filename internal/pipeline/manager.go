package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/velumlabs/adreel/internal/config"
	"github.com/velumlabs/adreel/internal/models"
	"github.com/velumlabs/adreel/internal/services"
)

// ErrRunActive is returned when a start request arrives while a run is still
// in flight. Requests are rejected, never queued.
var ErrRunActive = errors.New("a pipeline run is already active")

// Manager owns the single active pipeline run. Start rejects concurrent runs;
// Status serves the live (or last finished) run's snapshot.
type Manager struct {
	mu      sync.Mutex
	cfg     *config.Config
	current *Pipeline

	designer  SceneDesigner
	generator SceneGenerator
	tts       services.TTSService
	stt       services.Transcriber
	renderer  Renderer
}

func NewManager(cfg *config.Config, designer SceneDesigner, generator SceneGenerator,
	tts services.TTSService, stt services.Transcriber, renderer Renderer) *Manager {

	return &Manager{
		cfg:       cfg,
		designer:  designer,
		generator: generator,
		tts:       tts,
		stt:       stt,
		renderer:  renderer,
	}
}

// Start launches a new run in the background and returns its run ID.
// imageOverrides replaces configured scene images per slot for this run only.
// Returns ErrRunActive if a run is still in a non-terminal state.
func (m *Manager) Start(imageOverrides map[string]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && !m.current.Snapshot().Status.Terminal() {
		return "", ErrRunActive
	}

	runID := uuid.New().String()
	images := m.cfg.SceneImagesWithOverrides(imageOverrides)

	p := New(m.cfg, runID, images, m.designer, m.generator, m.tts, m.stt, m.renderer)
	m.current = p

	go p.Run(context.Background())

	return runID, nil
}

// Status returns the current run's snapshot, or an idle snapshot if no run
// has been started yet.
func (m *Manager) Status() models.RunSnapshot {
	m.mu.Lock()
	p := m.current
	m.mu.Unlock()

	if p == nil {
		return models.RunSnapshot{Status: models.StatusIdle, Logs: []string{}}
	}
	return p.Snapshot()
}
