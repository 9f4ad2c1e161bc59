package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/velumlabs/adreel/internal/models"
)

func waitTerminal(t *testing.T, m *Manager) models.RunSnapshot {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		snap := m.Status()
		if snap.Status.Terminal() {
			return snap
		}
		select {
		case <-deadline:
			t.Fatalf("run never reached a terminal state (status=%q)", snap.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestManagerRejectsConcurrentRuns(t *testing.T) {
	cfg := testConfig(t)
	gate := make(chan struct{})
	designer := &fakeDesigner{prompts: map[string]string{}, gate: gate}

	m := NewManager(cfg, designer, &fakeGenerator{}, &fakeTTS{}, &fakeTranscriber{}, &fakeRenderer{})

	runID, err := m.Start(nil)
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if runID == "" {
		t.Fatal("first Start returned empty run ID")
	}

	if _, err := m.Start(nil); !errors.Is(err, ErrRunActive) {
		t.Fatalf("second Start = %v, want ErrRunActive", err)
	}

	close(gate)
	waitTerminal(t, m)

	// A finished run releases the slot.
	if _, err := m.Start(nil); err != nil {
		t.Fatalf("Start after terminal run: %v", err)
	}
	waitTerminal(t, m)
}

func TestManagerStatusIdleBeforeFirstRun(t *testing.T) {
	cfg := testConfig(t)
	m := NewManager(cfg, &fakeDesigner{}, &fakeGenerator{}, &fakeTTS{}, &fakeTranscriber{}, &fakeRenderer{})

	snap := m.Status()
	if snap.Status != models.StatusIdle {
		t.Errorf("status = %q, want Idle", snap.Status)
	}
	if snap.Logs == nil {
		t.Error("idle snapshot logs must be non-nil for JSON clients")
	}
	if snap.RunID != "" {
		t.Errorf("idle snapshot run ID = %q, want empty", snap.RunID)
	}
}

func TestManagerImageOverrides(t *testing.T) {
	cfg := testConfig(t)
	base := cfg.SceneImages["scene1"]

	images := cfg.SceneImagesWithOverrides(map[string]string{"scene1": "/custom/front.png"})
	if images["scene1"] != "/custom/front.png" {
		t.Errorf("override not applied: %q", images["scene1"])
	}
	if cfg.SceneImages["scene1"] != base {
		t.Error("override must not mutate the base config")
	}
	if images["scene2"] != cfg.SceneImages["scene2"] {
		t.Error("non-overridden slots must keep defaults")
	}
}
