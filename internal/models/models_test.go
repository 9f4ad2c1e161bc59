package models

import (
	"errors"
	"testing"
)

func TestRunStatuses(t *testing.T) {
	statuses := []RunStatus{
		StatusIdle,
		StatusInitializing,
		StatusGeneratingPrompts,
		StatusMergingScenes,
		StatusFinalizing,
		StatusCompleted,
		StatusFailed,
	}

	for _, status := range statuses {
		if status == "" {
			t.Errorf("empty status found")
		}
	}
}

func TestStatusGeneratingScene(t *testing.T) {
	if got := StatusGeneratingScene("scene3"); got != "Generating scene3" {
		t.Errorf("expected 'Generating scene3', got %q", got)
	}
}

func TestTerminal(t *testing.T) {
	if !StatusCompleted.Terminal() {
		t.Error("Completed should be terminal")
	}
	if !StatusFailed.Terminal() {
		t.Error("Failed should be terminal")
	}
	if StatusMergingScenes.Terminal() {
		t.Error("Merging Scenes should not be terminal")
	}
}

func TestStageResult(t *testing.T) {
	ok := Succeeded("/tmp/out.mp4")
	if !ok.OK() || ok.Output != "/tmp/out.mp4" {
		t.Errorf("unexpected success result: %+v", ok)
	}

	failed := Failed(errors.New("boom"))
	if failed.OK() {
		t.Error("failed result reported OK")
	}
}
