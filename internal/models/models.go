package models

import "fmt"

// RunStatus is the externally observable phase name of a pipeline run.
// The strings are shown verbatim to clients polling the status endpoint.
type RunStatus string

const (
	StatusIdle              RunStatus = "Idle"
	StatusInitializing      RunStatus = "Initializing"
	StatusGeneratingPrompts RunStatus = "Generating Prompts"
	StatusMergingScenes     RunStatus = "Merging Scenes"
	StatusFinalizing        RunStatus = "Finalizing (Voice & Subs)"
	StatusCompleted         RunStatus = "Completed"
	StatusFailed            RunStatus = "Failed"
)

// StatusGeneratingScene returns the per-scene generation phase name,
// e.g. "Generating scene2".
func StatusGeneratingScene(slot string) RunStatus {
	return RunStatus(fmt.Sprintf("Generating %s", slot))
}

// Terminal reports whether the status is a final state of a run.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// RunSnapshot is an immutable view of a run's shared state, published by the
// orchestrator for external pollers. Logs holds only the most recent lines;
// the full log stays inside the run for its lifetime.
type RunSnapshot struct {
	RunID    string    `json:"run_id,omitempty"`
	Status   RunStatus `json:"status"`
	Progress int       `json:"progress"`
	Logs     []string  `json:"logs"`
	Error    string    `json:"error,omitempty"`
}

// StageResult is the explicit outcome of one pipeline stage: either an output
// artifact path or the failure that prevented it. The orchestrator uses these
// to skip dependent stages deterministically instead of letting a missing file
// surface as an open() error two stages later.
type StageResult struct {
	Output string
	Err    error
}

func (r StageResult) OK() bool {
	return r.Err == nil
}

// Succeeded wraps an output path in a successful result.
func Succeeded(output string) StageResult {
	return StageResult{Output: output}
}

// Failed wraps a stage error in a failed result.
func Failed(err error) StageResult {
	return StageResult{Err: err}
}
