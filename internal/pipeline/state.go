package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/velumlabs/adreel/internal/models"
)

// exposedLogLines is how many trailing log lines a snapshot carries. The full
// log stays in memory for the run's lifetime; pollers only see the tail.
const exposedLogLines = 10

// runState is the mutable shared state of one run. External readers never
// touch the fields directly; they get a point-in-time Snapshot.
type runState struct {
	mu       sync.Mutex
	runID    string
	status   models.RunStatus
	progress int
	logs     []string
	errMsg   string
}

func newRunState(runID string) *runState {
	return &runState{
		runID:  runID,
		status: models.StatusInitializing,
	}
}

// logf appends a timestamped line to the run log and mirrors it to the
// process log.
func (s *runState) logf(format string, args ...interface{}) {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))

	s.mu.Lock()
	s.logs = append(s.logs, line)
	s.mu.Unlock()

	logrus.Info(line)
}

func (s *runState) setStatus(status models.RunStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *runState) setProgress(pct int) {
	s.mu.Lock()
	s.progress = pct
	s.mu.Unlock()
}

func (s *runState) fail(err error) {
	s.mu.Lock()
	s.status = models.StatusFailed
	s.errMsg = err.Error()
	s.mu.Unlock()

	s.logf("Pipeline failed: %v", err)
}

func (s *runState) complete() {
	s.mu.Lock()
	s.status = models.StatusCompleted
	s.progress = 100
	s.mu.Unlock()

	s.logf("Pipeline finished successfully")
}

// Snapshot returns a consistent point-in-time copy of the run state. The
// returned log slice is freshly allocated, never aliased to the live log.
func (s *runState) Snapshot() models.RunSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := 0
	if len(s.logs) > exposedLogLines {
		start = len(s.logs) - exposedLogLines
	}
	logs := make([]string, len(s.logs)-start)
	copy(logs, s.logs[start:])

	return models.RunSnapshot{
		RunID:    s.runID,
		Status:   s.status,
		Progress: s.progress,
		Logs:     logs,
		Error:    s.errMsg,
	}
}
