package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/insightcoder/insightcoder/internal/core/model"
)

// MemoryTracker keeps job progress in a mutex-guarded map. Suitable for a
// single-process deployment; use RedisTracker when multiple workers serve
// the same jobs.
type MemoryTracker struct {
	mu   sync.Mutex
	jobs map[string]*Status
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{jobs: make(map[string]*Status)}
}

func (t *MemoryTracker) Create(jobID string, totalVariables int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[jobID] = &Status{
		Status:         "initializing",
		CurrentStep:    "Starting classification...",
		TotalVariables: totalVariables,
		StartTime:      time.Now(),
	}
}

func (t *MemoryTracker) StartVariable(jobID, variable, question string, index int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.jobs[jobID]
	if !ok {
		return
	}
	s.Status = "processing"
	s.CurrentVariable = variable
	s.CurrentQuestion = question
	s.VariableProgress = 0
	s.CurrentStep = fmt.Sprintf("Processing variable: %s", variable)
	appendMessage(s, fmt.Sprintf("Starting classification for %s (%d/%d)", variable, index, s.TotalVariables))
}

func (t *MemoryTracker) Step(jobID, message string, percent int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.jobs[jobID]; ok {
		applyStep(s, message, percent)
	}
}

func (t *MemoryTracker) CompleteVariable(jobID, variable string, summary model.VariableSummary) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.jobs[jobID]
	if !ok {
		return
	}
	s.CompletedVariables++
	s.Results = append(s.Results, summary)
	if s.TotalVariables > 0 {
		s.Progress = s.CompletedVariables * 100 / s.TotalVariables
	}
	appendMessage(s, fmt.Sprintf("%s complete: %d responses coded into %d categories",
		variable, summary.ValidClassified, summary.Categories))
}

func (t *MemoryTracker) Complete(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.jobs[jobID]
	if !ok {
		return
	}
	s.Status = "completed"
	s.Completed = true
	s.Progress = 100
	s.CurrentStep = "Classification complete!"
	s.EndTime = time.Now()
	appendMessage(s, fmt.Sprintf("Classification complete! %d variables processed.", s.CompletedVariables))
}

func (t *MemoryTracker) Fail(jobID, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.jobs[jobID]
	if !ok {
		return
	}
	s.Status = "error"
	s.Error = errMsg
	s.CurrentStep = "Error: " + errMsg
	s.EndTime = time.Now()
	appendMessage(s, "Error: "+errMsg)
}

func (t *MemoryTracker) Get(jobID string) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.jobs[jobID]
	if !ok {
		return Status{}, false
	}
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Results = append([]model.VariableSummary(nil), s.Results...)
	return out, true
}

func (t *MemoryTracker) Delete(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, jobID)
}
