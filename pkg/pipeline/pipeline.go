// Package pipeline executes a selected plan: it walks the dependency graph
// in topological waves, dispatches retrieval, tool, and model steps with
// bounded parallelism, retries transient failures with backoff, and fuses
// the surviving payloads into one answer candidate.
package pipeline

import (
	"fmt"
	"time"

	"github.com/zen-systems/askroute/pkg/answer"
)

// Status is the terminal state of one step.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
	StatusTimedOut Status = "timed-out"
)

// StepResult is the write-once outcome of one step. The running plan owns
// it; only a summary survives into the feedback record.
type StepResult struct {
	StepID     string
	Status     Status
	Payload    string
	Sources    []answer.Source
	Model      string
	Confidence float64
	Ensemble   bool
	Attempts   int
	Latency    time.Duration
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// StepSummary is the feedback-safe projection of a StepResult.
type StepSummary struct {
	StepID     string        `json:"step_id"`
	Kind       string        `json:"kind"`
	Status     Status        `json:"status"`
	Model      string        `json:"model,omitempty"`
	Attempts   int           `json:"attempts"`
	LatencyMs  int64         `json:"latency_ms"`
	Error      string        `json:"error,omitempty"`
	Latency    time.Duration `json:"-"`
	StartedAt  time.Time     `json:"-"`
	FinishedAt time.Time     `json:"-"`
}

// Report describes one plan execution for logging, statistics, and feedback.
type Report struct {
	PlanID   string        `json:"plan_id"`
	Template string        `json:"template"`
	Waves    int           `json:"waves"`
	Steps    []StepSummary `json:"steps"`
	Cost     CostReport    `json:"cost"`
	Duration time.Duration `json:"duration"`
	Deadline bool          `json:"deadline_hit,omitempty"`
}

// StepExhaustedError reports a mandatory step that failed after its retry
// budget ran out. Partial carries every result recorded before the failure,
// so the caller can still inspect or integrate sibling work.
type StepExhaustedError struct {
	StepID   string
	Attempts int
	Partial  map[string]*StepResult
	Err      error
}

func (e *StepExhaustedError) Error() string {
	return fmt.Sprintf("step %s exhausted %d attempts: %v", e.StepID, e.Attempts, e.Err)
}

func (e *StepExhaustedError) Unwrap() error {
	return e.Err
}
