// Package plan defines the execution plan a router produces: a directed
// acyclic graph of retrieval, tool, and model steps with per-step timeouts
// and retry budgets. Plans are immutable once selected; re-planning builds a
// new Plan rather than mutating one in flight.
package plan

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StepKind names the unit of work a step performs.
type StepKind string

const (
	StepRetrieve  StepKind = "retrieve"
	StepToolCall  StepKind = "tool-call"
	StepModelCall StepKind = "model-call"
)

// Step is one node in the plan graph. A step becomes eligible once every
// dependency has finished and every non-optional dependency succeeded.
type Step struct {
	ID          string
	Kind        StepKind
	DependsOn   []string
	Params      map[string]string
	Timeout     time.Duration
	RetryBudget int
	Optional    bool
}

// Plan is the selected way to answer one query. Deadline is the wall-clock
// budget for the whole graph; MaxParallel caps in-flight steps for this plan
// on top of the process-wide admission limit.
type Plan struct {
	ID          string
	Template    string
	Steps       []Step
	MaxParallel int
	Deadline    time.Duration
}

// New builds a plan for the named template.
func New(template string, steps ...Step) Plan {
	return Plan{
		ID:       uuid.NewString(),
		Template: template,
		Steps:    steps,
	}
}

// Step returns the step with the given id.
func (p *Plan) Step(id string) (*Step, bool) {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i], true
		}
	}
	return nil, false
}

// HasModelCall reports whether any step invokes an answering model. Plans
// without one are legal; integration then builds the answer from tool and
// retrieval payloads alone.
func (p *Plan) HasModelCall() bool {
	for i := range p.Steps {
		if p.Steps[i].Kind == StepModelCall {
			return true
		}
	}
	return false
}

// MalformedPlanError reports a plan whose graph cannot be executed: duplicate
// ids, references to missing steps, or dependency cycles. It is fatal and
// indicates a template bug, never input data to repair.
type MalformedPlanError struct {
	PlanID string
	Reason string
}

func (e *MalformedPlanError) Error() string {
	return fmt.Sprintf("malformed plan %s: %s", e.PlanID, e.Reason)
}
