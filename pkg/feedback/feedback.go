// Package feedback persists the outcome of every answered question: the
// profile, the routing decision, the execution summary, and the quality
// verdict. Recording is fire-and-forget — a failing recorder must never fail
// the answering path, so callers log and drop recorder errors.
package feedback

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/zen-systems/askroute/pkg/pipeline"
	"github.com/zen-systems/askroute/pkg/profile"
	"github.com/zen-systems/askroute/pkg/quality"
)

// ProfileSummary is the classification snapshot kept in a record.
type ProfileSummary struct {
	Complexity      float64  `json:"complexity"`
	ComplexityLevel int      `json:"complexity_level"`
	Domain          string   `json:"domain"`
	DomainKind      string   `json:"domain_kind"`
	Urgency         string   `json:"urgency"`
	Strategy        string   `json:"strategy"`
	ToolNeeds       []string `json:"tool_needs,omitempty"`
	Degraded        []string `json:"degraded,omitempty"`
}

// SummarizeProfile projects a profile into its recordable form.
func SummarizeProfile(p *profile.Profile) ProfileSummary {
	s := ProfileSummary{
		Complexity:      p.Complexity,
		ComplexityLevel: p.ComplexityLevel,
		Domain:          p.Domain.Primary,
		DomainKind:      string(p.Domain.Kind),
		Urgency:         p.Urgency.Level.String(),
		Strategy:        string(p.Strategy),
		Degraded:        p.Degraded,
	}
	for _, n := range p.ToolNeeds {
		s.ToolNeeds = append(s.ToolNeeds, string(n.Kind))
	}
	return s
}

// Record is one answered question's learning data.
type Record struct {
	RunID        string                 `json:"run_id"`
	Timestamp    time.Time              `json:"timestamp"`
	QuestionHash string                 `json:"question_hash"`
	Profile      ProfileSummary         `json:"profile"`
	Template     string                 `json:"template"`
	Variants     []string               `json:"variants,omitempty"`
	RouteScore   float64                `json:"route_score"`
	Model        string                 `json:"model,omitempty"`
	AnswerText   string                 `json:"answer_text,omitempty"`
	Verdict      quality.Verdict        `json:"verdict"`
	Confidence   float64                `json:"confidence"`
	Passed       bool                   `json:"passed"`
	Cycles       int                    `json:"cycles"`
	LatencyMs    int64                  `json:"latency_ms"`
	Steps        []pipeline.StepSummary `json:"steps,omitempty"`
	Cost         pipeline.CostReport    `json:"cost"`
	Error        string                 `json:"error,omitempty"`
}

// Recorder is the feedback sink boundary.
type Recorder interface {
	Record(ctx context.Context, rec *Record) error
}

// Nop discards every record.
type Nop struct{}

func (Nop) Record(context.Context, *Record) error { return nil }

// Multi fans one record out to several recorders. The first error is
// returned after every recorder ran, so one failing sink never starves the
// others.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, rec *Record) error {
	var first error
	for _, r := range m {
		if err := r.Record(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// HashQuestion returns the stable digest used instead of raw question text,
// so records carry no user content beyond the answer itself.
func HashQuestion(question string) string {
	sum := sha256.Sum256([]byte(question))
	return hex.EncodeToString(sum[:])
}
