// Package quality validates answer candidates against the profile that
// produced them. Checks are independent and pure: the same candidate and
// profile always yield the same verdict, so validation can be re-run or
// audited without side effects.
package quality

import (
	"github.com/zen-systems/askroute/pkg/answer"
	"github.com/zen-systems/askroute/pkg/config"
	"github.com/zen-systems/askroute/pkg/profile"
)

// Remediation actions the engine understands. Hints carry one of these so
// the improvement loop knows how to augment the next attempt.
const (
	ActionUseAdditionalSources  = "use-additional-sources"
	ActionGatherMoreInformation = "gather-more-information"
	ActionUseStrongerModel      = "use-stronger-model"
)

// checkPassThreshold is the per-check pass bar. Checks may still pass below
// it when they have nothing to verify against.
const checkPassThreshold = 0.6

// Check scores one aspect of a candidate. Implementations must be pure.
type Check interface {
	Name() string
	Evaluate(cand *answer.Candidate, p *profile.Profile) CheckResult
}

// CheckResult is one check's contribution to a verdict.
type CheckResult struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Passed bool    `json:"passed"`
	Detail string  `json:"detail,omitempty"`
}

// Hint names a failing check and the remediation the engine understands.
type Hint struct {
	Check  string `json:"check"`
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
}

// Verdict is the outcome of validating one candidate. Confidence is the
// mean of the check scores; Passed additionally requires that no hard-fail
// check failed.
type Verdict struct {
	Passed     bool          `json:"passed"`
	Confidence float64       `json:"confidence"`
	HardFailed bool          `json:"hard_failed,omitempty"`
	Checks     []CheckResult `json:"checks"`
	Hints      []Hint        `json:"hints,omitempty"`
}

// PassedAt reports whether the verdict clears threshold under the same
// hard-fail rule Validate applied. The engine uses it with the relaxed
// threshold on the final improvement cycle.
func (v Verdict) PassedAt(threshold float64) bool {
	return !v.HardFailed && v.Confidence >= threshold
}

// Controller runs the registered checks over candidates.
type Controller struct {
	cfg      *config.EngineConfig
	checks   []Check
	hardFail map[string]bool
	logf     func(string, ...any)
}

// Option configures a Controller.
type Option func(*Controller)

// WithChecks replaces the default check set.
func WithChecks(checks ...Check) Option {
	return func(c *Controller) { c.checks = checks }
}

// WithLogger sets the debug log sink.
func WithLogger(logf func(string, ...any)) Option {
	return func(c *Controller) {
		if logf != nil {
			c.logf = logf
		}
	}
}

// New builds a controller with the default checks: length/structure,
// coherence, factual alignment, cross-source consistency, and coverage.
func New(cfg *config.EngineConfig, opts ...Option) *Controller {
	c := &Controller{
		cfg:      cfg,
		checks:   defaultChecks(),
		hardFail: make(map[string]bool, len(cfg.Quality.HardFail)),
		logf:     func(string, ...any) {},
	}
	for _, name := range cfg.Quality.HardFail {
		c.hardFail[name] = true
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Validate runs every check and folds the scores into a verdict. It never
// modifies the candidate; improvement is the caller's job, steered by the
// returned hints.
func (c *Controller) Validate(cand *answer.Candidate, p *profile.Profile) Verdict {
	checks := make([]CheckResult, 0, len(c.checks))
	var sum float64
	var hints []Hint
	hardFailed := false
	for _, check := range c.checks {
		res := check.Evaluate(cand, p)
		checks = append(checks, res)
		sum += res.Score
		if !res.Passed {
			if c.hardFail[res.Name] {
				hardFailed = true
			}
			hints = append(hints, Hint{Check: res.Name, Action: remediationFor(res.Name), Reason: res.Detail})
		}
	}
	confidence := 0.0
	if len(checks) > 0 {
		confidence = sum / float64(len(checks))
	}
	v := Verdict{
		Confidence: confidence,
		HardFailed: hardFailed,
		Checks:     checks,
		Hints:      hints,
	}
	v.Passed = v.PassedAt(c.cfg.Quality.MinConfidence)
	c.logf("quality: confidence %.2f passed %v, %d hints", confidence, v.Passed, len(hints))
	return v
}

// remediationFor maps a failing check to the action most likely to fix it.
// Weak grounding wants more sources, missing coverage wants more gathering,
// and everything else wants a stronger model.
func remediationFor(check string) string {
	switch check {
	case checkFactualAlignment:
		return ActionUseAdditionalSources
	case checkCoverage:
		return ActionGatherMoreInformation
	default:
		return ActionUseStrongerModel
	}
}
