// Package router turns a query profile into an execution plan. Generation
// realizes every applicable template into a candidate, derives variant
// candidates for urgency, domain stakes, and load, and weighted scoring
// picks one. Routing is deterministic for a given profile and statistics
// snapshot.
package router

import (
	"fmt"
	"strconv"
	"time"

	"github.com/zen-systems/askroute/pkg/config"
	"github.com/zen-systems/askroute/pkg/plan"
	"github.com/zen-systems/askroute/pkg/profile"
	"github.com/zen-systems/askroute/pkg/stats"
	"github.com/zen-systems/askroute/pkg/tool"
)

// Router generates, scores, and selects execution plans.
type Router struct {
	cfg       *config.EngineConfig
	templates []Template
	tools     *tool.Registry
	logf      func(format string, args ...any)
}

// Option configures a Router.
type Option func(*Router)

// WithToolRegistry restricts tool-call steps to kinds the registry can
// actually execute. Without a registry every detected tool need is bound.
func WithToolRegistry(reg *tool.Registry) Option {
	return func(r *Router) {
		r.tools = reg
	}
}

// WithTemplates replaces the built-in template set.
func WithTemplates(ts ...Template) Option {
	return func(r *Router) {
		r.templates = ts
	}
}

// WithLogger sets the debug logger.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(r *Router) {
		r.logf = logf
	}
}

// New creates a router with the built-in templates.
func New(cfg *config.EngineConfig, opts ...Option) *Router {
	r := &Router{
		cfg:       cfg,
		templates: builtinTemplates(),
		logf:      func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Templates returns the router's template set in priority order.
func (r *Router) Templates() []Template {
	return r.templates
}

// Route selects an execution plan for the profile. The snapshot supplies
// load and historical performance; identical profile and snapshot always
// yield an identical decision. The error path is reserved for malformed
// templates, which indicate a bug rather than bad input.
func (r *Router) Route(p *profile.Profile, snap stats.Snapshot) (*plan.Plan, *Decision, error) {
	cands, err := r.generate(p, snap)
	if err != nil {
		return nil, nil, err
	}

	for _, c := range cands {
		predict(c, snap, p)
	}
	normalizeAndScore(cands, r.cfg)
	best := selectBest(cands)

	deadline := r.cfg.Deadlines.ForUrgency(p.Urgency.Level.String())
	if best.budget < deadline {
		deadline = best.budget
	}

	pl := plan.New(best.template.Name, best.steps...)
	pl.MaxParallel = best.maxParallel
	pl.Deadline = deadline

	decision := &Decision{
		Template: best.template.Name,
		Score:    best.score,
		Deadline: deadline,
		Variants: best.variants,
		Reasons:  r.reasons(p, snap, best, len(cands)),
	}
	for _, c := range cands {
		decision.Candidates = append(decision.Candidates, CandidateInfo{
			Template: c.name(),
			Score:    c.score,
			Quality:  c.norm.quality,
			Latency:  c.norm.latency,
			Cost:     c.norm.cost,
			Risk:     c.norm.risk,
			Raw:      c.raw,
			Variants: c.variants,
		})
	}

	r.logf("route: %s score=%.3f deadline=%s variants=%v",
		best.template.Name, best.score, deadline, best.variants)
	return &pl, decision, nil
}

// generate realizes every applicable template into a base candidate, then
// derives variant candidates for the current conditions. Variants are never
// stacked; each derives from its base alone. At least the standard template
// always survives.
func (r *Router) generate(p *profile.Profile, snap stats.Snapshot) ([]*candidate, error) {
	var cands []*candidate
	for _, tmpl := range r.templates {
		if tmpl.Applicable != nil && !tmpl.Applicable(p) {
			continue
		}
		steps := tmpl.Build(p, r.cfg)
		applyLevelBudget(steps, p, r.cfg)
		if tmpl.Name == TemplateToolAssisted {
			steps = r.bindTools(steps)
			if !hasKind(steps, plan.StepToolCall) {
				r.logf("route: no executable tools for %s, dropping candidate", tmpl.Name)
				continue
			}
		}
		base := &candidate{
			template:    tmpl,
			steps:       steps,
			budget:      tmpl.Budget,
			maxParallel: tmpl.MaxParallel,
			quality:     tmpl.Quality,
		}
		cands = append(cands, base)

		if p.Urgency.Level >= profile.UrgencyHigh {
			cands = append(cands, speedOptimized(base, p))
		}
		if p.Domain.Kind == profile.DomainProfessional {
			cands = append(cands, qualityOptimized(base, p))
		}
		if snap.Load > r.cfg.Route.LoadShedThreshold {
			cands = append(cands, resourceEfficient(base))
		}
	}
	if len(cands) == 0 {
		return nil, &plan.MalformedPlanError{PlanID: "generate", Reason: "no applicable template"}
	}

	for _, c := range cands {
		check := plan.Plan{ID: c.name() + "-candidate", Template: c.template.Name, Steps: c.steps}
		if err := check.Validate(); err != nil {
			return nil, err
		}
		waves, err := check.Waves()
		if err != nil {
			return nil, err
		}
		c.waves = len(waves)
	}
	return cands, nil
}

// bindTools drops tool-call steps whose kind has no registered executor and
// removes them from dependency lists. Surviving steps pick up the registry's
// observed performance: the timeout widens when the classifier's estimate
// runs below twice the planned latency, and a kind with a poor track record
// becomes optional instead of plan-fatal. Without a registry all steps stand.
func (r *Router) bindTools(steps []plan.Step) []plan.Step {
	if r.tools == nil {
		return steps
	}
	kept := steps[:0]
	removed := map[string]bool{}
	for _, s := range steps {
		if s.Kind == plan.StepToolCall {
			kind := profile.ToolKind(s.Params["kind"])
			if _, ok := r.tools.Get(kind); !ok {
				removed[s.ID] = true
				continue
			}
			if pl := r.tools.PlannedLatency(kind); pl > 0 && s.Timeout < 2*pl {
				s.Timeout = 2 * pl
			}
			if r.tools.SuccessRate(kind) < 0.5 {
				s.Optional = true
			}
		}
		kept = append(kept, s)
	}
	if len(removed) == 0 {
		return kept
	}
	for i := range kept {
		kept[i].DependsOn = pruneDeps(kept[i].DependsOn, removed)
	}
	return kept
}

// applyLevelBudget stamps the level's token budget on answering steps and
// clamps their timeout to the level's target latency.
func applyLevelBudget(steps []plan.Step, p *profile.Profile, cfg *config.EngineConfig) {
	b := cfg.LevelBudgetFor(p.ComplexityLevel)
	target := time.Duration(b.TargetLatencyMs) * time.Millisecond
	for i := range steps {
		s := &steps[i]
		if s.Kind != plan.StepModelCall || s.Params["role"] != "" {
			continue
		}
		if b.MaxTokens > 0 && s.Params != nil {
			s.Params["max_tokens"] = strconv.Itoa(b.MaxTokens)
		}
		if target > 0 && target < s.Timeout {
			s.Timeout = target
		}
	}
}

// speedOptimized clamps the budget, drops validation steps, and shifts the
// model focus to speed.
func speedOptimized(base *candidate, p *profile.Profile) *candidate {
	c := base.clone()
	c.variants = append(c.variants, VariantSpeedOptimized)
	if c.budget > 10*time.Second {
		c.budget = 10 * time.Second
	}
	c.steps = dropValidationSteps(c.steps)
	setFocus(c.steps, "speed")
	c.quality -= 0.5
	return c
}

// qualityOptimized appends fact-check and expert-validation model steps
// after the last answering step. Each re-emits the refined answer, so the
// final completed model output remains the candidate text.
func qualityOptimized(base *candidate, p *profile.Profile) *candidate {
	c := base.clone()
	c.variants = append(c.variants, VariantQualityOptimized)
	setFocus(c.steps, "quality")
	c.quality += 0.5

	last := ""
	for _, s := range c.steps {
		if s.Kind == plan.StepModelCall {
			last = s.ID
		}
	}
	if last == "" {
		return c
	}

	factCheck := modelParams(p, "quality")
	factCheck["role"] = "fact-check"
	expert := modelParams(p, "quality")
	expert["role"] = "expert-validation"

	c.steps = append(c.steps,
		plan.Step{
			ID:          "fact-check",
			Kind:        plan.StepModelCall,
			DependsOn:   []string{last},
			Params:      factCheck,
			Timeout:     8 * time.Second,
			RetryBudget: 1,
			Optional:    true,
		},
		plan.Step{
			ID:          "expert-validation",
			Kind:        plan.StepModelCall,
			DependsOn:   []string{"fact-check"},
			Params:      expert,
			Timeout:     8 * time.Second,
			RetryBudget: 1,
			Optional:    true,
		},
	)
	return c
}

// resourceEfficient collapses parallelism and keeps only the first retrieve
// step under load shedding.
func resourceEfficient(base *candidate) *candidate {
	c := base.clone()
	c.variants = append(c.variants, VariantResourceEfficient)
	c.maxParallel = 1
	setFocus(c.steps, "speed")
	c.quality -= 0.5

	removed := map[string]bool{}
	seen := false
	kept := c.steps[:0]
	for _, s := range c.steps {
		if s.Kind == plan.StepRetrieve {
			if seen {
				removed[s.ID] = true
				continue
			}
			seen = true
		}
		kept = append(kept, s)
	}
	for i := range kept {
		kept[i].DependsOn = pruneDeps(kept[i].DependsOn, removed)
	}
	c.steps = kept
	return c
}

// dropValidationSteps removes role-bearing model steps, the ones that
// re-examine a draft rather than produce it.
func dropValidationSteps(steps []plan.Step) []plan.Step {
	removed := map[string]bool{}
	kept := steps[:0]
	for _, s := range steps {
		if s.Kind == plan.StepModelCall && s.Params["role"] != "" {
			removed[s.ID] = true
			continue
		}
		kept = append(kept, s)
	}
	for i := range kept {
		kept[i].DependsOn = pruneDeps(kept[i].DependsOn, removed)
	}
	return kept
}

func setFocus(steps []plan.Step, focus string) {
	for i := range steps {
		if steps[i].Kind == plan.StepModelCall && steps[i].Params != nil {
			steps[i].Params["focus"] = focus
		}
	}
}

func (r *Router) reasons(p *profile.Profile, snap stats.Snapshot, best *candidate, n int) []string {
	reasons := []string{
		fmt.Sprintf("complexity level %d, urgency %s, strategy %s",
			p.ComplexityLevel, p.Urgency.Level, p.Strategy),
		fmt.Sprintf("selected %s over %d candidates", best.name(), n),
	}
	for _, v := range best.variants {
		switch v {
		case VariantSpeedOptimized:
			reasons = append(reasons, "urgency clamps budget and drops validation steps")
		case VariantQualityOptimized:
			reasons = append(reasons, "professional domain appends validation chain")
		case VariantResourceEfficient:
			reasons = append(reasons, fmt.Sprintf("load %.1f above threshold %.1f, shedding parallelism",
				snap.Load, r.cfg.Route.LoadShedThreshold))
		}
	}
	return reasons
}

func pruneDeps(deps []string, removed map[string]bool) []string {
	if len(deps) == 0 || len(removed) == 0 {
		return deps
	}
	kept := deps[:0]
	for _, d := range deps {
		if !removed[d] {
			kept = append(kept, d)
		}
	}
	return kept
}

func hasKind(steps []plan.Step, kind plan.StepKind) bool {
	for _, s := range steps {
		if s.Kind == kind {
			return true
		}
	}
	return false
}
