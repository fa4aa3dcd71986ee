package router

import (
	"fmt"
	"sort"
	"time"

	"github.com/zen-systems/askroute/pkg/config"
	"github.com/zen-systems/askroute/pkg/plan"
	"github.com/zen-systems/askroute/pkg/profile"
)

// Template names.
const (
	TemplateFastTrack     = "fast-track"
	TemplateStandard      = "standard"
	TemplateComprehensive = "comprehensive"
	TemplateToolAssisted  = "tool-assisted"
)

// Variant names, recorded on the Decision when applied.
const (
	VariantSpeedOptimized    = "speed-optimized"
	VariantQualityOptimized  = "quality-optimized"
	VariantResourceEfficient = "resource-efficient"
)

// Template describes one way to answer a query. Build realizes it into
// concrete steps for a profile; Applicable gates candidate generation.
type Template struct {
	Name        string
	Priority    int // tie-break rank, lower preferred
	Budget      time.Duration
	MaxParallel int
	// Quality is the expected answer quality on the [0,10] rubric when the
	// template runs to completion.
	Quality float64
	// Ceiling is the highest complexity level the template is built for.
	// Routing a harder question through it raises the risk estimate.
	Ceiling    int
	Applicable func(p *profile.Profile) bool
	Build      func(p *profile.Profile, cfg *config.EngineConfig) []plan.Step
}

// builtinTemplates returns the template set in priority order. The standard
// template is always applicable, so generation never yields zero candidates.
func builtinTemplates() []Template {
	return []Template{
		{
			Name:        TemplateFastTrack,
			Priority:    1,
			Budget:      5 * time.Second,
			MaxParallel: 1,
			Quality:     6.0,
			Ceiling:     2,
			Applicable: func(p *profile.Profile) bool {
				if p.Urgency.Level >= profile.UrgencyHigh && p.ComplexityLevel <= 2 {
					return true
				}
				return p.ComplexityLevel <= 1 || p.Strategy == profile.StrategyFastTrack
			},
			Build: buildFastTrack,
		},
		{
			Name:        TemplateStandard,
			Priority:    2,
			Budget:      15 * time.Second,
			MaxParallel: 2,
			Quality:     7.5,
			Ceiling:     2,
			Applicable:  func(*profile.Profile) bool { return true },
			Build:       buildStandard,
		},
		{
			Name:        TemplateToolAssisted,
			Priority:    3,
			Budget:      25 * time.Second,
			MaxParallel: 4,
			Quality:     8.0,
			Ceiling:     3,
			Applicable: func(p *profile.Profile) bool {
				return p.RequiresTools() || p.Strategy == profile.StrategyToolAssisted
			},
			Build: buildToolAssisted,
		},
		{
			Name:        TemplateComprehensive,
			Priority:    4,
			Budget:      30 * time.Second,
			MaxParallel: 4,
			Quality:     9.0,
			Ceiling:     4,
			Applicable: func(p *profile.Profile) bool {
				return p.ComplexityLevel >= 3 || p.Strategy == profile.StrategyComprehensive
			},
			Build: buildComprehensive,
		},
	}
}

func baseParams(p *profile.Profile) map[string]string {
	return map[string]string{
		"question": p.Question,
		"domain":   p.Domain.Primary,
	}
}

func modelParams(p *profile.Profile, focus string) map[string]string {
	params := baseParams(p)
	params["focus"] = focus
	params["expertise"] = string(p.Expertise)
	return params
}

func retrieveParams(p *profile.Profile, topK int) map[string]string {
	params := baseParams(p)
	params["query"] = p.Question
	params["topk"] = fmt.Sprintf("%d", topK)
	if p.Freshness.Required {
		params["max_age"] = p.Freshness.MaxAge.String()
	}
	return params
}

func buildFastTrack(p *profile.Profile, cfg *config.EngineConfig) []plan.Step {
	return []plan.Step{
		{
			ID:          "answer",
			Kind:        plan.StepModelCall,
			Params:      modelParams(p, "speed"),
			Timeout:     5 * time.Second,
			RetryBudget: cfg.Orchestrator.Retry.MaxRetries,
		},
	}
}

func buildStandard(p *profile.Profile, cfg *config.EngineConfig) []plan.Step {
	return []plan.Step{
		{
			ID:          "context",
			Kind:        plan.StepRetrieve,
			Params:      retrieveParams(p, 3),
			Timeout:     5 * time.Second,
			RetryBudget: 1,
			Optional:    true,
		},
		{
			ID:          "answer",
			Kind:        plan.StepModelCall,
			DependsOn:   []string{"context"},
			Params:      modelParams(p, "balanced"),
			Timeout:     10 * time.Second,
			RetryBudget: cfg.Orchestrator.Retry.MaxRetries,
		},
	}
}

func buildComprehensive(p *profile.Profile, cfg *config.EngineConfig) []plan.Step {
	answer := modelParams(p, "quality")
	answer["ensemble"] = "true"

	review := modelParams(p, "quality")
	review["role"] = "review"

	return []plan.Step{
		{
			ID:          "context",
			Kind:        plan.StepRetrieve,
			Params:      retrieveParams(p, 5),
			Timeout:     5 * time.Second,
			RetryBudget: 1,
			Optional:    true,
		},
		{
			ID:          "background",
			Kind:        plan.StepRetrieve,
			Params:      retrieveParams(p, 3),
			Timeout:     5 * time.Second,
			RetryBudget: 1,
			Optional:    true,
		},
		{
			ID:          "answer",
			Kind:        plan.StepModelCall,
			DependsOn:   []string{"context", "background"},
			Params:      answer,
			Timeout:     20 * time.Second,
			RetryBudget: cfg.Orchestrator.Retry.MaxRetries,
		},
		{
			ID:          "review",
			Kind:        plan.StepModelCall,
			DependsOn:   []string{"answer"},
			Params:      review,
			Timeout:     10 * time.Second,
			RetryBudget: 1,
			Optional:    true,
		},
	}
}

func buildToolAssisted(p *profile.Profile, cfg *config.EngineConfig) []plan.Step {
	needs := orderedToolNeeds(p)
	steps := make([]plan.Step, 0, len(needs)+2)
	deps := make([]string, 0, len(needs)+1)

	for _, need := range needs {
		id := "tool-" + string(need.Kind)
		params := baseParams(p)
		params["kind"] = string(need.Kind)
		params["query"] = p.Question
		steps = append(steps, plan.Step{
			ID:          id,
			Kind:        plan.StepToolCall,
			Params:      params,
			Timeout:     need.Timeout,
			RetryBudget: cfg.Orchestrator.Retry.MaxRetries,
			Optional:    need.Priority < profile.PriorityHigh,
		})
		deps = append(deps, id)
	}

	if p.NeedsTool(profile.ToolRetrieval) || p.Freshness.Required {
		steps = append(steps, plan.Step{
			ID:          "context",
			Kind:        plan.StepRetrieve,
			Params:      retrieveParams(p, 3),
			Timeout:     5 * time.Second,
			RetryBudget: 1,
			Optional:    true,
		})
		deps = append(deps, "context")
	}

	steps = append(steps, plan.Step{
		ID:          "answer",
		Kind:        plan.StepModelCall,
		DependsOn:   deps,
		Params:      modelParams(p, "balanced"),
		Timeout:     10 * time.Second,
		RetryBudget: cfg.Orchestrator.Retry.MaxRetries,
	})
	return steps
}

// orderedToolNeeds returns the profile's tool needs minus the retrieval kind,
// which realizes as a retrieve step instead of a tool call. Order is priority
// descending, confidence descending, then kind for stability.
func orderedToolNeeds(p *profile.Profile) []profile.ToolNeed {
	needs := make([]profile.ToolNeed, 0, len(p.ToolNeeds))
	for _, n := range p.ToolNeeds {
		if n.Kind == profile.ToolRetrieval {
			continue
		}
		needs = append(needs, n)
	}
	sort.SliceStable(needs, func(i, j int) bool {
		if needs[i].Priority != needs[j].Priority {
			return needs[i].Priority > needs[j].Priority
		}
		if needs[i].Confidence != needs[j].Confidence {
			return needs[i].Confidence > needs[j].Confidence
		}
		return needs[i].Kind < needs[j].Kind
	})
	return needs
}
