package router

import (
	"strings"
	"time"

	"github.com/zen-systems/askroute/pkg/config"
	"github.com/zen-systems/askroute/pkg/plan"
	"github.com/zen-systems/askroute/pkg/profile"
	"github.com/zen-systems/askroute/pkg/stats"
)

// candidate is one realized route under scoring.
type candidate struct {
	template    Template
	steps       []plan.Step
	budget      time.Duration
	maxParallel int
	quality     float64 // [0,10], template base adjusted by variants
	variants    []string
	waves       int

	raw   RawPrediction
	norm  normalized
	score float64
}

type normalized struct {
	quality float64
	latency float64
	cost    float64
	risk    float64
}

func (c *candidate) hasVariant(name string) bool {
	for _, v := range c.variants {
		if v == name {
			return true
		}
	}
	return false
}

// name labels the candidate with its variant suffixes for decisions and
// logs.
func (c *candidate) name() string {
	if len(c.variants) == 0 {
		return c.template.Name
	}
	return c.template.Name + "+" + strings.Join(c.variants, "+")
}

// clone deep-copies the candidate so variant transforms never leak into the
// base's steps.
func (c *candidate) clone() *candidate {
	steps := make([]plan.Step, len(c.steps))
	for i, s := range c.steps {
		s.DependsOn = append([]string(nil), s.DependsOn...)
		params := make(map[string]string, len(s.Params))
		for k, v := range s.Params {
			params[k] = v
		}
		s.Params = params
		steps[i] = s
	}
	return &candidate{
		template:    c.template,
		steps:       steps,
		budget:      c.budget,
		maxParallel: c.maxParallel,
		quality:     c.quality,
		variants:    append([]string(nil), c.variants...),
	}
}

// stages is the latency-relevant depth: wave count when the candidate runs
// stages concurrently, step count when it is sequential.
func (c *candidate) stages() int {
	if c.maxParallel > 1 {
		return c.waves
	}
	return len(c.steps)
}

// predict fills the raw estimates for one candidate against the snapshot
// and profile.
func predict(c *candidate, snap stats.Snapshot, p *profile.Profile) {
	quality := c.quality
	if ts, ok := snap.Template(c.template.Name); ok && ts.Uses > 0 {
		quality = quality*0.7 + ts.SuccessRate*10*0.3
	}

	loadFactor := 1.0 + snap.Load*0.1
	latency := time.Duration(float64(c.stages()) * float64(2*time.Second) * loadFactor)

	cost := float64(c.stages()) * 0.1
	if c.maxParallel > 1 {
		cost *= 1.5
	}

	risk := 0.0
	if c.budget < 10*time.Second && p.ComplexityLevel >= 2 {
		risk += 0.2
	}
	speedFocused := c.template.Name == TemplateFastTrack || c.hasVariant(VariantSpeedOptimized)
	if p.ComplexityLevel > 3 && speedFocused {
		risk += 0.3
	}
	if p.ComplexityLevel > c.template.Ceiling {
		risk += 0.3
	}
	if risk > 1 {
		risk = 1
	}

	c.raw = RawPrediction{Quality: quality, Latency: latency, Cost: cost, Risk: risk}
}

// normalizeAndScore rescales each metric to [0,1] across the candidate set
// and computes the weighted score. Degenerate ranges normalize to 0.5 so a
// metric with no spread neither rewards nor penalizes anyone.
func normalizeAndScore(cands []*candidate, cfg *config.EngineConfig) {
	norm := func(v, lo, hi float64) float64 {
		if hi-lo < 1e-12 {
			return 0.5
		}
		return (v - lo) / (hi - lo)
	}

	var qLo, qHi, lLo, lHi, cLo, cHi, rLo, rHi float64
	for i, c := range cands {
		q, l, co, r := c.raw.Quality, c.raw.Latency.Seconds(), c.raw.Cost, c.raw.Risk
		if i == 0 {
			qLo, qHi, lLo, lHi, cLo, cHi, rLo, rHi = q, q, l, l, co, co, r, r
			continue
		}
		qLo, qHi = min2(qLo, q), max2(qHi, q)
		lLo, lHi = min2(lLo, l), max2(lHi, l)
		cLo, cHi = min2(cLo, co), max2(cHi, co)
		rLo, rHi = min2(rLo, r), max2(rHi, r)
	}

	for _, c := range cands {
		c.norm = normalized{
			quality: norm(c.raw.Quality, qLo, qHi),
			latency: norm(c.raw.Latency.Seconds(), lLo, lHi),
			cost:    norm(c.raw.Cost, cLo, cHi),
			risk:    norm(c.raw.Risk, rLo, rHi),
		}
		c.score = cfg.Route.QualityWeight*c.norm.quality +
			cfg.Route.LatencyWeight*(1-c.norm.latency) +
			cfg.Route.CostWeight*(1-c.norm.cost) +
			cfg.Route.RiskWeight*(1-c.norm.risk)
	}
}

// selectBest picks the highest score, breaking ties by lower predicted
// latency and then template priority rank.
func selectBest(cands []*candidate) *candidate {
	best := cands[0]
	for _, c := range cands[1:] {
		switch {
		case c.score > best.score+1e-9:
			best = c
		case c.score > best.score-1e-9:
			if c.raw.Latency < best.raw.Latency {
				best = c
			} else if c.raw.Latency == best.raw.Latency &&
				c.template.Priority < best.template.Priority {
				best = c
			}
		}
	}
	return best
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
