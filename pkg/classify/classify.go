// Package classify turns a natural-language question into a multi-dimensional
// profile: complexity, domain, urgency, tool needs, freshness, and audience
// expertise. Each axis is produced by an independent extractor; a failing
// extractor degrades to a neutral default instead of failing the whole
// classification.
package classify

import (
	"context"
	"strings"
	"time"

	"github.com/zen-systems/askroute/pkg/profile"
)

// Classifier runs a fixed set of extractors over a question and assembles
// their features into a Profile. Classification is deterministic: the same
// question always yields the same profile.
type Classifier struct {
	segmenter  Segmenter
	extractors []Extractor
	logf       func(format string, args ...any)
}

// Option adjusts a Classifier.
type Option func(*Classifier)

// WithSegmenter replaces the default whitespace segmenter.
func WithSegmenter(s Segmenter) Option {
	return func(c *Classifier) { c.segmenter = s }
}

// WithExtractors replaces the default extractor set.
func WithExtractors(ex ...Extractor) Option {
	return func(c *Classifier) { c.extractors = ex }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(c *Classifier) { c.logf = logf }
}

// NewClassifier returns a classifier with the six standard extractors.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		segmenter: DefaultSegmenter(),
		extractors: []Extractor{
			NewComplexityExtractor(),
			NewDomainExtractor(),
			NewUrgencyExtractor(),
			NewToolNeedExtractor(),
			NewFreshnessExtractor(),
			NewExpertiseExtractor(),
		},
		logf: func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify profiles a question. Extractor failures are recovered with
// neutral defaults and recorded in the profile's Degraded list; the only
// returned errors are context cancellation and deadline expiry.
func (c *Classifier) Classify(ctx context.Context, question string) (profile.Profile, error) {
	p := neutralProfile(question)
	if strings.TrimSpace(question) == "" {
		p.Strategy = computeStrategy(p)
		return p, nil
	}

	q := newQuery(question, c.segmenter)
	for _, ex := range c.extractors {
		if err := ctx.Err(); err != nil {
			return profile.Profile{}, err
		}
		feat, err := ex.Analyze(ctx, q)
		if err != nil {
			perr := &PartialAnalysisError{Extractor: ex.Name(), Err: err}
			c.logf("classify: %v, substituting neutral default", perr)
			p.Degraded = append(p.Degraded, ex.Name())
			continue
		}
		mergeFeature(&p, feat)
	}

	scaleToolTimeouts(&p)
	p.Strategy = computeStrategy(p)
	return p, nil
}

// neutralProfile is the mid-scale starting point every classification refines.
// Axes whose extractor fails keep these values.
func neutralProfile(question string) profile.Profile {
	return profile.Profile{
		Question:        question,
		Complexity:      2.5,
		ComplexityLevel: 2,
		Domain: profile.Domain{
			Primary:    "general",
			Confidence: 0.3,
			Kind:       profile.DomainGeneral,
		},
		Urgency: profile.Urgency{
			Level: profile.UrgencyNormal,
			Score: 0.5,
		},
		Freshness: profile.Freshness{
			Required: false,
			Score:    0.2,
			MaxAge:   365 * 24 * time.Hour,
		},
		Expertise: profile.ExpertiseIntermediate,
	}
}

// mergeFeature folds one extractor's output into the profile.
func mergeFeature(p *profile.Profile, f profile.Feature) {
	switch f.Name {
	case "complexity":
		p.Complexity = f.Complexity
		p.ComplexityLevel = f.ComplexityLevel
	case "domain":
		if f.Domain != nil {
			p.Domain = *f.Domain
		}
	case "urgency":
		if f.Urgency != nil {
			p.Urgency = *f.Urgency
		}
	case "toolneed":
		p.ToolNeeds = f.ToolNeeds
	case "freshness":
		if f.Freshness != nil {
			p.Freshness = *f.Freshness
		}
	case "expertise":
		p.Expertise = f.Expertise
	}
}

// scaleToolTimeouts widens tool budgets for harder questions. Extractors run
// independently, so the complexity-aware adjustment happens here.
func scaleToolTimeouts(p *profile.Profile) {
	var mult float64
	switch {
	case p.ComplexityLevel <= 1:
		mult = 1.0
	case p.ComplexityLevel <= 3:
		mult = 1.5
	default:
		mult = 2.0
	}
	for i := range p.ToolNeeds {
		p.ToolNeeds[i].Timeout = time.Duration(float64(p.ToolNeeds[i].Timeout) * mult)
	}
}

// computeStrategy picks the routing hint. Urgent-but-simple questions take
// the fast path even when tools matched; otherwise hard questions go
// comprehensive, tool questions go tool-assisted, and trivial ones fast.
func computeStrategy(p profile.Profile) profile.Strategy {
	switch {
	case p.Urgency.Level >= profile.UrgencyHigh && p.ComplexityLevel <= 2:
		return profile.StrategyFastTrack
	case p.ComplexityLevel >= 3:
		return profile.StrategyComprehensive
	case p.RequiresTools():
		return profile.StrategyToolAssisted
	case p.ComplexityLevel <= 1:
		return profile.StrategyFastTrack
	default:
		return profile.StrategyStandard
	}
}
