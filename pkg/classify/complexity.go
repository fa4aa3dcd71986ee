package classify

import (
	"context"
	"strings"

	"github.com/zen-systems/askroute/pkg/profile"
)

// defaultComplexityWeights blend the five signals into the raw score.
var defaultComplexityWeights = [5]float64{0.10, 0.20, 0.30, 0.25, 0.15}

// signalCaps bound each signal: lexical, syntactic, semantic, reasoning,
// breadth. The continuous score rescales against the reachable maximum.
var signalCaps = [5]float64{6, 8, 10, 8, 6}

// ComplexityExtractor scores how hard a question is to answer well. It blends
// lexical length, syntactic structure, semantic density, reasoning demand,
// and topical breadth into one continuous score plus a discrete level.
type ComplexityExtractor struct {
	weights [5]float64
	rawMax  float64
}

// ComplexityOption adjusts a ComplexityExtractor.
type ComplexityOption func(*ComplexityExtractor)

// WithComplexityWeights replaces the signal blend weights. Order: lexical,
// syntactic, semantic, reasoning, breadth.
func WithComplexityWeights(w [5]float64) ComplexityOption {
	return func(e *ComplexityExtractor) { e.weights = w }
}

// NewComplexityExtractor returns the default complexity extractor.
func NewComplexityExtractor(opts ...ComplexityOption) *ComplexityExtractor {
	e := &ComplexityExtractor{weights: defaultComplexityWeights}
	for _, opt := range opts {
		opt(e)
	}
	for i, w := range e.weights {
		e.rawMax += w * signalCaps[i]
	}
	return e
}

// Name implements Extractor.
func (e *ComplexityExtractor) Name() string { return "complexity" }

// Analyze implements Extractor.
func (e *ComplexityExtractor) Analyze(_ context.Context, q Query) (profile.Feature, error) {
	signals := [5]float64{
		e.lexical(q),
		e.syntactic(q),
		e.semantic(q),
		e.reasoning(q),
		e.breadth(q),
	}

	var raw float64
	for i, s := range signals {
		raw += e.weights[i] * s
	}

	return profile.Feature{
		Name:            e.Name(),
		Complexity:      clampFloat(raw/e.rawMax*5.0, 0, 5),
		ComplexityLevel: complexityLevel(raw),
		Confidence:      0.7 + clampFloat(float64(len(q.Tokens))*0.01, 0, 0.2),
	}, nil
}

// complexityLevel discretizes the raw weighted score.
func complexityLevel(raw float64) int {
	switch {
	case raw < 1.5:
		return 0
	case raw < 2.5:
		return 1
	case raw < 4.0:
		return 2
	case raw < 6.0:
		return 3
	default:
		return 4
	}
}

// lexical scores question length in tokens, capped at 6.
func (e *ComplexityExtractor) lexical(q Query) float64 {
	n := len(q.Tokens)
	switch {
	case n <= 5:
		return 1.0
	case n <= 10:
		return 2.0
	case n <= 20:
		return 4.0
	default:
		return 6.0
	}
}

// syntactic scores clause structure, capped at 8.
func (e *ComplexityExtractor) syntactic(q Query) float64 {
	clauses := strings.Count(q.Text, ",") + strings.Count(q.Text, ";")
	score := float64(clauses) * 0.5
	score += float64(countMatches(q, subordinateMarkers)) * 1.0
	score += float64(countMatches(q, questionMarkers)) * 0.3
	return clampFloat(score, 0, 8)
}

// semantic scores vocabulary density, capped at 10.
func (e *ComplexityExtractor) semantic(q Query) float64 {
	score := float64(countMatches(q, technicalTerms)) * 1.5
	score += float64(countMatches(q, abstractTerms)) * 1.0
	for _, kws := range domainKeywords {
		if countMatches(q, kws) > 0 {
			score += 0.8
		}
	}
	return clampFloat(score, 0, 10)
}

// reasoning scores the inference work the answer demands, capped at 8.
func (e *ComplexityExtractor) reasoning(q Query) float64 {
	score := float64(countMatches(q, causalMarkers)) * 1.0
	score += float64(countMatches(q, reasoningMarkers)) * 0.8
	score += float64(countMatches(q, comparisonMarkers)) * 1.2
	score += float64(countMatches(q, evaluationMarkers)) * 1.5
	return clampFloat(score, 0, 8)
}

// breadth scores how many subject areas the question spans, capped at 6.
func (e *ComplexityExtractor) breadth(q Query) float64 {
	domains := 0
	for _, kws := range domainKeywords {
		if countMatches(q, kws) > 0 {
			domains++
		}
	}
	var score float64
	if domains > 1 {
		score += float64(domains-1) * 1.5
	}
	score += float64(countMatches(q, interdisciplinaryMarkers)) * 1.2
	score += float64(countMatches(q, broadScopeMarkers)) * 0.8
	return clampFloat(score, 0, 6)
}
