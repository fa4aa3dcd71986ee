package classify

import (
	"context"

	"github.com/zen-systems/askroute/pkg/profile"
)

// UrgencyExtractor grades how soon the asker needs an answer. Four weighted
// signals contribute: explicit urgency vocabulary, time-sensitivity markers,
// the kind of action requested, and problem-state context. A question with no
// signals lands on Normal; Low requires explicit deprioritization wording.
type UrgencyExtractor struct{}

// NewUrgencyExtractor returns the default urgency extractor.
func NewUrgencyExtractor() *UrgencyExtractor {
	return &UrgencyExtractor{}
}

// Name implements Extractor.
func (e *UrgencyExtractor) Name() string { return "urgency" }

// Signal blend weights: keywords, time markers, action type, context.
var urgencyWeights = [4]float64{0.4, 0.3, 0.2, 0.1}

// Analyze implements Extractor.
func (e *UrgencyExtractor) Analyze(_ context.Context, q Query) (profile.Feature, error) {
	highKw := countMatches(q, urgencyHighKeywords)
	medKw := countMatches(q, urgencyMediumKeywords)
	lowKw := countMatches(q, urgencyLowKeywords)
	timeHits := countMatches(q, timeSensitiveMarkers)
	problem := countMatches(q, problemContext) > 0

	points := [4]float64{
		keywordPoints(highKw, medKw),
		markerPoints(timeHits > 0),
		actionPoints(q),
		markerPoints(problem),
	}

	var total float64
	for i, p := range points {
		total += urgencyWeights[i] * p
	}

	u := profile.Urgency{
		Level: urgencyLevel(total, problem, lowKw),
		Score: clamp01(total / 3.0),
	}

	conf := 0.5 + clampFloat(float64(highKw+medKw)*0.15, 0, 0.3)
	if timeHits > 0 {
		conf += 0.15
	}

	return profile.Feature{
		Name:       e.Name(),
		Urgency:    &u,
		Confidence: clampFloat(conf, 0, 0.95),
	}, nil
}

// urgencyLevel maps the blended score to a level. Explicit low-urgency
// wording can only lower a signal-free question, never an urgent one.
func urgencyLevel(total float64, problem bool, lowKw int) profile.UrgencyLevel {
	switch {
	case total >= 2.5 && problem:
		return profile.UrgencyCritical
	case total >= 1.8:
		return profile.UrgencyHigh
	case lowKw > 0 && total <= 1.2:
		return profile.UrgencyLow
	default:
		return profile.UrgencyNormal
	}
}

func keywordPoints(high, medium int) float64 {
	switch {
	case high > 0:
		return 3
	case medium > 0:
		return 2
	default:
		return 1
	}
}

func markerPoints(present bool) float64 {
	if present {
		return 3
	}
	return 1
}

// actionPoints grades the requested action: remedial work outranks planning,
// which outranks purely informational asks.
func actionPoints(q Query) float64 {
	switch {
	case countMatches(q, remedialActions) > 0:
		return 3
	case countMatches(q, planningActions) > 0:
		return 2
	default:
		return 1
	}
}
