package classify

import (
	"context"
	"time"

	"github.com/zen-systems/askroute/pkg/profile"
)

// FreshnessExtractor estimates how quickly an answer to the question goes
// stale. Temporal vocabulary carries most of the weight; the subject area's
// own churn rate and change-direction wording adjust it.
type FreshnessExtractor struct{}

// NewFreshnessExtractor returns the default freshness extractor.
func NewFreshnessExtractor() *FreshnessExtractor {
	return &FreshnessExtractor{}
}

// Name implements Extractor.
func (e *FreshnessExtractor) Name() string { return "freshness" }

// temporalClass is the strongest time-scope wording found in a question.
type temporalClass int

const (
	temporalNone temporalClass = iota
	temporalStable
	temporalPeriodic
	temporalCurrent
	temporalRecent
	temporalRealtime
)

// Analyze implements Extractor.
func (e *FreshnessExtractor) Analyze(_ context.Context, q Query) (profile.Feature, error) {
	class := strongestTemporalClass(q)

	score := 0.6*temporalScore(class) + 0.25*domainChurn(q)
	switch {
	case countMatches(q, dynamicIndicators) > 0:
		score += 0.3
	case countMatches(q, staticIndicators) > 0:
		score -= 0.3
	}
	if countMatches(q, urgencyHighKeywords) > 0 {
		score += 0.2
	}
	score = clamp01(score)

	f := profile.Freshness{
		Required: score >= 0.5,
		Score:    score,
		MaxAge:   maxAgeFor(class, score),
	}

	conf := 0.5
	if class != temporalNone {
		conf = 0.75
	}

	return profile.Feature{
		Name:       e.Name(),
		Freshness:  &f,
		Confidence: conf,
	}, nil
}

// strongestTemporalClass returns the most time-bound class with a match.
func strongestTemporalClass(q Query) temporalClass {
	switch {
	case countMatches(q, realtimeMarkers) > 0:
		return temporalRealtime
	case countMatches(q, recentMarkers) > 0:
		return temporalRecent
	case countMatches(q, currentMarkers) > 0:
		return temporalCurrent
	case countMatches(q, periodicMarkers) > 0:
		return temporalPeriodic
	case countMatches(q, stableMarkers) > 0:
		return temporalStable
	default:
		return temporalNone
	}
}

func temporalScore(c temporalClass) float64 {
	switch c {
	case temporalRealtime:
		return 1.0
	case temporalRecent:
		return 0.8
	case temporalCurrent:
		return 0.6
	case temporalPeriodic:
		return 0.4
	default:
		return 0.0
	}
}

// domainChurn is the churn rate of the best-matching subject area.
func domainChurn(q Query) float64 {
	best := freshnessDomainBase["general"]
	bestHits := 0
	for domain, kws := range domainKeywords {
		hits := countMatches(q, kws)
		if hits > bestHits {
			bestHits = hits
			best = freshnessDomainBase[domain]
		}
	}
	return best
}

// maxAgeFor derives the answer's tolerable age from the temporal class, then
// tightens it when the overall freshness score is high.
func maxAgeFor(c temporalClass, score float64) time.Duration {
	var age time.Duration
	switch c {
	case temporalRealtime:
		age = time.Hour
	case temporalRecent:
		age = 24 * time.Hour
	case temporalCurrent:
		age = 7 * 24 * time.Hour
	case temporalPeriodic:
		age = 30 * 24 * time.Hour
	default:
		age = 365 * 24 * time.Hour
	}
	switch {
	case score >= 0.8 && age > 24*time.Hour:
		return 24 * time.Hour
	case score >= 0.6 && age > 7*24*time.Hour:
		return 7 * 24 * time.Hour
	}
	return age
}
