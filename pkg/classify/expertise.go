package classify

import (
	"context"

	"github.com/zen-systems/askroute/pkg/profile"
)

// expertiseOrder fixes comparison order for deterministic tie-breaks, from
// most to least specific wording.
var expertiseOrder = []profile.Expertise{
	profile.ExpertiseExpert,
	profile.ExpertiseAdvanced,
	profile.ExpertiseBeginner,
	profile.ExpertiseIntermediate,
}

// ExpertiseExtractor infers the audience level the answer should target.
// Absent any signal it assumes an intermediate reader, which keeps answers
// from talking down to or over the head of the median asker.
type ExpertiseExtractor struct{}

// NewExpertiseExtractor returns the default expertise extractor.
func NewExpertiseExtractor() *ExpertiseExtractor {
	return &ExpertiseExtractor{}
}

// Name implements Extractor.
func (e *ExpertiseExtractor) Name() string { return "expertise" }

// Analyze implements Extractor.
func (e *ExpertiseExtractor) Analyze(_ context.Context, q Query) (profile.Feature, error) {
	best := profile.ExpertiseIntermediate
	var bestScore float64
	for _, level := range expertiseOrder {
		if s := matchKeywords(q, expertiseKeywords[level]); s > bestScore {
			best = level
			bestScore = s
		}
	}

	return profile.Feature{
		Name:       e.Name(),
		Expertise:  best,
		Confidence: clampFloat(0.5+bestScore*0.1, 0, 0.9),
	}, nil
}
