package classify

import (
	"context"
	"time"

	"github.com/zen-systems/askroute/pkg/profile"
)

// toolKindOrder fixes iteration order so repeated classifications emit tool
// needs in the same sequence.
var toolKindOrder = []profile.ToolKind{
	profile.ToolSearch,
	profile.ToolRetrieval,
	profile.ToolComputation,
	profile.ToolTranslation,
	profile.ToolScheduling,
	profile.ToolFile,
}

// toolBaseTimeout is each tool's budget before the complexity multiplier the
// classifier applies during assembly.
var toolBaseTimeout = map[profile.ToolKind]time.Duration{
	profile.ToolSearch:      10 * time.Second,
	profile.ToolRetrieval:   5 * time.Second,
	profile.ToolComputation: 2 * time.Second,
	profile.ToolTranslation: 3 * time.Second,
	profile.ToolScheduling:  5 * time.Second,
	profile.ToolFile:        3 * time.Second,
}

// ToolNeedExtractor detects which auxiliary tools a question calls for. Each
// tool kind scores independently, so one question can demand several tools
// at once, each with its own confidence and priority.
type ToolNeedExtractor struct{}

// NewToolNeedExtractor returns the default tool-need extractor.
func NewToolNeedExtractor() *ToolNeedExtractor {
	return &ToolNeedExtractor{}
}

// Name implements Extractor.
func (e *ToolNeedExtractor) Name() string { return "toolneed" }

// Analyze implements Extractor.
func (e *ToolNeedExtractor) Analyze(_ context.Context, q Query) (profile.Feature, error) {
	var needs []profile.ToolNeed
	var best float64
	for _, kind := range toolKindOrder {
		score := matchKeywords(q, toolKeywords[kind])
		if score < 1.0 {
			continue
		}
		needs = append(needs, profile.ToolNeed{
			Kind:       kind,
			Confidence: clampFloat(score/5.0, 0, 1),
			Priority:   toolPriority(kind, score),
			Timeout:    toolBaseTimeout[kind],
		})
		if score > best {
			best = score
		}
	}

	conf := 0.5
	if len(needs) > 0 {
		conf = clampFloat(0.5+best*0.1, 0, 0.9)
	}

	return profile.Feature{
		Name:       e.Name(),
		ToolNeeds:  needs,
		Confidence: conf,
	}, nil
}

// toolPriority upgrades the table priority when relevance is strong.
func toolPriority(kind profile.ToolKind, score float64) profile.ToolPriority {
	p := toolBasePriority[kind]
	switch {
	case score >= 3.0:
		return profile.PriorityHigh
	case score >= 2.0 && p < profile.PriorityMedium:
		return profile.PriorityMedium
	default:
		return p
	}
}
