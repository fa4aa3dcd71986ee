// Package profile defines the immutable multi-dimensional classification of
// a question. A Profile is produced once per query by the classifier and is
// never mutated afterwards; the router, model selector, and quality
// controller all read from the same value.
package profile

import "time"

// UrgencyLevel orders how quickly an answer is expected.
type UrgencyLevel int

const (
	UrgencyLow UrgencyLevel = iota
	UrgencyNormal
	UrgencyHigh
	UrgencyCritical
)

// String returns the lowercase name of the level.
func (u UrgencyLevel) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyNormal:
		return "normal"
	case UrgencyHigh:
		return "high"
	case UrgencyCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// DomainKind describes how concentrated a question's subject matter is.
type DomainKind string

const (
	DomainGeneral           DomainKind = "general"
	DomainSpecialized       DomainKind = "specialized"
	DomainProfessional      DomainKind = "professional"
	DomainInterdisciplinary DomainKind = "interdisciplinary"
)

// ToolKind names an auxiliary capability a plan step may invoke.
type ToolKind string

const (
	ToolSearch      ToolKind = "search"
	ToolRetrieval   ToolKind = "retrieval"
	ToolComputation ToolKind = "computation"
	ToolTranslation ToolKind = "translation"
	ToolScheduling  ToolKind = "scheduling"
	ToolFile        ToolKind = "file"
)

// ToolPriority ranks how strongly a tool need was detected.
type ToolPriority int

const (
	PriorityLow ToolPriority = iota
	PriorityMedium
	PriorityHigh
)

// String returns the lowercase name of the priority.
func (p ToolPriority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Expertise estimates the asker's familiarity with the subject.
type Expertise string

const (
	ExpertiseBeginner     Expertise = "beginner"
	ExpertiseIntermediate Expertise = "intermediate"
	ExpertiseAdvanced     Expertise = "advanced"
	ExpertiseExpert       Expertise = "expert"
)

// Strategy is the classifier's processing recommendation. It is advisory:
// the router weighs it but template applicability decides.
type Strategy string

const (
	StrategyFastTrack     Strategy = "fast_track"
	StrategyStandard      Strategy = "standard"
	StrategyComprehensive Strategy = "comprehensive"
	StrategyToolAssisted  Strategy = "tool_assisted"
)

// Domain captures the detected subject area of a question.
type Domain struct {
	Primary    string
	Secondary  []string
	Confidence float64
	Kind       DomainKind
}

// Urgency pairs the discrete urgency level with a continuous score used for
// tie-breaking and deadline derivation.
type Urgency struct {
	Level UrgencyLevel
	Score float64
}

// ToolNeed records one detected tool requirement. Needs are independent:
// a question may carry any subset of kinds, each with its own confidence.
type ToolNeed struct {
	Kind       ToolKind
	Confidence float64
	Priority   ToolPriority
	Timeout    time.Duration
}

// Freshness captures how recent the supporting information must be.
type Freshness struct {
	Required bool
	Score    float64
	MaxAge   time.Duration
}

// Profile is the complete classification of one question.
type Profile struct {
	Question        string
	Complexity      float64 // continuous, [0,5]
	ComplexityLevel int     // discretized, [0,4]
	Domain          Domain
	Urgency         Urgency
	ToolNeeds       []ToolNeed
	Freshness       Freshness
	Expertise       Expertise
	Strategy        Strategy
	Degraded        []string // extractor names replaced by neutral defaults
}

// NeedsTool reports whether a need for the given kind was detected.
func (p *Profile) NeedsTool(kind ToolKind) bool {
	for _, n := range p.ToolNeeds {
		if n.Kind == kind {
			return true
		}
	}
	return false
}

// ToolNeedFor returns the recorded need for a kind, if present.
func (p *Profile) ToolNeedFor(kind ToolKind) (ToolNeed, bool) {
	for _, n := range p.ToolNeeds {
		if n.Kind == kind {
			return n, true
		}
	}
	return ToolNeed{}, false
}

// RequiresTools reports whether any tool need was detected.
func (p *Profile) RequiresTools() bool {
	return len(p.ToolNeeds) > 0
}

// Feature is one extractor's contribution to a Profile. Exactly one field
// group is populated depending on which extractor produced it.
type Feature struct {
	Name            string
	Complexity      float64
	ComplexityLevel int
	Domain          *Domain
	Urgency         *Urgency
	ToolNeeds       []ToolNeed
	Freshness       *Freshness
	Expertise       Expertise
	Confidence      float64
}
