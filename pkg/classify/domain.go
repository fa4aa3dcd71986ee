package classify

import (
	"context"
	"sort"

	"github.com/zen-systems/askroute/pkg/profile"
)

// DomainExtractor names the subject area a question belongs to. Scores come
// from keyword tables; ties break by a fixed priority order so identical
// questions always classify identically.
type DomainExtractor struct {
	keywords map[string][]string
	priority []string
}

// DomainOption adjusts a DomainExtractor.
type DomainOption func(*DomainExtractor)

// WithDomainKeywords replaces the built-in domain vocabulary.
func WithDomainKeywords(kw map[string][]string, priority []string) DomainOption {
	return func(e *DomainExtractor) {
		e.keywords = kw
		e.priority = priority
	}
}

// NewDomainExtractor returns a domain extractor with the built-in tables.
func NewDomainExtractor(opts ...DomainOption) *DomainExtractor {
	e := &DomainExtractor{
		keywords: domainKeywords,
		priority: domainPriority,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements Extractor.
func (e *DomainExtractor) Name() string { return "domain" }

// Analyze implements Extractor.
func (e *DomainExtractor) Analyze(_ context.Context, q Query) (profile.Feature, error) {
	scores := make(map[string]float64, len(e.keywords))
	for domain, kws := range e.keywords {
		if s := matchKeywords(q, kws); s > 0 {
			scores[domain] = s
		}
	}

	d := e.rank(scores)
	return profile.Feature{
		Name:       e.Name(),
		Domain:     &d,
		Confidence: d.Confidence,
	}, nil
}

// rank orders scored domains and derives the profile domain.
func (e *DomainExtractor) rank(scores map[string]float64) profile.Domain {
	if len(scores) == 0 {
		return profile.Domain{
			Primary:    "general",
			Confidence: 0.3,
			Kind:       profile.DomainGeneral,
		}
	}

	ranked := make([]string, 0, len(scores))
	for domain := range scores {
		ranked = append(ranked, domain)
	}
	sort.Slice(ranked, func(i, j int) bool {
		si, sj := scores[ranked[i]], scores[ranked[j]]
		if si != sj {
			return si > sj
		}
		return e.priorityIndex(ranked[i]) < e.priorityIndex(ranked[j])
	})

	primary := ranked[0]
	var secondary []string
	var total float64
	for _, d := range ranked {
		total += scores[d]
	}
	// Secondary domains need at least a third of the primary's score to
	// count; weaker matches are noise.
	for _, d := range ranked[1:] {
		if scores[d] >= scores[primary]/3 {
			secondary = append(secondary, d)
		}
	}

	return profile.Domain{
		Primary:    primary,
		Secondary:  secondary,
		Confidence: clampFloat(0.4+scores[primary]/total*0.5, 0, 0.95),
		Kind:       domainKind(primary, secondary),
	}
}

func (e *DomainExtractor) priorityIndex(domain string) int {
	for i, d := range e.priority {
		if d == domain {
			return i
		}
	}
	return len(e.priority)
}

// domainKind grades the stakes of the matched domains.
func domainKind(primary string, secondary []string) profile.DomainKind {
	if len(secondary) >= 2 {
		return profile.DomainInterdisciplinary
	}
	if professionalDomains[primary] {
		return profile.DomainProfessional
	}
	if specializedDomains[primary] {
		return profile.DomainSpecialized
	}
	return profile.DomainGeneral
}
