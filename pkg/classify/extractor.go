package classify

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/zen-systems/askroute/pkg/profile"
)

// Query is the pre-segmented form of a question shared by all extractors.
// Segmentation happens once per classification so extractors stay cheap and
// see identical input.
type Query struct {
	Text   string
	Lower  string
	Tokens []string
}

// Extractor analyzes one axis of a question. Implementations must be pure:
// identical input produces identical output, with no hidden mutable state.
type Extractor interface {
	// Name identifies the extractor in logs and degraded-axis reports.
	Name() string

	// Analyze produces this extractor's feature for the query.
	Analyze(ctx context.Context, q Query) (profile.Feature, error)
}

// PartialAnalysisError marks a single extractor failure. The classifier
// recovers it by substituting the extractor's neutral default; it is never
// surfaced to callers of Classify.
type PartialAnalysisError struct {
	Extractor string
	Err       error
}

func (e *PartialAnalysisError) Error() string {
	return fmt.Sprintf("extractor %s failed: %v", e.Extractor, e.Err)
}

func (e *PartialAnalysisError) Unwrap() error {
	return e.Err
}

// Segmenter splits question text into tokens. It must be pure and
// side-effect-free; the engine treats it as an external service.
type Segmenter interface {
	Segment(text string) []string
}

// SegmenterFunc adapts a function to the Segmenter interface.
type SegmenterFunc func(text string) []string

// Segment calls f.
func (f SegmenterFunc) Segment(text string) []string {
	return f(text)
}

// DefaultSegmenter splits on Unicode whitespace and strips surrounding
// punctuation, keeping intra-word hyphens and apostrophes.
func DefaultSegmenter() Segmenter {
	return SegmenterFunc(func(text string) []string {
		fields := strings.FieldsFunc(text, unicode.IsSpace)
		tokens := make([]string, 0, len(fields))
		for _, f := range fields {
			t := strings.TrimFunc(f, func(r rune) bool {
				return unicode.IsPunct(r) && r != '-' && r != '\''
			})
			if t != "" {
				tokens = append(tokens, t)
			}
		}
		return tokens
	})
}

// newQuery builds the shared query view for one classification.
func newQuery(text string, seg Segmenter) Query {
	return Query{
		Text:   text,
		Lower:  strings.ToLower(text),
		Tokens: seg.Segment(strings.ToLower(text)),
	}
}

// countOccurrences counts non-overlapping occurrences of needle in haystack.
func countOccurrences(haystack, needle string) int {
	if needle == "" {
		return 0
	}
	return strings.Count(haystack, needle)
}

// keywordWeight scores one matched keyword the way every keyword-driven
// extractor does: a base weight plus boosts for leading position, repeats,
// and short questions where a single keyword dominates.
func keywordWeight(q Query, keyword string, base float64) float64 {
	w := base
	if strings.HasPrefix(q.Lower, keyword) {
		w += 0.5
	}
	if n := countOccurrences(q.Lower, keyword); n > 1 {
		w += float64(n-1) * 0.2
	}
	if len(q.Text) < 30 {
		w += 0.3
	}
	return w
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
