// Package knowledge defines the retrieval boundary the engine depends on and
// an in-memory index used for local runs and tests.
package knowledge

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrRetrievalUnavailable marks a retrieval backend outage. The orchestrator
// treats it as a retryable step failure.
var ErrRetrievalUnavailable = errors.New("knowledge retrieval unavailable")

// Document is one retrieved piece of supporting content.
type Document struct {
	Content        string
	SourceID       string
	RelevanceScore float64 // [0,1]
	Timestamp      time.Time
	Metadata       map[string]string
}

// Retriever searches a knowledge store. Results come back ordered by
// descending relevance, at most topK of them.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, filters map[string]string) ([]Document, error)
}

// extractKeywords splits a query into content-bearing terms.
func extractKeywords(query string) []string {
	words := strings.Fields(strings.ToLower(query))
	stopWords := map[string]bool{
		"the": true, "a": true, "an": true, "is": true, "are": true,
		"what": true, "how": true, "where": true, "when": true, "why": true,
		"to": true, "of": true, "in": true, "for": true, "on": true,
		"and": true, "or": true, "but": true, "with": true,
	}

	var keywords []string
	for _, w := range words {
		w = strings.Trim(w, ".,!?\"'")
		if len(w) > 2 && !stopWords[w] {
			keywords = append(keywords, w)
		}
	}
	return keywords
}

// relevance scores keyword overlap between content and query terms.
func relevance(content string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	matches := 0
	for _, kw := range keywords {
		if strings.Contains(content, kw) {
			matches++
		}
	}
	return float64(matches) / float64(len(keywords))
}
