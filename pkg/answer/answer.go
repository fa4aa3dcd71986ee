// Package answer defines the candidate produced by plan execution and the
// final result returned to callers. Candidates are immutable and versioned:
// each improvement cycle derives a new version instead of editing the last.
package answer

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Source is one provenance reference backing a candidate.
type Source struct {
	ID        string  `json:"id"`
	Origin    string  `json:"origin"` // step id that produced it
	Content   string  `json:"content"`
	Relevance float64 `json:"relevance"`
}

// Candidate is the integrated output of one plan execution.
type Candidate struct {
	ID            string            `json:"id"`
	Version       int               `json:"version"`
	Text          string            `json:"text"`
	Sources       []Source          `json:"sources,omitempty"`
	Model         string            `json:"model,omitempty"`
	Ensemble      bool              `json:"ensemble,omitempty"`
	RawConfidence float64           `json:"raw_confidence"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	Hash          string            `json:"hash"`
}

// New creates a first-version candidate with computed hash.
func New(text, model string, confidence float64, sources []Source) *Candidate {
	c := &Candidate{
		ID:            uuid.NewString(),
		Version:       1,
		Text:          text,
		Sources:       sources,
		Model:         model,
		RawConfidence: confidence,
		Metadata:      make(map[string]string),
		CreatedAt:     time.Now().UTC(),
	}
	c.Hash = c.computeHash()
	return c
}

// NewVersion derives the next improvement-cycle version. The id is kept so
// the feedback trail links all versions of one query's answer.
func (c *Candidate) NewVersion(text, model string, confidence float64, sources []Source) *Candidate {
	next := &Candidate{
		ID:            c.ID,
		Version:       c.Version + 1,
		Text:          text,
		Sources:       sources,
		Model:         model,
		RawConfidence: confidence,
		Metadata:      copyMetadata(c.Metadata),
		CreatedAt:     time.Now().UTC(),
	}
	next.Hash = next.computeHash()
	return next
}

// WithMetadata returns a copy carrying an extra metadata entry.
func (c *Candidate) WithMetadata(key, value string) *Candidate {
	next := &Candidate{
		ID:            c.ID,
		Version:       c.Version,
		Text:          c.Text,
		Sources:       c.Sources,
		Model:         c.Model,
		Ensemble:      c.Ensemble,
		RawConfidence: c.RawConfidence,
		Metadata:      copyMetadata(c.Metadata),
		CreatedAt:     c.CreatedAt,
		Hash:          c.Hash,
	}
	next.Metadata[key] = value
	return next
}

func (c *Candidate) computeHash() string {
	h := sha256.New()
	h.Write([]byte(c.Text))
	h.Write([]byte(c.Model))
	for _, s := range c.Sources {
		h.Write([]byte(s.ID))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func copyMetadata(m map[string]string) map[string]string {
	newM := make(map[string]string, len(m))
	for k, v := range m {
		newM[k] = v
	}
	return newM
}

// Final is the caller-visible result of answering one question.
type Final struct {
	Text           string        `json:"text"`
	Confidence     float64       `json:"confidence"`
	Passed         bool          `json:"passed"`
	ProcessingTime time.Duration `json:"processing_time"`
	Template       string        `json:"template,omitempty"`
	Model          string        `json:"model,omitempty"`
	Cycles         int           `json:"cycles"`
	Degraded       []string      `json:"degraded,omitempty"`
}
