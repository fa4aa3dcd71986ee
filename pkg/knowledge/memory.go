package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry is one stored piece of information in the in-memory index.
type Entry struct {
	ID        string
	Content   string
	Kind      string // "fact", "conversation", "document"
	Timestamp time.Time
	Metadata  map[string]string
}

// MemoryIndex is a keyword-matching Retriever backed by process memory.
type MemoryIndex struct {
	mu          sync.RWMutex
	entries     []Entry
	maxItems    int
	unavailable bool
	nextID      int64
}

// MemoryOption configures a MemoryIndex.
type MemoryOption func(*MemoryIndex)

// WithMaxItems sets the maximum number of entries to keep.
func WithMaxItems(max int) MemoryOption {
	return func(m *MemoryIndex) {
		m.maxItems = max
	}
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex(opts ...MemoryOption) *MemoryIndex {
	m := &MemoryIndex{
		entries:  make([]Entry, 0),
		maxItems: 1000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetAvailable toggles outage simulation. While unavailable every Retrieve
// fails with ErrRetrievalUnavailable.
func (m *MemoryIndex) SetAvailable(ok bool) {
	m.mu.Lock()
	m.unavailable = !ok
	m.mu.Unlock()
}

// Retrieve implements Retriever.
func (m *MemoryIndex) Retrieve(ctx context.Context, query string, topK int, filters map[string]string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.unavailable {
		return nil, ErrRetrievalUnavailable
	}
	if topK <= 0 {
		topK = 5
	}

	keywords := extractKeywords(query)
	var docs []Document
	for _, entry := range m.entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if !matchesFilters(entry, filters) {
			continue
		}
		score := relevance(strings.ToLower(entry.Content), keywords)
		if score > 0.1 {
			docs = append(docs, Document{
				Content:        entry.Content,
				SourceID:       "memory:" + entry.ID,
				RelevanceScore: score,
				Timestamp:      entry.Timestamp,
				Metadata:       entry.Metadata,
			})
		}
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].RelevanceScore > docs[j].RelevanceScore
	})
	if len(docs) > topK {
		docs = docs[:topK]
	}
	return docs, nil
}

// Store adds an entry to the index, evicting the oldest past capacity.
func (m *MemoryIndex) Store(entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == "" {
		m.nextID++
		entry.ID = fmt.Sprintf("mem_%d", m.nextID)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	m.entries = append(m.entries, entry)
	if len(m.entries) > m.maxItems {
		m.entries = m.entries[len(m.entries)-m.maxItems:]
	}
}

// StoreFact stores a plain fact entry.
func (m *MemoryIndex) StoreFact(fact string, tags ...string) {
	m.Store(Entry{
		Content: fact,
		Kind:    "fact",
		Metadata: map[string]string{
			"tags": strings.Join(tags, ","),
		},
	})
}

// Count returns the number of stored entries.
func (m *MemoryIndex) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Clear removes all entries.
func (m *MemoryIndex) Clear() {
	m.mu.Lock()
	m.entries = make([]Entry, 0)
	m.mu.Unlock()
}

func matchesFilters(entry Entry, filters map[string]string) bool {
	for k, want := range filters {
		if k == "kind" {
			if entry.Kind != want {
				return false
			}
			continue
		}
		if entry.Metadata[k] != want {
			return false
		}
	}
	return true
}
