package knowledge

import (
	"context"
	"errors"
	"testing"
)

func seededIndex() *MemoryIndex {
	idx := NewMemoryIndex()
	idx.StoreFact("Machine learning is a branch of artificial intelligence focused on learning from data.")
	idx.StoreFact("Photosynthesis converts sunlight into chemical energy in plants.")
	idx.StoreFact("Kubernetes orchestrates containerized workloads across machine clusters.")
	return idx
}

func TestRetrieveRanksByRelevance(t *testing.T) {
	idx := seededIndex()
	docs, err := idx.Retrieve(context.Background(), "what is machine learning", 5, nil)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(docs) == 0 {
		t.Fatalf("expected results")
	}
	if docs[0].SourceID != "memory:mem_1" {
		t.Fatalf("best match: got %s", docs[0].SourceID)
	}
	for i := 1; i < len(docs); i++ {
		if docs[i].RelevanceScore > docs[i-1].RelevanceScore {
			t.Fatalf("results out of order at %d", i)
		}
	}
}

func TestRetrieveTopK(t *testing.T) {
	idx := NewMemoryIndex()
	for i := 0; i < 10; i++ {
		idx.StoreFact("the go language compiles fast")
	}
	docs, err := idx.Retrieve(context.Background(), "go language", 3, nil)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("topK: got %d want 3", len(docs))
	}
}

func TestRetrieveFilters(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Store(Entry{Content: "stored conversation about go routines", Kind: "conversation"})
	idx.Store(Entry{Content: "a fact about go routines", Kind: "fact"})

	docs, err := idx.Retrieve(context.Background(), "go routines", 5, map[string]string{"kind": "fact"})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("filter: got %d docs want 1", len(docs))
	}
	if docs[0].Content != "a fact about go routines" {
		t.Fatalf("wrong doc: %q", docs[0].Content)
	}
}

func TestRetrieveUnavailable(t *testing.T) {
	idx := seededIndex()
	idx.SetAvailable(false)
	if _, err := idx.Retrieve(context.Background(), "anything", 5, nil); !errors.Is(err, ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
	idx.SetAvailable(true)
	if _, err := idx.Retrieve(context.Background(), "anything", 5, nil); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
}

func TestStoreEviction(t *testing.T) {
	idx := NewMemoryIndex(WithMaxItems(3))
	for i := 0; i < 5; i++ {
		idx.StoreFact("entry")
	}
	if idx.Count() != 3 {
		t.Fatalf("count: got %d want 3", idx.Count())
	}
}

func TestRetrieveHonorsCancellation(t *testing.T) {
	idx := seededIndex()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := idx.Retrieve(ctx, "machine learning", 5, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
