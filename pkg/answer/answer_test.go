package answer

import "testing"

func TestNewCandidate(t *testing.T) {
	c := New("Machine learning is a field of AI.", "qwen-turbo", 0.8, []Source{
		{ID: "kb-1", Origin: "retrieve", Content: "ML overview", Relevance: 0.9},
	})
	if c.ID == "" || c.Hash == "" {
		t.Fatalf("expected id and hash, got %+v", c)
	}
	if c.Version != 1 {
		t.Fatalf("version: got %d want 1", c.Version)
	}
	if len(c.Sources) != 1 || c.Sources[0].Origin != "retrieve" {
		t.Fatalf("sources: %+v", c.Sources)
	}
}

func TestNewVersionKeepsIdentity(t *testing.T) {
	first := New("draft", "qwen-turbo", 0.5, nil)
	second := first.NewVersion("improved draft", "qwen-max", 0.8, nil)

	if second.ID != first.ID {
		t.Fatalf("id changed across versions: %s vs %s", second.ID, first.ID)
	}
	if second.Version != 2 {
		t.Fatalf("version: got %d want 2", second.Version)
	}
	if second.Hash == first.Hash {
		t.Fatalf("hash should change with content")
	}
	// The original is untouched.
	if first.Text != "draft" || first.Version != 1 {
		t.Fatalf("first version mutated: %+v", first)
	}
}

func TestWithMetadataCopies(t *testing.T) {
	c := New("text", "m", 0.5, nil)
	tagged := c.WithMetadata("template", "standard")

	if tagged.Metadata["template"] != "standard" {
		t.Fatalf("metadata missing: %+v", tagged.Metadata)
	}
	if _, ok := c.Metadata["template"]; ok {
		t.Fatalf("original metadata mutated")
	}
	if tagged.Hash != c.Hash {
		t.Fatalf("metadata must not affect the content hash")
	}
}

func TestHashCoversSources(t *testing.T) {
	a := New("same", "m", 0.5, []Source{{ID: "s1"}})
	b := New("same", "m", 0.5, []Source{{ID: "s2"}})
	if a.Hash == b.Hash {
		t.Fatalf("different sources should hash differently")
	}
}
