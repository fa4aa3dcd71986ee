package tool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/zen-systems/askroute/pkg/adapter"
	"github.com/zen-systems/askroute/pkg/profile"
)

type staticTool struct {
	kind profile.ToolKind
	name string
}

func (s *staticTool) Kind() profile.ToolKind        { return s.kind }
func (s *staticTool) Name() string                  { return s.name }
func (s *staticTool) AverageLatency() time.Duration { return time.Second }
func (s *staticTool) Reliability() float64          { return 1 }

func (s *staticTool) Execute(ctx context.Context, params map[string]string) (*Result, error) {
	return &Result{Output: s.name}, nil
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(&staticTool{kind: profile.ToolSearch, name: "s1"})
	r.Register(&staticTool{kind: profile.ToolComputation, name: "c1"})

	got, ok := r.Get(profile.ToolSearch)
	if !ok || got.Name() != "s1" {
		t.Fatalf("Get(search) = %v, %v; want s1, true", got, ok)
	}
	if _, ok := r.Get(profile.ToolTranslation); ok {
		t.Fatal("Get(translation) should miss")
	}

	r.Register(&staticTool{kind: profile.ToolSearch, name: "s2"})
	got, _ = r.Get(profile.ToolSearch)
	if got.Name() != "s2" {
		t.Fatalf("re-register did not replace: got %s", got.Name())
	}
}

func TestRegistryKindsStable(t *testing.T) {
	r := NewRegistry()
	r.Register(&staticTool{kind: profile.ToolTranslation, name: "t"})
	r.Register(&staticTool{kind: profile.ToolSearch, name: "s"})
	r.Register(&staticTool{kind: profile.ToolComputation, name: "c"})

	first := r.Kinds()
	for i := 0; i < 5; i++ {
		again := r.Kinds()
		if len(again) != len(first) {
			t.Fatalf("Kinds length changed: %d vs %d", len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("Kinds order changed at %d: %s vs %s", j, again[j], first[j])
			}
		}
	}
	if len(r.All()) != 3 {
		t.Fatalf("All() = %d tools, want 3", len(r.All()))
	}
}

func TestRegistryObservedPerformance(t *testing.T) {
	r := NewRegistry()
	r.Register(&staticTool{kind: profile.ToolSearch, name: "s"})

	// Cold start falls back to declared figures.
	if got := r.PlannedLatency(profile.ToolSearch); got != time.Second {
		t.Fatalf("cold PlannedLatency = %s, want 1s", got)
	}
	if got := r.SuccessRate(profile.ToolSearch); got != 1 {
		t.Fatalf("cold SuccessRate = %g, want 1", got)
	}

	r.Observe(profile.ToolSearch, 100*time.Millisecond, true)
	r.Observe(profile.ToolSearch, 300*time.Millisecond, false)

	if got := r.PlannedLatency(profile.ToolSearch); got != 200*time.Millisecond {
		t.Fatalf("PlannedLatency = %s, want 200ms", got)
	}
	if got := r.SuccessRate(profile.ToolSearch); got != 0.5 {
		t.Fatalf("SuccessRate = %g, want 0.5", got)
	}

	// Unregistered kinds report zero either way.
	if got := r.PlannedLatency(profile.ToolComputation); got != 0 {
		t.Fatalf("unknown PlannedLatency = %s, want 0", got)
	}
	if got := r.SuccessRate(profile.ToolComputation); got != 0 {
		t.Fatalf("unknown SuccessRate = %g, want 0", got)
	}
}

func TestCalculatorExpressions(t *testing.T) {
	c := NewCalculator()
	cases := []struct {
		expr string
		want float64
	}{
		{"2+3*4", 14},
		{"(2+3)*4", 20},
		{"10/4", 2.5},
		{"2^10", 1024},
		{"-3 + 5", 2},
		{"15% * 2400", 360},
	}
	for _, tc := range cases {
		res, err := c.Execute(context.Background(), map[string]string{"expression": tc.expr})
		if err != nil {
			t.Fatalf("Execute(%q) error: %v", tc.expr, err)
		}
		if got := res.Metadata["value"]; got == "" {
			t.Fatalf("Execute(%q) missing value metadata", tc.expr)
		}
		want := fmt.Sprintf("%g", tc.want)
		if got := res.Metadata["value"]; got != want {
			t.Fatalf("Execute(%q) = %s, want %s", tc.expr, got, want)
		}
	}
}

func TestCalculatorFromFreeText(t *testing.T) {
	c := NewCalculator()
	res, err := c.Execute(context.Background(), map[string]string{
		"query": "what is 12 + 30 * 2 in total?",
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if res.Metadata["value"] != "72" {
		t.Fatalf("value = %s, want 72", res.Metadata["value"])
	}
}

func TestCalculatorErrors(t *testing.T) {
	c := NewCalculator()

	_, err := c.Execute(context.Background(), map[string]string{"expression": "1/0"})
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("want ToolError, got %v", err)
	}
	if te.Temporary {
		t.Fatal("division by zero should not be temporary")
	}

	_, err = c.Execute(context.Background(), map[string]string{"query": "no math here"})
	if !errors.As(err, &te) {
		t.Fatalf("want ToolError for no expression, got %v", err)
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func searchClient(status int, body string) *http.Client {
	return &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
		}, nil
	})}
}

func TestWebSearchExecute(t *testing.T) {
	body := `{"results":[
		{"title":"A","url":"https://a.example","content":"alpha","score":0.9},
		{"title":"B","url":"https://b.example","content":"beta","score":0.7}]}`
	w := NewWebSearch(
		WithTavilyAPIKey("test-key"),
		WithMaxResults(2),
		WithHTTPClient(searchClient(http.StatusOK, body)),
	)

	res, err := w.Execute(context.Background(), map[string]string{"query": "alpha beta"})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(res.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(res.Items))
	}
	if res.Items[0].Ref != "https://a.example" {
		t.Fatalf("first ref = %s", res.Items[0].Ref)
	}
	if !strings.Contains(res.Output, "[1] A") || !strings.Contains(res.Output, "beta") {
		t.Fatalf("output missing entries: %q", res.Output)
	}
}

func TestWebSearchServerError(t *testing.T) {
	w := NewWebSearch(
		WithTavilyAPIKey("test-key"),
		WithHTTPClient(searchClient(http.StatusServiceUnavailable, "{}")),
	)
	_, err := w.Execute(context.Background(), map[string]string{"query": "x"})
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("want ToolError, got %v", err)
	}
	if !te.Temporary {
		t.Fatal("5xx should be temporary")
	}
}

func TestWebSearchRequiresKey(t *testing.T) {
	w := NewWebSearch(WithTavilyAPIKey(""))
	if w.Available() {
		t.Fatal("Available should be false without key")
	}
	if _, err := w.Execute(context.Background(), map[string]string{"query": "x"}); err == nil {
		t.Fatal("Execute should fail without key")
	}
}

func TestTranslatorExecute(t *testing.T) {
	backend := adapter.NewMockBackend()
	tr := NewTranslator(backend, "mock-1")

	res, err := tr.Execute(context.Background(), map[string]string{
		"text":   "bonjour",
		"target": "English",
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if res.Output == "" {
		t.Fatal("empty translation")
	}
	if res.Metadata["target"] != "English" {
		t.Fatalf("target = %s", res.Metadata["target"])
	}
	if backend.Calls() != 1 {
		t.Fatalf("backend calls = %d, want 1", backend.Calls())
	}
}

func TestTranslatorBackendFailure(t *testing.T) {
	backend := adapter.NewMockBackend()
	backend.FailCount = 1
	tr := NewTranslator(backend, "mock-1")

	_, err := tr.Execute(context.Background(), map[string]string{"text": "hola"})
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("want ToolError, got %v", err)
	}
	if !te.Temporary {
		t.Fatal("transient backend failure should be temporary")
	}
}

func TestToolErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &ToolError{Tool: "x", Err: inner}
	if !errors.Is(err, inner) {
		t.Fatal("Unwrap lost inner error")
	}
	if want := "tool x: boom"; err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
