// Package tool defines the auxiliary-capability boundary: web search,
// computation, and translation backends invoked by plan steps. Each tool
// declares the latency and reliability figures planning reads.
package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zen-systems/askroute/pkg/profile"
)

// Result is a tool's output.
type Result struct {
	Output   string
	Items    []ResultItem
	Metadata map[string]string
}

// ResultItem is one entry of a multi-result tool output, such as a search hit.
type ResultItem struct {
	Title   string
	Ref     string
	Content string
	Score   float64
}

// Tool is one auxiliary capability.
type Tool interface {
	// Kind names the capability this tool provides.
	Kind() profile.ToolKind

	// Name identifies the concrete implementation.
	Name() string

	// Execute runs the tool with string-keyed params.
	Execute(ctx context.Context, params map[string]string) (*Result, error)

	// AverageLatency is the planning estimate for one execution.
	AverageLatency() time.Duration

	// Reliability is the planning estimate of success probability, [0,1].
	Reliability() float64
}

// ToolError wraps tool failures with retry metadata.
type ToolError struct {
	Tool      string
	Temporary bool
	Err       error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("tool %s failed", e.Tool)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Registry maps tool kinds to implementations and tracks their observed
// performance. Registration happens at startup; lookups and observations
// afterwards are concurrent-safe.
type Registry struct {
	mu    sync.RWMutex
	tools map[profile.ToolKind]Tool
	perf  map[profile.ToolKind]*perfSample
}

// perfSample aggregates observed executions of one tool kind.
type perfSample struct {
	runs      int
	successes int
	totalLat  time.Duration
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[profile.ToolKind]Tool),
		perf:  make(map[profile.ToolKind]*perfSample),
	}
}

// Register adds a tool, replacing any previous tool of the same kind.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	r.tools[t.Kind()] = t
	r.mu.Unlock()
}

// Get returns the tool for a kind.
func (r *Registry) Get(kind profile.ToolKind) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[kind]
	return t, ok
}

// Observe folds one execution outcome into the kind's running aggregates.
func (r *Registry) Observe(kind profile.ToolKind, latency time.Duration, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.perf[kind]
	if s == nil {
		s = &perfSample{}
		r.perf[kind] = s
	}
	s.runs++
	if ok {
		s.successes++
	}
	s.totalLat += latency
}

// PlannedLatency returns the observed average execution latency for a kind.
// Before any runs it falls back to the tool's declared estimate.
func (r *Registry) PlannedLatency(kind profile.ToolKind) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s := r.perf[kind]; s != nil && s.runs > 0 {
		return s.totalLat / time.Duration(s.runs)
	}
	if t, ok := r.tools[kind]; ok {
		return t.AverageLatency()
	}
	return 0
}

// SuccessRate returns the observed success rate for a kind. Before any runs
// it falls back to the tool's declared reliability.
func (r *Registry) SuccessRate(kind profile.ToolKind) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s := r.perf[kind]; s != nil && s.runs > 0 {
		return float64(s.successes) / float64(s.runs)
	}
	if t, ok := r.tools[kind]; ok {
		return t.Reliability()
	}
	return 0
}

// Kinds returns the registered kinds in stable order.
func (r *Registry) Kinds() []profile.ToolKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]profile.ToolKind, 0, len(r.tools))
	for k := range r.tools {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// All returns the registered tools in stable kind order.
func (r *Registry) All() []Tool {
	kinds := r.Kinds()
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]Tool, 0, len(kinds))
	for _, k := range kinds {
		tools = append(tools, r.tools[k])
	}
	return tools
}
