package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockBackend returns deterministic responses for local runs and tests.
// Knobs are safe for concurrent invocations.
type MockBackend struct {
	// Confidence is the self-reported confidence of every answer.
	Confidence float64
	// Err, when set, fails every Invoke.
	Err error
	// FailCount fails this many Invokes with a transient error before
	// succeeding, for retry behavior.
	FailCount int
	// Delay simulates provider latency.
	Delay time.Duration

	mu              sync.Mutex
	name            string
	responses       map[string]string
	defaultResponse string
	calls           int
	failed          int
}

// NewMockBackend creates a mock backend with a default response.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		Confidence:      0.8,
		name:            "mock",
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
	}
}

// NewMockBackendWithResponses creates a mock backend with predefined
// per-prompt responses.
func NewMockBackendWithResponses(responses map[string]string, defaultResponse string) *MockBackend {
	if defaultResponse == "" {
		defaultResponse = "mock response:"
	}
	return &MockBackend{
		Confidence:      0.8,
		name:            "mock",
		responses:       responses,
		defaultResponse: defaultResponse,
	}
}

// Named returns the same backend under a different name, for registries that
// need several distinct mock providers.
func (a *MockBackend) Named(name string) *MockBackend {
	a.name = name
	return a
}

// Name returns the backend identifier.
func (a *MockBackend) Name() string {
	return a.name
}

// Models returns the list of supported mock models.
func (a *MockBackend) Models() []string {
	return []string{"mock-1"}
}

// Calls reports how many times Invoke ran.
func (a *MockBackend) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Invoke returns a deterministic response for the prompt.
func (a *MockBackend) Invoke(ctx context.Context, model string, prompt string) (*Response, error) {
	a.mu.Lock()
	a.calls++
	mustFail := a.failed < a.FailCount
	if mustFail {
		a.failed++
	}
	a.mu.Unlock()

	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.Err != nil {
		return nil, a.Err
	}
	if mustFail {
		return nil, &ModelError{Backend: a.name, Status: 503, Temporary: true,
			Err: fmt.Errorf("simulated outage")}
	}

	if model == "" {
		model = "mock-1"
	}
	text, ok := a.responses[prompt]
	if !ok {
		text = fmt.Sprintf("%s\n%s", a.defaultResponse, prompt)
	}
	return &Response{
		Text:           text,
		SelfConfidence: a.Confidence,
		Model:          model,
		Usage: &Usage{
			PromptTokens:     len(prompt) / 4,
			CompletionTokens: len(text) / 4,
			TotalTokens:      (len(prompt) + len(text)) / 4,
		},
	}, nil
}
