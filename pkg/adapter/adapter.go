// Package adapter wraps the answering-model provider APIs behind one
// interface. Each backend normalizes its provider's response into text plus a
// self-reported confidence; retry classification lives in error.go.
package adapter

import "context"

// ModelBackend is an answering-model provider.
type ModelBackend interface {
	// Invoke sends a prompt to the named model and returns its answer.
	Invoke(ctx context.Context, model string, prompt string) (*Response, error)

	// Name returns the backend's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}

// Response is a normalized model answer.
type Response struct {
	Text string
	// SelfConfidence is the backend's own estimate that the answer is
	// complete and well-formed, [0,1]. Providers without a native signal
	// derive it from the finish state.
	SelfConfidence float64
	Model          string
	Usage          *Usage
}

// Usage captures normalized token usage.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
