package adapter

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GoogleBackend implements ModelBackend for Gemini models.
type GoogleBackend struct {
	client *genai.Client
}

// NewGoogleBackend creates a new Google Gemini backend.
func NewGoogleBackend(apiKey string) (*GoogleBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &GoogleBackend{
		client: client,
	}, nil
}

// Name returns the backend identifier.
func (a *GoogleBackend) Name() string {
	return "google"
}

// Models returns the list of supported Gemini models.
func (a *GoogleBackend) Models() []string {
	return []string{
		"gemini-2.0-pro",
	}
}

// Invoke sends a prompt to Gemini and returns the normalized response.
func (a *GoogleBackend) Invoke(ctx context.Context, model string, prompt string) (*Response, error) {
	resp, err := a.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return nil, &ModelError{Backend: a.Name(), Err: err}
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, &ModelError{Backend: a.Name(), Err: fmt.Errorf("no candidates returned")}
	}

	var content string
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
		}
	}

	confidence := 0.75
	if resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		confidence = 0.6 // truncated answer
	}

	return &Response{
		Text:           content,
		SelfConfidence: confidence,
		Model:          model,
	}, nil
}
