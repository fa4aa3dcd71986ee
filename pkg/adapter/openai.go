package adapter

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// OpenAIBackend implements ModelBackend for OpenAI models.
type OpenAIBackend struct {
	client openai.Client
}

// NewOpenAIBackend creates a new OpenAI backend.
func NewOpenAIBackend(apiKey string) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	client := openai.NewClient()
	return &OpenAIBackend{client: client}, nil
}

// Name returns the backend identifier.
func (a *OpenAIBackend) Name() string {
	return "openai"
}

// Models returns the list of supported OpenAI models.
func (a *OpenAIBackend) Models() []string {
	return []string{
		"gpt-5.2-instant",
		"gpt-5.2-pro",
	}
}

// Invoke sends a prompt to OpenAI and returns the normalized response.
func (a *OpenAIBackend) Invoke(ctx context.Context, model string, prompt string) (*Response, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(4096),
	})
	if err != nil {
		return nil, &ModelError{Backend: a.Name(), Err: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &ModelError{Backend: a.Name(), Err: fmt.Errorf("no choices returned")}
	}

	choice := resp.Choices[0]
	confidence := 0.8
	if choice.FinishReason == "length" {
		confidence = 0.6 // truncated answer
	}

	return &Response{
		Text:           choice.Message.Content,
		SelfConfidence: confidence,
		Model:          model,
		Usage: &Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}
