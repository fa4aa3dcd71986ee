package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const qwenBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

// QwenBackend implements ModelBackend for Qwen models via DashScope.
// DashScope's compatible mode uses the OpenAI API format.
type QwenBackend struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// qwenRequest represents the OpenAI-compatible request format.
type qwenRequest struct {
	Model       string        `json:"model"`
	Messages    []qwenMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// qwenMessage represents a chat message.
type qwenMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// qwenResponse represents the OpenAI-compatible response format.
type qwenResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewQwenBackend creates a new Qwen backend.
func NewQwenBackend(apiKey string) (*QwenBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("qwen API key is required")
	}

	return &QwenBackend{
		apiKey:     apiKey,
		baseURL:    qwenBaseURL,
		httpClient: &http.Client{},
	}, nil
}

// Name returns the backend identifier.
func (a *QwenBackend) Name() string {
	return "qwen"
}

// Models returns the list of supported Qwen models.
func (a *QwenBackend) Models() []string {
	return []string{
		"qwen-turbo",
		"qwen-plus",
		"qwen-max",
	}
}

// Invoke sends a prompt to Qwen and returns the normalized response.
func (a *QwenBackend) Invoke(ctx context.Context, model string, prompt string) (*Response, error) {
	reqBody := qwenRequest{
		Model: model,
		Messages: []qwenMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens: 4096,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &ModelError{Backend: a.Name(), Temporary: true, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ModelError{Backend: a.Name(), Temporary: true, Err: err}
	}

	var qwenResp qwenResponse
	if err := json.Unmarshal(body, &qwenResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if qwenResp.Error != nil {
		return nil, &ModelError{
			Backend: a.Name(),
			Status:  resp.StatusCode,
			Err: fmt.Errorf("%s (type: %s, code: %s)",
				qwenResp.Error.Message, qwenResp.Error.Type, qwenResp.Error.Code),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ModelError{
			Backend: a.Name(),
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("status %d: %s", resp.StatusCode, string(body)),
		}
	}

	if len(qwenResp.Choices) == 0 {
		return nil, &ModelError{Backend: a.Name(), Err: fmt.Errorf("no choices returned")}
	}

	choice := qwenResp.Choices[0]
	confidence := 0.8
	if choice.FinishReason == "length" {
		confidence = 0.6 // truncated answer
	}

	return &Response{
		Text:           choice.Message.Content,
		SelfConfidence: confidence,
		Model:          model,
		Usage: &Usage{
			PromptTokens:     qwenResp.Usage.PromptTokens,
			CompletionTokens: qwenResp.Usage.CompletionTokens,
			TotalTokens:      qwenResp.Usage.TotalTokens,
		},
	}, nil
}
