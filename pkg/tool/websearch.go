package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/zen-systems/askroute/pkg/profile"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// WebSearch queries the Tavily search API.
type WebSearch struct {
	apiKey     string
	maxResults int
	client     *http.Client
}

// WebSearchOption configures a WebSearch tool.
type WebSearchOption func(*WebSearch)

// WithTavilyAPIKey sets the API key explicitly instead of reading the
// environment.
func WithTavilyAPIKey(key string) WebSearchOption {
	return func(w *WebSearch) {
		w.apiKey = key
	}
}

// WithMaxResults caps the number of search results per query.
func WithMaxResults(n int) WebSearchOption {
	return func(w *WebSearch) {
		if n > 0 {
			w.maxResults = n
		}
	}
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) WebSearchOption {
	return func(w *WebSearch) {
		w.client = c
	}
}

// NewWebSearch creates a search tool. The API key defaults to the
// TAVILY_API_KEY environment variable.
func NewWebSearch(opts ...WebSearchOption) *WebSearch {
	w := &WebSearch{
		apiKey:     os.Getenv("TAVILY_API_KEY"),
		maxResults: 5,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *WebSearch) Kind() profile.ToolKind { return profile.ToolSearch }

func (w *WebSearch) Name() string { return "tavily-search" }

func (w *WebSearch) AverageLatency() time.Duration { return 3 * time.Second }

func (w *WebSearch) Reliability() float64 { return 0.9 }

// Available reports whether the tool has credentials to run.
func (w *WebSearch) Available() bool { return w.apiKey != "" }

type tavilyRequest struct {
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
	MaxResults    int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Execute searches for params["query"]. params["max_results"] overrides the
// configured cap for one call.
func (w *WebSearch) Execute(ctx context.Context, params map[string]string) (*Result, error) {
	if !w.Available() {
		return nil, &ToolError{Tool: w.Name(), Err: fmt.Errorf("TAVILY_API_KEY not set")}
	}
	query := params["query"]
	if query == "" {
		return nil, &ToolError{Tool: w.Name(), Err: fmt.Errorf("empty query")}
	}
	max := w.maxResults
	if v := params["max_results"]; v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			max = n
		}
	}

	body, err := json.Marshal(tavilyRequest{
		Query:         query,
		SearchDepth:   "advanced",
		IncludeAnswer: false,
		MaxResults:    max,
	})
	if err != nil {
		return nil, &ToolError{Tool: w.Name(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ToolError{Tool: w.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, &ToolError{Tool: w.Name(), Temporary: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ToolError{
			Tool:      w.Name(),
			Temporary: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
			Err:       fmt.Errorf("search returned status %d", resp.StatusCode),
		}
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, &ToolError{Tool: w.Name(), Err: fmt.Errorf("decode response: %w", err)}
	}

	result := &Result{
		Items:    make([]ResultItem, 0, len(tr.Results)),
		Metadata: map[string]string{"query": query},
	}
	var buf bytes.Buffer
	for i, r := range tr.Results {
		result.Items = append(result.Items, ResultItem{
			Title:   r.Title,
			Ref:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		})
		if i > 0 {
			buf.WriteString("\n\n")
		}
		fmt.Fprintf(&buf, "[%d] %s\n%s", i+1, r.Title, r.Content)
	}
	result.Output = buf.String()
	return result, nil
}
