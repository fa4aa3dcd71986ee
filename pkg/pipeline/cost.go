package pipeline

import (
	"sync"

	"github.com/zen-systems/askroute/pkg/adapter"
	"github.com/zen-systems/askroute/pkg/config"
)

// CostReport totals the model spend of one plan execution. Amounts are
// estimates from the catalog's per-1K prices.
type CostReport struct {
	Currency string        `json:"currency"`
	Amount   float64       `json:"amount"`
	Usage    adapter.Usage `json:"usage"`
	Calls    int           `json:"calls"`
}

// costTracker accumulates usage across the model calls of one execution.
// Ensemble members report concurrently, hence the mutex.
type costTracker struct {
	mu     sync.Mutex
	totals CostReport
}

func newCostTracker() *costTracker {
	return &costTracker{totals: CostReport{Currency: "USD"}}
}

func (t *costTracker) record(spec config.ModelSpec, usage *adapter.Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totals.Calls++
	if usage == nil {
		return
	}
	u := *usage
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	t.totals.Usage.PromptTokens += u.PromptTokens
	t.totals.Usage.CompletionTokens += u.CompletionTokens
	t.totals.Usage.TotalTokens += u.TotalTokens
	t.totals.Amount += float64(u.PromptTokens)/1000.0*spec.PromptPer1K +
		float64(u.CompletionTokens)/1000.0*spec.CompletionPer1K
}

func (t *costTracker) report() CostReport {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totals
}
