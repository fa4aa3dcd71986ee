package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zen-systems/askroute/pkg/adapter"
	"github.com/zen-systems/askroute/pkg/profile"
)

// Translator translates text through a model backend. Translation quality
// tracks the backing model, so the tool carries the backend's failure modes.
type Translator struct {
	backend adapter.ModelBackend
	model   string
}

// NewTranslator creates the translation tool on top of a model backend.
func NewTranslator(backend adapter.ModelBackend, model string) *Translator {
	return &Translator{backend: backend, model: model}
}

func (t *Translator) Kind() profile.ToolKind { return profile.ToolTranslation }

func (t *Translator) Name() string { return "model-translator" }

func (t *Translator) AverageLatency() time.Duration { return 2 * time.Second }

func (t *Translator) Reliability() float64 { return 0.95 }

// Execute translates params["text"] (falling back to params["query"]) into
// params["target"], defaulting to English.
func (t *Translator) Execute(ctx context.Context, params map[string]string) (*Result, error) {
	text := params["text"]
	if text == "" {
		text = params["query"]
	}
	if strings.TrimSpace(text) == "" {
		return nil, &ToolError{Tool: t.Name(), Err: fmt.Errorf("empty text")}
	}
	target := params["target"]
	if target == "" {
		target = "English"
	}

	prompt := fmt.Sprintf(
		"Translate the following text into %s. Reply with the translation only.\n\n%s",
		target, text)
	resp, err := t.backend.Invoke(ctx, t.model, prompt)
	if err != nil {
		return nil, &ToolError{Tool: t.Name(), Temporary: adapter.IsTransient(err), Err: err}
	}

	return &Result{
		Output: strings.TrimSpace(resp.Text),
		Metadata: map[string]string{
			"target": target,
			"model":  resp.Model,
		},
	}, nil
}
