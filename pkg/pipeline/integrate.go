package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zen-systems/askroute/pkg/answer"
	"github.com/zen-systems/askroute/pkg/plan"
)

// ErrNoUsableOutput means no step produced anything an answer could be built
// from, typically after a plan deadline cut every step off.
var ErrNoUsableOutput = errors.New("pipeline: no step produced usable output")

// integrate fuses the recorded step results into one candidate. The last
// successful model-call payload becomes the text; retrieval and tool results
// become supporting sources. Plans without a model call compose their text
// from the tool and retrieval payloads directly.
func (e *execution) integrate() (*answer.Candidate, error) {
	var sources []answer.Source
	var text, modelName string
	var confidence float64
	ensembleUsed := false

	for i := range e.plan.Steps {
		step := &e.plan.Steps[i]
		res, ok := e.results[step.ID]
		if !ok || res.Status != StatusSuccess {
			continue
		}
		sources = append(sources, res.Sources...)
		if step.Kind == plan.StepModelCall && res.Payload != "" {
			text = res.Payload
			modelName = res.Model
			confidence = res.Confidence
			ensembleUsed = res.Ensemble
		}
	}

	if text == "" {
		text, confidence = e.composeFromTools()
		if text == "" {
			return nil, ErrNoUsableOutput
		}
	}

	cand := answer.New(text, modelName, confidence, sources)
	cand.Ensemble = ensembleUsed
	cand.Metadata["template"] = e.plan.Template
	return cand, nil
}

// composeFromTools builds the answer text for plans without a model call.
// Confidence follows the completion rate, weighted toward the search and
// retrieval steps the answer leans on most.
func (e *execution) composeFromTools() (string, float64) {
	var parts []string
	total, succeeded := 0, 0
	criticalTotal, criticalOK := 0, 0

	for i := range e.plan.Steps {
		step := &e.plan.Steps[i]
		res, ok := e.results[step.ID]
		if !ok {
			continue
		}
		total++
		critical := step.Kind == plan.StepRetrieve || step.Params["kind"] == "search"
		if critical {
			criticalTotal++
		}
		if res.Status != StatusSuccess {
			continue
		}
		succeeded++
		if critical {
			criticalOK++
		}
		if res.Payload == "" {
			continue
		}
		switch step.Kind {
		case plan.StepRetrieve:
			parts = append(parts, "Relevant information:\n"+res.Payload)
		case plan.StepToolCall:
			parts = append(parts, fmt.Sprintf("Result from %s:\n%s", step.Params["kind"], res.Payload))
		}
	}
	if len(parts) == 0 {
		return "", 0
	}

	successRate := float64(succeeded) / float64(total)
	criticalRate := 1.0
	if criticalTotal > 0 {
		criticalRate = float64(criticalOK) / float64(criticalTotal)
	}
	return strings.Join(parts, "\n\n"), successRate*0.6 + criticalRate*0.4
}
