package pipeline

import (
	"strconv"
	"strings"

	"github.com/zen-systems/askroute/pkg/plan"
)

// buildPrompt assembles the prompt for a model-call step. Tool outputs and
// retrieved context from the step's dependencies are interpolated ahead of
// the question; review-style steps receive the draft they are refining.
func (e *execution) buildPrompt(step *plan.Step) string {
	role := step.Params["role"]
	if e.revision != "" && role == "" {
		return e.revision
	}

	var sb strings.Builder
	question := step.Params["question"]
	if question == "" {
		question = e.prof.Question
	}

	if role != "" {
		draft := e.latestDraft(step)
		switch role {
		case "fact-check":
			sb.WriteString("Fact-check the draft answer below. Correct any claim the provided context does not support, then output the full corrected answer.\n\n")
		case "expert-validation":
			sb.WriteString("Review the draft answer below as a domain expert. Fix inaccuracies and fill important gaps, then output the full improved answer.\n\n")
		default:
			sb.WriteString("Review the draft answer below. Improve clarity and correctness, then output the full revised answer.\n\n")
		}
		sb.WriteString("Question: ")
		sb.WriteString(question)
		sb.WriteString("\n\nDraft:\n---\n")
		sb.WriteString(draft)
		sb.WriteString("\n---\n")
		e.writeContext(&sb, step)
		return sb.String()
	}

	sb.WriteString("Answer the question below.")
	if d := step.Params["domain"]; d != "" && d != "general" {
		sb.WriteString(" The topic is ")
		sb.WriteString(d)
		sb.WriteString(".")
	}
	switch step.Params["expertise"] {
	case "beginner":
		sb.WriteString(" Explain for a beginner, avoiding jargon.")
	case "expert":
		sb.WriteString(" The asker is an expert; be precise and skip basics.")
	}
	if step.Params["focus"] == "speed" {
		sb.WriteString(" Be concise.")
	}
	// Tight per-level budgets become a length directive; generous ones need
	// no mention.
	if n, err := strconv.Atoi(step.Params["max_tokens"]); err == nil && n > 0 && n <= 512 {
		sb.WriteString(" Keep the answer under roughly ")
		sb.WriteString(strconv.Itoa(n * 3 / 4))
		sb.WriteString(" words.")
	}
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	e.writeContext(&sb, step)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}

// writeContext appends the dependency payloads: retrieved documents first,
// then tool outputs, in plan order.
func (e *execution) writeContext(sb *strings.Builder, step *plan.Step) {
	var docs, tools []string
	for _, dep := range step.DependsOn {
		res, ok := e.results[dep]
		if !ok || res.Status != StatusSuccess {
			continue
		}
		depStep, _ := e.plan.Step(dep)
		switch depStep.Kind {
		case plan.StepRetrieve:
			if res.Payload != "" {
				docs = append(docs, res.Payload)
			}
		case plan.StepToolCall:
			if res.Payload != "" {
				tools = append(tools, depStep.Params["kind"]+": "+res.Payload)
			}
		}
	}
	if len(docs) > 0 {
		sb.WriteString("\n\nContext:\n")
		sb.WriteString(joinSections(docs))
	}
	if len(tools) > 0 {
		sb.WriteString("\n\nTool results:\n")
		sb.WriteString(joinSections(tools))
	}
}

// latestDraft finds the newest model output among the step's dependencies,
// falling back to any model output recorded so far.
func (e *execution) latestDraft(step *plan.Step) string {
	for i := len(step.DependsOn) - 1; i >= 0; i-- {
		if res, ok := e.results[step.DependsOn[i]]; ok && res.Status == StatusSuccess {
			if depStep, _ := e.plan.Step(step.DependsOn[i]); depStep.Kind == plan.StepModelCall {
				return res.Payload
			}
		}
	}
	for i := len(e.plan.Steps) - 1; i >= 0; i-- {
		s := &e.plan.Steps[i]
		if s.Kind != plan.StepModelCall {
			continue
		}
		if res, ok := e.results[s.ID]; ok && res.Status == StatusSuccess {
			return res.Payload
		}
	}
	return ""
}

func joinSections(parts []string) string {
	return strings.Join(parts, "\n\n")
}
