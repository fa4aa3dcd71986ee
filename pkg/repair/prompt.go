// Package repair turns failed quality verdicts into revision prompts for
// the next improvement cycle.
package repair

import (
	"fmt"
	"strings"

	"github.com/zen-systems/askroute/pkg/answer"
	"github.com/zen-systems/askroute/pkg/quality"
)

// GenerateImprovementPrompt builds the follow-up prompt for a failed
// verdict: the question, the rejected draft, and the failing checks with
// concrete directions.
func GenerateImprovementPrompt(question string, cand *answer.Candidate, v quality.Verdict) string {
	var sb strings.Builder

	sb.WriteString("Your previous answer to the question below failed quality checks.\n\n")
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nPrevious answer:\n---\n")
	sb.WriteString(cand.Text)
	sb.WriteString("\n---\n\n")

	sb.WriteString("Issues found:\n")
	for _, c := range v.Checks {
		if c.Passed {
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s (score %.2f): %s\n", c.Name, c.Score, c.Detail))
	}

	if len(v.Hints) > 0 {
		sb.WriteString("\nFocus on:\n")
		for _, h := range v.Hints {
			sb.WriteString("- ")
			sb.WriteString(directionFor(h))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nWrite an improved answer that fixes every issue. Reply with the answer only.")
	return sb.String()
}

// GenerateEscalationPrompt is the stronger variant for the final cycle,
// when earlier revisions kept failing the same checks.
func GenerateEscalationPrompt(question string, cand *answer.Candidate, v quality.Verdict) string {
	var sb strings.Builder

	sb.WriteString("Previous answers to this question keep failing the same quality checks.\n")
	sb.WriteString("Do NOT repeat the previous answer; rewrite it from scratch.\n\n")
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nIssues found:\n")
	for _, c := range v.Checks {
		if c.Passed {
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", c.Name, c.Detail))
	}

	sb.WriteString("\nPrevious answer:\n---\n")
	sb.WriteString(cand.Text)
	sb.WriteString("\n---\n")
	sb.WriteString("\nProvide a corrected answer that addresses every issue above.\n")
	return sb.String()
}

// directionFor translates a hint into a model-facing instruction targeting
// the text weakness rather than the engine-side remediation.
func directionFor(h quality.Hint) string {
	switch h.Check {
	case "length_structure":
		return "give a fuller answer with several complete sentences"
	case "coherence":
		return "organize the answer with a clear progression from premise to conclusion"
	case "factual_alignment":
		return "state only facts supported by the provided sources"
	case "cross_source_consistency":
		return "reconcile the answer with every source and drop unsupported claims"
	case "coverage":
		if h.Reason != "" {
			return "answer every part of the question (" + h.Reason + ")"
		}
		return "answer every part of the question"
	default:
		if h.Reason != "" {
			return h.Reason
		}
		return h.Action
	}
}
