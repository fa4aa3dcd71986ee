package repair

import (
	"strings"
	"testing"

	"github.com/zen-systems/askroute/pkg/answer"
	"github.com/zen-systems/askroute/pkg/quality"
)

func failedVerdict() quality.Verdict {
	return quality.Verdict{
		Passed:     false,
		Confidence: 0.42,
		Checks: []quality.CheckResult{
			{Name: "length_structure", Score: 0.3, Passed: false, Detail: "structure score 0.3"},
			{Name: "coverage", Score: 0.5, Passed: false, Detail: "1 of 2 question aspects covered: missing reason"},
			{Name: "coherence", Score: 0.8, Passed: true},
		},
		Hints: []quality.Hint{
			{Check: "length_structure", Action: quality.ActionUseStrongerModel, Reason: "structure score 0.3"},
			{Check: "coverage", Action: quality.ActionGatherMoreInformation, Reason: "1 of 2 question aspects covered: missing reason"},
		},
	}
}

func TestGenerateImprovementPrompt(t *testing.T) {
	cand := answer.New("Too short.", "qwen-turbo", 0.4, nil)

	prompt := GenerateImprovementPrompt("Why is the sky blue?", cand, failedVerdict())
	if !strings.Contains(prompt, "Why is the sky blue?") {
		t.Fatalf("missing question: %q", prompt)
	}
	if !strings.Contains(prompt, "Too short.") {
		t.Fatalf("missing previous answer: %q", prompt)
	}
	if !strings.Contains(prompt, "length_structure") || !strings.Contains(prompt, "coverage") {
		t.Fatalf("missing failing checks: %q", prompt)
	}
	if strings.Contains(prompt, "coherence") {
		t.Fatalf("passing check should not be listed: %q", prompt)
	}
	if !strings.Contains(prompt, "answer every part of the question") {
		t.Fatalf("missing coverage direction: %q", prompt)
	}
}

func TestGenerateEscalationPromptForbidsRepeat(t *testing.T) {
	cand := answer.New("Too short.", "qwen-turbo", 0.4, nil)

	prompt := GenerateEscalationPrompt("Why is the sky blue?", cand, failedVerdict())
	if !strings.Contains(prompt, "Do NOT repeat the previous answer") {
		t.Fatalf("missing repeat warning: %q", prompt)
	}
	if !strings.Contains(prompt, "Too short.") {
		t.Fatalf("missing previous answer: %q", prompt)
	}
}
