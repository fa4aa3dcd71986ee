package classify

import (
	"context"
	"testing"
	"time"

	"github.com/zen-systems/askroute/pkg/profile"
)

func analyzeWith(t *testing.T, ex Extractor, question string) profile.Feature {
	t.Helper()
	q := newQuery(question, DefaultSegmenter())
	feat, err := ex.Analyze(context.Background(), q)
	if err != nil {
		t.Fatalf("%s analyze: %v", ex.Name(), err)
	}
	return feat
}

func TestDefaultSegmenter(t *testing.T) {
	tokens := DefaultSegmenter().Segment("What's the state-of-the-art, really?")
	want := []string{"What's", "the", "state-of-the-art", "really"}
	if len(tokens) != len(want) {
		t.Fatalf("token count: got %v want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Fatalf("token %d: got %q want %q", i, tokens[i], want[i])
		}
	}
}

func TestComplexitySimpleQuestion(t *testing.T) {
	feat := analyzeWith(t, NewComplexityExtractor(), "What is machine learning?")
	if feat.ComplexityLevel > 1 {
		t.Fatalf("expected trivial level, got %d (score %.2f)", feat.ComplexityLevel, feat.Complexity)
	}
	if feat.Complexity < 0 || feat.Complexity > 5 {
		t.Fatalf("score out of range: %.2f", feat.Complexity)
	}
}

func TestComplexityAnalyticalQuestion(t *testing.T) {
	q := "Compare and evaluate the trade-offs between quantum cryptographic protocols and " +
		"classical encryption algorithms, explain why distributed systems need them, and " +
		"assess the implications for financial markets and regulatory compliance."
	feat := analyzeWith(t, NewComplexityExtractor(), q)
	if feat.ComplexityLevel < 3 {
		t.Fatalf("expected level >= 3, got %d (score %.2f)", feat.ComplexityLevel, feat.Complexity)
	}
	simple := analyzeWith(t, NewComplexityExtractor(), "What is machine learning?")
	if feat.Complexity <= simple.Complexity {
		t.Fatalf("analytical %.2f should outscore simple %.2f", feat.Complexity, simple.Complexity)
	}
}

func TestComplexityLevelBoundaries(t *testing.T) {
	cases := []struct {
		raw  float64
		want int
	}{
		{0, 0},
		{1.49, 0},
		{1.5, 1},
		{2.49, 1},
		{2.5, 2},
		{3.99, 2},
		{4.0, 3},
		{5.99, 3},
		{6.0, 4},
		{8.1, 4},
	}
	for _, tc := range cases {
		if got := complexityLevel(tc.raw); got != tc.want {
			t.Errorf("level(%.2f): got %d want %d", tc.raw, got, tc.want)
		}
	}
}

func TestDomainTechnology(t *testing.T) {
	feat := analyzeWith(t, NewDomainExtractor(), "How do I deploy a docker container to a kubernetes cluster?")
	if feat.Domain == nil {
		t.Fatalf("expected domain feature")
	}
	if feat.Domain.Primary != "technology" {
		t.Fatalf("primary: got %s want technology", feat.Domain.Primary)
	}
	if feat.Domain.Kind != profile.DomainSpecialized {
		t.Fatalf("kind: got %s want specialized", feat.Domain.Kind)
	}
	if feat.Domain.Confidence <= 0.5 {
		t.Fatalf("expected confident match, got %.2f", feat.Domain.Confidence)
	}
}

func TestDomainFallsBackToGeneral(t *testing.T) {
	feat := analyzeWith(t, NewDomainExtractor(), "Tell me something interesting")
	if feat.Domain.Primary != "general" {
		t.Fatalf("primary: got %s want general", feat.Domain.Primary)
	}
	if feat.Domain.Confidence != 0.3 {
		t.Fatalf("confidence: got %.2f want 0.3", feat.Domain.Confidence)
	}
	if feat.Domain.Kind != profile.DomainGeneral {
		t.Fatalf("kind: got %s want general", feat.Domain.Kind)
	}
}

func TestDomainProfessionalKind(t *testing.T) {
	feat := analyzeWith(t, NewDomainExtractor(), "What is the recommended dosage for this medication?")
	if feat.Domain.Primary != "medicine" {
		t.Fatalf("primary: got %s want medicine", feat.Domain.Primary)
	}
	if feat.Domain.Kind != profile.DomainProfessional {
		t.Fatalf("kind: got %s want professional", feat.Domain.Kind)
	}
}

func TestDomainTieBreakIsDeterministic(t *testing.T) {
	// One science keyword and one education keyword give equal scores, so
	// the priority order must decide.
	q := "a question about physics homework"
	first := analyzeWith(t, NewDomainExtractor(), q)
	for i := 0; i < 10; i++ {
		again := analyzeWith(t, NewDomainExtractor(), q)
		if again.Domain.Primary != first.Domain.Primary {
			t.Fatalf("tie-break flapped: %s vs %s", again.Domain.Primary, first.Domain.Primary)
		}
	}
	if first.Domain.Primary != "science" {
		t.Fatalf("priority order: got %s want science", first.Domain.Primary)
	}
}

func TestUrgencyCriticalOnOutage(t *testing.T) {
	feat := analyzeWith(t, NewUrgencyExtractor(), "The server is down, urgent, how do we recover immediately?")
	if feat.Urgency == nil {
		t.Fatalf("expected urgency feature")
	}
	if feat.Urgency.Level != profile.UrgencyCritical {
		t.Fatalf("level: got %s want critical", feat.Urgency.Level)
	}
	if feat.Urgency.Score < 0.9 {
		t.Fatalf("score: got %.2f want >= 0.9", feat.Urgency.Score)
	}
}

func TestUrgencyDefaultsToNormal(t *testing.T) {
	feat := analyzeWith(t, NewUrgencyExtractor(), "What is machine learning?")
	if feat.Urgency.Level != profile.UrgencyNormal {
		t.Fatalf("level: got %s want normal", feat.Urgency.Level)
	}
}

func TestUrgencyExplicitLow(t *testing.T) {
	feat := analyzeWith(t, NewUrgencyExtractor(), "No rush, just out of curiosity, why is the sky blue?")
	if feat.Urgency.Level != profile.UrgencyLow {
		t.Fatalf("level: got %s want low", feat.Urgency.Level)
	}
}

func TestUrgencyHighWithoutProblemContext(t *testing.T) {
	feat := analyzeWith(t, NewUrgencyExtractor(), "I need this asap, please summarize the contract before tonight")
	if feat.Urgency.Level != profile.UrgencyHigh {
		t.Fatalf("level: got %s want high", feat.Urgency.Level)
	}
}

func TestToolNeedsIndependentDetection(t *testing.T) {
	feat := analyzeWith(t, NewToolNeedExtractor(), "Search the latest AI trends and calculate the average growth rate")
	kinds := map[profile.ToolKind]profile.ToolNeed{}
	for _, n := range feat.ToolNeeds {
		kinds[n.Kind] = n
	}
	search, ok := kinds[profile.ToolSearch]
	if !ok {
		t.Fatalf("expected search need, got %+v", feat.ToolNeeds)
	}
	comp, ok := kinds[profile.ToolComputation]
	if !ok {
		t.Fatalf("expected computation need, got %+v", feat.ToolNeeds)
	}
	if search.Confidence <= comp.Confidence {
		t.Fatalf("search %.2f should outscore computation %.2f", search.Confidence, comp.Confidence)
	}
	if search.Priority != profile.PriorityHigh {
		t.Fatalf("search priority: got %s want high", search.Priority)
	}
	if search.Timeout != 10*time.Second {
		t.Fatalf("search timeout: got %s want 10s", search.Timeout)
	}
}

func TestToolNeedsAbsentForPlainQuestion(t *testing.T) {
	feat := analyzeWith(t, NewToolNeedExtractor(), "Why is the sky blue?")
	if len(feat.ToolNeeds) != 0 {
		t.Fatalf("expected no tool needs, got %+v", feat.ToolNeeds)
	}
}

func TestFreshnessRequiredForRecentNews(t *testing.T) {
	feat := analyzeWith(t, NewFreshnessExtractor(), "What are the latest headlines in the stock market today?")
	if feat.Freshness == nil {
		t.Fatalf("expected freshness feature")
	}
	if !feat.Freshness.Required {
		t.Fatalf("expected freshness required, score %.2f", feat.Freshness.Score)
	}
	if feat.Freshness.MaxAge > 24*time.Hour {
		t.Fatalf("max age: got %s want <= 24h", feat.Freshness.MaxAge)
	}
}

func TestFreshnessNotRequiredForStableTopic(t *testing.T) {
	feat := analyzeWith(t, NewFreshnessExtractor(), "Explain the theory behind the definition of entropy")
	if feat.Freshness.Required {
		t.Fatalf("expected no freshness requirement, score %.2f", feat.Freshness.Score)
	}
	if feat.Freshness.MaxAge < 300*24*time.Hour {
		t.Fatalf("stable topics tolerate old answers, got %s", feat.Freshness.MaxAge)
	}
}

func TestExpertiseBeginner(t *testing.T) {
	feat := analyzeWith(t, NewExpertiseExtractor(), "I'm new to programming, explain variables in simple terms")
	if feat.Expertise != profile.ExpertiseBeginner {
		t.Fatalf("expertise: got %s want beginner", feat.Expertise)
	}
}

func TestExpertiseDefaultsToIntermediate(t *testing.T) {
	feat := analyzeWith(t, NewExpertiseExtractor(), "What is machine learning?")
	if feat.Expertise != profile.ExpertiseIntermediate {
		t.Fatalf("expertise: got %s want intermediate", feat.Expertise)
	}
}

func TestExpertiseExpert(t *testing.T) {
	feat := analyzeWith(t, NewExpertiseExtractor(), "Is there a formal proof of the complexity analysis for this scheduler?")
	if feat.Expertise != profile.ExpertiseExpert {
		t.Fatalf("expertise: got %s want expert", feat.Expertise)
	}
}

func TestKeywordWeightBoosts(t *testing.T) {
	q := newQuery("search search for it", DefaultSegmenter())
	w := keywordWeight(q, "search", 1.0)
	// base 1.0 + prefix 0.5 + one repeat 0.2 + short question 0.3
	if w < 1.99 || w > 2.01 {
		t.Fatalf("weight: got %.2f want 2.0", w)
	}
}
