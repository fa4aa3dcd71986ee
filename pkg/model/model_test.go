package model

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/zen-systems/askroute/pkg/adapter"
	"github.com/zen-systems/askroute/pkg/config"
	"github.com/zen-systems/askroute/pkg/stats"
)

func TestSelectQualityFocusPicksHighQualityModel(t *testing.T) {
	s := NewSelector(config.DefaultEngineConfig())

	spec, err := s.Select(4, FocusQuality, stats.Snapshot{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if spec.Name != "qwen-max" {
		t.Fatalf("model: got %s want qwen-max", spec.Name)
	}
}

func TestSelectSpeedFocusPicksFastModel(t *testing.T) {
	s := NewSelector(config.DefaultEngineConfig())

	spec, err := s.Select(0, FocusSpeed, stats.Snapshot{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if spec.Name != "qwen-turbo" {
		t.Fatalf("model: got %s want qwen-turbo", spec.Name)
	}
}

func TestSelectBalancedFocus(t *testing.T) {
	s := NewSelector(config.DefaultEngineConfig())

	spec, err := s.Select(2, FocusBalanced, stats.Snapshot{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if spec.Name != "qwen-max" {
		t.Fatalf("model: got %s want qwen-max", spec.Name)
	}
}

func TestRecordedHistoryLiftsModel(t *testing.T) {
	s := NewSelector(config.DefaultEngineConfig())
	store := stats.NewStore()
	store.RecordModel("gpt-5.2-instant", stats.ModelSample{Quality: 9, Latency: time.Second, Success: true})

	spec, err := s.Select(0, FocusSpeed, store.Snapshot())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if spec.Name != "gpt-5.2-instant" {
		t.Fatalf("model: got %s want gpt-5.2-instant", spec.Name)
	}
}

func TestRankTieBreaksOnRecordedLatency(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	cfg.Models = []config.ModelSpec{
		{Name: "b", Backend: "mock", CapabilityMin: 0, CapabilityMax: 4, SpeedScore: 5, QualityScore: 5},
		{Name: "a", Backend: "mock", CapabilityMin: 0, CapabilityMax: 4, SpeedScore: 5, QualityScore: 5},
	}
	store := stats.NewStore()
	store.RecordModel("b", stats.ModelSample{Quality: 9, Latency: 6 * time.Second, Success: true})
	store.RecordModel("a", stats.ModelSample{Quality: 8, Latency: 2 * time.Second, Success: true})

	ranked := NewSelector(cfg).Rank(2, FocusBalanced, store.Snapshot())
	if len(ranked) != 2 {
		t.Fatalf("ranked: %d entries", len(ranked))
	}
	if ranked[0].Spec.Name != "a" {
		t.Fatalf("tie break: got %s want a", ranked[0].Spec.Name)
	}
}

func TestSelectEmptyCatalog(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	cfg.Models = nil

	if _, err := NewSelector(cfg).Select(2, FocusBalanced, stats.Snapshot{}); !errors.Is(err, ErrNoModels) {
		t.Fatalf("err: got %v want ErrNoModels", err)
	}
}

func TestPriorityScoreByFocus(t *testing.T) {
	spec := config.ModelSpec{SpeedScore: 3, QualityScore: 10, PromptPer1K: 0.015, CompletionPer1K: 0.075}

	tests := []struct {
		focus string
		want  float64
	}{
		{FocusSpeed, 0.3},
		{FocusQuality, 1.0},
		{FocusCost, 0.55},
		{FocusBalanced, 0.3*0.3 + 1.0*0.5 + 0.55*0.2},
	}
	for _, tt := range tests {
		if got := priorityScore(spec, tt.focus); math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("priorityScore(%s): got %g want %g", tt.focus, got, tt.want)
		}
	}
}

func TestEnsembleForAdaptsToComplexity(t *testing.T) {
	s := NewSelector(config.DefaultEngineConfig())

	tests := []struct {
		level int
		want  []string
	}{
		{1, []string{"claude-sonnet-4-20250514"}},
		{3, []string{"qwen-max", "qwen-turbo"}},
		{4, []string{"qwen-max", "qwen-turbo", "claude-opus-4-20250514"}},
	}
	for _, tt := range tests {
		specs, err := s.EnsembleFor(tt.level, stats.Snapshot{})
		if err != nil {
			t.Fatalf("EnsembleFor(%d): %v", tt.level, err)
		}
		names := make([]string, len(specs))
		for i, spec := range specs {
			names[i] = spec.Name
		}
		if !reflect.DeepEqual(names, tt.want) {
			t.Fatalf("EnsembleFor(%d): got %v want %v", tt.level, names, tt.want)
		}
	}
}

func TestEnsembleForHonorsMaxSize(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	cfg.Ensemble.MaxSize = 2

	specs, err := NewSelector(cfg).EnsembleFor(4, stats.Snapshot{})
	if err != nil {
		t.Fatalf("EnsembleFor: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("members: got %d want 2", len(specs))
	}
}

func ensembleConfig() *config.EngineConfig {
	cfg := config.DefaultEngineConfig()
	cfg.Models = []config.ModelSpec{
		{Name: "alpha", Backend: "mock", CapabilityMin: 2, CapabilityMax: 4, SpeedScore: 4, QualityScore: 9},
		{Name: "beta", Backend: "mock", CapabilityMin: 0, CapabilityMax: 3, SpeedScore: 9, QualityScore: 6},
		{Name: "gamma", Backend: "mock", CapabilityMin: 1, CapabilityMax: 4, SpeedScore: 6, QualityScore: 8},
	}
	return cfg
}

func cannedInvoke(responses map[string]adapter.Response, fail map[string]error) InvokeFunc {
	return func(_ context.Context, spec config.ModelSpec, _ string) (*adapter.Response, error) {
		if err, ok := fail[spec.Name]; ok {
			return nil, err
		}
		r := responses[spec.Name]
		return &r, nil
	}
}

func TestEnsembleConsensusFusion(t *testing.T) {
	base := "Goroutines are lightweight threads managed by the Go runtime"
	responses := map[string]adapter.Response{
		"alpha": {Text: base + " itself.", SelfConfidence: 0.9},
		"beta":  {Text: base + ".", SelfConfidence: 0.7},
		"gamma": {Text: strings.Replace(base, "Go runtime", "Go scheduler runtime", 1) + ".", SelfConfidence: 0.8},
	}
	e := NewEnsemble(ensembleConfig(), cannedInvoke(responses, nil))

	res, err := e.Answer(context.Background(), "what are goroutines", 4, stats.Snapshot{})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if res.Strategy != StrategyConsensus {
		t.Fatalf("strategy: got %s want %s", res.Strategy, StrategyConsensus)
	}
	if res.Primary != "alpha" {
		t.Fatalf("primary: got %s want alpha", res.Primary)
	}
	if math.Abs(res.Consensus-9.0/11.0) > 0.001 {
		t.Fatalf("consensus: got %.4f want %.4f", res.Consensus, 9.0/11.0)
	}
	if !strings.HasPrefix(res.Text, base+" itself.") {
		t.Fatalf("text should anchor on primary, got %q", res.Text)
	}
	if !strings.Contains(res.Text, "Additional context:") {
		t.Fatalf("missing corroboration section: %q", res.Text)
	}
	if math.Abs(res.Confidence-0.811) > 0.01 {
		t.Fatalf("confidence: got %.4f want ~0.811", res.Confidence)
	}
	if len(res.Members) != 3 {
		t.Fatalf("members: got %d want 3", len(res.Members))
	}
}

func TestEnsembleWeightedFusion(t *testing.T) {
	responses := map[string]adapter.Response{
		"alpha": {Text: "The capital of France is Paris. Paris has been the seat of government for centuries. Its metro area holds about twelve million people.", SelfConfidence: 0.8},
		"beta":  {Text: "Paris serves as the capital of France; importantly the city hosts the Louvre museum along the Seine.", SelfConfidence: 0.9},
		"gamma": {Text: "It is Paris.", SelfConfidence: 0.6},
	}
	e := NewEnsemble(ensembleConfig(), cannedInvoke(responses, nil))

	res, err := e.Answer(context.Background(), "capital of france", 4, stats.Snapshot{})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if res.Strategy != StrategyWeighted {
		t.Fatalf("strategy: got %s want %s", res.Strategy, StrategyWeighted)
	}
	if res.Primary != "alpha" {
		t.Fatalf("primary: got %s want alpha", res.Primary)
	}
	if !strings.Contains(res.Text, "Additional information:") || !strings.Contains(res.Text, "Louvre") {
		t.Fatalf("missing supplement from heavy member: %q", res.Text)
	}
	if strings.Contains(res.Text, "It is Paris.") {
		t.Fatalf("short member should not be appended: %q", res.Text)
	}
	if res.Confidence < 0.5 || res.Confidence > 0.6 {
		t.Fatalf("confidence: got %.4f want within (0.5, 0.6)", res.Confidence)
	}
}

func TestEnsembleToleratesPartialFailure(t *testing.T) {
	base := "Goroutines are lightweight threads managed by the Go runtime"
	responses := map[string]adapter.Response{
		"alpha": {Text: base + " itself.", SelfConfidence: 0.9},
		"gamma": {Text: strings.Replace(base, "Go runtime", "Go scheduler runtime", 1) + ".", SelfConfidence: 0.8},
	}
	fail := map[string]error{"beta": errors.New("upstream 503")}
	e := NewEnsemble(ensembleConfig(), cannedInvoke(responses, fail))

	res, err := e.Answer(context.Background(), "what are goroutines", 4, stats.Snapshot{})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if res.Primary != "alpha" || res.Strategy != StrategyConsensus {
		t.Fatalf("fusion: primary %s strategy %s", res.Primary, res.Strategy)
	}
	if len(res.Members) != 3 {
		t.Fatalf("members: got %d want 3", len(res.Members))
	}
	var failed int
	for _, m := range res.Members {
		if m.Err != "" {
			failed++
			if !strings.Contains(m.Err, "503") {
				t.Fatalf("member error: %q", m.Err)
			}
		}
	}
	if failed != 1 {
		t.Fatalf("failed members: got %d want 1", failed)
	}
}

func TestEnsembleAllMembersFailed(t *testing.T) {
	fail := map[string]error{
		"alpha": errors.New("down"),
		"beta":  errors.New("down"),
		"gamma": errors.New("down"),
	}
	e := NewEnsemble(ensembleConfig(), cannedInvoke(nil, fail))

	res, err := e.Answer(context.Background(), "anything", 4, stats.Snapshot{})
	if err == nil {
		t.Fatalf("expected error, got %+v", res)
	}
	if !strings.Contains(err.Error(), "members failed") {
		t.Fatalf("err: %v", err)
	}
}

func TestConsensusLevel(t *testing.T) {
	tests := []struct {
		texts []string
		want  float64
	}{
		{nil, 0},
		{[]string{"alpha beta"}, 1},
		{[]string{"a b c", "a b d"}, 0.5},
	}
	for _, tt := range tests {
		if got := consensusLevel(tt.texts); math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("consensusLevel(%v): got %g want %g", tt.texts, got, tt.want)
		}
	}
}

func TestJaccardIgnoresCaseAndPunctuation(t *testing.T) {
	got := jaccard(tokenSet("The quick Fox."), tokenSet("the quick dog"))
	if math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("jaccard: got %g want 0.5", got)
	}
}

func TestKeyInformation(t *testing.T) {
	long := "Go compiles fast. Importantly, binaries are static. Deployment is one file."
	if got := keyInformation(long); got != "Importantly, binaries are static." {
		t.Fatalf("keyInformation: got %q", got)
	}
	plain := "First point here. Second point there. Third point everywhere."
	if got := keyInformation(plain); got != "First point here." {
		t.Fatalf("keyInformation fallback: got %q", got)
	}
	short := "One sentence only."
	if got := keyInformation(short); got != short {
		t.Fatalf("keyInformation passthrough: got %q", got)
	}
}
