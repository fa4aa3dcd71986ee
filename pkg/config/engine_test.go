package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeEngineFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write engine file: %v", err)
	}
	return path
}

func TestDefaultEngineConfig(t *testing.T) {
	cfg := DefaultEngineConfig()

	if cfg.Route.QualityWeight != 0.40 || cfg.Route.LatencyWeight != 0.25 ||
		cfg.Route.CostWeight != 0.20 || cfg.Route.RiskWeight != 0.15 {
		t.Fatalf("route weights: %+v", cfg.Route)
	}
	if len(cfg.Classify.ComplexityWeights) != 5 {
		t.Fatalf("complexity weights: %v", cfg.Classify.ComplexityWeights)
	}
	if cfg.Quality.MinConfidence != 0.7 || cfg.Quality.MaxImprovementCycles != 2 {
		t.Fatalf("quality defaults: %+v", cfg.Quality)
	}
	if cfg.Orchestrator.MaxParallel != 8 || cfg.Orchestrator.Retry.MaxRetries != 2 {
		t.Fatalf("orchestrator defaults: %+v", cfg.Orchestrator)
	}
	if len(cfg.Models) == 0 {
		t.Fatalf("expected default model catalog")
	}
	for _, m := range cfg.Models {
		if m.CapabilityMin < 0 || m.CapabilityMax > 4 {
			t.Fatalf("model %s capability range out of bounds", m.Name)
		}
	}
	if cfg.Feedback.Enabled == nil || !*cfg.Feedback.Enabled {
		t.Fatalf("feedback should default to enabled")
	}
}

func TestLoadEngineConfigPartialOverride(t *testing.T) {
	path := writeEngineFile(t, `
route:
  quality_weight: 0.5
  latency_weight: 0.2
  cost_weight: 0.2
  risk_weight: 0.1
quality:
  max_improvement_cycles: 3
models:
  - name: qwen-max
    backend: qwen
    capability_min: 2
    capability_max: 4
`)
	cfg, err := LoadEngineConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Route.QualityWeight != 0.5 {
		t.Fatalf("quality weight: got %.2f want 0.5", cfg.Route.QualityWeight)
	}
	if cfg.Quality.MaxImprovementCycles != 3 {
		t.Fatalf("cycles: got %d want 3", cfg.Quality.MaxImprovementCycles)
	}
	// Defaults still fill the rest.
	if cfg.Quality.MinConfidence != 0.7 {
		t.Fatalf("min confidence default: got %.2f", cfg.Quality.MinConfidence)
	}
	if len(cfg.Models) != 1 || cfg.Models[0].Name != "qwen-max" {
		t.Fatalf("models should come from file: %+v", cfg.Models)
	}
}

func TestLoadEngineConfigRejectsBadCapability(t *testing.T) {
	path := writeEngineFile(t, `
models:
  - name: broken
    backend: qwen
    capability_min: 3
    capability_max: 9
`)
	if _, err := LoadEngineConfig(path); err == nil {
		t.Fatalf("expected capability range error")
	}
}

func TestLoadEngineConfigRejectsUnnamedModel(t *testing.T) {
	path := writeEngineFile(t, `
models:
  - backend: qwen
    capability_min: 0
    capability_max: 2
`)
	if _, err := LoadEngineConfig(path); err == nil {
		t.Fatalf("expected missing-name error")
	}
}

func TestDeadlineTiers(t *testing.T) {
	tiers := DefaultEngineConfig().Deadlines
	critical := tiers.ForUrgency("critical")
	normal := tiers.ForUrgency("normal")
	low := tiers.ForUrgency("low")

	if critical >= normal || normal >= low {
		t.Fatalf("deadlines should tighten with urgency: critical %s normal %s low %s",
			critical, normal, low)
	}
	if critical != 8*time.Second {
		t.Fatalf("critical tier: got %s want 8s", critical)
	}
	if tiers.ForUrgency("unknown") != normal {
		t.Fatalf("unknown urgency should use normal tier")
	}
}

func TestRetryBackoffOrderingPreserved(t *testing.T) {
	path := writeEngineFile(t, `
orchestrator:
  retry:
    base_backoff_ms: 5000
`)
	cfg, err := LoadEngineConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Orchestrator.Retry.MaxBackoffMs < cfg.Orchestrator.Retry.BaseBackoffMs {
		t.Fatalf("max backoff %d below base %d",
			cfg.Orchestrator.Retry.MaxBackoffMs, cfg.Orchestrator.Retry.BaseBackoffMs)
	}
}

func TestLevelBudgets(t *testing.T) {
	cfg := DefaultEngineConfig()
	if len(cfg.Levels) != 5 {
		t.Fatalf("default levels = %d, want 5", len(cfg.Levels))
	}
	if b := cfg.LevelBudgetFor(0); b.MaxTokens != 256 || b.TargetLatencyMs != 3000 {
		t.Fatalf("level 0 budget = %+v", b)
	}
	if b := cfg.LevelBudgetFor(4); b.MaxTokens != 4096 {
		t.Fatalf("level 4 budget = %+v", b)
	}
	// Out-of-range levels clamp to the nearest entry.
	if cfg.LevelBudgetFor(-1) != cfg.LevelBudgetFor(0) {
		t.Fatal("negative level should clamp to 0")
	}
	if cfg.LevelBudgetFor(9) != cfg.LevelBudgetFor(4) {
		t.Fatal("oversized level should clamp to the last entry")
	}
}
