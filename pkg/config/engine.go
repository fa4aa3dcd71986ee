package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineConfig holds every tunable the answering engine reads: scoring
// weights, quality thresholds, parallelism and retry limits, deadline tiers,
// and the model catalog. The engine never mutates it.
type EngineConfig struct {
	Route        RouteConfig        `yaml:"route,omitempty"`
	Classify     ClassifyConfig     `yaml:"classify,omitempty"`
	Selector     SelectorConfig     `yaml:"selector,omitempty"`
	Ensemble     EnsembleConfig     `yaml:"ensemble,omitempty"`
	Quality      QualityConfig      `yaml:"quality,omitempty"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator,omitempty"`
	Deadlines    DeadlineTiers      `yaml:"deadlines,omitempty"`
	Levels       []LevelBudget      `yaml:"levels,omitempty"`
	Models       []ModelSpec        `yaml:"models,omitempty"`
	Feedback     FeedbackConfig     `yaml:"feedback,omitempty"`
}

// LevelBudget bounds the answer produced at one complexity level. Entries
// index by level, 0 through 4.
type LevelBudget struct {
	MaxTokens       int `yaml:"max_tokens,omitempty"`
	TargetLatencyMs int `yaml:"target_latency_ms,omitempty"`
}

// LevelBudgetFor returns the answer budget for a complexity level, clamping
// out-of-range levels to the nearest configured entry.
func (c *EngineConfig) LevelBudgetFor(level int) LevelBudget {
	if len(c.Levels) == 0 {
		return LevelBudget{}
	}
	if level < 0 {
		level = 0
	}
	if level >= len(c.Levels) {
		level = len(c.Levels) - 1
	}
	return c.Levels[level]
}

// RouteConfig weights the route-candidate score terms.
type RouteConfig struct {
	QualityWeight float64 `yaml:"quality_weight,omitempty"`
	LatencyWeight float64 `yaml:"latency_weight,omitempty"`
	CostWeight    float64 `yaml:"cost_weight,omitempty"`
	RiskWeight    float64 `yaml:"risk_weight,omitempty"`
	// LoadShedThreshold switches candidates to their resource-efficient
	// variant once this many plans are in flight.
	LoadShedThreshold float64 `yaml:"load_shed_threshold,omitempty"`
}

// ClassifyConfig tunes the classifier.
type ClassifyConfig struct {
	// ComplexityWeights order: lexical, syntactic, semantic, reasoning,
	// breadth. Must sum to 1.
	ComplexityWeights []float64 `yaml:"complexity_weights,omitempty"`
}

// SelectorWeights blend the three model-scoring terms.
type SelectorWeights struct {
	Fit      float64 `yaml:"fit,omitempty"`
	History  float64 `yaml:"history,omitempty"`
	Priority float64 `yaml:"priority,omitempty"`
}

// SelectorConfig holds per-focus model-scoring weights.
type SelectorConfig struct {
	Balanced SelectorWeights `yaml:"balanced,omitempty"`
	Speed    SelectorWeights `yaml:"speed,omitempty"`
	Quality  SelectorWeights `yaml:"quality,omitempty"`
}

// EnsembleConfig tunes multi-model fusion.
type EnsembleConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold,omitempty"`
	ConsensusThreshold  float64 `yaml:"consensus_threshold,omitempty"`
	MaxSize             int     `yaml:"max_size,omitempty"`
}

// QualityConfig tunes answer validation and the improvement loop.
type QualityConfig struct {
	MinConfidence float64 `yaml:"min_confidence,omitempty"`
	// RelaxedConfidence applies on the final improvement cycle, when a
	// slightly weaker answer beats none at all.
	RelaxedConfidence    float64  `yaml:"relaxed_confidence,omitempty"`
	HardFail             []string `yaml:"hard_fail,omitempty"`
	MaxImprovementCycles int      `yaml:"max_improvement_cycles,omitempty"`
}

// OrchestratorConfig bounds plan execution.
type OrchestratorConfig struct {
	// MaxParallel caps in-flight steps process-wide, across all plans.
	MaxParallel int `yaml:"max_parallel,omitempty"`
	// PlanMaxParallel caps in-flight steps within one plan.
	PlanMaxParallel    int         `yaml:"plan_max_parallel,omitempty"`
	ModelRatePerSecond float64     `yaml:"model_rate_per_second,omitempty"`
	ModelRateBurst     int         `yaml:"model_rate_burst,omitempty"`
	Retry              RetryConfig `yaml:"retry,omitempty"`
}

// RetryConfig defines retry and backoff behavior.
type RetryConfig struct {
	MaxRetries    int `yaml:"max_retries,omitempty"`
	BaseBackoffMs int `yaml:"base_backoff_ms,omitempty"`
	MaxBackoffMs  int `yaml:"max_backoff_ms,omitempty"`
}

// DeadlineTiers maps urgency levels to plan wall-clock budgets.
type DeadlineTiers struct {
	LowMs      int `yaml:"low_ms,omitempty"`
	NormalMs   int `yaml:"normal_ms,omitempty"`
	HighMs     int `yaml:"high_ms,omitempty"`
	CriticalMs int `yaml:"critical_ms,omitempty"`
}

// ForUrgency returns the budget for an urgency level name.
func (d DeadlineTiers) ForUrgency(level string) time.Duration {
	switch level {
	case "critical":
		return time.Duration(d.CriticalMs) * time.Millisecond
	case "high":
		return time.Duration(d.HighMs) * time.Millisecond
	case "low":
		return time.Duration(d.LowMs) * time.Millisecond
	default:
		return time.Duration(d.NormalMs) * time.Millisecond
	}
}

// ModelSpec registers one answering model with the engine.
type ModelSpec struct {
	Name    string `yaml:"name"`
	Backend string `yaml:"backend"`
	// CapabilityMin/Max bound the complexity levels this model suits.
	CapabilityMin int `yaml:"capability_min"`
	CapabilityMax int `yaml:"capability_max"`
	// SpeedScore and QualityScore rank the model on a [0,10] scale for
	// focus-weighted selection.
	SpeedScore      int     `yaml:"speed_score,omitempty"`
	QualityScore    int     `yaml:"quality_score,omitempty"`
	Priority        float64 `yaml:"priority,omitempty"`
	PromptPer1K     float64 `yaml:"prompt_per_1k,omitempty"`
	CompletionPer1K float64 `yaml:"completion_per_1k,omitempty"`
}

// CostIndex folds the per-1K prices into a [0,1] cheapness score.
func (m ModelSpec) CostIndex() float64 {
	c := 1.0 - (m.PromptPer1K+m.CompletionPer1K)/2*10
	if c < 0 {
		return 0
	}
	return c
}

// FeedbackConfig points the feedback recorder at its storage.
type FeedbackConfig struct {
	Enabled     *bool  `yaml:"enabled,omitempty"`
	HistoryPath string `yaml:"history_path,omitempty"`
	ArchiveDir  string `yaml:"archive_dir,omitempty"`
}

// LoadEngineConfig reads engine tuning from a YAML file.
func LoadEngineConfig(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEngineDefaults(&cfg)
	if err := validateEngineConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultEngineConfig returns the engine configuration used when no tuning
// file exists.
func DefaultEngineConfig() *EngineConfig {
	cfg := &EngineConfig{}
	applyEngineDefaults(cfg)
	return cfg
}

func applyEngineDefaults(cfg *EngineConfig) {
	if cfg == nil {
		return
	}
	if cfg.Route.QualityWeight == 0 && cfg.Route.LatencyWeight == 0 &&
		cfg.Route.CostWeight == 0 && cfg.Route.RiskWeight == 0 {
		cfg.Route.QualityWeight = 0.40
		cfg.Route.LatencyWeight = 0.25
		cfg.Route.CostWeight = 0.20
		cfg.Route.RiskWeight = 0.15
	}
	if cfg.Route.LoadShedThreshold == 0 {
		cfg.Route.LoadShedThreshold = 2.0
	}
	if len(cfg.Classify.ComplexityWeights) == 0 {
		cfg.Classify.ComplexityWeights = []float64{0.10, 0.20, 0.30, 0.25, 0.15}
	}
	if cfg.Selector.Balanced == (SelectorWeights{}) {
		cfg.Selector.Balanced = SelectorWeights{Fit: 0.25, History: 0.50, Priority: 0.25}
	}
	if cfg.Selector.Speed == (SelectorWeights{}) {
		cfg.Selector.Speed = SelectorWeights{Fit: 0.20, History: 0.60, Priority: 0.20}
	}
	if cfg.Selector.Quality == (SelectorWeights{}) {
		cfg.Selector.Quality = SelectorWeights{Fit: 0.30, History: 0.40, Priority: 0.30}
	}
	if cfg.Ensemble.SimilarityThreshold == 0 {
		cfg.Ensemble.SimilarityThreshold = 0.6
	}
	if cfg.Ensemble.ConsensusThreshold == 0 {
		cfg.Ensemble.ConsensusThreshold = 0.7
	}
	if cfg.Ensemble.MaxSize == 0 {
		cfg.Ensemble.MaxSize = 3
	}
	if cfg.Quality.MinConfidence == 0 {
		cfg.Quality.MinConfidence = 0.7
	}
	if cfg.Quality.RelaxedConfidence == 0 {
		cfg.Quality.RelaxedConfidence = 0.6
	}
	if cfg.Quality.HardFail == nil {
		cfg.Quality.HardFail = []string{"factual_alignment"}
	}
	if cfg.Quality.MaxImprovementCycles == 0 {
		cfg.Quality.MaxImprovementCycles = 2
	}
	if cfg.Orchestrator.MaxParallel == 0 {
		cfg.Orchestrator.MaxParallel = 8
	}
	if cfg.Orchestrator.PlanMaxParallel == 0 {
		cfg.Orchestrator.PlanMaxParallel = 4
	}
	if cfg.Orchestrator.ModelRatePerSecond == 0 {
		cfg.Orchestrator.ModelRatePerSecond = 10
	}
	if cfg.Orchestrator.ModelRateBurst == 0 {
		cfg.Orchestrator.ModelRateBurst = 20
	}
	if cfg.Orchestrator.Retry.MaxRetries == 0 {
		cfg.Orchestrator.Retry.MaxRetries = 2
	}
	if cfg.Orchestrator.Retry.BaseBackoffMs == 0 {
		cfg.Orchestrator.Retry.BaseBackoffMs = 200
	}
	if cfg.Orchestrator.Retry.MaxBackoffMs == 0 {
		cfg.Orchestrator.Retry.MaxBackoffMs = 2000
	}
	if cfg.Orchestrator.Retry.MaxBackoffMs < cfg.Orchestrator.Retry.BaseBackoffMs {
		cfg.Orchestrator.Retry.MaxBackoffMs = cfg.Orchestrator.Retry.BaseBackoffMs
	}
	if cfg.Deadlines.LowMs == 0 {
		cfg.Deadlines.LowMs = 60000
	}
	if cfg.Deadlines.NormalMs == 0 {
		cfg.Deadlines.NormalMs = 30000
	}
	if cfg.Deadlines.HighMs == 0 {
		cfg.Deadlines.HighMs = 15000
	}
	if cfg.Deadlines.CriticalMs == 0 {
		cfg.Deadlines.CriticalMs = 8000
	}
	if len(cfg.Levels) == 0 {
		cfg.Levels = []LevelBudget{
			{MaxTokens: 256, TargetLatencyMs: 3000},
			{MaxTokens: 512, TargetLatencyMs: 5000},
			{MaxTokens: 1024, TargetLatencyMs: 10000},
			{MaxTokens: 2048, TargetLatencyMs: 20000},
			{MaxTokens: 4096, TargetLatencyMs: 30000},
		}
	}
	if len(cfg.Models) == 0 {
		cfg.Models = defaultModelCatalog()
	}
	for i := range cfg.Models {
		if cfg.Models[i].SpeedScore == 0 {
			cfg.Models[i].SpeedScore = 5
		}
		if cfg.Models[i].QualityScore == 0 {
			cfg.Models[i].QualityScore = 5
		}
	}
	if cfg.Feedback.Enabled == nil {
		enabled := true
		cfg.Feedback.Enabled = &enabled
	}
}

func validateEngineConfig(cfg *EngineConfig) error {
	if len(cfg.Classify.ComplexityWeights) != 5 {
		return fmt.Errorf("classify.complexity_weights needs 5 entries, got %d",
			len(cfg.Classify.ComplexityWeights))
	}
	for _, m := range cfg.Models {
		if m.Name == "" || m.Backend == "" {
			return fmt.Errorf("model entry missing name or backend: %+v", m)
		}
		if m.CapabilityMin < 0 || m.CapabilityMax > 4 || m.CapabilityMin > m.CapabilityMax {
			return fmt.Errorf("model %s: capability range [%d,%d] outside [0,4]",
				m.Name, m.CapabilityMin, m.CapabilityMax)
		}
	}
	return nil
}

// defaultModelCatalog spans the four backends with staggered capability
// ranges so every complexity level has at least two suitable models.
func defaultModelCatalog() []ModelSpec {
	return []ModelSpec{
		{Name: "qwen-turbo", Backend: "qwen", CapabilityMin: 0, CapabilityMax: 2,
			SpeedScore: 9, QualityScore: 6, Priority: 0.6, PromptPer1K: 0.0003, CompletionPer1K: 0.0006},
		{Name: "gpt-5.2-instant", Backend: "openai", CapabilityMin: 0, CapabilityMax: 2,
			SpeedScore: 9, QualityScore: 7, Priority: 0.6, PromptPer1K: 0.001, CompletionPer1K: 0.002},
		{Name: "qwen-plus", Backend: "qwen", CapabilityMin: 1, CapabilityMax: 3,
			SpeedScore: 7, QualityScore: 8, Priority: 0.75, PromptPer1K: 0.0008, CompletionPer1K: 0.002},
		{Name: "gemini-2.0-pro", Backend: "google", CapabilityMin: 1, CapabilityMax: 3,
			SpeedScore: 7, QualityScore: 8, Priority: 0.7, PromptPer1K: 0.00125, CompletionPer1K: 0.005},
		{Name: "claude-sonnet-4-20250514", Backend: "anthropic", CapabilityMin: 1, CapabilityMax: 4,
			SpeedScore: 6, QualityScore: 9, Priority: 0.85, PromptPer1K: 0.003, CompletionPer1K: 0.015},
		{Name: "qwen-max", Backend: "qwen", CapabilityMin: 2, CapabilityMax: 4,
			SpeedScore: 5, QualityScore: 10, Priority: 0.9, PromptPer1K: 0.0024, CompletionPer1K: 0.0096},
		{Name: "gpt-5.2-pro", Backend: "openai", CapabilityMin: 2, CapabilityMax: 4,
			SpeedScore: 5, QualityScore: 9, Priority: 0.9, PromptPer1K: 0.005, CompletionPer1K: 0.015},
		{Name: "claude-opus-4-20250514", Backend: "anthropic", CapabilityMin: 3, CapabilityMax: 4,
			SpeedScore: 3, QualityScore: 10, Priority: 0.95, PromptPer1K: 0.015, CompletionPer1K: 0.075},
	}
}
