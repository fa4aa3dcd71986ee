// Package model picks answering models from the configured catalog and
// coordinates multi-model ensemble calls. Selection blends capability fit,
// recorded performance, and the focus the route asked for; ensembles fuse
// member answers by token-set consensus.
package model

import (
	"errors"
	"sort"

	"github.com/zen-systems/askroute/pkg/config"
	"github.com/zen-systems/askroute/pkg/stats"
)

// ErrNoModels is returned when the catalog has no entries to choose from.
var ErrNoModels = errors.New("model: no models configured")

// Focus values accepted by Select. They mirror the focus parameter routes
// attach to model-call steps.
const (
	FocusSpeed    = "speed"
	FocusQuality  = "quality"
	FocusCost     = "cost"
	FocusBalanced = "balanced"
)

// scoreEpsilon is the window within which two scores count as tied.
const scoreEpsilon = 1e-9

// Selector scores catalog models against a question's complexity level and
// the caller's focus. It is stateless; history comes from the snapshot
// passed to each call.
type Selector struct {
	cfg *config.EngineConfig
}

// NewSelector builds a selector over the catalog in cfg.
func NewSelector(cfg *config.EngineConfig) *Selector {
	return &Selector{cfg: cfg}
}

// Ranked is one scored catalog entry with its score components.
type Ranked struct {
	Spec     config.ModelSpec `json:"spec"`
	Score    float64          `json:"score"`
	Fit      float64          `json:"fit"`
	History  float64          `json:"history"`
	Priority float64          `json:"priority"`
}

// Select returns the best catalog model for the level and focus.
func (s *Selector) Select(level int, focus string, snap stats.Snapshot) (config.ModelSpec, error) {
	ranked := s.Rank(level, focus, snap)
	if len(ranked) == 0 {
		return config.ModelSpec{}, ErrNoModels
	}
	return ranked[0].Spec, nil
}

// Rank scores every catalog model for the level and focus, best first.
// Ties go to the model with the lower recorded latency, then to catalog
// order.
func (s *Selector) Rank(level int, focus string, snap stats.Snapshot) []Ranked {
	w := s.weightsFor(focus)
	ranked := make([]Ranked, 0, len(s.cfg.Models))
	for _, m := range s.cfg.Models {
		fit := complexityFit(level, m)
		hist := snap.Model(m.Name).Performance()
		prio := priorityScore(m, focus)
		ranked = append(ranked, Ranked{
			Spec:     m,
			Score:    fit*w.Fit + hist*w.History + prio*w.Priority,
			Fit:      fit,
			History:  hist,
			Priority: prio,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		diff := ranked[i].Score - ranked[j].Score
		if diff > scoreEpsilon || diff < -scoreEpsilon {
			return diff > 0
		}
		return snap.Model(ranked[i].Spec.Name).AvgLatency < snap.Model(ranked[j].Spec.Name).AvgLatency
	})
	return ranked
}

// EnsembleFor picks the member set for an ensemble call: the quality-ranked
// leader plus further picks chosen for speed/quality diversity, so members
// disagree in useful ways. Size adapts to the complexity level and is
// capped by the ensemble config.
func (s *Selector) EnsembleFor(level int, snap stats.Snapshot) ([]config.ModelSpec, error) {
	if len(s.cfg.Models) == 0 {
		return nil, ErrNoModels
	}
	size := adaptiveSize(level)
	if size > s.cfg.Ensemble.MaxSize {
		size = s.cfg.Ensemble.MaxSize
	}
	if size > len(s.cfg.Models) {
		size = len(s.cfg.Models)
	}

	leader, err := s.Select(level, FocusQuality, snap)
	if err != nil {
		return nil, err
	}
	members := []config.ModelSpec{leader}
	remaining := make([]config.ModelSpec, 0, len(s.cfg.Models)-1)
	for _, m := range s.cfg.Models {
		if m.Name != leader.Name {
			remaining = append(remaining, m)
		}
	}
	for len(members) < size && len(remaining) > 0 {
		best, bestScore := 0, -1.0
		for i, m := range remaining {
			if d := diversityScore(m, members, level); d > bestScore {
				best, bestScore = i, d
			}
		}
		members = append(members, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return members, nil
}

func (s *Selector) weightsFor(focus string) config.SelectorWeights {
	switch focus {
	case FocusSpeed:
		return s.cfg.Selector.Speed
	case FocusQuality:
		return s.cfg.Selector.Quality
	default:
		return s.cfg.Selector.Balanced
	}
}

// complexityFit is 1.0 inside the model's capability range and decays by
// 0.3 per level of distance outside it.
func complexityFit(level int, m config.ModelSpec) float64 {
	if level >= m.CapabilityMin && level <= m.CapabilityMax {
		return 1.0
	}
	dist := m.CapabilityMin - level
	if level > m.CapabilityMax {
		dist = level - m.CapabilityMax
	}
	if fit := 1.0 - float64(dist)*0.3; fit > 0 {
		return fit
	}
	return 0
}

func priorityScore(m config.ModelSpec, focus string) float64 {
	speed := float64(m.SpeedScore) / 10.0
	quality := float64(m.QualityScore) / 10.0
	switch focus {
	case FocusSpeed:
		return speed
	case FocusQuality:
		return quality
	case FocusCost:
		return m.CostIndex()
	default:
		return speed*0.3 + quality*0.5 + m.CostIndex()*0.2
	}
}

// adaptiveSize follows complexity: simple questions get one model, moderate
// ones a pair, hard ones a trio.
func adaptiveSize(level int) int {
	switch {
	case level <= 2:
		return 1
	case level == 3:
		return 2
	default:
		return 3
	}
}

// diversityScore rewards models whose speed/quality profile differs from
// the already-chosen members while still fitting the complexity level.
func diversityScore(m config.ModelSpec, chosen []config.ModelSpec, level int) float64 {
	var spread float64
	for _, c := range chosen {
		spread += (absDiff(m.SpeedScore, c.SpeedScore) + absDiff(m.QualityScore, c.QualityScore)) / 20.0
	}
	return spread*0.7 + complexityFit(level, m)*0.3
}

func absDiff(a, b int) float64 {
	if a > b {
		return float64(a - b)
	}
	return float64(b - a)
}
