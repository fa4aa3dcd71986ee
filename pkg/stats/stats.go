// Package stats holds the process-wide performance record shared by routing
// and model selection. Writers append after each completed plan; readers take
// a consistent snapshot at plan start so one plan's decisions stay coherent
// while other plans keep recording.
package stats

import (
	"sync"
	"time"
)

// windowSize bounds the per-model sample history. Older samples fall off so
// the averages track current behavior rather than lifetime history.
const windowSize = 100

// untestedPerformance is assumed for models with no recorded samples, high
// enough that new models get traffic but below a proven performer.
const untestedPerformance = 0.8

// ModelSample is one completed model invocation.
type ModelSample struct {
	Quality float64 // rubric score, [0,10]
	Latency time.Duration
	Success bool
}

// ModelStats aggregates a model's recent samples.
type ModelStats struct {
	Samples     int
	AvgQuality  float64 // [0,10]
	AvgLatency  time.Duration
	SuccessRate float64 // [0,1]
}

// Performance folds quality, speed, and reliability into one [0,1] score.
// Untested models score untestedPerformance.
func (m ModelStats) Performance() float64 {
	if m.Samples == 0 {
		return untestedPerformance
	}
	speed := 1.0 - m.AvgLatency.Seconds()/30.0
	if speed < 0 {
		speed = 0
	}
	return m.AvgQuality/10.0*0.4 + speed*0.3 + m.SuccessRate*0.3
}

// TemplateStats aggregates outcomes of plans built from one route template.
type TemplateStats struct {
	Uses        int
	SuccessRate float64
	AvgLatency  time.Duration
}

// Snapshot is an immutable copy of the store taken at plan start.
type Snapshot struct {
	TakenAt   time.Time
	Load      float64 // plans currently in flight
	Models    map[string]ModelStats
	Templates map[string]TemplateStats
}

// Model returns the stats for name. Unknown models report zero samples, which
// Performance treats as untested.
func (s Snapshot) Model(name string) ModelStats {
	return s.Models[name]
}

// Template returns the stats for a route template name.
func (s Snapshot) Template(name string) (TemplateStats, bool) {
	t, ok := s.Templates[name]
	return t, ok
}

// Store is the mutable record behind snapshots. The zero value is not usable;
// construct with NewStore.
type Store struct {
	mu        sync.RWMutex
	inflight  int
	samples   map[string][]ModelSample
	models    map[string]ModelStats
	templates map[string]templateRecord
	now       func() time.Time
}

type templateRecord struct {
	uses      int
	successes int
	totalLat  time.Duration
}

// NewStore returns an empty statistics store.
func NewStore() *Store {
	return &Store{
		samples:   make(map[string][]ModelSample),
		models:    make(map[string]ModelStats),
		templates: make(map[string]templateRecord),
		now:       time.Now,
	}
}

// Snapshot copies the current state. The result is detached: later writes to
// the store never show through it.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	models := make(map[string]ModelStats, len(s.models))
	for name, m := range s.models {
		models[name] = m
	}
	templates := make(map[string]TemplateStats, len(s.templates))
	for name, r := range s.templates {
		templates[name] = r.stats()
	}
	return Snapshot{
		TakenAt:   s.now(),
		Load:      float64(s.inflight),
		Models:    models,
		Templates: templates,
	}
}

// RecordModel appends one model invocation outcome.
func (s *Store) RecordModel(name string, sample ModelSample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	window := append(s.samples[name], sample)
	if len(window) > windowSize {
		window = window[len(window)-windowSize:]
	}
	s.samples[name] = window
	s.models[name] = aggregate(window)
}

// RecordTemplate appends one plan outcome for a route template.
func (s *Store) RecordTemplate(name string, success bool, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.templates[name]
	r.uses++
	if success {
		r.successes++
	}
	r.totalLat += latency
	s.templates[name] = r
}

// PlanStarted marks a plan in flight for load accounting.
func (s *Store) PlanStarted() {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
}

// PlanFinished releases a PlanStarted mark.
func (s *Store) PlanFinished() {
	s.mu.Lock()
	if s.inflight > 0 {
		s.inflight--
	}
	s.mu.Unlock()
}

func aggregate(window []ModelSample) ModelStats {
	if len(window) == 0 {
		return ModelStats{}
	}
	var quality float64
	var latency time.Duration
	successes := 0
	for _, s := range window {
		quality += s.Quality
		latency += s.Latency
		if s.Success {
			successes++
		}
	}
	n := float64(len(window))
	return ModelStats{
		Samples:     len(window),
		AvgQuality:  quality / n,
		AvgLatency:  time.Duration(float64(latency) / n),
		SuccessRate: float64(successes) / n,
	}
}

func (r templateRecord) stats() TemplateStats {
	if r.uses == 0 {
		return TemplateStats{}
	}
	return TemplateStats{
		Uses:        r.uses,
		SuccessRate: float64(r.successes) / float64(r.uses),
		AvgLatency:  r.totalLat / time.Duration(r.uses),
	}
}
