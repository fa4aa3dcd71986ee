package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zen-systems/askroute/pkg/adapter"
	"github.com/zen-systems/askroute/pkg/config"
	"github.com/zen-systems/askroute/pkg/stats"
)

// Fusion strategy labels recorded on ensemble results.
const (
	StrategySingle    = "single"
	StrategyConsensus = "consensus"
	StrategyWeighted  = "weighted"
)

// InvokeFunc performs one model call. The pipeline passes its rate-limited,
// retrying call here so ensemble members share the process-wide budget.
type InvokeFunc func(ctx context.Context, spec config.ModelSpec, prompt string) (*adapter.Response, error)

// Member is one model's contribution to an ensemble call.
type Member struct {
	Model      string        `json:"model"`
	Backend    string        `json:"backend"`
	Text       string        `json:"text,omitempty"`
	Confidence float64       `json:"confidence"`
	Weight     float64       `json:"weight"`
	Latency    time.Duration `json:"latency"`
	Err        string        `json:"error,omitempty"`
}

// Result is the fused outcome of an ensemble call. Members records every
// attempted model, including failed ones.
type Result struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Strategy   string   `json:"strategy"`
	Consensus  float64  `json:"consensus"`
	Primary    string   `json:"primary"`
	Members    []Member `json:"members"`
}

// Ensemble fans a prompt out to several models and fuses the answers.
type Ensemble struct {
	cfg      *config.EngineConfig
	selector *Selector
	invoke   InvokeFunc
	logf     func(string, ...any)
}

// Option configures an Ensemble.
type Option func(*Ensemble)

// WithLogger sets the debug log sink.
func WithLogger(logf func(string, ...any)) Option {
	return func(e *Ensemble) {
		if logf != nil {
			e.logf = logf
		}
	}
}

// WithSelector shares an existing selector instead of building one.
func WithSelector(s *Selector) Option {
	return func(e *Ensemble) { e.selector = s }
}

// NewEnsemble builds an ensemble coordinator that calls models through
// invoke.
func NewEnsemble(cfg *config.EngineConfig, invoke InvokeFunc, opts ...Option) *Ensemble {
	e := &Ensemble{
		cfg:      cfg,
		selector: NewSelector(cfg),
		invoke:   invoke,
		logf:     func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Answer fans prompt out to an adaptively-sized member set and fuses the
// responses. Partial failures are tolerated; only when every member fails
// does Answer return an error.
func (e *Ensemble) Answer(ctx context.Context, prompt string, level int, snap stats.Snapshot) (*Result, error) {
	specs, err := e.selector.EnsembleFor(level, snap)
	if err != nil {
		return nil, err
	}

	members := make([]Member, len(specs))
	errs := make([]error, len(specs))
	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec config.ModelSpec) {
			defer wg.Done()
			members[i], errs[i] = e.call(ctx, spec, prompt)
		}(i, spec)
	}
	wg.Wait()

	return e.fuse(members, errs)
}

func (e *Ensemble) call(ctx context.Context, spec config.ModelSpec, prompt string) (Member, error) {
	m := Member{Model: spec.Name, Backend: spec.Backend}
	start := time.Now()
	resp, err := e.invoke(ctx, spec, prompt)
	m.Latency = time.Since(start)
	if err == nil && strings.TrimSpace(resp.Text) == "" {
		err = fmt.Errorf("model %s: empty response", spec.Name)
	}
	if err != nil {
		m.Err = err.Error()
		e.logf("ensemble member %s failed after %v: %v", spec.Name, m.Latency, err)
		return m, err
	}
	m.Text = resp.Text
	m.Confidence = resp.SelfConfidence
	m.Weight = memberWeight(spec, resp.SelfConfidence, m.Latency)
	return m, nil
}

func (e *Ensemble) fuse(members []Member, errs []error) (*Result, error) {
	var ok []Member
	for _, m := range members {
		if m.Err == "" {
			ok = append(ok, m)
		}
	}
	if len(ok) == 0 {
		return nil, fmt.Errorf("ensemble: all %d members failed: %w", len(members), errors.Join(errs...))
	}
	if len(ok) == 1 {
		return &Result{
			Text:       ok[0].Text,
			Confidence: ok[0].Confidence,
			Strategy:   StrategySingle,
			Consensus:  1,
			Primary:    ok[0].Model,
			Members:    members,
		}, nil
	}

	texts := make([]string, len(ok))
	for i, m := range ok {
		texts[i] = m.Text
	}
	consensus := consensusLevel(texts)

	var text string
	var primary Member
	strategy := StrategyWeighted
	if consensus >= e.cfg.Ensemble.ConsensusThreshold {
		text, primary = e.consensusFusion(ok)
		strategy = StrategyConsensus
	} else {
		text, primary = e.weightedFusion(ok)
	}
	e.logf("ensemble fused %d/%d members via %s, consensus %.2f, primary %s",
		len(ok), len(members), strategy, consensus, primary.Model)

	var total, weighted float64
	for _, m := range ok {
		total += m.Weight
		weighted += m.Weight * m.Confidence
	}
	confidence := 0.0
	if total > 0 {
		confidence = weighted / total
	}
	confidence = confidence*0.7 + consensus*0.3

	return &Result{
		Text:       text,
		Confidence: confidence,
		Strategy:   strategy,
		Consensus:  consensus,
		Primary:    primary.Model,
		Members:    members,
	}, nil
}

// consensusFusion anchors on the most confident member and appends
// corroborating details from members whose answers agree with it.
func (e *Ensemble) consensusFusion(ok []Member) (string, Member) {
	primary := ok[0]
	for _, m := range ok[1:] {
		if m.Confidence > primary.Confidence {
			primary = m
		}
	}
	primaryTokens := tokenSet(primary.Text)
	text := primary.Text
	var extras []string
	for _, m := range ok {
		if m.Model == primary.Model {
			continue
		}
		if jaccard(tokenSet(m.Text), primaryTokens) <= e.cfg.Ensemble.SimilarityThreshold {
			continue
		}
		if key := keyInformation(m.Text); key != "" && !strings.Contains(text, key) {
			extras = append(extras, key)
		}
	}
	if len(extras) > 0 {
		text += "\n\nAdditional context:\n" + strings.Join(extras, "\n")
	}
	return text, primary
}

// weightedFusion anchors on the highest-weight member and appends key
// information from members carrying a meaningful share of the total weight.
func (e *Ensemble) weightedFusion(ok []Member) (string, Member) {
	primary := ok[0]
	var total float64
	for _, m := range ok {
		total += m.Weight
		if m.Weight > primary.Weight {
			primary = m
		}
	}
	text := primary.Text
	var extras []string
	for _, m := range ok {
		if m.Model == primary.Model || total <= 0 {
			continue
		}
		if m.Weight/total <= 0.2 || len(m.Text) <= 50 {
			continue
		}
		if key := keyInformation(m.Text); key != "" && !strings.Contains(text, key) {
			extras = append(extras, key)
		}
	}
	if len(extras) > 0 {
		text += "\n\nAdditional information:\n" + strings.Join(extras, "\n")
	}
	return text, primary
}

// memberWeight blends the catalog's quality rank, the member's own
// confidence, and how fast it answered.
func memberWeight(spec config.ModelSpec, confidence float64, latency time.Duration) float64 {
	speed := 1.0 - latency.Seconds()/30.0
	if speed < 0.1 {
		speed = 0.1
	}
	return float64(spec.QualityScore)/10.0*0.4 + confidence*0.4 + speed*0.2
}
