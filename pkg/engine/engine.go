// Package engine ties classification, routing, execution, and validation
// into the answering loop. A failed verdict feeds back into the next cycle:
// the profile is augmented from the verdict's hints, the plan is re-routed,
// and the failed draft travels along as a revision prompt. The loop is
// bounded; running out of cycles yields the best candidate seen so far with
// passed=false, never an error and never an empty answer.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/zen-systems/askroute/pkg/adapter"
	"github.com/zen-systems/askroute/pkg/answer"
	"github.com/zen-systems/askroute/pkg/classify"
	"github.com/zen-systems/askroute/pkg/config"
	"github.com/zen-systems/askroute/pkg/feedback"
	"github.com/zen-systems/askroute/pkg/knowledge"
	"github.com/zen-systems/askroute/pkg/pipeline"
	"github.com/zen-systems/askroute/pkg/profile"
	"github.com/zen-systems/askroute/pkg/quality"
	"github.com/zen-systems/askroute/pkg/repair"
	"github.com/zen-systems/askroute/pkg/router"
	"github.com/zen-systems/askroute/pkg/stats"
	"github.com/zen-systems/askroute/pkg/tool"
)

// fallbackText is returned when not even a best-effort candidate exists.
const fallbackText = "I could not produce a reliable answer to this question. " +
	"Please try rephrasing it or breaking it into smaller parts."

// Engine answers questions. One Engine serves concurrent callers; all
// mutable state lives in the stats store and the per-call loop.
type Engine struct {
	cfg        *config.EngineConfig
	classifier *classify.Classifier
	router     *router.Router
	runner     *pipeline.Runner
	quality    *quality.Controller
	stats      *stats.Store
	recorder   feedback.Recorder
	tools      *tool.Registry
	retriever  knowledge.Retriever
	logf       func(format string, args ...any)
}

// Option configures an Engine.
type Option func(*Engine)

// WithToolRegistry supplies the executable tools. The registry restricts
// routing to tool kinds that can actually run.
func WithToolRegistry(reg *tool.Registry) Option {
	return func(e *Engine) { e.tools = reg }
}

// WithRetriever sets the knowledge backend for retrieve steps.
func WithRetriever(kr knowledge.Retriever) Option {
	return func(e *Engine) { e.retriever = kr }
}

// WithRecorder sets the feedback sink. Recording failures are logged and
// dropped; they never fail an answer.
func WithRecorder(rec feedback.Recorder) Option {
	return func(e *Engine) {
		if rec != nil {
			e.recorder = rec
		}
	}
}

// WithQuality replaces the default quality controller.
func WithQuality(ctrl *quality.Controller) Option {
	return func(e *Engine) { e.quality = ctrl }
}

// WithLogger sets the debug log sink.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(e *Engine) {
		if logf != nil {
			e.logf = logf
		}
	}
}

// New assembles an engine over the registered model backends.
func New(cfg *config.EngineConfig, backends map[string]adapter.ModelBackend, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		stats:    stats.NewStore(),
		recorder: feedback.Nop{},
		logf:     func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(e)
	}

	e.classifier = classify.NewClassifier(classify.WithLogger(e.logf))
	routerOpts := []router.Option{router.WithLogger(e.logf)}
	if e.tools != nil {
		routerOpts = append(routerOpts, router.WithToolRegistry(e.tools))
	}
	e.router = router.New(cfg, routerOpts...)

	runnerOpts := []pipeline.RunnerOption{pipeline.WithLogger(e.logf)}
	if e.tools != nil {
		runnerOpts = append(runnerOpts, pipeline.WithTools(e.tools))
	}
	if e.retriever != nil {
		runnerOpts = append(runnerOpts, pipeline.WithRetriever(e.retriever))
	}
	e.runner = pipeline.NewRunner(cfg, backends, runnerOpts...)

	if e.quality == nil {
		e.quality = quality.New(cfg, quality.WithLogger(e.logf))
	}
	return e
}

// Stats exposes the engine's statistics store for inspection.
func (e *Engine) Stats() *stats.Store {
	return e.stats
}

// Answer runs the full loop for one question. The only returned errors are
// context cancellation and internal plan-construction bugs; every execution
// or quality failure surfaces as a structured Final instead.
func (e *Engine) Answer(ctx context.Context, question string) (*answer.Final, error) {
	start := time.Now()
	runID := uuid.NewString()

	prof, err := e.classifier.Classify(ctx, question)
	if err != nil {
		return nil, err
	}
	if len(prof.Degraded) > 0 {
		e.logf("[engine] degraded extractors: %v", prof.Degraded)
	}

	maxCycles := e.cfg.Quality.MaxImprovementCycles
	cur := prof
	var (
		best        *answer.Candidate
		bestVerdict quality.Verdict
		revision    string
		decision    *router.Decision
		report      *pipeline.Report
	)

	for cycle := 0; cycle <= maxCycles; cycle++ {
		cycles := cycle + 1
		snap := e.stats.Snapshot()

		pl, dec, err := e.router.Route(&cur, snap)
		if err != nil {
			e.record(recordArgs{runID: runID, question: question, prof: &cur,
				start: start, cycles: cycles, err: err})
			return nil, err
		}
		decision = dec

		var execOpts []pipeline.ExecOption
		if revision != "" {
			execOpts = append(execOpts, pipeline.WithRevisionPrompt(revision))
		}

		e.stats.PlanStarted()
		cand, rep, err := e.runner.Execute(ctx, pl, &cur, snap, execOpts...)
		e.stats.PlanFinished()
		if rep != nil {
			report = rep
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var exhausted *pipeline.StepExhaustedError
			if errors.As(err, &exhausted) || errors.Is(err, pipeline.ErrNoUsableOutput) {
				e.logf("[engine] cycle %d execution failed: %v", cycles, err)
				if report != nil {
					e.stats.RecordTemplate(report.Template, false, report.Duration)
				}
				final := e.bestEffort(best, bestVerdict, &prof, decision, start, cycles)
				e.record(recordArgs{runID: runID, question: question, prof: &cur,
					decision: decision, cand: best, verdict: bestVerdict,
					report: report, start: start, cycles: cycles, err: err})
				return final, nil
			}
			// Plan-construction bugs are fatal.
			e.record(recordArgs{runID: runID, question: question, prof: &cur,
				decision: decision, report: report, start: start, cycles: cycles, err: err})
			return nil, err
		}

		if best != nil {
			next := best.NewVersion(cand.Text, cand.Model, cand.RawConfidence, cand.Sources)
			next.Ensemble = cand.Ensemble
			next.Metadata["template"] = rep.Template
			cand = next
		}

		verdict := e.quality.Validate(cand, &cur)
		e.recordModelStats(rep, verdict)

		if best == nil || verdict.Confidence > bestVerdict.Confidence {
			best = cand
			bestVerdict = verdict
		}

		passed := verdict.Passed
		if !passed && cycle == maxCycles {
			// A slightly weaker answer beats none at all on the last cycle.
			passed = verdict.PassedAt(e.cfg.Quality.RelaxedConfidence)
		}
		e.stats.RecordTemplate(rep.Template, passed, rep.Duration)

		if passed {
			final := &answer.Final{
				Text:           cand.Text,
				Confidence:     adjustedConfidence(verdict, e.cfg.Quality.MinConfidence),
				Passed:         true,
				ProcessingTime: time.Since(start),
				Template:       rep.Template,
				Model:          cand.Model,
				Cycles:         cycles,
				Degraded:       prof.Degraded,
			}
			e.record(recordArgs{runID: runID, question: question, prof: &cur,
				decision: decision, cand: cand, verdict: verdict, passed: true,
				report: rep, start: start, cycles: cycles})
			return final, nil
		}

		if cycle == maxCycles {
			break
		}
		e.logf("[engine] cycle %d verdict failed (confidence %.2f), augmenting",
			cycles, verdict.Confidence)
		cur = augmentProfile(cur, verdict)
		if cycle == maxCycles-1 {
			revision = repair.GenerateEscalationPrompt(question, cand, verdict)
		} else {
			revision = repair.GenerateImprovementPrompt(question, cand, verdict)
		}
	}

	final := e.bestEffort(best, bestVerdict, &prof, decision, start, maxCycles+1)
	e.record(recordArgs{runID: runID, question: question, prof: &cur,
		decision: decision, cand: best, verdict: bestVerdict,
		report: report, start: start, cycles: maxCycles + 1})
	return final, nil
}

// bestEffort builds the degraded Final returned when the loop runs out of
// cycles or execution fails outright.
func (e *Engine) bestEffort(best *answer.Candidate, v quality.Verdict, prof *profile.Profile, dec *router.Decision, start time.Time, cycles int) *answer.Final {
	final := &answer.Final{
		Text:           fallbackText,
		Passed:         false,
		ProcessingTime: time.Since(start),
		Cycles:         cycles,
		Degraded:       prof.Degraded,
	}
	if dec != nil {
		final.Template = dec.Template
	}
	if best != nil {
		final.Text = best.Text
		final.Confidence = v.Confidence
		final.Model = best.Model
	}
	return final
}

// adjustedConfidence shaves the reported confidence when the verdict passed
// with individual checks below their bar. The answer still stands; the
// caller just sees the warning priced in. The deduction never pushes a
// passing answer under the threshold it cleared.
func adjustedConfidence(v quality.Verdict, minConfidence float64) float64 {
	conf := v.Confidence
	failing := 0
	for _, c := range v.Checks {
		if !c.Passed {
			failing++
		}
	}
	if failing == 0 {
		return conf
	}
	floor := minConfidence
	if conf < floor {
		floor = conf
	}
	conf -= 0.05 * float64(failing)
	if conf < floor {
		conf = floor
	}
	return conf
}

// recordModelStats feeds each successful model step back into the store. The
// verdict's confidence serves as the quality signal for every model that
// contributed to the candidate.
func (e *Engine) recordModelStats(rep *pipeline.Report, v quality.Verdict) {
	for _, s := range rep.Steps {
		if s.Model == "" || s.Status != pipeline.StatusSuccess {
			continue
		}
		e.stats.RecordModel(s.Model, stats.ModelSample{
			Quality: v.Confidence * 10,
			Latency: s.Latency,
			Success: v.Passed,
		})
	}
}

type recordArgs struct {
	runID    string
	question string
	prof     *profile.Profile
	decision *router.Decision
	cand     *answer.Candidate
	verdict  quality.Verdict
	report   *pipeline.Report
	start    time.Time
	cycles   int
	passed   bool
	err      error
}

// record persists one outcome. It runs on a detached context so a slow or
// canceled caller never loses the learning data, and failures only log.
func (e *Engine) record(a recordArgs) {
	if e.recorder == nil {
		return
	}
	rec := &feedback.Record{
		RunID:        a.runID,
		Timestamp:    time.Now().UTC(),
		QuestionHash: feedback.HashQuestion(a.question),
		Profile:      feedback.SummarizeProfile(a.prof),
		Verdict:      a.verdict,
		Confidence:   a.verdict.Confidence,
		Passed:       a.passed || a.verdict.Passed,
		Cycles:       a.cycles,
		LatencyMs:    time.Since(a.start).Milliseconds(),
	}
	if a.decision != nil {
		rec.Template = a.decision.Template
		rec.Variants = a.decision.Variants
		rec.RouteScore = a.decision.Score
	}
	if a.cand != nil {
		rec.Model = a.cand.Model
		rec.AnswerText = a.cand.Text
	}
	if a.report != nil {
		rec.Steps = a.report.Steps
		rec.Cost = a.report.Cost
	}
	if a.err != nil {
		rec.Error = a.err.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.recorder.Record(ctx, rec); err != nil {
		e.logf("[engine] feedback record failed: %v", err)
	}
}

// augmentProfile applies verdict hints to the profile for the next cycle.
// The original profile is never mutated; tool-need slices are copied before
// edits.
func augmentProfile(p profile.Profile, v quality.Verdict) profile.Profile {
	next := p
	next.ToolNeeds = append([]profile.ToolNeed(nil), p.ToolNeeds...)

	for _, h := range v.Hints {
		switch h.Action {
		case quality.ActionUseAdditionalSources:
			next.ToolNeeds = ensureToolNeed(next.ToolNeeds, profile.ToolRetrieval)
		case quality.ActionGatherMoreInformation:
			next.ToolNeeds = ensureToolNeed(next.ToolNeeds, profile.ToolSearch)
			if next.Strategy != profile.StrategyComprehensive {
				next.Strategy = profile.StrategyToolAssisted
			}
		case quality.ActionUseStrongerModel:
			if next.ComplexityLevel < 4 {
				next.ComplexityLevel++
			}
			next.Strategy = profile.StrategyComprehensive
		}
	}
	return next
}

func ensureToolNeed(needs []profile.ToolNeed, kind profile.ToolKind) []profile.ToolNeed {
	for _, n := range needs {
		if n.Kind == kind {
			return needs
		}
	}
	return append(needs, profile.ToolNeed{
		Kind:       kind,
		Confidence: 0.9,
		Priority:   profile.PriorityHigh,
	})
}
