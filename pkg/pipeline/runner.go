package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/zen-systems/askroute/pkg/adapter"
	"github.com/zen-systems/askroute/pkg/answer"
	"github.com/zen-systems/askroute/pkg/config"
	"github.com/zen-systems/askroute/pkg/knowledge"
	"github.com/zen-systems/askroute/pkg/model"
	"github.com/zen-systems/askroute/pkg/plan"
	"github.com/zen-systems/askroute/pkg/profile"
	"github.com/zen-systems/askroute/pkg/stats"
	"github.com/zen-systems/askroute/pkg/tool"
)

// Runner executes plans. One Runner is shared by every concurrent plan of an
// engine; the admission semaphore bounds in-flight steps process-wide while
// each plan additionally respects its own MaxParallel.
type Runner struct {
	cfg       *config.EngineConfig
	backends  map[string]adapter.ModelBackend
	selector  *model.Selector
	tools     *tool.Registry
	retriever knowledge.Retriever
	admission *semaphore.Weighted
	limiter   *rate.Limiter
	logf      func(format string, args ...any)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTools sets the tool registry for tool-call steps.
func WithTools(reg *tool.Registry) RunnerOption {
	return func(r *Runner) { r.tools = reg }
}

// WithRetriever sets the knowledge backend for retrieve steps.
func WithRetriever(kr knowledge.Retriever) RunnerOption {
	return func(r *Runner) { r.retriever = kr }
}

// WithLogger sets the debug log sink.
func WithLogger(logf func(format string, args ...any)) RunnerOption {
	return func(r *Runner) {
		if logf != nil {
			r.logf = logf
		}
	}
}

// WithAdmission shares an existing admission semaphore, for callers that run
// several Runners against one process-wide budget.
func WithAdmission(sem *semaphore.Weighted) RunnerOption {
	return func(r *Runner) { r.admission = sem }
}

// NewRunner builds a Runner over the registered model backends.
func NewRunner(cfg *config.EngineConfig, backends map[string]adapter.ModelBackend, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:      cfg,
		backends: backends,
		selector: model.NewSelector(cfg),
		logf:     func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.admission == nil {
		r.admission = semaphore.NewWeighted(int64(cfg.Orchestrator.MaxParallel))
	}
	if cfg.Orchestrator.ModelRatePerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.Orchestrator.ModelRatePerSecond),
			cfg.Orchestrator.ModelRateBurst)
	}
	return r
}

// ExecOption adjusts one Execute call.
type ExecOption func(*execution)

// WithRevisionPrompt replaces the primary model-call prompt. The improvement
// loop uses it to carry the failed draft and the quality hints into the
// re-run.
func WithRevisionPrompt(prompt string) ExecOption {
	return func(e *execution) { e.revision = prompt }
}

// execution is the per-plan mutable state. Step results are write-once: the
// wave loop is the only writer, step goroutines return their result values.
type execution struct {
	runner   *Runner
	plan     *plan.Plan
	prof     *profile.Profile
	snap     stats.Snapshot
	revision string
	results  map[string]*StepResult
	cost     *costTracker
	ensemble *model.Ensemble
}

// Execute runs the plan to completion or failure. A malformed plan is fatal.
// A mandatory step that exhausts its retries fails the plan with
// StepExhaustedError carrying the partial results; plan deadline expiry
// instead cancels remaining work and integrates whatever completed.
func (r *Runner) Execute(ctx context.Context, pl *plan.Plan, prof *profile.Profile, snap stats.Snapshot, opts ...ExecOption) (*answer.Candidate, *Report, error) {
	if err := pl.Validate(); err != nil {
		return nil, nil, err
	}
	waves, err := pl.Waves()
	if err != nil {
		return nil, nil, err
	}

	e := &execution{
		runner:  r,
		plan:    pl,
		prof:    prof,
		snap:    snap,
		results: make(map[string]*StepResult, len(pl.Steps)),
		cost:    newCostTracker(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ensemble = model.NewEnsemble(r.cfg, e.invokeSpec,
		model.WithSelector(r.selector), model.WithLogger(r.logf))

	planCtx := ctx
	cancel := func() {}
	if pl.Deadline > 0 {
		planCtx, cancel = context.WithTimeout(ctx, pl.Deadline)
	}
	defer cancel()

	start := time.Now()
	deadlineHit := false

	maxParallel := pl.MaxParallel
	if maxParallel <= 0 || maxParallel > r.cfg.Orchestrator.PlanMaxParallel {
		maxParallel = r.cfg.Orchestrator.PlanMaxParallel
	}
	planSem := semaphore.NewWeighted(int64(maxParallel))

	for _, wave := range waves {
		if planCtx.Err() != nil {
			deadlineHit = true
			break
		}

		eligible := make([]*plan.Step, 0, len(wave))
		for _, id := range wave {
			step, _ := pl.Step(id)
			if e.depsSatisfied(step) {
				eligible = append(eligible, step)
			} else {
				e.results[id] = &StepResult{StepID: id, Status: StatusSkipped}
			}
		}

		outcomes := make([]*StepResult, len(eligible))
		var wg sync.WaitGroup
		for i, step := range eligible {
			wg.Add(1)
			go func(i int, step *plan.Step) {
				defer wg.Done()
				outcomes[i] = e.runStep(planCtx, planSem, step)
			}(i, step)
		}
		wg.Wait()

		for _, res := range outcomes {
			if step, _ := pl.Step(res.StepID); step.Optional && res.Status != StatusSuccess {
				res.Status = StatusSkipped
			}
			e.results[res.StepID] = res
		}

		if planCtx.Err() != nil && ctx.Err() == nil {
			deadlineHit = true
			break
		}
		for _, res := range outcomes {
			if res.Status == StatusSuccess || res.Status == StatusSkipped {
				continue
			}
			step, _ := pl.Step(res.StepID)
			if step.Optional {
				continue
			}
			report := e.report(len(waves), time.Since(start), deadlineHit)
			return nil, report, &StepExhaustedError{
				StepID:   res.StepID,
				Attempts: res.Attempts,
				Partial:  e.results,
				Err:      res.Err,
			}
		}
	}

	// Steps the deadline cut off never started; record them as skipped so
	// the report covers the whole plan.
	for i := range pl.Steps {
		if _, ok := e.results[pl.Steps[i].ID]; !ok {
			e.results[pl.Steps[i].ID] = &StepResult{StepID: pl.Steps[i].ID, Status: StatusSkipped}
		}
	}

	report := e.report(len(waves), time.Since(start), deadlineHit)
	cand, err := e.integrate()
	if err != nil {
		return nil, report, err
	}
	return cand, report, nil
}

// depsSatisfied reports whether every dependency reached a terminal state and
// every non-optional dependency succeeded. An optional dependency that was
// skipped or failed never blocks its dependents.
func (e *execution) depsSatisfied(step *plan.Step) bool {
	for _, dep := range step.DependsOn {
		res, ok := e.results[dep]
		if !ok {
			return false
		}
		depStep, _ := e.plan.Step(dep)
		if !depStep.Optional && res.Status != StatusSuccess {
			return false
		}
	}
	return true
}

// runStep executes one step with retries. Attempts stop early when the plan
// context dies; backoff grows exponentially from the configured base.
func (e *execution) runStep(planCtx context.Context, planSem *semaphore.Weighted, step *plan.Step) *StepResult {
	res := &StepResult{StepID: step.ID, StartedAt: time.Now()}
	defer func() {
		res.FinishedAt = time.Now()
		res.Latency = res.FinishedAt.Sub(res.StartedAt)
	}()

	if err := planSem.Acquire(planCtx, 1); err != nil {
		res.Status = StatusSkipped
		return res
	}
	defer planSem.Release(1)
	if err := e.runner.admission.Acquire(planCtx, 1); err != nil {
		res.Status = StatusSkipped
		return res
	}
	defer e.runner.admission.Release(1)

	attempts := step.RetryBudget + 1
	retry := e.runner.cfg.Orchestrator.Retry
	var lastErr error
	timedOut := false

	for attempt := 1; attempt <= attempts; attempt++ {
		res.Attempts = attempt

		stepCtx := planCtx
		cancel := func() {}
		if step.Timeout > 0 {
			stepCtx, cancel = context.WithTimeout(planCtx, step.Timeout)
		}
		err := e.dispatch(stepCtx, step, res)
		timedOut = stepCtx.Err() != nil && planCtx.Err() == nil
		cancel()

		if err == nil {
			res.Status = StatusSuccess
			return res
		}
		lastErr = err
		e.runner.logf("[pipeline] step %s attempt %d/%d failed: %v", step.ID, attempt, attempts, err)

		if planCtx.Err() != nil {
			break
		}
		if attempt < attempts {
			backoff := time.Duration(retry.BaseBackoffMs) * time.Millisecond << (attempt - 1)
			if max := time.Duration(retry.MaxBackoffMs) * time.Millisecond; backoff > max {
				backoff = max
			}
			select {
			case <-time.After(backoff):
			case <-planCtx.Done():
			}
		}
	}

	res.Status = StatusFailed
	if timedOut {
		res.Status = StatusTimedOut
	}
	res.Err = lastErr
	return res
}

// dispatch runs one attempt of a step and fills res with its payload.
func (e *execution) dispatch(ctx context.Context, step *plan.Step, res *StepResult) error {
	switch step.Kind {
	case plan.StepRetrieve:
		return e.runRetrieve(ctx, step, res)
	case plan.StepToolCall:
		return e.runTool(ctx, step, res)
	case plan.StepModelCall:
		return e.runModel(ctx, step, res)
	default:
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

func (e *execution) runRetrieve(ctx context.Context, step *plan.Step, res *StepResult) error {
	if e.runner.retriever == nil {
		return knowledge.ErrRetrievalUnavailable
	}
	topK := paramInt(step.Params, "topk", 3)
	filters := map[string]string{}
	if d := step.Params["domain"]; d != "" && d != "general" {
		filters["domain"] = d
	}
	docs, err := e.runner.retriever.Retrieve(ctx, step.Params["query"], topK, filters)
	if err != nil {
		return err
	}

	res.Sources = res.Sources[:0]
	var payload []string
	for _, d := range docs {
		res.Sources = append(res.Sources, answer.Source{
			ID:        d.SourceID,
			Origin:    step.ID,
			Content:   d.Content,
			Relevance: d.RelevanceScore,
		})
		payload = append(payload, d.Content)
	}
	res.Payload = joinSections(payload)
	return nil
}

func (e *execution) runTool(ctx context.Context, step *plan.Step, res *StepResult) error {
	if e.runner.tools == nil {
		return &tool.ToolError{Tool: step.Params["kind"], Err: errors.New("no tool registry configured")}
	}
	kind := profile.ToolKind(step.Params["kind"])
	t, ok := e.runner.tools.Get(kind)
	if !ok {
		return &tool.ToolError{Tool: string(kind), Err: errors.New("tool not registered")}
	}

	start := time.Now()
	out, err := t.Execute(ctx, step.Params)
	e.runner.tools.Observe(kind, time.Since(start), err == nil)
	if err != nil {
		return err
	}
	res.Payload = out.Output
	for _, item := range out.Items {
		res.Sources = append(res.Sources, answer.Source{
			ID:        item.Ref,
			Origin:    step.ID,
			Content:   item.Content,
			Relevance: item.Score,
		})
	}
	return nil
}

func (e *execution) runModel(ctx context.Context, step *plan.Step, res *StepResult) error {
	prompt := e.buildPrompt(step)

	if step.Params["ensemble"] == "true" {
		out, err := e.ensemble.Answer(ctx, prompt, e.prof.ComplexityLevel, e.snap)
		if err != nil {
			return err
		}
		res.Payload = out.Text
		res.Confidence = out.Confidence
		res.Model = out.Primary
		res.Ensemble = true
		return nil
	}

	spec, err := e.runner.selector.Select(e.prof.ComplexityLevel, step.Params["focus"], e.snap)
	if err != nil {
		return err
	}
	resp, err := e.invokeSpec(ctx, spec, prompt)
	if err != nil {
		return err
	}
	res.Payload = resp.Text
	res.Confidence = resp.SelfConfidence
	res.Model = spec.Name
	return nil
}

// invokeSpec performs one rate-limited backend call and accounts its cost.
// Ensemble members go through here too, so every model call shares the
// process-wide pacing budget.
func (e *execution) invokeSpec(ctx context.Context, spec config.ModelSpec, prompt string) (*adapter.Response, error) {
	backend, ok := e.runner.backends[spec.Backend]
	if !ok {
		return nil, &adapter.ModelError{Backend: spec.Backend,
			Err: fmt.Errorf("backend not registered for model %s", spec.Name)}
	}
	if e.runner.limiter != nil {
		if err := e.runner.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	resp, err := backend.Invoke(ctx, spec.Name, prompt)
	if err != nil {
		return nil, err
	}
	e.cost.record(spec, resp.Usage)
	return resp, nil
}

func (e *execution) report(waves int, duration time.Duration, deadlineHit bool) *Report {
	rep := &Report{
		PlanID:   e.plan.ID,
		Template: e.plan.Template,
		Waves:    waves,
		Cost:     e.cost.report(),
		Duration: duration,
		Deadline: deadlineHit,
	}
	for i := range e.plan.Steps {
		step := &e.plan.Steps[i]
		res, ok := e.results[step.ID]
		if !ok {
			continue
		}
		s := StepSummary{
			StepID:     step.ID,
			Kind:       string(step.Kind),
			Status:     res.Status,
			Model:      res.Model,
			Attempts:   res.Attempts,
			LatencyMs:  res.Latency.Milliseconds(),
			Latency:    res.Latency,
			StartedAt:  res.StartedAt,
			FinishedAt: res.FinishedAt,
		}
		if res.Err != nil {
			s.Error = res.Err.Error()
		}
		rep.Steps = append(rep.Steps, s)
	}
	return rep
}

func paramInt(params map[string]string, key string, fallback int) int {
	v, ok := params[key]
	if !ok {
		return fallback
	}
	n := 0
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n <= 0 {
		return fallback
	}
	return n
}
