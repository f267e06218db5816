// Package trial orchestrates N-trial execution of a scenario with per-trial
// isolation, bounded concurrency, retry, and early stop.
package trial

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/salvo/internal/adapters"
	"github.com/haasonsaas/salvo/internal/backoff"
	"github.com/haasonsaas/salvo/internal/evaluation"
	"github.com/haasonsaas/salvo/internal/observability"
	"github.com/haasonsaas/salvo/internal/runner"
	"github.com/haasonsaas/salvo/internal/storage"
	"github.com/haasonsaas/salvo/pkg/models"
)

// ProgressFunc is invoked after each trial completes with the trial number
// and the requested total.
type ProgressFunc func(trialNumber, total int)

// RunnerConfig controls N-trial orchestration.
type RunnerConfig struct {
	// NTrials is the number of trials to run. Default: 3.
	NTrials int

	// MaxParallel bounds concurrent trials; values <= 1 run sequentially.
	MaxParallel int

	// MaxRetries is the per-trial transient-error retry budget. Zero
	// disables retries; negative values reset to the default of 3.
	MaxRetries int

	// EarlyStop truncates the loop once the outcome can no longer change.
	EarlyStop bool

	// Threshold is the weighted-score pass threshold in [0, 1].
	Threshold float64

	// AllowInfra re-runs verdict selection over scored trials only.
	AllowInfra bool

	// Verbose enables advisory warnings from evaluators.
	Verbose bool
}

func sanitizeRunnerConfig(cfg RunnerConfig) RunnerConfig {
	if cfg.NTrials <= 0 {
		cfg.NTrials = 3
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 3
	}
	return cfg
}

// TrialRunner executes a scenario N times, each trial in a fresh isolation
// directory with a fresh adapter instance, and assembles the SuiteResult.
type TrialRunner struct {
	factory  adapters.Factory
	scenario *models.Scenario
	config   adapters.Config
	cfg      RunnerConfig

	store   storage.RunStore
	project *models.ProjectConfig
	logger  *observability.Logger
	metrics *observability.Metrics

	// judgeFactory resolves judge adapters; defaults to the registry.
	// Tests substitute scripted adapters here.
	judgeFactory func(name string) (adapters.Adapter, error)
}

// Option configures a TrialRunner.
type Option func(*TrialRunner)

// WithStore attaches a persistence hook for traces and the manifest.
func WithStore(store storage.RunStore) Option {
	return func(r *TrialRunner) { r.store = store }
}

// WithProjectConfig supplies project-level defaults (judge section).
func WithProjectConfig(project *models.ProjectConfig) Option {
	return func(r *TrialRunner) { r.project = project }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *observability.Logger) Option {
	return func(r *TrialRunner) { r.logger = logger }
}

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(r *TrialRunner) { r.metrics = metrics }
}

// WithJudgeAdapterFactory overrides judge adapter resolution.
func WithJudgeAdapterFactory(factory func(name string) (adapters.Adapter, error)) Option {
	return func(r *TrialRunner) { r.judgeFactory = factory }
}

// NewTrialRunner creates a trial runner. The factory is called once per
// trial so no SDK handle is ever shared across trials.
func NewTrialRunner(factory adapters.Factory, scenario *models.Scenario, config adapters.Config, cfg RunnerConfig, opts ...Option) *TrialRunner {
	r := &TrialRunner{
		factory:  factory,
		scenario: scenario,
		config:   config,
		cfg:      sanitizeRunnerConfig(cfg),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunAll executes all trials and returns the aggregate suite result.
func (r *TrialRunner) RunAll(ctx context.Context, progress ProgressFunc) (*models.SuiteResult, error) {
	runID := newID()
	ctx = observability.WithRunID(ctx, runID)
	ctx = observability.WithScenario(ctx, r.scenario.Name())

	r.logger.Info(ctx, "starting trial suite",
		"n_trials", r.cfg.NTrials, "max_parallel", r.cfg.MaxParallel,
		"early_stop", r.cfg.EarlyStop, "threshold", r.cfg.Threshold)

	var results []models.TrialResult
	if r.cfg.MaxParallel <= 1 {
		results = r.runSequential(ctx, progress)
	} else {
		results = r.runConcurrent(ctx, progress)
	}

	suite := r.buildSuiteResult(runID, results)

	if r.store != nil {
		for _, t := range suite.Trials {
			if t.TraceID == "" {
				continue
			}
			entry := storage.ManifestEntry{
				RunID:        runID,
				TraceID:      t.TraceID,
				TrialIndex:   t.TrialNumber - 1,
				Status:       string(t.Status),
				ScenarioName: suite.ScenarioName,
			}
			if t.Status == models.TrialInfraError {
				entry.Error = t.ErrorMessage
			}
			if err := r.store.SaveTraceManifestEntry(entry); err != nil {
				r.logger.Warn(ctx, "failed to write manifest entry", "trace_id", t.TraceID, "error", err)
			}
		}
		if err := r.store.SaveSuiteResult(suite); err != nil {
			r.logger.Warn(ctx, "failed to persist suite result", "run_id", runID, "error", err)
		}
	}

	r.logger.Info(ctx, "trial suite finished",
		"verdict", string(suite.Verdict), "score_avg", suite.ScoreAvg,
		"trials_total", suite.TrialsTotal, "early_stopped", suite.EarlyStopped)

	return suite, nil
}

// runSequential executes trials one at a time, consulting the early-stop
// predicate after each.
func (r *TrialRunner) runSequential(ctx context.Context, progress ProgressFunc) []models.TrialResult {
	var results []models.TrialResult

	for trialNum := 1; trialNum <= r.cfg.NTrials; trialNum++ {
		result := r.executeSingleTrial(ctx, trialNum)
		results = append(results, result)

		if progress != nil {
			progress(trialNum, r.cfg.NTrials)
		}

		if r.cfg.EarlyStop && r.shouldStopEarly(results) {
			break
		}
	}

	return results
}

// runConcurrent executes trials with bounded parallelism: a channel
// semaphore of size MaxParallel, one goroutine per trial, a shared stop
// flag, and one mutex guarding slot writes, progress dispatch, and the
// early-stop check. A trial that observes the stop flag before starting
// no-ops; in-flight trials run to completion.
func (r *TrialRunner) runConcurrent(ctx context.Context, progress ProgressFunc) []models.TrialResult {
	sem := make(chan struct{}, r.cfg.MaxParallel)
	slots := make([]*models.TrialResult, r.cfg.NTrials)

	var mu sync.Mutex
	stopped := false
	var wg sync.WaitGroup

	for trialNum := 1; trialNum <= r.cfg.NTrials; trialNum++ {
		wg.Add(1)
		go func(trialNum int) {
			defer wg.Done()

			mu.Lock()
			skip := stopped
			mu.Unlock()
			if skip {
				return
			}

			sem <- struct{}{}
			defer func() { <-sem }()

			mu.Lock()
			skip = stopped
			mu.Unlock()
			if skip {
				return
			}

			result := r.executeSingleTrial(ctx, trialNum)

			mu.Lock()
			defer mu.Unlock()
			slots[trialNum-1] = &result

			if progress != nil {
				progress(trialNum, r.cfg.NTrials)
			}

			if r.cfg.EarlyStop && !stopped {
				var completed []models.TrialResult
				for _, slot := range slots {
					if slot != nil {
						completed = append(completed, *slot)
					}
				}
				if r.shouldStopEarly(completed) {
					stopped = true
				}
			}
		}(trialNum)
	}

	wg.Wait()

	// Compact the slot array: gaps are trials skipped by early stop.
	var results []models.TrialResult
	for _, slot := range slots {
		if slot != nil {
			results = append(results, *slot)
		}
	}
	return results
}

// executeSingleTrial runs one trial end to end: isolation directory, fresh
// adapter, scenario run inside the retry wrapper, evaluation, and status
// derivation. Every failure is converted to an infra_error result at this
// boundary; nothing propagates.
func (r *TrialRunner) executeSingleTrial(ctx context.Context, trialNum int) models.TrialResult {
	ctx = observability.WithTrial(ctx, trialNum)

	// The trace id is generated upfront so both success and failure paths
	// can persist under it.
	traceID := newID()
	start := time.Now()

	tmpDir, err := os.MkdirTemp("", fmt.Sprintf("salvo_trial_%d_", trialNum))
	if err == nil {
		defer os.RemoveAll(tmpDir)
	}

	result, runErr := r.runTrialOnce(ctx, traceID)
	elapsed := time.Since(start).Seconds()

	if runErr != nil {
		r.logger.Warn(ctx, "trial failed with infra error", "error", runErr)
		r.persistPlaceholderTrace(ctx, traceID, elapsed)
		tr := models.TrialResult{
			TrialNumber:         trialNum,
			Status:              models.TrialInfraError,
			Score:               0.0,
			Passed:              false,
			LatencySeconds:      elapsed,
			ErrorMessage:        runErr.Error(),
			RetriesUsed:         r.cfg.MaxRetries,
			TransientErrorTypes: []string{adapters.ErrorTypeName(runErr)},
			TraceID:             traceID,
		}
		r.metrics.ObserveTrial(r.scenario.Adapter, r.config.Model, string(tr.Status), elapsed)
		return tr
	}

	result.TrialNumber = trialNum
	result.LatencySeconds = elapsed
	result.TraceID = traceID
	r.metrics.ObserveTrial(r.scenario.Adapter, r.config.Model, string(result.Status), elapsed)
	r.logger.Debug(ctx, "trial completed", "status", string(result.Status), "score", result.Score)
	return *result
}

// runTrialOnce is the fallible portion of a trial: run the scenario with
// retry, persist the trace, and evaluate.
func (r *TrialRunner) runTrialOnce(ctx context.Context, traceID string) (*models.TrialResult, error) {
	adapter, err := r.factory()
	if err != nil {
		return nil, fmt.Errorf("create adapter: %w", err)
	}

	scenarioRunner := runner.NewScenarioRunner(adapter, r.logger, r.metrics)

	retryResult, err := backoff.Retry(ctx, backoff.Options{
		Policy: backoff.Policy{
			Base:       time.Second,
			Cap:        30 * time.Second,
			MaxRetries: r.cfg.MaxRetries,
		},
		IsTransient: adapters.IsTransientError,
		ErrorType:   adapters.ErrorTypeName,
	}, func(ctx context.Context) (*models.Trace, error) {
		return scenarioRunner.Run(ctx, r.scenario, r.config)
	})
	if err != nil {
		return nil, err
	}
	trace := retryResult.Value

	for _, errType := range retryResult.ErrorTypes {
		r.metrics.ObserveRetry(r.scenario.Adapter, errType)
	}

	if r.store != nil {
		if err := r.store.SaveTrace(traceID, trace); err != nil {
			r.logger.Warn(ctx, "failed to persist trace", "trace_id", traceID, "error", err)
		}
	}

	var projectJudge *models.JudgeConfig
	if r.project != nil {
		judgeCfg := r.project.Judge
		projectJudge = &judgeCfg
	}

	evalResults, score, passed, err := evaluation.EvaluateTrace(ctx, trace, r.scenario.Assertions, r.cfg.Threshold, &evaluation.Options{
		Scenario:       r.scenario,
		ProjectJudge:   projectJudge,
		Verbose:        r.cfg.Verbose,
		Logger:         r.logger,
		Metrics:        r.metrics,
		AdapterFactory: r.judgeFactory,
	})
	if err != nil {
		return nil, err
	}

	hardFail := false
	for _, er := range evalResults {
		if er.Required && !er.Passed {
			hardFail = true
			break
		}
	}
	status := models.TrialFailed
	switch {
	case hardFail:
		status = models.TrialHardFail
	case passed:
		status = models.TrialPassed
	}

	return &models.TrialResult{
		Status:              status,
		Score:               score,
		Passed:              passed,
		EvalResults:         evalResults,
		CostUSD:             trace.CostUSD,
		RetriesUsed:         retryResult.Retries,
		TransientErrorTypes: retryResult.ErrorTypes,
	}, nil
}

// persistPlaceholderTrace stores a minimal trace for a failed trial so the
// trace id in the manifest always resolves.
func (r *TrialRunner) persistPlaceholderTrace(ctx context.Context, traceID string, elapsed float64) {
	if r.store == nil {
		return
	}
	systemPrompt := r.scenario.SystemPrompt
	placeholder := &models.Trace{
		Messages: []models.TraceMessage{
			{Role: models.RoleSystem, Content: &systemPrompt},
			{Role: models.RoleUser, Content: models.StrPtr(r.scenario.Prompt)},
		},
		ToolCallsMade:  []models.ToolCall{},
		LatencySeconds: elapsed,
		FinishReason:   "error",
		Model:          r.config.Model,
		Provider:       "unknown",
		Timestamp:      time.Now().UTC(),
	}
	if err := r.store.SaveTrace(traceID, placeholder); err != nil {
		r.logger.Warn(ctx, "failed to persist placeholder trace", "trace_id", traceID, "error", err)
	}
}

// shouldStopEarly reports whether remaining trials cannot change the
// outcome: a hard fail already occurred, or the threshold is mathematically
// unreachable even if every remaining trial scores 1.0.
func (r *TrialRunner) shouldStopEarly(completed []models.TrialResult) bool {
	for _, t := range completed {
		if t.Status == models.TrialHardFail {
			return true
		}
	}

	remaining := r.cfg.NTrials - len(completed)
	if remaining <= 0 {
		return false
	}

	scoreSum := 0.0
	for _, t := range completed {
		scoreSum += t.Score
	}
	bestPossibleAvg := (scoreSum + float64(remaining)) / float64(r.cfg.NTrials)
	return bestPossibleAvg < r.cfg.Threshold
}

// buildSuiteResult assembles the final SuiteResult from trial results.
func (r *TrialRunner) buildSuiteResult(runID string, results []models.TrialResult) *models.SuiteResult {
	var scored []models.TrialResult
	for _, t := range results {
		if t.Status != models.TrialInfraError {
			scored = append(scored, t)
		}
	}

	metrics := evaluation.ComputeAggregateMetrics(scored)
	verdict := evaluation.DetermineVerdict(results, metrics.ScoreAvg, r.cfg.Threshold, r.cfg.AllowInfra)
	failures := evaluation.AggregateFailures(results)

	counts := map[models.TrialStatus]int{}
	totalRetries := 0
	trialsWithRetries := 0
	for _, t := range results {
		counts[t.Status]++
		totalRetries += t.RetriesUsed
		if t.RetriesUsed > 0 {
			trialsWithRetries++
		}
	}

	// Judge costs are summed from eval-result metadata. The metadata value
	// is float64 both in memory and after a JSON round trip.
	judgeCost := 0.0
	hasJudge := false
	for _, t := range results {
		for _, er := range t.EvalResults {
			if er.Metadata == nil {
				continue
			}
			if c, ok := er.Metadata["judge_cost_usd"].(float64); ok {
				judgeCost += c
				hasJudge = true
			}
		}
	}

	earlyStopped := len(results) < r.cfg.NTrials
	earlyStopReason := ""
	if earlyStopped {
		hardFailTrial := 0
		for _, t := range results {
			if t.Status == models.TrialHardFail {
				hardFailTrial = t.TrialNumber
				break
			}
		}
		if hardFailTrial > 0 {
			earlyStopReason = fmt.Sprintf("Hard fail detected on trial %d", hardFailTrial)
		} else {
			earlyStopReason = "Threshold mathematically unreachable"
		}
	}

	suite := &models.SuiteResult{
		RunID:             runID,
		ScenarioName:      r.scenario.Name(),
		Model:             r.config.Model,
		Adapter:           r.scenario.Adapter,
		Trials:            results,
		TrialsTotal:       len(results),
		TrialsPassed:      counts[models.TrialPassed],
		TrialsFailed:      counts[models.TrialFailed],
		TrialsHardFail:    counts[models.TrialHardFail],
		TrialsInfraError:  counts[models.TrialInfraError],
		Verdict:           verdict,
		PassRate:          metrics.PassRate,
		ScoreAvg:          metrics.ScoreAvg,
		ScoreMin:          metrics.ScoreMin,
		ScoreP50:          metrics.ScoreP50,
		ScoreP95:          metrics.ScoreP95,
		Threshold:         r.cfg.Threshold,
		CostTotal:         metrics.CostTotal,
		CostAvgPerTrial:   metrics.CostAvgPerTrial,
		LatencyP50:        metrics.LatencyP50,
		LatencyP95:        metrics.LatencyP95,
		TotalRetries:      totalRetries,
		TrialsWithRetries: trialsWithRetries,
		EarlyStopped:      earlyStopped,
		EarlyStopReason:   earlyStopReason,
		NRequested:        r.cfg.NTrials,
		AssertionFailures: failures,
	}
	if hasJudge {
		suite.JudgeCostTotal = &judgeCost
	}
	return suite
}

// newID returns a UUIDv7 (chronologically sortable) or a v4 when the
// monotonic source fails.
func newID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
