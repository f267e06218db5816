package evaluation

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/salvo/internal/adapters"
	"github.com/haasonsaas/salvo/internal/cost"
	"github.com/haasonsaas/salvo/internal/evaluation/judge"
	"github.com/haasonsaas/salvo/pkg/models"
)

// judgeKMin and judgeKMax clamp the vote count.
const (
	judgeKMin = 1
	judgeKMax = 21
)

// JudgeEvaluator performs LLM-as-judge evaluation with k independent votes
// aggregated by per-criterion median and majority-vote pass/fail. Unlike
// the other evaluators it performs its own adapter I/O.
type JudgeEvaluator struct {
	opts *Options
}

// NewJudgeEvaluator creates a judge evaluator bound to the evaluation
// options.
func NewJudgeEvaluator(opts *Options) *JudgeEvaluator {
	if opts == nil {
		opts = &Options{}
	}
	return &JudgeEvaluator{opts: opts}
}

// resolvedJudgeConfig is the merged judge configuration for one assertion.
type resolvedJudgeConfig struct {
	Adapter     string
	Model       string
	K           int
	Temperature float64
	MaxTokens   int
	Threshold   float64
}

// resolveJudgeConfig merges configuration by priority: per-assertion keys,
// then the project judge section, then hard-coded defaults.
func resolveJudgeConfig(assertion *models.Assertion, project *models.JudgeConfig) resolvedJudgeConfig {
	defaults := models.DefaultJudgeConfig()
	resolved := resolvedJudgeConfig{
		Adapter:     defaults.Adapter,
		Model:       defaults.Model,
		K:           defaults.K,
		Temperature: defaults.Temperature,
		MaxTokens:   defaults.MaxTokens,
		Threshold:   defaults.DefaultThreshold,
	}

	if project != nil {
		if project.Adapter != "" {
			resolved.Adapter = project.Adapter
		}
		if project.Model != "" {
			resolved.Model = project.Model
		}
		if project.K > 0 {
			resolved.K = project.K
		}
		resolved.Temperature = project.Temperature
		if project.MaxTokens > 0 {
			resolved.MaxTokens = project.MaxTokens
		}
		if project.DefaultThreshold > 0 {
			resolved.Threshold = project.DefaultThreshold
		}
	}

	if assertion.JudgeAdapter != "" {
		resolved.Adapter = assertion.JudgeAdapter
	}
	if assertion.JudgeModel != "" {
		resolved.Model = assertion.JudgeModel
	}
	if assertion.K != nil {
		resolved.K = *assertion.K
	}
	if assertion.Temperature != nil {
		resolved.Temperature = *assertion.Temperature
	}
	if assertion.MaxTokens != nil {
		resolved.MaxTokens = *assertion.MaxTokens
	}
	if assertion.Threshold != nil {
		resolved.Threshold = *assertion.Threshold
	}

	if resolved.K < judgeKMin {
		resolved.K = judgeKMin
	}
	if resolved.K > judgeKMax {
		resolved.K = judgeKMax
	}
	return resolved
}

// Evaluate runs the full judge pipeline: prompt construction, k adapter
// calls, score extraction, and aggregation into one EvalResult.
func (e *JudgeEvaluator) Evaluate(ctx context.Context, trace *models.Trace, assertion *models.Assertion) *models.EvalResult {
	config := resolveJudgeConfig(assertion, e.opts.ProjectJudge)

	if config.K == 1 && e.opts.Verbose {
		name := assertion.Name
		if name == "" {
			name = "?"
		}
		e.opts.Logger.Warn(ctx, "k=1 for judge assertion -- majority voting is disabled", "assertion", name)
	}

	contextBlock := judge.BuildContext(trace, e.opts.Scenario, assertion.IncludeSystemPrompt)
	systemPrompt := assertion.CustomPrompt
	if systemPrompt == "" {
		systemPrompt = judge.BuildSystemPrompt(assertion.Criteria)
	}
	userPrompt := judge.BuildUserPrompt(contextBlock)
	scoringTool := judge.BuildScoringTool(assertion.Criteria)

	factory := e.opts.AdapterFactory
	if factory == nil {
		factory = adapters.New
	}
	adapter, err := factory(config.Adapter)
	if err != nil {
		return &models.EvalResult{
			AssertionType: models.AssertionJudge,
			Score:         0.0,
			Passed:        false,
			Weight:        assertion.Weight,
			Required:      assertion.Required,
			Details:       fmt.Sprintf("judge adapter unavailable: %v", err),
		}
	}

	adapterConfig := adapters.Config{
		Model:       config.Model,
		Temperature: models.Float64Ptr(config.Temperature),
		MaxTokens:   &config.MaxTokens,
		Extras:      judge.FormatToolChoice(adapter.ProviderName(), judge.ScoringToolName),
	}

	messages := []adapters.Message{
		{Role: models.RoleSystem, Content: models.StrPtr(systemPrompt)},
		{Role: models.RoleUser, Content: models.StrPtr(userPrompt)},
	}
	tools := []adapters.ToolDefinition{scoringTool}

	var votes []judge.Vote
	parseFailures := 0
	totalJudgeCost := 0.0

	for i := 0; i < config.K; i++ {
		result, err := adapter.SendTurn(ctx, messages, tools, adapterConfig)
		if err != nil {
			parseFailures++
			e.opts.Metrics.ObserveJudgeVote(config.Model, false)
			continue
		}

		if c := cost.Estimate(config.Model, result.Usage.InputTokens, result.Usage.OutputTokens); c != nil {
			totalJudgeCost += *c
		}

		vote := judge.ExtractScores(result, assertion.Criteria)
		if vote == nil {
			parseFailures++
			e.opts.Metrics.ObserveJudgeVote(config.Model, false)
			continue
		}
		votes = append(votes, vote)
		e.opts.Metrics.ObserveJudgeVote(config.Model, true)
	}

	if len(votes) == 0 {
		return &models.EvalResult{
			AssertionType: models.AssertionJudge,
			Score:         0.0,
			Passed:        false,
			Weight:        assertion.Weight,
			Required:      assertion.Required,
			Details:       fmt.Sprintf("judge_parse_failed: %d/%d calls failed", parseFailures, config.K),
			Metadata: map[string]any{
				"judge_model":    config.Model,
				"judge_k":        config.K,
				"judge_cost_usd": totalJudgeCost,
			},
		}
	}

	overall, majorityPassed, summaries := judge.AggregateVotes(votes, assertion.Criteria, config.Threshold)

	parts := make([]string, 0, len(summaries))
	for _, s := range summaries {
		parts = append(parts, fmt.Sprintf("%s=%.2f", s.Name, s.MedianScore))
	}
	details := fmt.Sprintf("judge=%s k=%d votes=%d/%d | judge_cost=$%.6f | %s",
		config.Model, config.K, len(votes), config.K, totalJudgeCost, strings.Join(parts, ", "))

	return &models.EvalResult{
		AssertionType: models.AssertionJudge,
		Score:         overall,
		Passed:        majorityPassed,
		Weight:        assertion.Weight,
		Required:      assertion.Required,
		Details:       details,
		Metadata: map[string]any{
			"judge_model":    config.Model,
			"judge_k":        config.K,
			"judge_votes":    len(votes),
			"judge_cost_usd": totalJudgeCost,
			"per_criterion":  summaries,
		},
	}
}
