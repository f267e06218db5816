package evaluation

import (
	"context"
	"fmt"

	"github.com/haasonsaas/salvo/pkg/models"
)

// CostLimitEvaluator passes when the trace cost is within the limit.
// Unknown cost (no pricing entry) is a failure, never a pass, so a missing
// pricing entry cannot silently mask a cost overrun.
type CostLimitEvaluator struct{}

// Evaluate checks trace cost against the max_usd limit.
func (e *CostLimitEvaluator) Evaluate(_ context.Context, trace *models.Trace, assertion *models.Assertion) *models.EvalResult {
	maxUSD := 0.0
	if assertion.MaxUSD != nil {
		maxUSD = *assertion.MaxUSD
	}

	if trace.CostUSD == nil {
		return &models.EvalResult{
			AssertionType: models.AssertionCostLimit,
			Score:         0.0,
			Passed:        false,
			Weight:        assertion.Weight,
			Required:      assertion.Required,
			Details:       fmt.Sprintf("cost unknown -- cannot verify limit of $%.4f", maxUSD),
		}
	}

	passed := *trace.CostUSD <= maxUSD
	score := 0.0
	if passed {
		score = 1.0
	}
	return &models.EvalResult{
		AssertionType: models.AssertionCostLimit,
		Score:         score,
		Passed:        passed,
		Weight:        assertion.Weight,
		Required:      assertion.Required,
		Details:       fmt.Sprintf("cost $%.4f vs limit $%.4f", *trace.CostUSD, maxUSD),
	}
}

// LatencyLimitEvaluator passes when the trace latency is within the limit.
type LatencyLimitEvaluator struct{}

// Evaluate checks trace latency against the max_seconds limit.
func (e *LatencyLimitEvaluator) Evaluate(_ context.Context, trace *models.Trace, assertion *models.Assertion) *models.EvalResult {
	maxSeconds := 0.0
	if assertion.MaxSeconds != nil {
		maxSeconds = *assertion.MaxSeconds
	}

	passed := trace.LatencySeconds <= maxSeconds
	score := 0.0
	if passed {
		score = 1.0
	}
	return &models.EvalResult{
		AssertionType: models.AssertionLatencyLimit,
		Score:         score,
		Passed:        passed,
		Weight:        assertion.Weight,
		Required:      assertion.Required,
		Details:       fmt.Sprintf("latency %.3fs vs limit %.3fs", trace.LatencySeconds, maxSeconds),
	}
}
