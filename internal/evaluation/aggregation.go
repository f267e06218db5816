package evaluation

import (
	"math"
	"sort"

	"github.com/haasonsaas/salvo/pkg/models"
)

// AggregateMetrics holds cross-trial score, latency, and cost statistics.
// Cost fields are nil unless at least one trial carries a known cost;
// latency percentiles are nil when no trial was scored.
type AggregateMetrics struct {
	ScoreAvg        float64
	ScoreMin        float64
	ScoreP50        float64
	ScoreP95        float64
	PassRate        float64
	LatencyP50      *float64
	LatencyP95      *float64
	CostTotal       *float64
	CostAvgPerTrial *float64
}

// ComputeAggregateMetrics computes statistics over scored trials (trials
// with status other than infra_error). Percentiles use the 99-cut-point
// method; a single trial collapses p50 and p95 to its sole value.
func ComputeAggregateMetrics(scoredTrials []models.TrialResult) AggregateMetrics {
	if len(scoredTrials) == 0 {
		return AggregateMetrics{}
	}

	n := len(scoredTrials)
	scores := make([]float64, 0, n)
	latencies := make([]float64, 0, n)
	var costs []float64
	passedCount := 0
	for _, t := range scoredTrials {
		scores = append(scores, t.Score)
		latencies = append(latencies, t.LatencySeconds)
		if t.CostUSD != nil {
			costs = append(costs, *t.CostUSD)
		}
		if t.Passed {
			passedCount++
		}
	}

	sum := 0.0
	min := scores[0]
	for _, s := range scores {
		sum += s
		if s < min {
			min = s
		}
	}

	metrics := AggregateMetrics{
		ScoreAvg: sum / float64(n),
		ScoreMin: min,
		PassRate: float64(passedCount) / float64(n),
	}

	if n == 1 {
		metrics.ScoreP50 = scores[0]
		metrics.ScoreP95 = scores[0]
		metrics.LatencyP50 = models.Float64Ptr(latencies[0])
		metrics.LatencyP95 = models.Float64Ptr(latencies[0])
	} else {
		metrics.ScoreP50 = quantile(scores, 50)
		metrics.ScoreP95 = quantile(scores, 95)
		metrics.LatencyP50 = models.Float64Ptr(quantile(latencies, 50))
		metrics.LatencyP95 = models.Float64Ptr(quantile(latencies, 95))
	}

	if len(costs) > 0 {
		total := 0.0
		for _, c := range costs {
			total += c
		}
		metrics.CostTotal = models.Float64Ptr(total)
		// The average is over all scored trials, not only those with cost.
		metrics.CostAvgPerTrial = models.Float64Ptr(total / float64(n))
	}

	return metrics
}

// quantile computes cut point k of 100 using the exclusive method over 99
// cut points: position k*(n+1)/100 with linear interpolation, clamped to
// the data range. Cut point 50 is the median, 95 the 95th percentile.
func quantile(data []float64, k int) float64 {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	n := len(sorted)

	pos := float64(k) * float64(n+1) / 100.0
	j := int(math.Floor(pos))
	g := pos - float64(j)

	if j < 1 {
		return sorted[0]
	}
	if j >= n {
		return sorted[n-1]
	}
	return sorted[j-1] + g*(sorted[j]-sorted[j-1])
}

// DetermineVerdict decides the suite verdict, in priority order:
// infra error (unless allowed), hard fail, partial, fail, pass.
func DetermineVerdict(trials []models.TrialResult, avgScore, threshold float64, allowInfra bool) models.Verdict {
	hasInfraError := false
	hasHardFail := false
	for _, t := range trials {
		switch t.Status {
		case models.TrialInfraError:
			hasInfraError = true
		case models.TrialHardFail:
			hasHardFail = true
		}
	}

	if hasInfraError && !allowInfra {
		return models.VerdictInfraError
	}
	if hasHardFail {
		return models.VerdictHardFail
	}

	passedCount := 0
	scoredCount := 0
	for _, t := range trials {
		if t.Status == models.TrialInfraError {
			continue
		}
		scoredCount++
		if t.Passed {
			passedCount++
		}
	}
	passRate := 0.0
	if scoredCount > 0 {
		passRate = float64(passedCount) / float64(scoredCount)
	}

	if avgScore < threshold {
		if passRate > 0 {
			return models.VerdictPartial
		}
		return models.VerdictFail
	}
	return models.VerdictPass
}

// AggregateFailures groups every non-passing evaluation result across all
// trials by (assertion type, first 80 characters of details) and ranks the
// groups by fail_count x average weight lost, descending.
func AggregateFailures(trials []models.TrialResult) []models.AssertionFailure {
	totalTrials := len(trials)
	if totalTrials == 0 {
		return nil
	}

	type groupKey struct {
		assertionType string
		expression    string
	}
	groups := make(map[groupKey]*models.AssertionFailure)
	var order []groupKey

	for _, trial := range trials {
		for _, er := range trial.EvalResults {
			if er.Passed {
				continue
			}

			expr := er.Details
			if len(expr) > 80 {
				expr = expr[:80]
			}
			key := groupKey{assertionType: er.AssertionType, expression: expr}

			entry, ok := groups[key]
			if !ok {
				entry = &models.AssertionFailure{
					AssertionType: er.AssertionType,
					Expression:    expr,
				}
				groups[key] = entry
				order = append(order, key)
			}

			entry.FailCount++
			entry.TotalWeightLost += (1.0 - er.Score) * er.Weight
			if len(entry.SampleDetails) < 3 {
				entry.SampleDetails = append(entry.SampleDetails, er.Details)
			}
		}
	}

	result := make([]models.AssertionFailure, 0, len(order))
	impact := make(map[groupKey]float64, len(order))
	for _, key := range order {
		entry := groups[key]
		entry.FailRate = float64(entry.FailCount) / float64(totalTrials)
		avgWeightLost := entry.TotalWeightLost / float64(entry.FailCount)
		impact[key] = float64(entry.FailCount) * avgWeightLost
		result = append(result, *entry)
	}

	sort.SliceStable(result, func(i, j int) bool {
		ki := groupKey{result[i].AssertionType, result[i].Expression}
		kj := groupKey{result[j].AssertionType, result[j].Expression}
		return impact[ki] > impact[kj]
	})

	return result
}
