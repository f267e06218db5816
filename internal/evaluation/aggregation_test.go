package evaluation

import (
	"math"
	"testing"

	"github.com/haasonsaas/salvo/pkg/models"
)

func trialResult(num int, status models.TrialStatus, score float64, passed bool, latency float64) models.TrialResult {
	return models.TrialResult{
		TrialNumber:    num,
		Status:         status,
		Score:          score,
		Passed:         passed,
		LatencySeconds: latency,
	}
}

func TestComputeAggregateMetrics_Empty(t *testing.T) {
	metrics := ComputeAggregateMetrics(nil)
	if metrics.ScoreAvg != 0 || metrics.PassRate != 0 {
		t.Errorf("empty metrics = %+v, want zeros", metrics)
	}
	if metrics.LatencyP50 != nil || metrics.CostTotal != nil {
		t.Error("empty metrics should leave optional fields nil")
	}
}

func TestComputeAggregateMetrics_SingleTrialCollapses(t *testing.T) {
	metrics := ComputeAggregateMetrics([]models.TrialResult{
		trialResult(1, models.TrialPassed, 0.9, true, 2.5),
	})
	if metrics.ScoreP50 != 0.9 || metrics.ScoreP95 != 0.9 {
		t.Errorf("single-trial percentiles = (%v, %v), want (0.9, 0.9)", metrics.ScoreP50, metrics.ScoreP95)
	}
	if metrics.LatencyP50 == nil || *metrics.LatencyP50 != 2.5 {
		t.Errorf("latency p50 = %v, want 2.5", metrics.LatencyP50)
	}
	if metrics.LatencyP95 == nil || *metrics.LatencyP95 != 2.5 {
		t.Errorf("latency p95 = %v, want 2.5", metrics.LatencyP95)
	}
}

func TestComputeAggregateMetrics_BasicStats(t *testing.T) {
	trials := []models.TrialResult{
		trialResult(1, models.TrialPassed, 1.0, true, 1.0),
		trialResult(2, models.TrialFailed, 0.5, false, 2.0),
		trialResult(3, models.TrialPassed, 0.9, true, 3.0),
		trialResult(4, models.TrialFailed, 0.6, false, 4.0),
	}
	metrics := ComputeAggregateMetrics(trials)

	if math.Abs(metrics.ScoreAvg-0.75) > 1e-9 {
		t.Errorf("score avg = %v, want 0.75", metrics.ScoreAvg)
	}
	if metrics.ScoreMin != 0.5 {
		t.Errorf("score min = %v, want 0.5", metrics.ScoreMin)
	}
	if metrics.PassRate != 0.5 {
		t.Errorf("pass rate = %v, want 0.5", metrics.PassRate)
	}
	if metrics.ScoreP50 < 0.5 || metrics.ScoreP50 > 1.0 {
		t.Errorf("score p50 = %v outside data range", metrics.ScoreP50)
	}
	if metrics.ScoreP95 < metrics.ScoreP50 {
		t.Errorf("p95 %v < p50 %v", metrics.ScoreP95, metrics.ScoreP50)
	}
}

// The quantile function mirrors the exclusive 99-cut-point method: position
// k*(n+1)/100 with linear interpolation.
func TestQuantile_ExclusiveMethod(t *testing.T) {
	data := []float64{1, 2, 3, 4}

	// p50: pos = 50*5/100 = 2.5 -> between x[1]=2 and x[2]=3 -> 2.5
	if got := quantile(data, 50); math.Abs(got-2.5) > 1e-9 {
		t.Errorf("quantile(50) = %v, want 2.5", got)
	}
	// p95: pos = 95*5/100 = 4.75 -> beyond the last index, clamp to max
	if got := quantile(data, 95); got != 4 {
		t.Errorf("quantile(95) = %v, want 4", got)
	}
	// p50 over two values interpolates the midpoint.
	if got := quantile([]float64{10, 20}, 50); math.Abs(got-15) > 1e-9 {
		t.Errorf("quantile(50) over pair = %v, want 15", got)
	}
}

func TestComputeAggregateMetrics_CostAveragedOverAllScored(t *testing.T) {
	trials := []models.TrialResult{
		trialResult(1, models.TrialPassed, 1.0, true, 1.0),
		trialResult(2, models.TrialPassed, 1.0, true, 1.0),
	}
	trials[0].CostUSD = models.Float64Ptr(0.02)
	// Trial 2 has unknown cost.

	metrics := ComputeAggregateMetrics(trials)
	if metrics.CostTotal == nil || *metrics.CostTotal != 0.02 {
		t.Fatalf("cost total = %v, want 0.02", metrics.CostTotal)
	}
	// Average over all scored trials, not only those with cost.
	if metrics.CostAvgPerTrial == nil || *metrics.CostAvgPerTrial != 0.01 {
		t.Errorf("cost avg = %v, want 0.01", metrics.CostAvgPerTrial)
	}
}

func TestComputeAggregateMetrics_NoCostsLeavesNil(t *testing.T) {
	metrics := ComputeAggregateMetrics([]models.TrialResult{
		trialResult(1, models.TrialPassed, 1.0, true, 1.0),
	})
	if metrics.CostTotal != nil || metrics.CostAvgPerTrial != nil {
		t.Error("cost fields should stay nil when no trial carries a cost")
	}
}

func TestDetermineVerdict_Priority(t *testing.T) {
	tests := []struct {
		name       string
		trials     []models.TrialResult
		avgScore   float64
		threshold  float64
		allowInfra bool
		want       models.Verdict
	}{
		{
			"infra error dominates",
			[]models.TrialResult{
				trialResult(1, models.TrialInfraError, 0, false, 1),
				trialResult(2, models.TrialHardFail, 0, false, 1),
			},
			0.0, 0.8, false, models.VerdictInfraError,
		},
		{
			"allow infra falls through to hard fail",
			[]models.TrialResult{
				trialResult(1, models.TrialInfraError, 0, false, 1),
				trialResult(2, models.TrialHardFail, 0, false, 1),
			},
			0.0, 0.8, true, models.VerdictHardFail,
		},
		{
			"hard fail",
			[]models.TrialResult{trialResult(1, models.TrialHardFail, 0.9, false, 1)},
			0.9, 0.8, false, models.VerdictHardFail,
		},
		{
			"partial when some pass",
			[]models.TrialResult{
				trialResult(1, models.TrialPassed, 1.0, true, 1),
				trialResult(2, models.TrialFailed, 0.2, false, 1),
			},
			0.6, 0.8, false, models.VerdictPartial,
		},
		{
			"fail when none pass",
			[]models.TrialResult{
				trialResult(1, models.TrialFailed, 0.3, false, 1),
				trialResult(2, models.TrialFailed, 0.4, false, 1),
			},
			0.35, 0.8, false, models.VerdictFail,
		},
		{
			"pass",
			[]models.TrialResult{trialResult(1, models.TrialPassed, 0.95, true, 1)},
			0.95, 0.8, false, models.VerdictPass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetermineVerdict(tt.trials, tt.avgScore, tt.threshold, tt.allowInfra)
			if got != tt.want {
				t.Errorf("DetermineVerdict() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregateFailures_GroupingAndRanking(t *testing.T) {
	failA := models.EvalResult{
		AssertionType: "jmespath", Score: 0, Passed: false, Weight: 2.0,
		Details: "path='response.content' operator=contains expected='x' actual='y'",
	}
	failB := models.EvalResult{
		AssertionType: "tool_sequence", Score: 0, Passed: false, Weight: 0.5,
		Details: "divergence at position 0",
	}
	pass := models.EvalResult{AssertionType: "jmespath", Score: 1, Passed: true, Weight: 1.0}

	trials := []models.TrialResult{
		{TrialNumber: 1, EvalResults: []models.EvalResult{failA, failB, pass}},
		{TrialNumber: 2, EvalResults: []models.EvalResult{failA, pass}},
		{TrialNumber: 3, EvalResults: []models.EvalResult{pass}},
	}

	failures := AggregateFailures(trials)
	if len(failures) != 2 {
		t.Fatalf("got %d failure groups, want 2", len(failures))
	}

	// failA: count 2, weight lost 4.0 -> impact 2 * 2.0 = 4.0.
	// failB: count 1, weight lost 0.5 -> impact 0.5. failA ranks first.
	top := failures[0]
	if top.AssertionType != "jmespath" {
		t.Errorf("top group = %s, want jmespath", top.AssertionType)
	}
	if top.FailCount != 2 {
		t.Errorf("fail count = %d, want 2", top.FailCount)
	}
	if math.Abs(top.FailRate-2.0/3.0) > 1e-9 {
		t.Errorf("fail rate = %v, want 2/3", top.FailRate)
	}
	if top.TotalWeightLost != 4.0 {
		t.Errorf("total weight lost = %v, want 4.0", top.TotalWeightLost)
	}
	if len(top.SampleDetails) != 2 {
		t.Errorf("sample details = %d entries, want 2", len(top.SampleDetails))
	}
}

func TestAggregateFailures_DetailsKeyTruncatedAt80(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'd'
	}
	fail := models.EvalResult{AssertionType: "jmespath", Passed: false, Weight: 1, Details: string(long)}
	failures := AggregateFailures([]models.TrialResult{
		{TrialNumber: 1, EvalResults: []models.EvalResult{fail}},
	})
	if len(failures) != 1 {
		t.Fatalf("got %d groups, want 1", len(failures))
	}
	if len(failures[0].Expression) != 80 {
		t.Errorf("group key length = %d, want 80", len(failures[0].Expression))
	}
	// The full details string is preserved in the samples.
	if len(failures[0].SampleDetails[0]) != 200 {
		t.Errorf("sample details truncated: %d", len(failures[0].SampleDetails[0]))
	}
}

func TestAggregateFailures_NoTrials(t *testing.T) {
	if got := AggregateFailures(nil); got != nil {
		t.Errorf("AggregateFailures(nil) = %v, want nil", got)
	}
}
