package evaluation

import "github.com/haasonsaas/salvo/pkg/models"

// ComputeScore computes the weighted score over evaluation results.
//
// Returns (score, passed, hardFail):
//   - an empty result list is a vacuous pass: (1, true, false)
//   - hardFail is true when any required assertion failed
//   - a zero total weight scores 0 and fails
//   - passed requires score >= threshold and no hard fail
func ComputeScore(results []models.EvalResult, threshold float64) (float64, bool, bool) {
	if len(results) == 0 {
		return 1.0, true, false
	}

	hardFail := false
	for _, r := range results {
		if r.Required && !r.Passed {
			hardFail = true
			break
		}
	}

	totalWeight := 0.0
	for _, r := range results {
		totalWeight += r.Weight
	}
	if totalWeight == 0 {
		return 0.0, false, hardFail
	}

	weighted := 0.0
	for _, r := range results {
		weighted += r.Score * r.Weight
	}
	score := weighted / totalWeight
	passed := score >= threshold && !hardFail

	return score, passed, hardFail
}
