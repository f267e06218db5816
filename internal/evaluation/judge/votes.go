package judge

import (
	"sort"

	"github.com/haasonsaas/salvo/pkg/models"
)

// CriterionSummary is the per-criterion rollup across all votes.
type CriterionSummary struct {
	Name        string    `json:"name"`
	MedianScore float64   `json:"median_score"`
	AllScores   []float64 `json:"all_scores"`
	Weight      float64   `json:"weight"`
}

// AggregateVotes combines k judge votes into a single result.
//
// The reported per-criterion score is the median across votes, and the
// overall score is the criterion-weight-weighted mean of those medians.
// Pass/fail is decided by majority vote: each vote's own weighted mean
// (missing criteria scoring 0) is compared to the threshold, and a strict
// majority of votes must pass. A tie fails.
func AggregateVotes(votes []Vote, criteria []models.JudgeCriterion, threshold float64) (float64, bool, []CriterionSummary) {
	if len(votes) == 0 {
		return 0.0, false, nil
	}

	perCriterion := make(map[string][]float64, len(criteria))
	for _, vote := range votes {
		for _, c := range criteria {
			if cs, ok := vote[c.Name]; ok {
				perCriterion[c.Name] = append(perCriterion[c.Name], cs.Score)
			}
		}
	}

	medians := make(map[string]float64, len(criteria))
	summaries := make([]CriterionSummary, 0, len(criteria))
	for _, c := range criteria {
		scores := perCriterion[c.Name]
		m := 0.0
		if len(scores) > 0 {
			m = median(scores)
		}
		medians[c.Name] = m
		summaries = append(summaries, CriterionSummary{
			Name:        c.Name,
			MedianScore: m,
			AllScores:   scores,
			Weight:      c.Weight,
		})
	}

	totalWeight := 0.0
	for _, c := range criteria {
		totalWeight += c.Weight
	}

	overall := 0.0
	if totalWeight > 0 {
		weighted := 0.0
		for _, c := range criteria {
			weighted += medians[c.Name] * c.Weight
		}
		overall = weighted / totalWeight
	}

	passCount := 0
	for _, vote := range votes {
		voteTotal := 0.0
		for _, c := range criteria {
			if cs, ok := vote[c.Name]; ok {
				voteTotal += cs.Score * c.Weight
			}
			// A missing criterion contributes 0.
		}
		voteAvg := 0.0
		if totalWeight > 0 {
			voteAvg = voteTotal / totalWeight
		}
		if voteAvg >= threshold {
			passCount++
		}
	}
	passed := passCount*2 > len(votes)

	return overall, passed, summaries
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
