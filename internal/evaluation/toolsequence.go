package evaluation

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/salvo/pkg/models"
)

// ToolSequenceEvaluator validates the order and presence of tool calls.
//
// Modes:
//   - exact: actual equals expected (same length, same positions)
//   - in_order: expected is a subsequence of actual (gaps allowed)
//   - any_order: multiset comparison; extra calls in actual are allowed
type ToolSequenceEvaluator struct{}

// Evaluate checks the trace's tool-call names against the expected pattern.
func (e *ToolSequenceEvaluator) Evaluate(_ context.Context, trace *models.Trace, assertion *models.Assertion) *models.EvalResult {
	actual := make([]string, 0, len(trace.ToolCallsMade))
	for _, tc := range trace.ToolCallsMade {
		actual = append(actual, tc.Name)
	}
	expected := assertion.Sequence

	var passed bool
	var details string
	switch strings.ToLower(assertion.Mode) {
	case "exact":
		passed, details = matchExact(actual, expected)
	case "in_order":
		passed, details = matchInOrder(actual, expected)
	case "any_order":
		passed, details = matchAnyOrder(actual, expected)
	default:
		return &models.EvalResult{
			AssertionType: models.AssertionToolSequence,
			Score:         0.0,
			Passed:        false,
			Weight:        assertion.Weight,
			Required:      assertion.Required,
			Details:       fmt.Sprintf("unknown mode %q; available: any_order, exact, in_order", assertion.Mode),
		}
	}

	score := 0.0
	if passed {
		score = 1.0
	}
	return &models.EvalResult{
		AssertionType: models.AssertionToolSequence,
		Score:         score,
		Passed:        passed,
		Weight:        assertion.Weight,
		Required:      assertion.Required,
		Details:       details,
	}
}

// matchExact checks actual == expected, pinpointing the divergence position
// or the missing/extra suffix on failure.
func matchExact(actual, expected []string) (bool, string) {
	if len(actual) == 0 && len(expected) > 0 {
		return false, fmt.Sprintf("no tool calls made -- expected %v", expected)
	}

	for i := 0; i < len(actual) && i < len(expected); i++ {
		if actual[i] != expected[i] {
			return false, fmt.Sprintf(
				"divergence at position %d: expected %q but got %q; actual: %v, expected: %v",
				i, expected[i], actual[i], actual, expected)
		}
	}

	if len(actual) < len(expected) {
		return false, fmt.Sprintf("too few tool calls: got %d, expected %d; missing: %v",
			len(actual), len(expected), expected[len(actual):])
	}
	if len(actual) > len(expected) {
		return false, fmt.Sprintf("too many tool calls: got %d, expected %d; extra: %v",
			len(actual), len(expected), actual[len(expected):])
	}

	return true, fmt.Sprintf("exact match: %v", actual)
}

// matchInOrder checks that expected is a subsequence of actual. The scan is
// greedy and does not restart on false matches, so an expected sequence
// with repeats matches the earliest occurrences.
func matchInOrder(actual, expected []string) (bool, string) {
	if len(actual) == 0 && len(expected) > 0 {
		return false, fmt.Sprintf("no tool calls made -- expected %v", expected)
	}

	ei := 0
	for _, a := range actual {
		if ei < len(expected) && a == expected[ei] {
			ei++
		}
	}
	if ei == len(expected) {
		return true, fmt.Sprintf("in-order match: found %v within %v", expected, actual)
	}

	return false, fmt.Sprintf(
		"in-order match stalled: matched %v but could not find %q (expected[%d]) in remaining actual calls; actual: %v, expected: %v",
		expected[:ei], expected[ei], ei, actual, expected)
}

// matchAnyOrder checks that every expected call is present often enough,
// regardless of order. Extra calls in actual are allowed.
func matchAnyOrder(actual, expected []string) (bool, string) {
	if len(actual) == 0 && len(expected) > 0 {
		return false, fmt.Sprintf("no tool calls made -- expected %v", expected)
	}

	actualCounts := make(map[string]int, len(actual))
	for _, a := range actual {
		actualCounts[a]++
	}

	var missing []string
	seen := make(map[string]bool)
	for _, e := range expected {
		if seen[e] {
			continue
		}
		seen[e] = true
		want := 0
		for _, other := range expected {
			if other == e {
				want++
			}
		}
		if actualCounts[e] < want {
			missing = append(missing, fmt.Sprintf("%q (expected %d, got %d)", e, want, actualCounts[e]))
		}
	}

	if len(missing) > 0 {
		return false, "missing tool calls: " + strings.Join(missing, ", ")
	}
	return true, fmt.Sprintf("any-order match: all %v found in %v", expected, actual)
}
