package evaluation

import (
	"context"
	"strings"
	"testing"

	"github.com/haasonsaas/salvo/pkg/models"
)

func traceWithCalls(names ...string) *models.Trace {
	trace := &models.Trace{FinishReason: "stop"}
	for i, name := range names {
		trace.ToolCallsMade = append(trace.ToolCallsMade, models.ToolCall{
			ID: strings.Repeat("c", i+1), Name: name, Arguments: map[string]any{},
		})
	}
	return trace
}

func evalSequence(t *testing.T, mode string, expected []string, actual ...string) *models.EvalResult {
	t.Helper()
	e := &ToolSequenceEvaluator{}
	return e.Evaluate(context.Background(), traceWithCalls(actual...), &models.Assertion{
		Type:     models.AssertionToolSequence,
		Mode:     mode,
		Sequence: expected,
		Weight:   1.0,
	})
}

func TestToolSequence_Exact(t *testing.T) {
	tests := []struct {
		name     string
		expected []string
		actual   []string
		wantPass bool
		wantIn   string
	}{
		{"match", []string{"a", "b"}, []string{"a", "b"}, true, "exact match"},
		{"divergence", []string{"a", "b"}, []string{"a", "c"}, false, "divergence at position 1"},
		{"too few", []string{"a", "b", "c"}, []string{"a", "b"}, false, "too few"},
		{"too many", []string{"a"}, []string{"a", "b"}, false, "too many"},
		{"empty actual", []string{"a"}, nil, false, "no tool calls made"},
		{"both empty", nil, nil, true, "exact match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalSequence(t, "exact", tt.expected, tt.actual...)
			if got.Passed != tt.wantPass {
				t.Errorf("passed = %v, want %v (%s)", got.Passed, tt.wantPass, got.Details)
			}
			if !strings.Contains(got.Details, tt.wantIn) {
				t.Errorf("details %q does not contain %q", got.Details, tt.wantIn)
			}
		})
	}
}

func TestToolSequence_InOrder(t *testing.T) {
	tests := []struct {
		name     string
		expected []string
		actual   []string
		wantPass bool
	}{
		{"subsequence with gaps", []string{"a", "c"}, []string{"a", "b", "c"}, true},
		{"full match", []string{"a", "b"}, []string{"a", "b"}, true},
		{"wrong order", []string{"b", "a"}, []string{"a", "b"}, false},
		{"stalls", []string{"a", "z"}, []string{"a", "b", "c"}, false},
		{"empty actual", []string{"a"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalSequence(t, "in_order", tt.expected, tt.actual...)
			if got.Passed != tt.wantPass {
				t.Errorf("passed = %v, want %v (%s)", got.Passed, tt.wantPass, got.Details)
			}
		})
	}
}

func TestToolSequence_InOrderStallDetails(t *testing.T) {
	got := evalSequence(t, "in_order", []string{"a", "z"}, "a", "b")
	if !strings.Contains(got.Details, `"z"`) || !strings.Contains(got.Details, "stalled") {
		t.Errorf("details %q should name the stall point", got.Details)
	}
}

// The in_order scan is greedy: with repeats in expected, the earliest
// occurrences are consumed and the matcher does not backtrack.
func TestToolSequence_InOrderGreedyRepeats(t *testing.T) {
	got := evalSequence(t, "in_order", []string{"a", "a"}, "a", "b", "a")
	if !got.Passed {
		t.Errorf("repeated expected should match across gaps: %s", got.Details)
	}
}

func TestToolSequence_AnyOrder(t *testing.T) {
	tests := []struct {
		name     string
		expected []string
		actual   []string
		wantPass bool
	}{
		{"same multiset reordered", []string{"b", "a"}, []string{"a", "b"}, true},
		{"extras allowed", []string{"a"}, []string{"x", "a", "y"}, true},
		{"count shortfall", []string{"a", "a"}, []string{"a", "b"}, false},
		{"missing entirely", []string{"z"}, []string{"a"}, false},
		{"empty actual", []string{"a"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalSequence(t, "any_order", tt.expected, tt.actual...)
			if got.Passed != tt.wantPass {
				t.Errorf("passed = %v, want %v (%s)", got.Passed, tt.wantPass, got.Details)
			}
		})
	}
}

func TestToolSequence_AnyOrderMissingDetails(t *testing.T) {
	got := evalSequence(t, "any_order", []string{"a", "a", "b"}, "a")
	if !strings.Contains(got.Details, "missing tool calls") {
		t.Errorf("details %q should list the missing multiset", got.Details)
	}
	if !strings.Contains(got.Details, "expected 2, got 1") {
		t.Errorf("details %q should carry counts", got.Details)
	}
}

func TestToolSequence_UnknownMode(t *testing.T) {
	got := evalSequence(t, "sideways", []string{"a"}, "a")
	if got.Passed || got.Score != 0 {
		t.Errorf("unknown mode should fail: %+v", got)
	}
	if !strings.Contains(got.Details, "unknown mode") {
		t.Errorf("details %q should name the unknown mode", got.Details)
	}
}
