package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jmespath/go-jmespath"

	"github.com/haasonsaas/salvo/pkg/models"
)

// PathQueryEvaluator runs JMESPath expressions against a flattened view of
// the trace and applies a comparison operator to the result.
type PathQueryEvaluator struct{}

// BuildTraceData flattens a trace into the query-friendly structure the
// expressions run against:
//
//	{
//	  response:   {content, finish_reason},
//	  turns:      [{role, content, tool_calls?, tool_call_id?, tool_name?}],
//	  tool_calls: [...all tool calls made, in order...],
//	  metadata:   {model, provider, cost_usd, latency_seconds, input_tokens,
//	               output_tokens, total_tokens, turn_count, finish_reason},
//	}
func BuildTraceData(trace *models.Trace) map[string]any {
	turns := make([]any, 0, len(trace.Messages))
	for _, msg := range trace.Messages {
		turn := map[string]any{
			"role":    msg.Role,
			"content": strOrNil(msg.Content),
		}
		if msg.ToolCalls != nil {
			turn["tool_calls"] = toolCallsData(msg.ToolCalls)
		}
		if msg.ToolCallID != "" {
			turn["tool_call_id"] = msg.ToolCallID
		}
		if msg.ToolName != "" {
			turn["tool_name"] = msg.ToolName
		}
		turns = append(turns, turn)
	}

	return map[string]any{
		"response": map[string]any{
			"content":       strOrNil(trace.FinalContent),
			"finish_reason": trace.FinishReason,
		},
		"turns":      turns,
		"tool_calls": toolCallsData(trace.ToolCallsMade),
		"metadata": map[string]any{
			"model":           trace.Model,
			"provider":        trace.Provider,
			"cost_usd":        floatOrNil(trace.CostUSD),
			"latency_seconds": trace.LatencySeconds,
			"input_tokens":    trace.InputTokens,
			"output_tokens":   trace.OutputTokens,
			"total_tokens":    trace.TotalTokens,
			"turn_count":      trace.TurnCount,
			"finish_reason":   trace.FinishReason,
		},
	}
}

// Evaluate queries the trace data and compares the result.
func (e *PathQueryEvaluator) Evaluate(_ context.Context, trace *models.Trace, assertion *models.Assertion) *models.EvalResult {
	data := BuildTraceData(trace)

	actual, err := jmespath.Search(assertion.Expression, data)
	if err != nil {
		return &models.EvalResult{
			AssertionType: models.AssertionPathQuery,
			Score:         0.0,
			Passed:        false,
			Weight:        assertion.Weight,
			Required:      assertion.Required,
			Details:       fmt.Sprintf("JMESPath parse error: %v", err),
		}
	}

	passed := Compare(actual, assertion.Operator, assertion.Value)

	details := fmt.Sprintf("path=%q operator=%s expected=%v actual=%v",
		assertion.Expression, assertion.Operator, assertion.Value, actual)

	score := 0.0
	if passed {
		score = 1.0
	}
	return &models.EvalResult{
		AssertionType: models.AssertionPathQuery,
		Score:         score,
		Passed:        passed,
		Weight:        assertion.Weight,
		Required:      assertion.Required,
		Details:       details,
	}
}

// Compare applies a comparison operator between the query result and the
// expected value. A nil actual (missing path) is false for every operator.
func Compare(actual any, operator string, expected any) bool {
	if actual == nil {
		return false
	}

	switch operator {
	case "eq":
		return structurallyEqual(actual, expected)
	case "ne":
		return !structurallyEqual(actual, expected)
	case "gt", "gte", "lt", "lte":
		a, aok := coerceFloat(actual)
		e, eok := coerceFloat(expected)
		if !aok || !eok {
			return false
		}
		switch operator {
		case "gt":
			return a > e
		case "gte":
			return a >= e
		case "lt":
			return a < e
		default:
			return a <= e
		}
	case "exists":
		return true // actual is non-nil, checked above
	case "contains":
		switch v := actual.(type) {
		case string:
			return containsString(v, expected)
		case []any:
			for _, item := range v {
				if structurallyEqual(item, expected) {
					return true
				}
			}
			return false
		default:
			return false
		}
	case "regex":
		re, err := regexp.Compile(fmt.Sprint(expected))
		if err != nil {
			return false
		}
		return re.MatchString(stringify(actual))
	default:
		return false
	}
}

// structurallyEqual compares two values by their canonical JSON encoding,
// which makes 1 and 1.0 equal and compares maps and lists deeply.
func structurallyEqual(a, b any) bool {
	ja, errA := json.Marshal(normalizeNumbers(a))
	jb, errB := json.Marshal(normalizeNumbers(b))
	if errA != nil || errB != nil {
		return false
	}
	return string(ja) == string(jb)
}

// normalizeNumbers widens every numeric value to float64 so differently
// typed but equal numbers encode identically.
func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeNumbers(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeNumbers(item)
		}
		return out
	default:
		return v
	}
}

func coerceFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func containsString(haystack string, expected any) bool {
	return strings.Contains(haystack, stringify(expected))
}

// stringify renders a value the way the assertion author sees it: strings
// pass through, everything else uses its default formatting.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func toolCallsData(calls []models.ToolCall) []any {
	out := make([]any, 0, len(calls))
	for _, tc := range calls {
		out = append(out, map[string]any{
			"id":        tc.ID,
			"name":      tc.Name,
			"arguments": tc.Arguments,
		})
	}
	return out
}

func strOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func floatOrNil(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
