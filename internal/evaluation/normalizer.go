// Package evaluation normalizes assertions, dispatches them to evaluators,
// and computes weighted scores and cross-trial aggregates.
package evaluation

import (
	"fmt"
	"sort"
)

// operatorKeys are the comparison keys recognized in operator-key shorthand.
var operatorKeys = map[string]bool{
	"eq": true, "ne": true, "gt": true, "gte": true,
	"lt": true, "lte": true, "contains": true, "regex": true,
}

// Normalize converts one raw assertion document to canonical form.
//
// Sugar kinds expand to path queries: tool_called becomes an exists query
// against the tool-call list, output_contains a contains query on the final
// response. Documents that already carry any other type tag pass through
// unchanged. Documents with no type must carry exactly one operator key;
// the default expression is response.content. Normalization is idempotent:
// running a canonical document through again yields the same document.
func Normalize(raw map[string]any) (map[string]any, error) {
	switch raw["type"] {
	case "tool_called":
		tool, _ := raw["tool"].(string)
		if tool == "" {
			return nil, fmt.Errorf("tool_called assertion requires a tool name")
		}
		return canonicalPathQuery(
			fmt.Sprintf("tool_calls[?name=='%s'] | [0]", tool),
			"exists", nil, raw), nil
	case "output_contains":
		value, ok := raw["value"]
		if !ok {
			return nil, fmt.Errorf("output_contains assertion requires a value")
		}
		return canonicalPathQuery("response.content", "contains", value, raw), nil
	}

	if _, ok := raw["type"]; ok {
		return raw, nil
	}

	var found []string
	for key := range raw {
		if operatorKeys[key] {
			found = append(found, key)
		}
	}

	if len(found) > 1 {
		sort.Strings(found)
		return nil, fmt.Errorf("assertion has multiple operator keys: %v; use exactly one operator per assertion", found)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("assertion has no type and no operator key from %v; cannot determine assertion type", sortedOperatorKeys())
	}

	operator := found[0]
	expression := "response.content"
	if path, ok := raw["path"].(string); ok {
		expression = path
	}
	return canonicalPathQuery(expression, operator, raw[operator], raw), nil
}

// NormalizeAll normalizes a list of raw assertion documents.
func NormalizeAll(raws []map[string]any) ([]map[string]any, error) {
	result := make([]map[string]any, 0, len(raws))
	for i, raw := range raws {
		normalized, err := Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("assertion %d: %w", i, err)
		}
		result = append(result, normalized)
	}
	return result, nil
}

func canonicalPathQuery(expression, operator string, value any, raw map[string]any) map[string]any {
	out := map[string]any{
		"type":       "jmespath",
		"expression": expression,
		"operator":   operator,
		"weight":     weightOf(raw),
		"required":   requiredOf(raw),
	}
	if value != nil {
		out["value"] = value
	}
	return out
}

func weightOf(raw map[string]any) float64 {
	switch w := raw["weight"].(type) {
	case float64:
		return w
	case int:
		return float64(w)
	default:
		return 1.0
	}
}

func requiredOf(raw map[string]any) bool {
	required, _ := raw["required"].(bool)
	return required
}

func sortedOperatorKeys() []string {
	keys := make([]string, 0, len(operatorKeys))
	for key := range operatorKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
