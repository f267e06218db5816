package models

import (
	"encoding/json"
	"fmt"
)

// Assertion kind tags. The evaluator registry is keyed by these values.
const (
	AssertionPathQuery    = "jmespath"
	AssertionToolSequence = "tool_sequence"
	AssertionCostLimit    = "cost_limit"
	AssertionLatencyLimit = "latency_limit"
	AssertionJudge        = "judge"
)

// JudgeCriterion is one named dimension of a judge assertion.
type JudgeCriterion struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

// Assertion is the canonical, post-normalization form of a declarative
// check. It is a tagged variant: Type selects the kind and the kind-specific
// fields that apply. Weight and Required are common to all kinds.
type Assertion struct {
	Type     string  `json:"type"`
	Name     string  `json:"name,omitempty"`
	Weight   float64 `json:"weight"`
	Required bool    `json:"required"`

	// Path-query fields.
	Expression string `json:"expression,omitempty"`
	Operator   string `json:"operator,omitempty"`
	Value      any    `json:"value,omitempty"`

	// Tool-sequence fields.
	Mode     string   `json:"mode,omitempty"`
	Sequence []string `json:"sequence,omitempty"`

	// Limit fields.
	MaxUSD     *float64 `json:"max_usd,omitempty"`
	MaxSeconds *float64 `json:"max_seconds,omitempty"`

	// Judge fields.
	Criteria            []JudgeCriterion `json:"criteria,omitempty"`
	Threshold           *float64         `json:"threshold,omitempty"`
	K                   *int             `json:"k,omitempty"`
	JudgeAdapter        string           `json:"judge_adapter,omitempty"`
	JudgeModel          string           `json:"judge_model,omitempty"`
	Temperature         *float64         `json:"temperature,omitempty"`
	MaxTokens           *int             `json:"max_tokens,omitempty"`
	CustomPrompt        string           `json:"custom_prompt,omitempty"`
	IncludeSystemPrompt bool             `json:"include_system_prompt,omitempty"`
}

// AssertionFromMap decodes a canonical assertion document into its typed
// form. Weight defaults to 1 and Required to false when absent.
func AssertionFromMap(m map[string]any) (*Assertion, error) {
	kind, _ := m["type"].(string)
	if kind == "" {
		return nil, fmt.Errorf("assertion has no type tag")
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode assertion: %w", err)
	}
	// Weight defaults to 1; a weight present in the document overwrites it.
	a := Assertion{Weight: 1.0}
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode %s assertion: %w", kind, err)
	}
	return &a, nil
}
