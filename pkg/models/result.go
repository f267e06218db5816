package models

// EvalResult is the output of evaluating a single assertion against a trace.
//
// Score is 1.0 or 0.0 for boolean evaluators and anywhere in [0,1] for the
// judge. Weight and Required are carried through verbatim from the
// assertion. Details is free text used both for rendering and for
// cross-trial failure grouping (the first 80 characters form the group key).
type EvalResult struct {
	AssertionType string         `json:"assertion_type"`
	Score         float64        `json:"score"`
	Passed        bool           `json:"passed"`
	Weight        float64        `json:"weight"`
	Required      bool           `json:"required"`
	Details       string         `json:"details,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}
