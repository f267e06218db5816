package models

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func validScenario() *Scenario {
	return &Scenario{
		Description: "demo",
		Adapter:     "openai",
		Model:       "gpt-4o",
		Prompt:      "Hello",
		Threshold:   0.8,
		MaxTurns:    10,
		Tools: []ToolDef{{
			Name:        "search",
			Description: "Search the index",
			Parameters: ToolParameter{
				Type: "object",
				Properties: map[string]any{
					"q": map[string]any{"type": "string"},
				},
				Required: []string{"q"},
			},
			MockResponse: "ok",
		}},
	}
}

func TestScenarioValidate(t *testing.T) {
	if err := validScenario().Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	tests := []struct {
		name   string
		mutate func(*Scenario)
	}{
		{"missing prompt", func(s *Scenario) { s.Prompt = "" }},
		{"missing model", func(s *Scenario) { s.Model = "" }},
		{"threshold too high", func(s *Scenario) { s.Threshold = 1.5 }},
		{"threshold negative", func(s *Scenario) { s.Threshold = -0.1 }},
		{"max turns zero", func(s *Scenario) { s.MaxTurns = 0 }},
		{"max turns over bound", func(s *Scenario) { s.MaxTurns = 101 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validScenario()
			tt.mutate(s)
			if err := s.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestScenarioValidate_ExtrasGate(t *testing.T) {
	s := validScenario()
	s.Extras = map[string]any{"suspicious": true}
	gate := func(extras map[string]any) error {
		if _, ok := extras["suspicious"]; ok {
			return errBlocked
		}
		return nil
	}
	if err := s.Validate(gate); err == nil {
		t.Error("Validate() with failing gate = nil, want error")
	}
	s.Extras = nil
	if err := s.Validate(gate); err != nil {
		t.Errorf("Validate() with passing gate = %v", err)
	}
}

var errBlocked = errors.New("extras key blocked")

func TestScenarioName(t *testing.T) {
	s := validScenario()
	if s.Name() != "demo" {
		t.Errorf("Name() = %q, want description", s.Name())
	}
	s.Description = ""
	if s.Name() != "Hello" {
		t.Errorf("Name() = %q, want prompt", s.Name())
	}
	s.Prompt = string(make([]byte, 100))
	if len(s.Name()) != 50 {
		t.Errorf("Name() length = %d, want 50-char prefix", len(s.Name()))
	}
}

func TestScenarioCanonicalJSON_Deterministic(t *testing.T) {
	a, err := validScenario().CanonicalJSON()
	if err != nil {
		t.Fatalf("CanonicalJSON() error = %v", err)
	}
	b, err := validScenario().CanonicalJSON()
	if err != nil {
		t.Fatalf("CanonicalJSON() error = %v", err)
	}
	if string(a) != string(b) {
		t.Error("canonical JSON not deterministic")
	}
}

func TestToolDefValidateArgs(t *testing.T) {
	tool := validScenario().Tools[0]
	if err := tool.ValidateArgs(map[string]any{"q": "weather"}); err != nil {
		t.Errorf("ValidateArgs(valid) = %v, want nil", err)
	}
	if err := tool.ValidateArgs(map[string]any{}); err == nil {
		t.Error("ValidateArgs(missing required) = nil, want error")
	}
	if err := tool.ValidateArgs(map[string]any{"q": 7}); err == nil {
		t.Error("ValidateArgs(wrong type) = nil, want error")
	}
}

func TestAssertionFromMap_WeightDefaults(t *testing.T) {
	a, err := AssertionFromMap(map[string]any{
		"type": "jmespath", "expression": "response.content", "operator": "exists",
	})
	if err != nil {
		t.Fatalf("AssertionFromMap() error = %v", err)
	}
	if a.Weight != 1.0 {
		t.Errorf("weight = %v, want default 1.0", a.Weight)
	}
	if a.Required {
		t.Error("required = true, want default false")
	}
}

func TestAssertionFromMap_ExplicitFields(t *testing.T) {
	a, err := AssertionFromMap(map[string]any{
		"type": "judge", "weight": 2.0, "required": true,
		"criteria": []any{
			map[string]any{"name": "accuracy", "description": "d", "weight": 1.0},
		},
		"k": 5, "threshold": 0.9, "judge_model": "gpt-4o",
	})
	if err != nil {
		t.Fatalf("AssertionFromMap() error = %v", err)
	}
	if a.Weight != 2.0 || !a.Required {
		t.Errorf("common fields = (%v, %v)", a.Weight, a.Required)
	}
	if len(a.Criteria) != 1 || a.Criteria[0].Name != "accuracy" {
		t.Errorf("criteria = %v", a.Criteria)
	}
	if a.K == nil || *a.K != 5 {
		t.Errorf("k = %v, want 5", a.K)
	}
	if a.Threshold == nil || *a.Threshold != 0.9 {
		t.Errorf("threshold = %v", a.Threshold)
	}
	if a.JudgeModel != "gpt-4o" {
		t.Errorf("judge model = %q", a.JudgeModel)
	}
}

func TestAssertionFromMap_NoTypeIsError(t *testing.T) {
	if _, err := AssertionFromMap(map[string]any{"contains": "x"}); err == nil {
		t.Error("AssertionFromMap(no type) = nil, want error")
	}
}

func TestVerdictExitCodes(t *testing.T) {
	tests := []struct {
		verdict Verdict
		want    int
	}{
		{VerdictPass, 0},
		{VerdictFail, 1},
		{VerdictPartial, 1},
		{VerdictHardFail, 2},
		{VerdictInfraError, 3},
	}
	for _, tt := range tests {
		if got := tt.verdict.ExitCode(); got != tt.want {
			t.Errorf("%s.ExitCode() = %d, want %d", tt.verdict, got, tt.want)
		}
	}
}

func TestTrialResultRoundTrip(t *testing.T) {
	original := TrialResult{
		TrialNumber: 2, Status: TrialHardFail, Score: 0.4, Passed: false,
		EvalResults: []EvalResult{{
			AssertionType: "jmespath", Score: 0, Passed: false,
			Weight: 1, Required: true, Details: "nope",
		}},
		LatencySeconds:      1.5,
		CostUSD:             Float64Ptr(0.01),
		RetriesUsed:         1,
		TransientErrorTypes: []string{"rate_limit"},
		TraceID:             "t1",
	}
	raw, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded TrialResult
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(original, decoded) {
		t.Errorf("round trip mismatch: %+v vs %+v", original, decoded)
	}
	again, _ := json.Marshal(decoded)
	if string(raw) != string(again) {
		t.Error("re-serialization not bit-identical")
	}
}
