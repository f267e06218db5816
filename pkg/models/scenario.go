// Package models provides domain types for the Salvo agent test framework.
package models

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ToolParameter is the object-shaped JSON Schema subset accepted for tool
// parameter declarations: a properties map plus a required list.
type ToolParameter struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required"`
}

// NewToolParameter returns an empty object schema.
func NewToolParameter() ToolParameter {
	return ToolParameter{
		Type:       "object",
		Properties: map[string]any{},
		Required:   []string{},
	}
}

// ToolDef declares a tool available to the agent during a scenario run.
//
// MockResponse is either a string or a structured value. Only tools with a
// non-nil MockResponse are callable; the runner treats a call to any other
// tool as fatal for the trial.
type ToolDef struct {
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Parameters   ToolParameter `json:"parameters"`
	MockResponse any           `json:"mock_response,omitempty"`
}

// CompileSchema compiles the tool's parameter declaration into a validator.
func (t *ToolDef) CompileSchema() (*jsonschema.Schema, error) {
	raw, err := json.Marshal(t.Parameters)
	if err != nil {
		return nil, fmt.Errorf("marshal parameters for tool %q: %w", t.Name, err)
	}
	schema, err := jsonschema.CompileString(t.Name+".schema.json", string(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid parameter schema for tool %q: %w", t.Name, err)
	}
	return schema, nil
}

// ValidateArgs checks a structured argument value against the tool's
// parameter schema.
func (t *ToolDef) ValidateArgs(args any) error {
	schema, err := t.CompileSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(args); err != nil {
		return fmt.Errorf("arguments for tool %q: %w", t.Name, err)
	}
	return nil
}

// Scenario is the immutable input describing what conversation to run and
// how to judge it. Assertions are kept in their raw document form; the
// evaluation normalizer converts them to canonical assertions.
type Scenario struct {
	Description  string            `json:"description,omitempty"`
	Tags         map[string]string `json:"tags,omitempty"`
	Adapter      string            `json:"adapter"`
	Model        string            `json:"model"`
	SystemPrompt string            `json:"system_prompt,omitempty"`
	Prompt       string            `json:"prompt"`
	Tools        []ToolDef         `json:"tools,omitempty"`
	Assertions   []map[string]any  `json:"assertions,omitempty"`
	Threshold    float64           `json:"threshold"`
	MaxTurns     int               `json:"max_turns"`
	Temperature  *float64          `json:"temperature,omitempty"`
	Seed         *int              `json:"seed,omitempty"`
	Extras       map[string]any    `json:"extras,omitempty"`
}

// Name returns the display name for the scenario: the description when set,
// otherwise a prefix of the user prompt.
func (s *Scenario) Name() string {
	if s.Description != "" {
		return s.Description
	}
	if len(s.Prompt) > 50 {
		return s.Prompt[:50]
	}
	return s.Prompt
}

// ExtrasGate validates the provider-extras map. It is satisfied by the
// extras package and injected here to keep this package dependency-light.
type ExtrasGate func(map[string]any) error

// Validate checks structural constraints the loader layer may not have
// enforced: prompt presence, threshold and max-turns bounds, that every
// tool's parameter schema compiles, and that extras pass the given gates.
func (s *Scenario) Validate(gates ...ExtrasGate) error {
	if s.Prompt == "" {
		return fmt.Errorf("scenario: prompt is required")
	}
	if s.Model == "" {
		return fmt.Errorf("scenario: model is required")
	}
	if s.Threshold < 0 || s.Threshold > 1 {
		return fmt.Errorf("scenario: threshold %v out of range [0,1]", s.Threshold)
	}
	if s.MaxTurns < 1 || s.MaxTurns > 100 {
		return fmt.Errorf("scenario: max_turns %d out of range [1,100]", s.MaxTurns)
	}
	for i := range s.Tools {
		if _, err := s.Tools[i].CompileSchema(); err != nil {
			return fmt.Errorf("scenario: %w", err)
		}
	}
	for _, gate := range gates {
		if err := gate(s.Extras); err != nil {
			return fmt.Errorf("scenario: %w", err)
		}
	}
	return nil
}

// CanonicalJSON renders the scenario as a deterministic byte stream:
// the struct is marshaled, decoded into generic values, and re-marshaled so
// that all map keys serialize sorted. The scenario hash is computed over
// this form.
func (s *Scenario) CanonicalJSON() ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
