package extras

import (
	"strings"
	"testing"

	"github.com/haasonsaas/salvo/pkg/models"
)

func TestValidate_EmptyAndNil(t *testing.T) {
	if err := Validate(nil); err != nil {
		t.Errorf("Validate(nil) = %v, want nil", err)
	}
	if err := Validate(map[string]any{}); err != nil {
		t.Errorf("Validate(empty) = %v, want nil", err)
	}
}

func TestValidate_AllowsOrdinaryKeys(t *testing.T) {
	extras := map[string]any{
		"tool_choice": map[string]any{"type": "function"},
		"top_p":       0.9,
	}
	if err := Validate(extras); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidate_BlocksSecretKeys(t *testing.T) {
	blocked := []string{"api_key", "API_KEY", "Token", "password", "authorization", "access_token"}
	for _, key := range blocked {
		err := Validate(map[string]any{key: "value"})
		if err == nil {
			t.Errorf("Validate({%q: ...}) = nil, want blocked-key error", key)
			continue
		}
		if !strings.Contains(err.Error(), "blocked") {
			t.Errorf("Validate({%q: ...}) error %q does not mention blocking", key, err)
		}
	}
}

func TestValidate_KeyCountLimit(t *testing.T) {
	extras := map[string]any{}
	for i := 0; i < MaxKeys+1; i++ {
		extras[strings.Repeat("k", i+1)] = i
	}
	if err := Validate(extras); err == nil {
		t.Error("Validate() = nil, want key-count error")
	}
}

func TestValidate_SizeLimit(t *testing.T) {
	extras := map[string]any{"payload": strings.Repeat("x", MaxSize+1)}
	if err := Validate(extras); err == nil {
		t.Error("Validate() = nil, want size error")
	}
}

// Validate plugs into Scenario.Validate as an extras gate.
func TestValidate_AsScenarioGate(t *testing.T) {
	scenario := &models.Scenario{
		Adapter: "openai", Model: "gpt-4o", Prompt: "Hello",
		Threshold: 0.8, MaxTurns: 10,
		Extras: map[string]any{"api_key": "oops"},
	}
	if err := scenario.Validate(Validate); err == nil {
		t.Error("scenario with secret-like extras key validated")
	}
	scenario.Extras = map[string]any{"top_p": 0.9}
	if err := scenario.Validate(Validate); err != nil {
		t.Errorf("scenario with safe extras rejected: %v", err)
	}
}
