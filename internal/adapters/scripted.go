package adapters

import (
	"context"
	"sync"

	"github.com/haasonsaas/salvo/pkg/models"
)

// ScriptedTurn is one pre-programmed response of a ScriptedAdapter.
type ScriptedTurn struct {
	Result *TurnResult
	Err    error
}

// ScriptedAdapter replays a fixed sequence of turn results. It backs the
// framework's own tests and offline dry runs: each SendTurn call consumes
// the next scripted turn, and the final turn repeats once the script is
// exhausted. All calls are recorded for inspection.
type ScriptedAdapter struct {
	name  string
	turns []ScriptedTurn

	mu    sync.Mutex
	index int

	// Calls holds the message history of every SendTurn invocation.
	Calls [][]Message
	// Configs holds the config of every SendTurn invocation.
	Configs []Config
	// Tools holds the tool definitions of every SendTurn invocation.
	Tools [][]ToolDefinition
}

// NewScriptedAdapter creates an adapter that replays the given turns.
func NewScriptedAdapter(name string, turns ...ScriptedTurn) *ScriptedAdapter {
	if name == "" {
		name = "scripted"
	}
	return &ScriptedAdapter{name: name, turns: turns}
}

// ProviderName returns the configured provider name.
func (a *ScriptedAdapter) ProviderName() string { return a.name }

// SendTurn returns the next scripted turn.
func (a *ScriptedAdapter) SendTurn(_ context.Context, messages []Message, tools []ToolDefinition, config Config) (*TurnResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Calls = append(a.Calls, messages)
	a.Configs = append(a.Configs, config)
	a.Tools = append(a.Tools, tools)

	if len(a.turns) == 0 {
		return &TurnResult{FinishReason: "stop"}, nil
	}
	turn := a.turns[a.index]
	if a.index < len(a.turns)-1 {
		a.index++
	}
	return turn.Result, turn.Err
}

// CallCount returns how many turns were sent.
func (a *ScriptedAdapter) CallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Calls)
}

// TextTurn builds a scripted turn that answers with plain text.
func TextTurn(content string, inputTokens, outputTokens int) ScriptedTurn {
	return ScriptedTurn{Result: &TurnResult{
		Content: &content,
		Usage: TokenUsage{
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			TotalTokens:  inputTokens + outputTokens,
		},
		FinishReason: "stop",
	}}
}

// ToolCallTurn builds a scripted turn that requests the given tool calls.
func ToolCallTurn(calls []ToolCallSpec, inputTokens, outputTokens int) ScriptedTurn {
	result := &TurnResult{
		Usage: TokenUsage{
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			TotalTokens:  inputTokens + outputTokens,
		},
		FinishReason: "tool_calls",
	}
	for _, call := range calls {
		result.ToolCalls = append(result.ToolCalls, call.toModel())
	}
	return ScriptedTurn{Result: result}
}

// ToolCallSpec describes one tool call in a scripted turn.
type ToolCallSpec struct {
	ID        string
	Name      string
	Arguments map[string]any
}

func (s ToolCallSpec) toModel() models.ToolCall {
	args := s.Arguments
	if args == nil {
		args = map[string]any{}
	}
	return models.ToolCall{ID: s.ID, Name: s.Name, Arguments: args}
}
