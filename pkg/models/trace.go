package models

import "time"

// Message roles used throughout the conversation trace.
const (
	RoleSystem     = "system"
	RoleUser       = "user"
	RoleAssistant  = "assistant"
	RoleToolResult = "tool_result"
)

// ToolCall is one tool invocation extracted from a model response. The ID is
// echoed back in the matching tool_result message. Arguments are always a
// structured value in canonical form; adapters own the provider encoding.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// TraceMessage is a single message in the conversation trace.
//
// ToolCalls is set on assistant messages only; ToolCallID and ToolName are
// set on tool_result messages only.
type TraceMessage struct {
	Role       string     `json:"role"`
	Content    *string    `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

// Trace is the complete, write-once record of one scenario run: every
// message exchanged (including mock-injected tool results), every tool call
// made, token usage, timing, cost, and provenance metadata. Designed for
// lossless round-trip JSON serialization.
type Trace struct {
	Messages      []TraceMessage `json:"messages"`
	ToolCallsMade []ToolCall     `json:"tool_calls_made"`
	TurnCount     int            `json:"turn_count"`
	InputTokens   int            `json:"input_tokens"`
	OutputTokens  int            `json:"output_tokens"`
	TotalTokens   int            `json:"total_tokens"`

	LatencySeconds float64 `json:"latency_seconds"`
	FinalContent   *string `json:"final_content"`
	FinishReason   string  `json:"finish_reason"`

	Model     string    `json:"model"`
	Provider  string    `json:"provider"`
	Timestamp time.Time `json:"timestamp"`

	// ScenarioHash is the SHA-256 of the canonical scenario serialization.
	ScenarioHash string `json:"scenario_hash"`

	// CostUSD is nil when the model has no pricing entry. Unknown cost is
	// first-class: it propagates as nil and fails cost-limit assertions.
	CostUSD *float64 `json:"cost_usd,omitempty"`

	ExtrasResolved map[string]any `json:"extras_resolved,omitempty"`

	// MaxTurnsHit is true when the loop terminated at the turn bound while
	// the last turn still had pending tool calls.
	MaxTurnsHit bool `json:"max_turns_hit"`
}

// StrPtr returns a pointer to s. Convenience for optional string fields.
func StrPtr(s string) *string { return &s }

// Float64Ptr returns a pointer to f. Convenience for optional numerics.
func Float64Ptr(f float64) *float64 { return &f }
