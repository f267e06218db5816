// Package adapters implements LLM provider integrations for the Salvo
// execution pipeline.
//
// Each adapter translates the canonical message/tool types to a provider's
// wire format, sends one conversation turn, and extracts the result back
// into a TurnResult. Clients are created lazily on first call; constructing
// an adapter performs no network I/O.
package adapters

import (
	"context"

	"github.com/haasonsaas/salvo/pkg/models"
)

// Message is a single message in the conversation history handed to an
// adapter. Roles: system, user, assistant, tool_result.
type Message struct {
	Role       string
	Content    *string
	ToolCalls  []models.ToolCall
	ToolCallID string
	ToolName   string
}

// ToolDefinition is the provider-agnostic tool declaration sent with a turn.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// TokenUsage holds token counts from a single adapter turn.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Config carries the per-run generation parameters for an adapter.
// Extras is a pass-through map merged as top-level request parameters;
// it must have been validated by the extras gate before it reaches here.
type Config struct {
	Model       string
	Temperature *float64
	MaxTokens   *int
	Seed        *int
	Extras      map[string]any
}

// TurnResult is the outcome of a single SendTurn call: the model's text
// content (nil when absent), any tool calls, token usage, the raw provider
// payload kept opaque for diagnostics, and the finish reason.
type TurnResult struct {
	Content      *string
	ToolCalls    []models.ToolCall
	Usage        TokenUsage
	RawResponse  []byte
	FinishReason string
}

// Adapter is the single capability the execution pipeline needs from a
// provider: send one conversation turn and report the result.
//
// Implementations must be safe for concurrent use, surface transient
// network / rate-limit / 5xx conditions as classified transient errors
// (see ProviderError), and create any client handle lazily on first call.
type Adapter interface {
	SendTurn(ctx context.Context, messages []Message, tools []ToolDefinition, config Config) (*TurnResult, error)
	ProviderName() string
}
