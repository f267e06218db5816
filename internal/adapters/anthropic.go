package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/haasonsaas/salvo/pkg/models"
)

// anthropicDefaultMaxTokens is applied when the config carries no ceiling;
// the Anthropic API requires max_tokens on every request.
const anthropicDefaultMaxTokens = 4096

// AnthropicAdapter sends turns through the Anthropic messages API.
//
// The client is lazily initialized on first call; the SDK reads
// ANTHROPIC_API_KEY from the environment unless an explicit key is
// configured. System messages are collapsed into the separate system
// parameter the API expects, and extras are merged as top-level request
// parameters via the SDK's JSON-set request option.
type AnthropicAdapter struct {
	apiKey  string
	baseURL string

	once   sync.Once
	client anthropic.Client
}

// AnthropicOption configures an AnthropicAdapter.
type AnthropicOption func(*AnthropicAdapter)

// WithAnthropicKey overrides the API key read from the environment.
func WithAnthropicKey(key string) AnthropicOption {
	return func(a *AnthropicAdapter) { a.apiKey = key }
}

// WithAnthropicBaseURL points the adapter at a non-default endpoint.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(a *AnthropicAdapter) { a.baseURL = url }
}

// NewAnthropicAdapter creates an Anthropic adapter. No network I/O happens
// here.
func NewAnthropicAdapter(opts ...AnthropicOption) *AnthropicAdapter {
	a := &AnthropicAdapter{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ProviderName returns "anthropic".
func (a *AnthropicAdapter) ProviderName() string { return "anthropic" }

func (a *AnthropicAdapter) getClient() anthropic.Client {
	a.once.Do(func() {
		var options []option.RequestOption
		if a.apiKey != "" {
			options = append(options, option.WithAPIKey(a.apiKey))
		}
		if a.baseURL != "" {
			options = append(options, option.WithBaseURL(a.baseURL))
		}
		a.client = anthropic.NewClient(options...)
	})
	return a.client
}

// SendTurn sends one conversation turn and extracts the result.
func (a *AnthropicAdapter) SendTurn(ctx context.Context, messages []Message, tools []ToolDefinition, config Config) (*TurnResult, error) {
	system, converted, err := convertAnthropicMessages(messages)
	if err != nil {
		return nil, a.wrapError(err, config.Model)
	}

	maxTokens := anthropicDefaultMaxTokens
	if config.MaxTokens != nil {
		maxTokens = *config.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(config.Model),
		Messages:  converted,
		MaxTokens: int64(maxTokens),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		converted, err := convertAnthropicTools(tools)
		if err != nil {
			return nil, a.wrapError(err, config.Model)
		}
		params.Tools = converted
	}
	if config.Temperature != nil {
		params.Temperature = anthropic.Float(*config.Temperature)
	}
	// The Anthropic API has no seed parameter; config.Seed is ignored.

	// Extras merge as top-level request body parameters.
	var reqOpts []option.RequestOption
	for key, value := range config.Extras {
		reqOpts = append(reqOpts, option.WithJSONSet(key, value))
	}

	client := a.getClient()
	resp, err := client.Messages.New(ctx, params, reqOpts...)
	if err != nil {
		return nil, a.wrapError(err, config.Model)
	}

	var contentParts []string
	var toolCalls []models.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			contentParts = append(contentParts, block.Text)
		case "tool_use":
			args := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					return nil, a.wrapError(fmt.Errorf("tool call %s: invalid input JSON: %w", block.Name, err), config.Model)
				}
			}
			toolCalls = append(toolCalls, models.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			})
		}
	}

	var content *string
	if len(contentParts) > 0 {
		joined := contentParts[0]
		for _, part := range contentParts[1:] {
			joined += "\n" + part
		}
		content = &joined
	}

	return &TurnResult{
		Content:   content,
		ToolCalls: toolCalls,
		Usage: TokenUsage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			TotalTokens:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
		RawResponse:  []byte(resp.RawJSON()),
		FinishReason: string(resp.StopReason),
	}, nil
}

// convertAnthropicMessages splits out the system prompt and converts the
// remaining messages to the API's content-block form. Tool results become
// user messages carrying tool_result blocks.
func convertAnthropicMessages(messages []Message) (string, []anthropic.MessageParam, error) {
	system := ""
	var result []anthropic.MessageParam

	for _, msg := range messages {
		content := ""
		if msg.Content != nil {
			content = *msg.Content
		}
		switch msg.Role {
		case "system":
			system = content
		case "user":
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(content)))
		case "assistant":
			var blocks []anthropic.ContentBlockParamUnion
			if content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(content))
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tc.Arguments, tc.Name))
			}
			result = append(result, anthropic.NewAssistantMessage(blocks...))
		case "tool_result":
			result = append(result, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, content, false),
			))
		default:
			return "", nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}
	return system, result, nil
}

func convertAnthropicTools(tools []ToolDefinition) ([]anthropic.ToolUnionParam, error) {
	var result []anthropic.ToolUnionParam
	for _, tool := range tools {
		raw, err := json.Marshal(tool.Parameters)
		if err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", tool.Name, err)
		}
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(raw, &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", tool.Name, err)
		}
		param := anthropic.ToolUnionParamOfTool(schema, tool.Name)
		if param.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %s: missing tool definition", tool.Name)
		}
		param.OfTool.Description = anthropic.String(tool.Description)
		result = append(result, param)
	}
	return result, nil
}

type anthropicErrorPayload struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func (a *AnthropicAdapter) wrapError(err error, model string) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		providerErr := &ProviderError{
			Reason:    ReasonUnknown,
			Provider:  "anthropic",
			Model:     model,
			Cause:     err,
			RequestID: apiErr.RequestID,
		}
		providerErr = providerErr.WithStatus(apiErr.StatusCode)

		if raw := apiErr.RawJSON(); raw != "" {
			var payload anthropicErrorPayload
			if json.Unmarshal([]byte(raw), &payload) == nil {
				providerErr.Message = payload.Error.Message
				providerErr.Code = payload.Error.Type
				if payload.RequestID != "" {
					providerErr.RequestID = payload.RequestID
				}
			}
		}
		if providerErr.Message == "" {
			providerErr.Message = "anthropic request failed"
		}
		return providerErr
	}

	return NewProviderError("anthropic", model, err)
}
