package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/salvo/pkg/models"
)

// OpenAIAdapter sends turns through the OpenAI chat completions API.
//
// The client is lazily initialized on first call and reads OPENAI_API_KEY
// from the environment unless an explicit key is configured.
type OpenAIAdapter struct {
	apiKey  string
	baseURL string

	once   sync.Once
	client *openai.Client
}

// OpenAIOption configures an OpenAIAdapter.
type OpenAIOption func(*OpenAIAdapter)

// WithOpenAIKey overrides the API key read from the environment.
func WithOpenAIKey(key string) OpenAIOption {
	return func(a *OpenAIAdapter) { a.apiKey = key }
}

// WithOpenAIBaseURL points the adapter at a non-default endpoint.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(a *OpenAIAdapter) { a.baseURL = url }
}

// NewOpenAIAdapter creates an OpenAI adapter. No network I/O happens here.
func NewOpenAIAdapter(opts ...OpenAIOption) *OpenAIAdapter {
	a := &OpenAIAdapter{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ProviderName returns "openai".
func (a *OpenAIAdapter) ProviderName() string { return "openai" }

func (a *OpenAIAdapter) getClient() *openai.Client {
	a.once.Do(func() {
		key := a.apiKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		cfg := openai.DefaultConfig(key)
		if a.baseURL != "" {
			cfg.BaseURL = a.baseURL
		}
		a.client = openai.NewClientWithConfig(cfg)
	})
	return a.client
}

// SendTurn sends one conversation turn and extracts the result.
func (a *OpenAIAdapter) SendTurn(ctx context.Context, messages []Message, tools []ToolDefinition, config Config) (*TurnResult, error) {
	req := openai.ChatCompletionRequest{
		Model:    config.Model,
		Messages: convertOpenAIMessages(messages),
	}
	if len(tools) > 0 {
		req.Tools = convertOpenAITools(tools)
	}
	if config.Temperature != nil {
		req.Temperature = float32(*config.Temperature)
	}
	if config.MaxTokens != nil {
		req.MaxTokens = *config.MaxTokens
	}
	if config.Seed != nil {
		req.Seed = config.Seed
	}
	applyOpenAIExtras(&req, config.Extras)

	resp, err := a.getClient().CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, a.wrapError(err, config.Model)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{
			Reason:   ReasonUnknown,
			Provider: "openai",
			Model:    config.Model,
			Message:  "response contained no choices",
		}
	}
	choice := resp.Choices[0]

	var content *string
	if choice.Message.Content != "" {
		c := choice.Message.Content
		content = &c
	}

	toolCalls, err := extractOpenAIToolCalls(choice.Message.ToolCalls)
	if err != nil {
		return nil, a.wrapError(err, config.Model)
	}

	raw, _ := json.Marshal(resp)

	return &TurnResult{
		Content:   content,
		ToolCalls: toolCalls,
		Usage: TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
		RawResponse:  raw,
		FinishReason: string(choice.FinishReason),
	}, nil
}

func convertOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		content := ""
		if msg.Content != nil {
			content = *msg.Content
		}
		switch msg.Role {
		case "system":
			result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: content})
		case "user":
			result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: content})
		case "assistant":
			entry := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}
			for _, tc := range msg.ToolCalls {
				args, err := json.Marshal(tc.Arguments)
				if err != nil {
					args = []byte("{}")
				}
				entry.ToolCalls = append(entry.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			result = append(result, entry)
		case "tool_result":
			result = append(result, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    content,
				ToolCallID: msg.ToolCallID,
			})
		}
	}
	return result
}

func convertOpenAITools(tools []ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return result
}

func extractOpenAIToolCalls(calls []openai.ToolCall) ([]models.ToolCall, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	result := make([]models.ToolCall, 0, len(calls))
	for _, tc := range calls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("tool call %s: invalid arguments JSON: %w", tc.Function.Name, err)
			}
		}
		result = append(result, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return result, nil
}

// applyOpenAIExtras merges the pass-through extras onto the typed request.
// go-openai exposes no generic body-injection hook, so the known top-level
// parameters are mapped explicitly and unrecognized keys are dropped.
func applyOpenAIExtras(req *openai.ChatCompletionRequest, extras map[string]any) {
	for key, value := range extras {
		switch key {
		case "tool_choice":
			req.ToolChoice = decodeToolChoice(value)
		case "top_p":
			if f, ok := toFloat(value); ok {
				req.TopP = float32(f)
			}
		case "frequency_penalty":
			if f, ok := toFloat(value); ok {
				req.FrequencyPenalty = float32(f)
			}
		case "presence_penalty":
			if f, ok := toFloat(value); ok {
				req.PresencePenalty = float32(f)
			}
		case "stop":
			req.Stop = toStringSlice(value)
		case "user":
			if s, ok := value.(string); ok {
				req.User = s
			}
		case "logprobs":
			if b, ok := value.(bool); ok {
				req.LogProbs = b
			}
		}
	}
}

// decodeToolChoice converts the canonical tool_choice shape
// {"type":"function","function":{"name":...}} into the SDK's type.
func decodeToolChoice(value any) any {
	m, ok := value.(map[string]any)
	if !ok {
		return value
	}
	fn, ok := m["function"].(map[string]any)
	if !ok {
		return value
	}
	name, ok := fn["name"].(string)
	if !ok {
		return value
	}
	return openai.ToolChoice{
		Type:     openai.ToolTypeFunction,
		Function: openai.ToolFunction{Name: name},
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func toStringSlice(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func (a *OpenAIAdapter) wrapError(err error, model string) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		pe := &ProviderError{
			Reason:   ReasonUnknown,
			Provider: "openai",
			Model:    model,
			Message:  apiErr.Message,
			Cause:    err,
		}
		if code, ok := apiErr.Code.(string); ok {
			pe.Code = code
		}
		return pe.WithStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		pe := &ProviderError{
			Reason:   ReasonUnknown,
			Provider: "openai",
			Model:    model,
			Message:  fmt.Sprintf("request failed: %v", reqErr.Err),
			Cause:    err,
		}
		return pe.WithStatus(reqErr.HTTPStatusCode)
	}
	return NewProviderError("openai", model, err)
}
