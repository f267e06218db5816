// Package runner drives a single scenario through a multi-turn conversation
// loop with mock tool injection.
package runner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/haasonsaas/salvo/internal/adapters"
	"github.com/haasonsaas/salvo/internal/cost"
	"github.com/haasonsaas/salvo/internal/observability"
	"github.com/haasonsaas/salvo/pkg/models"
)

// MockNotFoundError is raised when the model calls a tool with no
// mock_response defined. It is fatal for the trial.
type MockNotFoundError struct {
	ToolName       string
	AvailableMocks []string
}

// Error implements the error interface.
func (e *MockNotFoundError) Error() string {
	available := "none"
	if len(e.AvailableMocks) > 0 {
		sorted := append([]string(nil), e.AvailableMocks...)
		sort.Strings(sorted)
		available = fmt.Sprint(sorted)
	}
	return fmt.Sprintf("model called tool %q but no mock_response is defined; available mocks: %s", e.ToolName, available)
}

// ScenarioRunner executes one end-to-end conversation: model turn, mock
// tool results, repeat until the model produces a final answer (no tool
// calls) or the max-turns safety net is hit. The result is a replay-ready
// Trace.
type ScenarioRunner struct {
	adapter adapters.Adapter
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewScenarioRunner creates a runner over the given adapter. Logger and
// metrics are optional; nil disables them.
func NewScenarioRunner(adapter adapters.Adapter, logger *observability.Logger, metrics *observability.Metrics) *ScenarioRunner {
	return &ScenarioRunner{adapter: adapter, logger: logger, metrics: metrics}
}

// Run executes the scenario and returns the full run trace.
//
// Within a run all operations are strictly sequential: turn i completes,
// including all of its tool results, before turn i+1 begins. Parallel tool
// calls in one turn are all serviced in one batch before the next model
// turn.
func (r *ScenarioRunner) Run(ctx context.Context, scenario *models.Scenario, config adapters.Config) (*models.Trace, error) {
	maxTurns := scenario.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 10
	}

	messages := make([]adapters.Message, 0, 2)
	if scenario.SystemPrompt != "" {
		messages = append(messages, adapters.Message{Role: models.RoleSystem, Content: models.StrPtr(scenario.SystemPrompt)})
	}
	messages = append(messages, adapters.Message{Role: models.RoleUser, Content: models.StrPtr(scenario.Prompt)})

	var toolDefs []adapters.ToolDefinition
	mockResponses := make(map[string]any)
	for _, tool := range scenario.Tools {
		params, err := toolParametersMap(tool.Parameters)
		if err != nil {
			return nil, err
		}
		toolDefs = append(toolDefs, adapters.ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  params,
		})
		if tool.MockResponse != nil {
			mockResponses[tool.Name] = tool.MockResponse
		}
	}

	var totalUsage adapters.TokenUsage
	var allToolCalls []models.ToolCall
	start := time.Now()
	turnCount := 0
	var result *adapters.TurnResult

	for turn := 0; turn < maxTurns; turn++ {
		turnCount++

		turnResult, err := r.adapter.SendTurn(ctx, messages, toolDefs, config)
		r.observeTurn(turnResult, err, config.Model)
		if err != nil {
			return nil, err
		}
		result = turnResult

		totalUsage.InputTokens += result.Usage.InputTokens
		totalUsage.OutputTokens += result.Usage.OutputTokens
		totalUsage.TotalTokens += result.Usage.TotalTokens

		messages = append(messages, adapters.Message{
			Role:      models.RoleAssistant,
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
		})

		// No tool calls means the model produced its final answer. An
		// assistant turn with neither content nor tool calls also lands
		// here and terminates the loop as a degenerate final answer.
		if len(result.ToolCalls) == 0 {
			break
		}

		for _, tc := range result.ToolCalls {
			mock, ok := mockResponses[tc.Name]
			if !ok {
				return nil, &MockNotFoundError{
					ToolName:       tc.Name,
					AvailableMocks: mockNames(mockResponses),
				}
			}

			content, err := serializeMock(mock)
			if err != nil {
				return nil, fmt.Errorf("serialize mock for tool %q: %w", tc.Name, err)
			}

			messages = append(messages, adapters.Message{
				Role:       models.RoleToolResult,
				Content:    models.StrPtr(content),
				ToolCallID: tc.ID,
				ToolName:   tc.Name,
			})
		}

		allToolCalls = append(allToolCalls, result.ToolCalls...)
		r.logger.Debug(ctx, "turn serviced", "turn", turnCount, "tool_calls", len(result.ToolCalls))
	}

	elapsed := time.Since(start).Seconds()

	// Max turns was hit iff the loop exhausted the bound while the final
	// turn still had pending tool calls.
	maxTurnsHit := turnCount >= maxTurns && result != nil && len(result.ToolCalls) > 0

	hash, err := ScenarioHash(scenario)
	if err != nil {
		return nil, fmt.Errorf("hash scenario: %w", err)
	}

	finishReason := "error"
	var finalContent *string
	if result != nil {
		finishReason = result.FinishReason
		finalContent = result.Content
	}

	return &models.Trace{
		Messages:       traceMessages(messages),
		ToolCallsMade:  allToolCalls,
		TurnCount:      turnCount,
		InputTokens:    totalUsage.InputTokens,
		OutputTokens:   totalUsage.OutputTokens,
		TotalTokens:    totalUsage.TotalTokens,
		LatencySeconds: elapsed,
		FinalContent:   finalContent,
		FinishReason:   finishReason,
		Model:          config.Model,
		Provider:       r.adapter.ProviderName(),
		Timestamp:      time.Now().UTC(),
		ScenarioHash:   hash,
		CostUSD:        cost.Estimate(config.Model, totalUsage.InputTokens, totalUsage.OutputTokens),
		ExtrasResolved: config.Extras,
		MaxTurnsHit:    maxTurnsHit,
	}, nil
}

func (r *ScenarioRunner) observeTurn(result *adapters.TurnResult, err error, model string) {
	if r.metrics == nil {
		return
	}
	in, out := 0, 0
	if result != nil {
		in, out = result.Usage.InputTokens, result.Usage.OutputTokens
	}
	r.metrics.ObserveTurn(r.adapter.ProviderName(), model, err, in, out)
}

// ScenarioHash computes the SHA-256 of the scenario's canonical JSON form.
// Identical scenario values produce identical hashes across platforms.
func ScenarioHash(scenario *models.Scenario) (string, error) {
	canonical, err := scenario.CanonicalJSON()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// serializeMock renders a mock response as tool-result text: structured
// values become JSON, strings pass through unchanged.
func serializeMock(mock any) (string, error) {
	if s, ok := mock.(string); ok {
		return s, nil
	}
	raw, err := json.Marshal(mock)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func mockNames(mocks map[string]any) []string {
	names := make([]string, 0, len(mocks))
	for name := range mocks {
		names = append(names, name)
	}
	return names
}

func toolParametersMap(params models.ToolParameter) (map[string]any, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal tool parameters: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode tool parameters: %w", err)
	}
	return m, nil
}

func traceMessages(messages []adapters.Message) []models.TraceMessage {
	result := make([]models.TraceMessage, 0, len(messages))
	for _, msg := range messages {
		result = append(result, models.TraceMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCalls:  msg.ToolCalls,
			ToolCallID: msg.ToolCallID,
			ToolName:   msg.ToolName,
		})
	}
	return result
}
