// Package judge builds prompts for LLM-as-judge evaluation, extracts
// structured scores from judge responses, and aggregates k votes.
package judge

import (
	"fmt"
	"strings"

	"github.com/haasonsaas/salvo/internal/adapters"
	"github.com/haasonsaas/salvo/pkg/models"
)

// ScoringToolName is the tool the judge is directed to call.
const ScoringToolName = "score_criteria"

// SystemTemplate is the fixed judge system prompt; the criteria block is
// substituted for %s. A custom prompt on the assertion overrides it
// wholesale.
const SystemTemplate = `You are an expert evaluator assessing the quality of an AI agent's response.

Evaluate the agent's response against each of the following criteria independently. Score each criterion on a 0.0 to 1.0 scale using these anchors:

- **0.0**: Completely fails to meet the criterion
- **0.25**: Mostly fails, with only minor elements present
- **0.5**: Partially meets the criterion
- **0.75**: Mostly meets the criterion with minor gaps
- **1.0**: Fully meets the criterion

**Criteria to evaluate:**

%s

**Instructions:**
- Evaluate each criterion independently -- do not let one criterion's score influence another.
- Provide specific reasoning for each score referencing the agent's actual output.
- Use the score_criteria tool to submit your evaluation.`

// UserTemplate wraps the context block shown to the judge.
const UserTemplate = `Please evaluate the following agent interaction against the criteria defined in your instructions.

%s

Use the score_criteria tool to submit your per-criterion scores and reasoning.`

// BuildCriteriaBlock formats the criteria into one line each for the
// system prompt.
func BuildCriteriaBlock(criteria []models.JudgeCriterion) string {
	lines := make([]string, 0, len(criteria))
	for _, c := range criteria {
		lines = append(lines, fmt.Sprintf("- **%s** (weight: %v): %s", c.Name, c.Weight, c.Description))
	}
	return strings.Join(lines, "\n")
}

// BuildSystemPrompt renders the complete judge system prompt.
func BuildSystemPrompt(criteria []models.JudgeCriterion) string {
	return fmt.Sprintf(SystemTemplate, BuildCriteriaBlock(criteria))
}

// BuildUserPrompt renders the judge user prompt around a context block.
func BuildUserPrompt(contextBlock string) string {
	return fmt.Sprintf(UserTemplate, contextBlock)
}

// BuildScoringTool builds the score_criteria tool definition: one object
// property per criterion, each requiring a numeric score and a reasoning
// string.
func BuildScoringTool(criteria []models.JudgeCriterion) adapters.ToolDefinition {
	properties := make(map[string]any, len(criteria))
	required := make([]string, 0, len(criteria))

	for _, c := range criteria {
		required = append(required, c.Name)
		properties[c.Name] = map[string]any{
			"type":        "object",
			"description": fmt.Sprintf("Evaluation for '%s': %s", c.Name, c.Description),
			"properties": map[string]any{
				"score": map[string]any{
					"type":        "number",
					"description": fmt.Sprintf("Score for %s on 0.0-1.0 scale", c.Name),
				},
				"reasoning": map[string]any{
					"type":        "string",
					"description": fmt.Sprintf("Reasoning for the %s score", c.Name),
				},
			},
			"required": []string{"score", "reasoning"},
		}
	}

	return adapters.ToolDefinition{
		Name:        ScoringToolName,
		Description: "Submit per-criterion evaluation scores and reasoning.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}

// FormatToolChoice returns the provider-specific directive that forces the
// judge to call the scoring tool, or an empty map for unknown providers.
func FormatToolChoice(providerName, toolName string) map[string]any {
	lower := strings.ToLower(providerName)

	if strings.Contains(lower, "openai") {
		return map[string]any{
			"tool_choice": map[string]any{
				"type":     "function",
				"function": map[string]any{"name": toolName},
			},
		}
	}
	if strings.Contains(lower, "anthropic") {
		return map[string]any{
			"tool_choice": map[string]any{"type": "tool", "name": toolName},
		}
	}
	return map[string]any{}
}
