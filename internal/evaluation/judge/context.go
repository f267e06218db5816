package judge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/salvo/pkg/models"
)

const (
	// maxArgLength bounds stringified tool arguments in the summary.
	maxArgLength = 100
	// maxSystemPromptLength bounds the scenario system prompt shown to
	// the judge.
	maxSystemPromptLength = 2000
)

// BuildToolCallSummary renders a concise numbered list of the tool calls
// made during the run, with arguments truncated.
func BuildToolCallSummary(trace *models.Trace) string {
	if len(trace.ToolCallsMade) == 0 {
		return "No tool calls were made."
	}

	lines := make([]string, 0, len(trace.ToolCallsMade))
	for i, tc := range trace.ToolCallsMade {
		args, err := json.Marshal(tc.Arguments)
		argsStr := "{}"
		if err == nil {
			argsStr = string(args)
		}
		if len(argsStr) > maxArgLength {
			argsStr = argsStr[:maxArgLength] + "..."
		}
		lines = append(lines, fmt.Sprintf("%d. %s(%s)", i+1, tc.Name, argsStr))
	}
	return strings.Join(lines, "\n")
}

// BuildContext assembles the context block the judge sees. The agent's
// final response and the tool-call summary are always included; the
// scenario system prompt and a tool digest are added when
// includeSystemPrompt is set and a scenario is available.
func BuildContext(trace *models.Trace, scenario *models.Scenario, includeSystemPrompt bool) string {
	var sections []string

	if includeSystemPrompt && scenario != nil {
		sp := scenario.SystemPrompt
		if len(sp) > maxSystemPromptLength {
			sp = sp[:maxSystemPromptLength] + "..."
		}
		sections = append(sections, "## Scenario System Prompt\n\n"+sp)

		if len(scenario.Tools) > 0 {
			toolLines := make([]string, 0, len(scenario.Tools))
			for _, t := range scenario.Tools {
				toolLines = append(toolLines, fmt.Sprintf("- **%s**: %s", t.Name, t.Description))
			}
			sections = append(sections, "## Available Tools\n\n"+strings.Join(toolLines, "\n"))
		}
	}

	final := "(empty)"
	if trace.FinalContent != nil && *trace.FinalContent != "" {
		final = *trace.FinalContent
	}
	sections = append(sections, "## Agent's Final Response\n\n"+final)
	sections = append(sections, "## Tool Calls Made\n\n"+BuildToolCallSummary(trace))

	return strings.Join(sections, "\n\n")
}
