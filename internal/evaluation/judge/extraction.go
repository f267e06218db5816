package judge

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/haasonsaas/salvo/internal/adapters"
	"github.com/haasonsaas/salvo/pkg/models"
)

// CriterionScore is one criterion's score and reasoning within a vote.
type CriterionScore struct {
	Score     float64
	Reasoning string
}

// Vote maps criterion names to their scores for one judge call.
type Vote map[string]CriterionScore

var fencedJSONRe = regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n\\s*```")

// ExtractScores pulls per-criterion scores out of a judge response.
//
// A score_criteria tool call is preferred; otherwise the text content is
// parsed as JSON using three strategies in order: whole-string parse,
// first-brace-to-last-brace slice, fenced json block. The parsed object
// must name at least one expected criterion; scores clamp to [0, 1].
// A nil return means the vote failed to parse.
func ExtractScores(result *adapters.TurnResult, criteria []models.JudgeCriterion) Vote {
	names := make(map[string]bool, len(criteria))
	for _, c := range criteria {
		names[c.Name] = true
	}

	for _, tc := range result.ToolCalls {
		if tc.Name != ScoringToolName {
			continue
		}
		if vote := voteFromObject(tc.Arguments, names); vote != nil {
			return vote
		}
	}

	if result.Content != nil {
		if obj := jsonFromText(*result.Content); obj != nil {
			if vote := voteFromObject(obj, names); vote != nil {
				return vote
			}
		}
	}

	return nil
}

// voteFromObject converts a parsed object to a Vote when it names at least
// one expected criterion.
func voteFromObject(obj map[string]any, names map[string]bool) Vote {
	vote := Vote{}
	for key, val := range obj {
		if !names[key] {
			continue
		}
		entry, ok := val.(map[string]any)
		if !ok {
			continue
		}
		score, ok := entry["score"]
		if !ok {
			continue
		}
		f, ok := numericValue(score)
		if !ok {
			continue
		}
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		reasoning, _ := entry["reasoning"].(string)
		vote[key] = CriterionScore{Score: f, Reasoning: reasoning}
	}
	if len(vote) == 0 {
		return nil
	}
	return vote
}

// jsonFromText extracts a JSON object from free text.
func jsonFromText(text string) map[string]any {
	if text == "" {
		return nil
	}

	// Strategy 1: direct parse.
	if obj := parseObject(text); obj != nil {
		return obj
	}

	// Strategy 2: brace extraction.
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first != -1 && last > first {
		if obj := parseObject(text[first : last+1]); obj != nil {
			return obj
		}
	}

	// Strategy 3: fenced code block.
	if match := fencedJSONRe.FindStringSubmatch(text); match != nil {
		if obj := parseObject(match[1]); obj != nil {
			return obj
		}
	}

	return nil
}

func parseObject(text string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil
	}
	return obj
}

func numericValue(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
