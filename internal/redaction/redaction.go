// Package redaction removes secret patterns from trace content and enforces
// size limits before traces are persisted.
package redaction

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/haasonsaas/salvo/pkg/models"
)

// Placeholder replaces every matched secret.
const Placeholder = "[REDACTED]"

// basePatterns match common secret formats. They are applied to all trace
// message content before storage. Order matters: the bearer pattern runs
// before the general key-value pattern.
var basePatterns = []string{
	`(?i)bearer\s+[a-zA-Z0-9._-]+`,
	`sk-[a-zA-Z0-9]{20,}`,
	`(?i)(api[_-]?key|secret|password|token|authorization)\s*[:=]\s*\S+`,
	`(?i)cookie:\s*\S+`,
	`(?i)set-cookie:\s*\S+`,
	`(?i)x-api-key:\s*\S+`,
	`sk-ant-[a-zA-Z0-9-]{20,}`,
	`ghp_[a-zA-Z0-9]{36}`,
	`gho_[a-zA-Z0-9]{36}`,
}

var compiledBase = compileAll(basePatterns)

func compileAll(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// Size limits for trace storage.
const (
	// MaxMessageContentSize bounds a single message's content.
	MaxMessageContentSize = 50_000
	// MaxToolCallsSize bounds a message's serialized tool-call list.
	MaxToolCallsSize = 100_000
)

// Redact replaces secret patterns in content with the placeholder.
func Redact(content string) string {
	for _, re := range compiledBase {
		content = re.ReplaceAllString(content, Placeholder)
	}
	return content
}

// Truncate caps content at maxSize characters, appending a notice when
// anything was cut.
func Truncate(content string, maxSize int) string {
	if len(content) <= maxSize {
		return content
	}
	return content[:maxSize] + "... [truncated]"
}

// Transform is a string-to-string redaction function. Hosts may supply
// their own in place of the built-in pipeline.
type Transform func(string) string

// NewPipeline builds a Transform combining the built-in patterns with
// optional custom patterns. Custom patterns extend, never replace, the
// built-in set. An invalid custom pattern is an error.
func NewPipeline(customPatterns []string) (Transform, error) {
	all := compiledBase
	if len(customPatterns) > 0 {
		all = make([]*regexp.Regexp, len(compiledBase), len(compiledBase)+len(customPatterns))
		copy(all, compiledBase)
		for _, p := range customPatterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("invalid custom redaction pattern %q: %w", p, err)
			}
			all = append(all, re)
		}
	}
	return func(content string) string {
		for _, re := range all {
			content = re.ReplaceAllString(content, Placeholder)
		}
		return content
	}, nil
}

// ApplyTraceLimits returns a copy of the trace with every message's content
// redacted and truncated, and oversized tool-call lists collapsed to a
// truncation marker.
func ApplyTraceLimits(trace *models.Trace) *models.Trace {
	sanitized := *trace
	sanitized.Messages = make([]models.TraceMessage, len(trace.Messages))

	for i, msg := range trace.Messages {
		out := msg
		if msg.Content != nil {
			content := Truncate(Redact(*msg.Content), MaxMessageContentSize)
			out.Content = &content
		}
		if msg.ToolCalls != nil {
			if serialized, err := json.Marshal(msg.ToolCalls); err == nil && len(serialized) > MaxToolCallsSize {
				out.ToolCalls = []models.ToolCall{{
					Name:      "truncated",
					Arguments: map[string]any{"truncated": true, "original_count": len(msg.ToolCalls)},
				}}
			}
		}
		sanitized.Messages[i] = out
	}
	return &sanitized
}

// ApplyTransform returns a copy of the trace with fn applied to every
// message's content and to the final content.
func ApplyTransform(trace *models.Trace, fn Transform) *models.Trace {
	redacted := *trace
	redacted.Messages = make([]models.TraceMessage, len(trace.Messages))
	for i, msg := range trace.Messages {
		out := msg
		if msg.Content != nil {
			content := fn(*msg.Content)
			out.Content = &content
		}
		redacted.Messages[i] = out
	}
	if trace.FinalContent != nil {
		final := fn(*trace.FinalContent)
		redacted.FinalContent = &final
	}
	return &redacted
}
