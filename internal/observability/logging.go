// Package observability provides structured logging and metrics for the
// Salvo execution pipeline.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/haasonsaas/salvo/internal/redaction"
)

// Logger provides structured logging with run correlation and sensitive
// data redaction. It is built on Go's slog package with JSON output for CI
// environments and text output for local development. A nil *Logger is
// valid and silent, so callers never need to guard log statements.
type Logger struct {
	logger *slog.Logger
	redact redaction.Transform
}

// LogConfig configures the logging behavior.
type LogConfig struct {
	// Level sets the minimum log level: "debug", "info", "warn", "error".
	Level string

	// Format specifies output format: "json" or "text".
	Format string

	// Output is the writer for log output (defaults to os.Stderr).
	Output io.Writer

	// RedactPatterns are additional regex patterns applied on top of the
	// built-in secret catalog.
	RedactPatterns []string
}

// contextKey is the type for context keys used in logging.
type contextKey string

const (
	// RunIDKey is the context key for suite run ids.
	RunIDKey contextKey = "run_id"

	// TrialKey is the context key for trial numbers.
	TrialKey contextKey = "trial"

	// ScenarioKey is the context key for scenario names.
	ScenarioKey contextKey = "scenario"
)

// NewLogger creates a structured logger. An invalid or empty level defaults
// to "info"; an empty format defaults to "text".
func NewLogger(config LogConfig) (*Logger, error) {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	var level slog.Level
	switch strings.ToLower(config.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(config.Format) == "json" {
		handler = slog.NewJSONHandler(config.Output, opts)
	} else {
		handler = slog.NewTextHandler(config.Output, opts)
	}

	redact, err := redaction.NewPipeline(config.RedactPatterns)
	if err != nil {
		return nil, err
	}

	return &Logger{
		logger: slog.New(handler),
		redact: redact,
	}, nil
}

// WithFields returns a logger with the given fields added to all records.
func (l *Logger) WithFields(args ...any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{logger: l.logger.With(args...), redact: l.redact}
}

// Debug logs at debug level with optional key-value pairs.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelDebug, msg, args...)
}

// Info logs at info level with optional key-value pairs.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelInfo, msg, args...)
}

// Warn logs at warn level with optional key-value pairs.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelWarn, msg, args...)
}

// Error logs at error level with optional key-value pairs.
func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelError, msg, args...)
}

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if l == nil {
		return
	}

	msg = l.redact(msg)
	redacted := make([]any, len(args))
	for i, arg := range args {
		redacted[i] = l.redactValue(arg)
	}

	attrs := make([]any, 0, len(redacted)+6)
	if runID, ok := ctx.Value(RunIDKey).(string); ok && runID != "" {
		attrs = append(attrs, "run_id", runID)
	}
	if trial, ok := ctx.Value(TrialKey).(int); ok && trial > 0 {
		attrs = append(attrs, "trial", trial)
	}
	if scenario, ok := ctx.Value(ScenarioKey).(string); ok && scenario != "" {
		attrs = append(attrs, "scenario", scenario)
	}
	attrs = append(attrs, redacted...)

	l.logger.Log(ctx, level, msg, attrs...)
}

func (l *Logger) redactValue(v any) any {
	switch val := v.(type) {
	case string:
		return l.redact(val)
	case error:
		return l.redact(val.Error())
	default:
		return v
	}
}

// WithRunID attaches a suite run id to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// WithTrial attaches a trial number to the context.
func WithTrial(ctx context.Context, trial int) context.Context {
	return context.WithValue(ctx, TrialKey, trial)
}

// WithScenario attaches a scenario name to the context.
func WithScenario(ctx context.Context, scenario string) context.Context {
	return context.WithValue(ctx, ScenarioKey, scenario)
}
