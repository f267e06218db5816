package recording

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/haasonsaas/salvo/internal/redaction"
	"github.com/haasonsaas/salvo/internal/version"
	"github.com/haasonsaas/salvo/pkg/models"
)

// contentExcluded replaces stripped content in metadata_only recordings.
const contentExcluded = "[CONTENT_EXCLUDED]"

// RecordStore is the persistence surface the recorder needs. The storage
// FileStore satisfies it.
type RecordStore interface {
	LoadTrace(traceID string) (*models.Trace, error)
	SaveRecordedJSON(traceID string, doc any) error
	LoadRecordedJSON(traceID string, out any) error
	UpdateLatestRecorded(traceID string) error
}

// TraceRecorder orchestrates the recording pipeline: extended redaction,
// recording-mode handling, and persistence of recorded artefacts.
type TraceRecorder struct {
	store  RecordStore
	mode   string
	redact redaction.Transform
}

// NewTraceRecorder builds a recorder for the given recording configuration.
// Custom redaction patterns extend the built-in catalog; an invalid pattern
// is an error.
func NewTraceRecorder(store RecordStore, cfg models.RecordingConfig) (*TraceRecorder, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = models.RecordingFull
	}
	if mode != models.RecordingFull && mode != models.RecordingMetadataOnly {
		return nil, fmt.Errorf("unknown recording mode %q", mode)
	}
	redact, err := redaction.NewPipeline(cfg.CustomRedactionPatterns)
	if err != nil {
		return nil, err
	}
	return &TraceRecorder{store: store, mode: mode, redact: redact}, nil
}

// RecordSuite records the trace of every trial in the suite: load the raw
// trace, apply the redaction pipeline, optionally strip content for
// metadata_only mode, wrap with metadata, and persist. Returns the trace
// ids that were recorded. Trials whose raw trace is missing are skipped.
func (r *TraceRecorder) RecordSuite(suite *models.SuiteResult, scenario *models.Scenario, scenarioFile string) ([]string, error) {
	var recorded []string

	for _, t := range suite.Trials {
		if t.TraceID == "" {
			continue
		}
		trace, err := r.store.LoadTrace(t.TraceID)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return recorded, fmt.Errorf("load trace %s: %w", t.TraceID, err)
		}

		out := redaction.ApplyTransform(trace, r.redact)
		if r.mode == models.RecordingMetadataOnly {
			out = StripContentForMetadataOnly(out)
		}

		doc := RecordedTrace{
			Metadata: TraceMetadata{
				SchemaVersion: CurrentTraceSchemaVersion,
				RecordingMode: r.mode,
				SalvoVersion:  version.Version,
				RecordedAt:    time.Now().UTC(),
				SourceRunID:   suite.RunID,
				ScenarioName:  suite.ScenarioName,
				ScenarioFile:  scenarioFile,
				ScenarioHash:  trace.ScenarioHash,
			},
			Trace:            *out,
			ScenarioSnapshot: scenario,
		}

		if err := r.store.SaveRecordedJSON(t.TraceID, doc); err != nil {
			return recorded, fmt.Errorf("save recorded trace %s: %w", t.TraceID, err)
		}
		recorded = append(recorded, t.TraceID)
	}

	if len(recorded) > 0 {
		if err := r.store.UpdateLatestRecorded(recorded[len(recorded)-1]); err != nil {
			return recorded, err
		}
	}
	return recorded, nil
}

// StripContentForMetadataOnly removes message content while preserving
// structure: content becomes the exclusion marker when present, tool-call
// ids and names are kept but arguments are replaced, and the final content
// is dropped. Token counts, latency, and other metadata survive.
func StripContentForMetadataOnly(trace *models.Trace) *models.Trace {
	stripped := *trace
	stripped.Messages = make([]models.TraceMessage, len(trace.Messages))

	for i, msg := range trace.Messages {
		out := msg
		if msg.Content != nil {
			out.Content = models.StrPtr(contentExcluded)
		}
		if msg.ToolCalls != nil {
			out.ToolCalls = stripToolCalls(msg.ToolCalls)
		}
		stripped.Messages[i] = out
	}

	stripped.ToolCallsMade = stripToolCalls(trace.ToolCallsMade)
	stripped.FinalContent = nil
	return &stripped
}

func stripToolCalls(calls []models.ToolCall) []models.ToolCall {
	out := make([]models.ToolCall, len(calls))
	for i, tc := range calls {
		out[i] = models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Name,
			Arguments: map[string]any{"stripped": contentExcluded},
		}
	}
	return out
}
