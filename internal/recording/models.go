// Package recording captures redacted trace artefacts for replay and
// re-evaluation.
package recording

import (
	"fmt"
	"time"

	"github.com/haasonsaas/salvo/pkg/models"
)

// CurrentTraceSchemaVersion is the schema version written into recorded
// trace files.
const CurrentTraceSchemaVersion = 1

// TraceMetadata captures the recording context of a recorded trace.
type TraceMetadata struct {
	SchemaVersion int       `json:"schema_version"`
	RecordingMode string    `json:"recording_mode"`
	SalvoVersion  string    `json:"salvo_version"`
	RecordedAt    time.Time `json:"recorded_at"`
	SourceRunID   string    `json:"source_run_id"`
	ScenarioName  string    `json:"scenario_name"`
	ScenarioFile  string    `json:"scenario_file"`
	ScenarioHash  string    `json:"scenario_hash"`
}

// RecordedTrace wraps a run trace with recording metadata and a snapshot of
// the scenario that produced it. OriginalTraceID links re-evaluation
// results back to their source.
type RecordedTrace struct {
	Metadata         TraceMetadata    `json:"metadata"`
	Trace            models.Trace     `json:"trace"`
	ScenarioSnapshot *models.Scenario `json:"scenario_snapshot"`
	OriginalTraceID  string           `json:"original_trace_id,omitempty"`
}

// RevalResult is the outcome of re-evaluating a recorded trace with updated
// assertions.
type RevalResult struct {
	ReevalID          string              `json:"reeval_id"`
	OriginalTraceID   string              `json:"original_trace_id"`
	ScenarioName      string              `json:"scenario_name"`
	ScenarioFile      string              `json:"scenario_file,omitempty"`
	EvalResults       []models.EvalResult `json:"eval_results"`
	Score             float64             `json:"score"`
	Passed            bool                `json:"passed"`
	Threshold         float64             `json:"threshold"`
	EvaluatedAt       time.Time           `json:"evaluated_at"`
	AssertionsUsed    int                 `json:"assertions_used"`
	AssertionsSkipped int                 `json:"assertions_skipped"`
}

// ValidateTraceVersion rejects traces written by a newer schema than this
// build understands.
func ValidateTraceVersion(metadata TraceMetadata) error {
	if metadata.SchemaVersion > CurrentTraceSchemaVersion {
		return fmt.Errorf(
			"trace schema version %d is newer than supported version %d; upgrade salvo to read this trace",
			metadata.SchemaVersion, CurrentTraceSchemaVersion)
	}
	return nil
}
