// Package storage defines the persistence hook the trial runner writes
// through and a JSON file implementation of it.
package storage

import (
	"github.com/haasonsaas/salvo/pkg/models"
)

// ManifestEntry records one trial's trace in the run manifest.
type ManifestEntry struct {
	RunID        string `json:"run_id"`
	TraceID      string `json:"trace_id"`
	TrialIndex   int    `json:"trial_index"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	ScenarioName string `json:"scenario_name"`
}

// RunStore is the exported persistence capability. The core does not
// prescribe a storage layout; it only requires these operations.
//
// SaveTrace must be atomic and idempotent for the same (id, trace) pair.
// SaveTraceManifestEntry must be safe under concurrent writers.
// SaveSuiteResult must be atomic. Selecting the "latest" suite is the
// host's concern.
type RunStore interface {
	SaveTrace(traceID string, trace *models.Trace) error
	LoadTrace(traceID string) (*models.Trace, error)
	SaveTraceManifestEntry(entry ManifestEntry) error
	SaveSuiteResult(suite *models.SuiteResult) error
}
