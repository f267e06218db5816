package recording

import (
	"fmt"
)

// TraceReplayer loads recorded traces for replay and re-evaluation flows.
type TraceReplayer struct {
	store RecordStore
}

// NewTraceReplayer creates a replayer over the given store.
func NewTraceReplayer(store RecordStore) *TraceReplayer {
	return &TraceReplayer{store: store}
}

// Load reads a recorded trace by id and validates its schema version.
func (r *TraceReplayer) Load(traceID string) (*RecordedTrace, error) {
	var recorded RecordedTrace
	if err := r.store.LoadRecordedJSON(traceID, &recorded); err != nil {
		return nil, fmt.Errorf("load recorded trace %s: %w", traceID, err)
	}
	if err := ValidateTraceVersion(recorded.Metadata); err != nil {
		return nil, err
	}
	return &recorded, nil
}
