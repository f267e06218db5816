package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/haasonsaas/salvo/pkg/models"
)

func testTrace() *models.Trace {
	return &models.Trace{
		Messages: []models.TraceMessage{
			{Role: models.RoleUser, Content: models.StrPtr("hello")},
			{Role: models.RoleAssistant, Content: models.StrPtr("hi")},
		},
		ToolCallsMade:  []models.ToolCall{},
		TurnCount:      1,
		InputTokens:    10,
		OutputTokens:   5,
		TotalTokens:    15,
		LatencySeconds: 0.5,
		FinalContent:   models.StrPtr("hi"),
		FinishReason:   "stop",
		Model:          "gpt-4o",
		Provider:       "openai",
		Timestamp:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		ScenarioHash:   "abc123",
		CostUSD:        models.Float64Ptr(0.000195),
	}
}

func TestFileStore_TraceRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir())
	trace := testTrace()

	if err := store.SaveTrace("trace-1", trace); err != nil {
		t.Fatalf("SaveTrace() error = %v", err)
	}
	loaded, err := store.LoadTrace("trace-1")
	if err != nil {
		t.Fatalf("LoadTrace() error = %v", err)
	}
	if !reflect.DeepEqual(trace, loaded) {
		t.Errorf("round trip mismatch:\nsaved:  %+v\nloaded: %+v", trace, loaded)
	}
}

// Re-serializing a loaded trace must be byte-identical.
func TestFileStore_ReserializeIsStable(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.SaveTrace("trace-1", testTrace()); err != nil {
		t.Fatalf("SaveTrace() error = %v", err)
	}
	loaded, err := store.LoadTrace("trace-1")
	if err != nil {
		t.Fatalf("LoadTrace() error = %v", err)
	}
	first, _ := json.Marshal(testTrace())
	second, _ := json.Marshal(loaded)
	if string(first) != string(second) {
		t.Error("re-serialized trace differs from original serialization")
	}
}

func TestFileStore_SaveTraceIdempotent(t *testing.T) {
	store := NewFileStore(t.TempDir())
	trace := testTrace()
	if err := store.SaveTrace("trace-1", trace); err != nil {
		t.Fatalf("first SaveTrace() error = %v", err)
	}
	if err := store.SaveTrace("trace-1", trace); err != nil {
		t.Fatalf("second SaveTrace() error = %v", err)
	}
	loaded, err := store.LoadTrace("trace-1")
	if err != nil {
		t.Fatalf("LoadTrace() error = %v", err)
	}
	if loaded.ScenarioHash != trace.ScenarioHash {
		t.Error("idempotent save corrupted the trace")
	}
}

func TestFileStore_NoTempFilesLeftBehind(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root)
	if err := store.SaveTrace("trace-1", testTrace()); err != nil {
		t.Fatalf("SaveTrace() error = %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(root, ".salvo", "traces"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("traces dir has %d entries, want 1 (no temp residue)", len(entries))
	}
}

func TestFileStore_ManifestConcurrentWrites(t *testing.T) {
	store := NewFileStore(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry := ManifestEntry{
				RunID:        "run-1",
				TraceID:      string(rune('a' + i)),
				TrialIndex:   i,
				Status:       "passed",
				ScenarioName: "s",
			}
			if err := store.SaveTraceManifestEntry(entry); err != nil {
				t.Errorf("SaveTraceManifestEntry() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	entries, err := store.ReadManifest()
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if len(entries) != 20 {
		t.Errorf("manifest has %d entries, want 20", len(entries))
	}
}

func TestFileStore_ManifestReplacesSameTraceID(t *testing.T) {
	store := NewFileStore(t.TempDir())
	entry := ManifestEntry{RunID: "r", TraceID: "t1", Status: "failed"}
	if err := store.SaveTraceManifestEntry(entry); err != nil {
		t.Fatalf("SaveTraceManifestEntry() error = %v", err)
	}
	entry.Status = "passed"
	if err := store.SaveTraceManifestEntry(entry); err != nil {
		t.Fatalf("SaveTraceManifestEntry() error = %v", err)
	}
	entries, _ := store.ReadManifest()
	if len(entries) != 1 || entries[0].Status != "passed" {
		t.Errorf("manifest = %+v, want single updated entry", entries)
	}
}

func TestFileStore_SuiteRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir())
	suite := &models.SuiteResult{
		RunID:        "run-1",
		ScenarioName: "s",
		Model:        "gpt-4o",
		Adapter:      "openai",
		Trials: []models.TrialResult{{
			TrialNumber: 1, Status: models.TrialPassed, Score: 1, Passed: true,
			LatencySeconds: 0.2, CostUSD: models.Float64Ptr(0.001),
		}},
		TrialsTotal: 1, TrialsPassed: 1,
		Verdict: models.VerdictPass, PassRate: 1,
		ScoreAvg: 1, ScoreMin: 1, ScoreP50: 1, ScoreP95: 1,
		Threshold: 0.8, NRequested: 1,
	}
	if err := store.SaveSuiteResult(suite); err != nil {
		t.Fatalf("SaveSuiteResult() error = %v", err)
	}
	loaded, err := store.LoadSuiteResult("run-1")
	if err != nil {
		t.Fatalf("LoadSuiteResult() error = %v", err)
	}
	if !reflect.DeepEqual(suite, loaded) {
		t.Errorf("suite round trip mismatch")
	}

	ids, err := store.ListSuites()
	if err != nil || len(ids) != 1 || ids[0] != "run-1" {
		t.Errorf("ListSuites() = %v, %v", ids, err)
	}
}

// Cost survives persistence to 6 decimals.
func TestFileStore_CostPrecision(t *testing.T) {
	store := NewFileStore(t.TempDir())
	trace := testTrace()
	trace.CostUSD = models.Float64Ptr(0.123456)
	if err := store.SaveTrace("trace-1", trace); err != nil {
		t.Fatalf("SaveTrace() error = %v", err)
	}
	loaded, err := store.LoadTrace("trace-1")
	if err != nil {
		t.Fatalf("LoadTrace() error = %v", err)
	}
	if loaded.CostUSD == nil || *loaded.CostUSD != 0.123456 {
		t.Errorf("cost = %v, want 0.123456", loaded.CostUSD)
	}
}

func TestFileStore_LatestRecordedMarker(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if latest, err := store.LatestRecorded(); err != nil || latest != "" {
		t.Errorf("LatestRecorded() = (%q, %v), want empty", latest, err)
	}
	if err := store.UpdateLatestRecorded("trace-9"); err != nil {
		t.Fatalf("UpdateLatestRecorded() error = %v", err)
	}
	latest, err := store.LatestRecorded()
	if err != nil || latest != "trace-9" {
		t.Errorf("LatestRecorded() = (%q, %v), want trace-9", latest, err)
	}
}
