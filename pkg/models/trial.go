package models

// TrialStatus is the outcome of an individual trial execution.
type TrialStatus string

const (
	TrialPassed     TrialStatus = "passed"
	TrialFailed     TrialStatus = "failed"
	TrialHardFail   TrialStatus = "hard_fail"
	TrialInfraError TrialStatus = "infra_error"
)

// TrialResult is the result of a single trial within an N-trial suite.
type TrialResult struct {
	TrialNumber         int          `json:"trial_number"`
	Status              TrialStatus  `json:"status"`
	Score               float64      `json:"score"`
	Passed              bool         `json:"passed"`
	EvalResults         []EvalResult `json:"eval_results,omitempty"`
	LatencySeconds      float64      `json:"latency_seconds"`
	CostUSD             *float64     `json:"cost_usd,omitempty"`
	RetriesUsed         int          `json:"retries_used"`
	TransientErrorTypes []string     `json:"transient_error_types,omitempty"`
	ErrorMessage        string       `json:"error_message,omitempty"`
	TraceID             string       `json:"trace_id,omitempty"`
}

// Verdict is the overall outcome of a trial suite.
type Verdict string

const (
	VerdictPass       Verdict = "PASS"
	VerdictFail       Verdict = "FAIL"
	VerdictHardFail   Verdict = "HARD FAIL"
	VerdictPartial    Verdict = "PARTIAL"
	VerdictInfraError Verdict = "INFRA_ERROR"
)

// ExitCode maps the verdict to the process exit code for host CLIs.
func (v Verdict) ExitCode() int {
	switch v {
	case VerdictPass:
		return 0
	case VerdictFail, VerdictPartial:
		return 1
	case VerdictHardFail:
		return 2
	case VerdictInfraError:
		return 3
	default:
		return 3
	}
}

// AssertionFailure is one ranked entry in the cross-trial failure summary.
// Failures are grouped by (assertion type, first 80 chars of details) and
// ranked by fail_count x average weight lost.
type AssertionFailure struct {
	AssertionType   string   `json:"assertion_type"`
	Expression      string   `json:"expression"`
	FailCount       int      `json:"fail_count"`
	FailRate        float64  `json:"fail_rate"`
	TotalWeightLost float64  `json:"total_weight_lost"`
	SampleDetails   []string `json:"sample_details,omitempty"`
}

// SuiteResult is the aggregate result of running a scenario N times:
// all individual trial results plus computed metrics, the verdict,
// cost/latency summaries, retry stats, and failure rankings.
//
// Invariants: the four status counts sum to TrialsTotal; TrialsTotal never
// exceeds NRequested; EarlyStopped implies TrialsTotal < NRequested.
type SuiteResult struct {
	RunID        string `json:"run_id"`
	ScenarioName string `json:"scenario_name"`
	ScenarioFile string `json:"scenario_file"`
	Model        string `json:"model"`
	Adapter      string `json:"adapter"`

	Trials           []TrialResult `json:"trials"`
	TrialsTotal      int           `json:"trials_total"`
	TrialsPassed     int           `json:"trials_passed"`
	TrialsFailed     int           `json:"trials_failed"`
	TrialsHardFail   int           `json:"trials_hard_fail"`
	TrialsInfraError int           `json:"trials_infra_error"`

	Verdict  Verdict `json:"verdict"`
	PassRate float64 `json:"pass_rate"`

	ScoreAvg  float64 `json:"score_avg"`
	ScoreMin  float64 `json:"score_min"`
	ScoreP50  float64 `json:"score_p50"`
	ScoreP95  float64 `json:"score_p95"`
	Threshold float64 `json:"threshold"`

	CostTotal       *float64 `json:"cost_total,omitempty"`
	CostAvgPerTrial *float64 `json:"cost_avg_per_trial,omitempty"`
	JudgeCostTotal  *float64 `json:"judge_cost_total,omitempty"`

	LatencyP50 *float64 `json:"latency_p50,omitempty"`
	LatencyP95 *float64 `json:"latency_p95,omitempty"`

	TotalRetries      int `json:"total_retries"`
	TrialsWithRetries int `json:"trials_with_retries"`

	EarlyStopped    bool   `json:"early_stopped"`
	EarlyStopReason string `json:"early_stop_reason,omitempty"`

	NRequested        int                `json:"n_requested"`
	AssertionFailures []AssertionFailure `json:"assertion_failures,omitempty"`
}
