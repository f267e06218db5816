package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects Prometheus metrics for trial execution. All methods are
// nil-safe so instrumentation can be disabled by passing a nil *Metrics.
type Metrics struct {
	// TrialCounter counts completed trials.
	// Labels: adapter, model, status (passed|failed|hard_fail|infra_error)
	TrialCounter *prometheus.CounterVec

	// TrialDuration measures trial wall-clock seconds.
	// Labels: adapter, model
	TrialDuration *prometheus.HistogramVec

	// AdapterTurns counts adapter send-turn calls.
	// Labels: provider, model, status (success|error)
	AdapterTurns *prometheus.CounterVec

	// TokensUsed tracks token consumption.
	// Labels: provider, model, type (input|output)
	TokensUsed *prometheus.CounterVec

	// Retries counts transient-error retries.
	// Labels: adapter, error_type
	Retries *prometheus.CounterVec

	// JudgeVotes counts judge votes by outcome.
	// Labels: judge_model, outcome (parsed|parse_failed)
	JudgeVotes *prometheus.CounterVec
}

// NewMetrics creates the metric families and registers them with the given
// registerer. Pass prometheus.DefaultRegisterer for the global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TrialCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salvo",
			Name:      "trials_total",
			Help:      "Completed trials by status.",
		}, []string{"adapter", "model", "status"}),
		TrialDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "salvo",
			Name:      "trial_duration_seconds",
			Help:      "Trial wall-clock duration.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"adapter", "model"}),
		AdapterTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salvo",
			Name:      "adapter_turns_total",
			Help:      "Adapter send-turn calls by outcome.",
		}, []string{"provider", "model", "status"}),
		TokensUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salvo",
			Name:      "tokens_total",
			Help:      "Token consumption by direction.",
		}, []string{"provider", "model", "type"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salvo",
			Name:      "retries_total",
			Help:      "Transient-error retries.",
		}, []string{"adapter", "error_type"}),
		JudgeVotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salvo",
			Name:      "judge_votes_total",
			Help:      "Judge votes by parse outcome.",
		}, []string{"judge_model", "outcome"}),
	}
	reg.MustRegister(
		m.TrialCounter, m.TrialDuration, m.AdapterTurns,
		m.TokensUsed, m.Retries, m.JudgeVotes,
	)
	return m
}

// ObserveTrial records one completed trial.
func (m *Metrics) ObserveTrial(adapter, model, status string, seconds float64) {
	if m == nil {
		return
	}
	m.TrialCounter.WithLabelValues(adapter, model, status).Inc()
	m.TrialDuration.WithLabelValues(adapter, model).Observe(seconds)
}

// ObserveTurn records one adapter turn with its token usage.
func (m *Metrics) ObserveTurn(provider, model string, err error, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.AdapterTurns.WithLabelValues(provider, model, status).Inc()
	if err == nil {
		m.TokensUsed.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
		m.TokensUsed.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
	}
}

// ObserveRetry records one transient-error retry.
func (m *Metrics) ObserveRetry(adapter, errorType string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(adapter, errorType).Inc()
}

// ObserveJudgeVote records one judge vote outcome.
func (m *Metrics) ObserveJudgeVote(judgeModel string, parsed bool) {
	if m == nil {
		return
	}
	outcome := "parsed"
	if !parsed {
		outcome = "parse_failed"
	}
	m.JudgeVotes.WithLabelValues(judgeModel, outcome).Inc()
}
