package evaluation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/haasonsaas/salvo/internal/adapters"
	"github.com/haasonsaas/salvo/internal/observability"
	"github.com/haasonsaas/salvo/pkg/models"
)

// Evaluator checks one canonical assertion against a trace. Evaluators that
// perform no I/O ignore the context; the judge evaluator uses it for its
// adapter calls.
type Evaluator interface {
	Evaluate(ctx context.Context, trace *models.Trace, assertion *models.Assertion) *models.EvalResult
}

// Options carries the cross-cutting context evaluators may need. All fields
// are optional.
type Options struct {
	// Scenario gives the judge access to the system prompt and tool list
	// when include_system_prompt is set.
	Scenario *models.Scenario

	// ProjectJudge is the project-level judge configuration; per-assertion
	// overrides win over it.
	ProjectJudge *models.JudgeConfig

	// Verbose enables advisory warnings (e.g. k=1 disabling majority vote).
	Verbose bool

	Logger  *observability.Logger
	Metrics *observability.Metrics

	// AdapterFactory resolves judge adapters by name. Defaults to the
	// adapter registry. Tests substitute scripted adapters here.
	AdapterFactory func(name string) (adapters.Adapter, error)
}

// Constructor builds an evaluator for one assertion kind.
type Constructor func(opts *Options) Evaluator

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{
		models.AssertionPathQuery:    func(*Options) Evaluator { return &PathQueryEvaluator{} },
		models.AssertionToolSequence: func(*Options) Evaluator { return &ToolSequenceEvaluator{} },
		models.AssertionCostLimit:    func(*Options) Evaluator { return &CostLimitEvaluator{} },
		models.AssertionLatencyLimit: func(*Options) Evaluator { return &LatencyLimitEvaluator{} },
		models.AssertionJudge:        func(opts *Options) Evaluator { return NewJudgeEvaluator(opts) },
	}
)

// RegisterEvaluator adds or replaces the evaluator for an assertion kind.
// Host code uses this to extend the closed registry with plugins.
func RegisterEvaluator(kind string, constructor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = constructor
}

// ForKind returns an evaluator for the given assertion kind.
func ForKind(kind string, opts *Options) (Evaluator, error) {
	registryMu.RLock()
	constructor, ok := registry[kind]
	registryMu.RUnlock()
	if !ok {
		registryMu.RLock()
		kinds := make([]string, 0, len(registry))
		for k := range registry {
			kinds = append(kinds, k)
		}
		registryMu.RUnlock()
		sort.Strings(kinds)
		return nil, fmt.Errorf("unknown assertion type %q; available types: %s", kind, strings.Join(kinds, ", "))
	}
	return constructor(opts), nil
}

// EvaluateTrace runs the full evaluation pipeline over raw assertion
// documents: normalize, decode to canonical form, dispatch to evaluators,
// and score. A malformed assertion or unknown kind is returned as an error
// so the trial boundary can classify it.
func EvaluateTrace(ctx context.Context, trace *models.Trace, rawAssertions []map[string]any, threshold float64, opts *Options) ([]models.EvalResult, float64, bool, error) {
	if opts == nil {
		opts = &Options{}
	}

	normalized, err := NormalizeAll(rawAssertions)
	if err != nil {
		return nil, 0, false, err
	}

	results := make([]models.EvalResult, 0, len(normalized))
	for i, doc := range normalized {
		assertion, err := models.AssertionFromMap(doc)
		if err != nil {
			return nil, 0, false, fmt.Errorf("assertion %d: %w", i, err)
		}
		evaluator, err := ForKind(assertion.Type, opts)
		if err != nil {
			return nil, 0, false, fmt.Errorf("assertion %d: %w", i, err)
		}
		results = append(results, *evaluator.Evaluate(ctx, trace, assertion))
	}

	score, passed, _ := ComputeScore(results, threshold)
	return results, score, passed, nil
}
