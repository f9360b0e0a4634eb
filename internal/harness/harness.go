package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/roach88/coltab/internal/catalog"
	"github.com/roach88/coltab/internal/engine"
	"github.com/roach88/coltab/internal/planner"
	"github.com/roach88/coltab/internal/status"
)

// planNumber matches the per-call plan number SQLite prints for virtual
// tables, which differs between runs that plan the same query.
var planNumber = regexp.MustCompile(`INDEX \d+:`)

type options struct {
	logger *slog.Logger
}

// Option configures Run.
type Option func(*options)

// WithLogger sets the logger for the engine and catalog.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs on a fresh in-memory engine. The returned error
// covers setup failures only; failed steps and assertions are reported
// in the result.
//
// Execution flow:
// 1. Open an engine with the scenario's planner settings
// 2. Load the catalog and apply it
// 3. Execute steps, checking each expectation
// 4. Evaluate assertions
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := planner.DefaultConfig()
	if scenario.CacheThreshold != nil {
		cfg.CacheThreshold = *scenario.CacheThreshold
	}
	eng, err := engine.Open(ctx, engine.WithLogger(o.logger), engine.WithPlannerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	defer eng.Close()

	cat, errs := catalog.Load(scenario.Catalog, catalog.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load catalog: %w", errs[0])
	}
	sess, err := catalog.Apply(ctx, eng, cat, catalog.WithLogger(o.logger), catalog.WithDatabase(scenario.Database))
	if err != nil {
		return nil, fmt.Errorf("failed to apply catalog: %w", err)
	}
	defer sess.Close()

	result := NewResult()
	result.Tables = sess.Registered
	for i, step := range scenario.Steps {
		if err := runStep(ctx, eng, step, result); err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
		}
	}

	result.Stats = eng.Stats()
	for _, msg := range EvaluateAssertions(ctx, eng, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// runStep executes one step, records it and checks its expectation.
func runStep(ctx context.Context, eng *engine.Engine, step Step, result *Result) error {
	if step.Explain != "" {
		plan, err := eng.Explain(ctx, step.Explain, step.Args...)
		ev := result.record(TraceEvent{Kind: KindExplain, SQL: step.Explain, Error: errorCode(err)})
		for _, p := range plan {
			ev.Plan = append(ev.Plan, planNumber.ReplaceAllString(p.Detail, "INDEX "))
		}
		return checkExpect(step.Expect, nil, plan, err)
	}

	res, err := eng.Query(ctx, step.Query, step.Args...)
	ev := result.record(TraceEvent{Kind: KindQuery, SQL: step.Query, Error: errorCode(err)})
	if res != nil {
		ev.Columns = res.Columns
		ev.Rows = render(res.Rows)
	}
	return checkExpect(step.Expect, res, nil, err)
}

func errorCode(err error) string {
	if err == nil {
		return ""
	}
	if code := status.CodeOf(err); code != "" {
		return string(code)
	}
	return "ERROR"
}
