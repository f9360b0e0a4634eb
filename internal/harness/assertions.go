package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/coltab/internal/engine"
	"github.com/roach88/coltab/internal/table"
	"github.com/roach88/coltab/internal/value"
	"github.com/roach88/coltab/internal/vtab"
)

// AssertionError is returned when an assertion or expectation fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

var statFields = map[string]func(vtab.Stats) int64{
	"best_index_calls": func(s vtab.Stats) int64 { return s.BestIndexCalls },
	"filters":          func(s vtab.Stats) int64 { return s.Filters },
	"single_row":       func(s vtab.Stats) int64 { return s.SingleRow },
	"computations":     func(s vtab.Stats) int64 { return s.Computations },
	"cache_builds":     func(s vtab.Stats) int64 { return s.CacheBuilds },
	"cache_hits":       func(s vtab.Stats) int64 { return s.CacheHits },
}

func statField(name string) (func(vtab.Stats) int64, bool) {
	f, ok := statFields[name]
	return f, ok
}

// EvaluateAssertions runs every assertion and returns one message per
// failure.
func EvaluateAssertions(ctx context.Context, eng *engine.Engine, result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertStats:
			err = assertStats(result.Stats, a.Stats, false)
		case AssertStatsMin:
			err = assertStats(result.Stats, a.Stats, true)
		case AssertTableRows:
			err = assertTableRows(ctx, eng, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func assertStats(stats vtab.Stats, want map[string]int64, atLeast bool) error {
	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		get, ok := statField(name)
		if !ok {
			return fmt.Errorf("unknown counter %q", name)
		}
		got := get(stats)
		if got == want[name] || (atLeast && got > want[name]) {
			continue
		}
		typ, expected := AssertStats, fmt.Sprintf("%s = %d", name, want[name])
		if atLeast {
			typ, expected = AssertStatsMin, fmt.Sprintf("%s >= %d", name, want[name])
		}
		return &AssertionError{Type: typ, Expected: expected, Actual: fmt.Sprintf("%d", got)}
	}
	return nil
}

func assertTableRows(ctx context.Context, eng *engine.Engine, a Assertion) error {
	res, err := eng.Query(ctx, "SELECT count(*) FROM "+table.QuoteIdent(a.Table))
	if err != nil {
		return &AssertionError{Type: AssertTableRows, Expected: fmt.Sprintf("table %s readable", a.Table), Actual: err.Error()}
	}
	got, _ := res.Rows[0][0].(value.Int)
	if int(got) != a.Count {
		return &AssertionError{Type: AssertTableRows, Expected: fmt.Sprintf("%d rows in %s", a.Count, a.Table), Actual: fmt.Sprintf("%d", got)}
	}
	return nil
}

// checkExpect compares a step's outcome with its expectation.
func checkExpect(expect *ExpectClause, res *engine.Result, plan []engine.PlanStep, stepErr error) error {
	if expect == nil || expect.Error == "" {
		if stepErr != nil {
			return &AssertionError{Type: "step", Expected: "success", Actual: stepErr.Error()}
		}
	}
	if expect == nil {
		return nil
	}

	if expect.Error != "" {
		if stepErr == nil {
			return &AssertionError{Type: "error", Expected: expect.Error, Actual: "success"}
		}
		if got := errorCode(stepErr); expect.Error != ErrorAny && got != expect.Error {
			return &AssertionError{Type: "error", Expected: expect.Error, Actual: fmt.Sprintf("%s (%v)", got, stepErr)}
		}
		return nil
	}

	if expect.Plan != "" {
		for _, p := range plan {
			if strings.Contains(p.Detail, expect.Plan) {
				return nil
			}
		}
		return &AssertionError{Type: "plan", Expected: fmt.Sprintf("a step containing %q", expect.Plan), Actual: fmt.Sprintf("%v", details(plan))}
	}

	if res == nil {
		return nil
	}
	if expect.Count != nil && len(res.Rows) != *expect.Count {
		return &AssertionError{Type: "count", Expected: fmt.Sprintf("%d rows", *expect.Count), Actual: fmt.Sprintf("%d rows", len(res.Rows))}
	}
	if expect.Rows != nil {
		return compareRows(expect.Rows, res.Rows)
	}
	return nil
}

func compareRows(want [][]any, got [][]value.Value) error {
	if len(want) != len(got) {
		return &AssertionError{Type: "rows", Expected: fmt.Sprintf("%d rows", len(want)), Actual: fmt.Sprintf("%d rows: %v", len(got), render(got))}
	}
	for r := range want {
		if len(want[r]) != len(got[r]) {
			return &AssertionError{Type: "rows", Expected: fmt.Sprintf("row %d with %d columns", r, len(want[r])), Actual: fmt.Sprintf("%d columns", len(got[r]))}
		}
		for c, raw := range want[r] {
			w, err := value.FromDriver(raw)
			if err != nil {
				return fmt.Errorf("row %d column %d: %w", r, c, err)
			}
			if value.Compare(w, got[r][c]) != 0 {
				return &AssertionError{Type: "rows", Expected: fmt.Sprintf("row %d column %d = %v", r, c, w), Actual: got[r][c].String()}
			}
		}
	}
	return nil
}

func render(rows [][]value.Value) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = v.String()
		}
	}
	return out
}

func details(plan []engine.PlanStep) []string {
	out := make([]string, len(plan))
	for i, p := range plan {
		out[i] = p.Detail
	}
	return out
}
