package harness

import (
	"github.com/roach88/coltab/internal/vtab"
)

// Step kinds recorded in the trace.
const (
	KindQuery   = "query"
	KindExplain = "explain"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int        `json:"seq"`
	Kind    string     `json:"kind"`
	SQL     string     `json:"sql"`
	Columns []string   `json:"columns,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
	Plan    []string   `json:"plan,omitempty"`

	// Error is the error code of a failed step, or "ERROR" for errors
	// that carry none.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`

	// Stats are the adapter counters after the last step.
	Stats vtab.Stats `json:"stats"`

	// Tables lists the tables the catalog registered.
	Tables []string `json:"tables"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) record(ev TraceEvent) *TraceEvent {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
	return &r.Trace[len(r.Trace)-1]
}
