package engine

import (
	"context"

	"github.com/roach88/coltab/internal/status"
	"github.com/roach88/coltab/internal/table"
)

// RuntimeSpec describes a runtime table built from a query over the
// engine's own tables.
type RuntimeSpec struct {
	Name  string
	Query string
	Args  []any

	// ID names an integer column with unique values, enabling single-row
	// lookups.
	ID string

	// Sorted names columns whose values the query returns in ascending
	// order.
	Sorted []string
}

// Materialize runs spec.Query, reads the whole result and registers it
// as a runtime table.
func (e *Engine) Materialize(ctx context.Context, spec RuntimeSpec) error {
	e.mu.Lock()
	if err := e.checkOpen(); err != nil {
		e.mu.Unlock()
		return err
	}
	rows, err := e.db.QueryContext(ctx, spec.Query, spec.Args...)
	if err != nil {
		e.mu.Unlock()
		return status.Wrap(status.UpstreamFailure, err, "materialize query").WithTable(spec.Name)
	}
	m, err := table.FromRows(rows)
	e.mu.Unlock()
	if err != nil {
		return status.Wrap(status.UpstreamFailure, err, "materialize query").WithTable(spec.Name)
	}

	m, err = table.Reflag(m, spec.ID, spec.Sorted)
	if err != nil {
		return status.Wrap(status.SchemaMismatch, err, "materialize").WithTable(spec.Name)
	}
	return e.CreateRuntime(ctx, spec.Name, m)
}
