package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/coltab/internal/source"
	"github.com/roach88/coltab/internal/table"
	"github.com/roach88/coltab/internal/value"
)

// QueryFunction is a table-valued function backed by a parameterised query
// on the store. Arguments bind to the query's positional parameters in
// declaration order.
type QueryFunction struct {
	store     *Store
	query     string
	outputs   []table.Column
	arguments []table.Column
	estimate  int
	timeout   time.Duration
}

var _ source.Generator = (*QueryFunction)(nil)

// DefaultFunctionTimeout bounds one QueryFunction computation.
const DefaultFunctionTimeout = 30 * time.Second

// Function returns a generator running query with the function's
// arguments. outputs must match the query's result columns in order;
// estimate is the planner's row estimate and defaults to 1000.
func (s *Store) Function(query string, outputs, arguments []table.Column, estimate int) *QueryFunction {
	if estimate <= 0 {
		estimate = 1000
	}
	return &QueryFunction{
		store:     s,
		query:     query,
		outputs:   outputs,
		arguments: arguments,
		estimate:  estimate,
		timeout:   DefaultFunctionTimeout,
	}
}

func (f *QueryFunction) Columns() []table.Column { return f.outputs }

func (f *QueryFunction) Arguments() []table.Column { return f.arguments }

func (f *QueryFunction) EstimateRows() int { return f.estimate }

// Compute runs the query. The result is coerced to the declared output
// schema.
func (f *QueryFunction) Compute(args []value.Value) (table.Table, error) {
	schema, err := table.NewSchema(f.outputs...)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	rows, err := f.store.db.QueryContext(ctx, f.query, driverArgs(args)...)
	if err != nil {
		return nil, fmt.Errorf("query function: %w", err)
	}
	m, err := table.FromRowsWithSchema(rows, schema)
	if err != nil {
		return nil, fmt.Errorf("query function: %w", err)
	}
	return m, nil
}
