// Package source defines where the rows of a virtual table come from.
//
// A Source is exactly one of Static, TableFunction or Runtime, fixed when
// the table is created. Callers switch on the concrete type; every switch
// over Source handles all three variants.
package source

import (
	"fmt"

	"github.com/roach88/coltab/internal/status"
	"github.com/roach88/coltab/internal/table"
	"github.com/roach88/coltab/internal/value"
)

// Kind names a Source variant.
type Kind int

const (
	KindStatic Kind = iota + 1
	KindTableFunction
	KindRuntime
)

func (k Kind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindTableFunction:
		return "function"
	case KindRuntime:
		return "runtime"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Source is a sealed interface implemented by *Static, *TableFunction and
// *Runtime.
type Source interface {
	// Kind returns the variant.
	Kind() Kind

	// Schema returns the columns declared to the engine, including hidden
	// argument columns for table functions.
	Schema() table.Schema

	sealed()
}

// Static is a fixed table owned by the host application. The adapter
// never mutates it.
type Static struct {
	Table table.Table
}

// Runtime is a table materialised from intermediate query results. Its
// contents are fixed once registered.
type Runtime struct {
	Table *table.Memory
}

// TableFunction computes a fresh table for every set of argument values.
type TableFunction struct {
	Generator Generator
	schema    table.Schema
	outputs   int
}

func (*Static) sealed()        {}
func (*Runtime) sealed()       {}
func (*TableFunction) sealed() {}

func (*Static) Kind() Kind        { return KindStatic }
func (*Runtime) Kind() Kind       { return KindRuntime }
func (*TableFunction) Kind() Kind { return KindTableFunction }

func (s *Static) Schema() table.Schema        { return s.Table.Schema() }
func (r *Runtime) Schema() table.Schema       { return r.Table.Schema() }
func (f *TableFunction) Schema() table.Schema { return f.schema }

// Generator produces the rows of a table-valued function.
type Generator interface {
	// Columns returns the output columns.
	Columns() []table.Column

	// Arguments returns the argument columns. They are declared to the
	// engine as hidden columns after the outputs.
	Arguments() []table.Column

	// EstimateRows returns a row count for planning.
	EstimateRows() int

	// Compute returns the rows for one set of arguments, in Arguments
	// order. The returned table must have exactly the output columns.
	Compute(args []value.Value) (table.Table, error)
}

// NewStatic wraps a host-owned table.
func NewStatic(t table.Table) *Static {
	return &Static{Table: t}
}

// NewRuntime wraps a materialised table.
func NewRuntime(t *table.Memory) *Runtime {
	return &Runtime{Table: t}
}

// NewTableFunction validates g's columns and returns a TableFunction
// whose schema is the outputs followed by the arguments marked hidden.
func NewTableFunction(g Generator) (*TableFunction, error) {
	outs := g.Columns()
	cols := make([]table.Column, 0, len(outs)+len(g.Arguments()))
	cols = append(cols, outs...)
	for _, a := range g.Arguments() {
		a.Flags = table.FlagHidden
		cols = append(cols, a)
	}
	schema, err := table.NewSchema(cols...)
	if err != nil {
		return nil, fmt.Errorf("table function schema: %w", err)
	}
	return &TableFunction{Generator: g, schema: schema, outputs: len(outs)}, nil
}

// ArgumentCount returns the number of hidden argument columns.
func (f *TableFunction) ArgumentCount() int {
	return f.schema.Len() - f.outputs
}

// OutputCount returns the number of output columns.
func (f *TableFunction) OutputCount() int {
	return f.outputs
}

// Compute runs the generator and checks the shape of its result.
// Generator errors are reported as UpstreamFailure with the generator's
// message preserved.
func (f *TableFunction) Compute(args []value.Value) (table.Table, error) {
	if len(args) != f.ArgumentCount() {
		return nil, status.NewSchemaMismatch("", "table function takes %d arguments, got %d", f.ArgumentCount(), len(args))
	}
	t, err := f.Generator.Compute(args)
	if err != nil {
		return nil, status.NewUpstreamFailure("", err)
	}
	if got := t.Schema().Len(); got != f.outputs {
		return nil, status.NewUpstreamFailure("", fmt.Errorf("generator returned %d columns, declared %d", got, f.outputs))
	}
	return t, nil
}

// ArgumentCount returns the number of arguments a source expects at
// create and connect time.
func ArgumentCount(src Source) int {
	switch s := src.(type) {
	case *TableFunction:
		return s.ArgumentCount()
	case *Static, *Runtime:
		return 0
	}
	panic(fmt.Sprintf("source: unknown variant %T", src))
}

// EstimateRows returns the planning row count for src.
func EstimateRows(src Source) int {
	switch s := src.(type) {
	case *Static:
		return s.Table.RowCount()
	case *Runtime:
		return s.Table.RowCount()
	case *TableFunction:
		return s.Generator.EstimateRows()
	}
	panic(fmt.Sprintf("source: unknown variant %T", src))
}

// Base returns the table scanned for src without computation, or nil for
// table functions.
func Base(src Source) table.Table {
	switch s := src.(type) {
	case *Static:
		return s.Table
	case *Runtime:
		return s.Table
	case *TableFunction:
		return nil
	}
	panic(fmt.Sprintf("source: unknown variant %T", src))
}
