package vtab

import (
	"math"

	"github.com/roach88/coltab/internal/planner"
	"github.com/roach88/coltab/internal/registry"
	"github.com/roach88/coltab/internal/source"
	"github.com/roach88/coltab/internal/status"
	"github.com/roach88/coltab/internal/table"
)

// Table is one engine-side instance of a registered virtual table. It
// refers to the shared state through a handle and owns nothing else but
// its best-index counter.
type Table struct {
	module       *Module
	handle       registry.Handle
	name         string
	bestIndexNum int
	released     bool
}

func newTable(m *Module, h registry.Handle, name string) *Table {
	return &Table{module: m, handle: h, name: name}
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Handle returns the registry handle.
func (t *Table) Handle() registry.Handle { return t.handle }

// State returns the registered state, or NotFound once the table has been
// unregistered.
func (t *Table) State() (*registry.State, error) {
	if t.released {
		return nil, status.NewProtocolViolation("table %q used after release", t.name)
	}
	st, err := t.module.reg.Lookup(t.handle)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// DeclareSQL returns the CREATE TABLE statement the engine must be given
// for this table.
func (t *Table) DeclareSQL() (string, error) {
	st, err := t.State()
	if err != nil {
		return "", err
	}
	return st.Schema.DeclareSQL(), nil
}

// IndexResult is the outcome of BestIndex in engine terms.
type IndexResult struct {
	planner.Plan

	// IdxNum is the per-instance plan counter handed to Filter.
	IdxNum int

	// IdxStr is the encoded strategy handed to Filter.
	IdxStr string

	// Omit marks constraints the engine need not re-check: table-function
	// arguments, which Column reports back verbatim.
	Omit []bool
}

// BestIndex plans a scan for the given constraints and orders. It never
// fails: if the table's state cannot be resolved it returns a plan that
// consumes nothing at the maximum cost.
func (t *Table) BestIndex(constraints []planner.Constraint, orders []table.Order) IndexResult {
	t.module.stats.bestIndex.Add(1)
	// Engines carry the plan number as a 32-bit int.
	t.bestIndexNum = t.bestIndexNum%math.MaxInt32 + 1

	st, err := t.State()
	if err != nil {
		t.module.logger.Error("best index on unresolved table", "table", t.name, "error", err)
		argIndex := make([]int, len(constraints))
		for i := range argIndex {
			argIndex[i] = -1
		}
		plan := planner.Plan{ArgIndex: argIndex}
		plan.Cost = t.module.cfg.UnboundArgumentCost
		return IndexResult{Plan: plan, IdxNum: t.bestIndexNum, IdxStr: plan.Strategy.Encode(), Omit: make([]bool, len(constraints))}
	}

	plan := t.module.estimator.BestIndex(planner.Request{
		Schema:      st.Schema,
		RowCount:    source.EstimateRows(st.Source),
		Constraints: constraints,
		Orders:      orders,
	})
	res := IndexResult{Plan: plan, IdxNum: t.bestIndexNum, IdxStr: plan.Strategy.Encode(), Omit: make([]bool, len(constraints))}
	for i, c := range constraints {
		res.Omit[i] = plan.ArgIndex[i] >= 0 && c.Column >= 0 && c.Column < st.Schema.Len() && st.Schema.Columns[c.Column].IsHidden()
	}
	t.module.logger.Debug("best index",
		"table", t.name,
		"idx_num", res.IdxNum,
		"strategy", res.IdxStr,
		"cost", plan.Cost,
		"rows", plan.Rows)
	return res
}

// Open starts a new scan.
func (t *Table) Open() (*Cursor, error) {
	st, err := t.State()
	if err != nil {
		return nil, err
	}
	return newCursor(t, st), nil
}

// Disconnect releases this instance. The registered state stays for
// later connections.
func (t *Table) Disconnect() error {
	if t.released {
		return status.NewProtocolViolation("table %q disconnected twice", t.name)
	}
	t.released = true
	_, err := t.module.reg.Release(t.handle)
	return err
}

// Destroy releases this instance and unregisters the table if no other
// instance references it.
func (t *Table) Destroy() error {
	if t.released {
		return status.NewProtocolViolation("table %q destroyed after release", t.name)
	}
	t.released = true
	left, err := t.module.reg.Release(t.handle)
	if err != nil {
		return err
	}
	if left > 0 {
		return nil
	}
	if err := t.module.reg.Unregister(t.handle); err != nil {
		return err
	}
	t.module.logger.Debug("virtual table destroyed", "table", t.name)
	return nil
}
