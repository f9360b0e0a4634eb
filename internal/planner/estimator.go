package planner

import (
	"math"
	"sort"

	"github.com/roach88/coltab/internal/table"
)

// Constraint is one candidate constraint proposed by the engine.
type Constraint struct {
	Column int
	Op     table.Op
	Usable bool
}

// QueryCost is an advisory estimate for one plan.
type QueryCost struct {
	Cost float64
	Rows int64
}

// Request is the input to BestIndex.
type Request struct {
	Schema      table.Schema
	RowCount    int
	Constraints []Constraint
	Orders      []table.Order
}

// Plan is the output of BestIndex.
type Plan struct {
	QueryCost

	// Strategy is replayed by the cursor's Filter.
	Strategy Strategy

	// ArgIndex holds, for each request constraint, its 0-based position
	// among the Filter arguments, or -1 when the engine keeps it.
	// Constraints with a position are fully enforced by the cursor.
	ArgIndex []int

	// OrderConsumed reports that rows are delivered in the requested
	// order.
	OrderConsumed bool

	// Unique reports that at most one row is produced.
	Unique bool

	// Unbound reports a table-function plan with missing arguments.
	Unbound bool
}

// Estimator chooses scan strategies.
type Estimator struct {
	cfg Config
}

// New returns an Estimator using cfg.
func New(cfg Config) *Estimator {
	return &Estimator{cfg: cfg}
}

// Config returns the estimator's tuning.
func (e *Estimator) Config() Config { return e.cfg }

// BestIndex picks the strategy for req. It is deterministic and never
// fails.
func (e *Estimator) BestIndex(req Request) Plan {
	schema := req.Schema
	plan := Plan{ArgIndex: make([]int, len(req.Constraints))}
	for i := range plan.ArgIndex {
		plan.ArgIndex[i] = -1
	}

	// Hidden columns bind table-function arguments through equality; the
	// first usable equality per hidden column is the binding.
	hidden := schema.Hidden()
	bound := make(map[int]bool, len(hidden))
	var strat Strategy
	for i, c := range req.Constraints {
		switch {
		case isHidden(schema, c.Column):
			if !c.Usable || c.Op != table.OpEQ || bound[c.Column] {
				continue
			}
			bound[c.Column] = true
		case !consumable(schema, c):
			continue
		}
		plan.ArgIndex[i] = len(strat.Terms)
		strat.Terms = append(strat.Terms, Term{Column: c.Column, Op: c.Op})
	}
	plan.Unbound = len(bound) < len(hidden)

	if eq := strat.EqualityColumns(schema); len(eq) == 1 && schema.Columns[eq[0]].IsID() {
		strat.Mode = ModeSingleRow
	}

	// Orders on hidden columns or the rowid stay with the engine.
	if ordersConsumable(schema, req.Orders) {
		strat.Orders = append([]table.Order(nil), req.Orders...)
		strat.Ordered = len(req.Orders) > 0 && (strat.Mode == ModeSingleRow || table.NaturallyOrdered(schema, req.Orders))
	}
	plan.Strategy = strat
	plan.OrderConsumed = len(strat.Orders) > 0
	plan.Unique = strat.Mode == ModeSingleRow

	switch {
	case plan.Unbound:
		plan.QueryCost = QueryCost{Cost: e.cfg.UnboundArgumentCost, Rows: int64(max(req.RowCount, 0))}
	case strat.Mode == ModeSingleRow:
		plan.QueryCost = QueryCost{Cost: e.cfg.SingleRowCost, Rows: 1}
	default:
		plan.QueryCost = e.EstimateCost(schema, req.RowCount, filterTerms(schema, strat.Terms), strat.Orders, strat.Ordered)
	}
	return plan
}

func filterTerms(schema table.Schema, terms []Term) []Term {
	out := make([]Term, 0, len(terms))
	for _, t := range terms {
		if !isHidden(schema, t.Column) {
			out = append(out, t)
		}
	}
	return out
}

func ordersConsumable(schema table.Schema, orders []table.Order) bool {
	for _, o := range orders {
		if o.Column < 0 || o.Column >= schema.Len() || schema.Columns[o.Column].IsHidden() {
			return false
		}
	}
	return true
}

func consumable(schema table.Schema, c Constraint) bool {
	if !c.Usable || !c.Op.Filterable() {
		return false
	}
	return c.Column >= 0 && c.Column < schema.Len()
}

// EstimateCost returns the cost of scanning rowCount rows with the given
// terms and orders. A constrained plan never costs more than the
// unconstrained scan of the same table.
func (e *Estimator) EstimateCost(schema table.Schema, rowCount int, terms []Term, orders []table.Order, ordered bool) QueryCost {
	qc := e.estimate(schema, rowCount, terms, orders, ordered)
	if len(terms) > 0 {
		full := e.estimate(schema, rowCount, nil, orders, ordered)
		qc.Cost = math.Min(qc.Cost, full.Cost)
	}
	return qc
}

func (e *Estimator) estimate(schema table.Schema, rowCount int, terms []Term, orders []table.Order, ordered bool) QueryCost {
	if rowCount <= 0 {
		return QueryCost{Cost: e.cfg.FixedCost, Rows: 0}
	}
	r := float64(rowCount)

	ranked := append([]Term(nil), terms...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return rank(schema, ranked[i]) < rank(schema, ranked[j])
	})

	rows := r
	filterCost := 0.0
	for _, t := range ranked {
		if rank(schema, t) == 0 {
			filterCost += e.cfg.FilterRowCost * math.Log2(math.Max(rows, 1))
		} else {
			filterCost += e.cfg.FilterRowCost * rows
		}
		rows *= e.selectivity(schema, r, t)
	}

	est := rowCount
	if len(terms) > 0 {
		est = int(math.Ceil(rows))
		est = min(max(est, 1), rowCount)
	}

	cost := e.cfg.FixedCost + filterCost + e.cfg.PerRowCost*float64(est)
	if len(orders) > 0 && !ordered && est > 1 {
		n := float64(est)
		cost += e.cfg.SortCostFactor * n * math.Log2(n) * float64(len(orders))
	}
	return QueryCost{Cost: cost, Rows: int64(est)}
}

// rank orders terms for estimation: binary-searchable comparisons on
// sorted columns, then equality, range and the rest.
func rank(schema table.Schema, t Term) int {
	switch t.Op {
	case table.OpEQ, table.OpIs:
		if schema.Columns[t.Column].IsSorted() {
			return 0
		}
		return 1
	case table.OpLT, table.OpLE, table.OpGT, table.OpGE, table.OpIsNull, table.OpIsNotNull:
		if schema.Columns[t.Column].IsSorted() {
			return 0
		}
		if t.Op.IsRange() {
			return 2
		}
		return 3
	}
	return 3
}

func (e *Estimator) selectivity(schema table.Schema, rowCount float64, t Term) float64 {
	switch t.Op {
	case table.OpEQ, table.OpIs:
		if schema.Columns[t.Column].IsID() {
			return 1 / rowCount
		}
		return math.Max(1/rowCount, e.cfg.EqualitySelectivityFloor)
	case table.OpLT, table.OpLE, table.OpGT, table.OpGE:
		return e.cfg.RangeSelectivity
	}
	return e.cfg.OtherSelectivity
}
