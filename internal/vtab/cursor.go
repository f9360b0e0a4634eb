package vtab

import (
	"errors"

	"github.com/roach88/coltab/internal/planner"
	"github.com/roach88/coltab/internal/registry"
	"github.com/roach88/coltab/internal/source"
	"github.com/roach88/coltab/internal/status"
	"github.com/roach88/coltab/internal/table"
	"github.com/roach88/coltab/internal/value"
)

type cursorState int

const (
	stateCreated cursorState = iota
	stateFiltered
	stateExhausted
	stateClosed
)

func (s cursorState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateFiltered:
		return "filtered"
	case stateExhausted:
		return "exhausted"
	default:
		return "closed"
	}
}

// Cursor iterates the rows of one scan. The engine may call Filter any
// number of times; each call restarts iteration but keeps the probe
// counter and the sorted cache.
type Cursor struct {
	tbl    *Table
	src    source.Source
	schema table.Schema
	state  cursorState

	// hiddenPos maps a hidden column to its function argument position.
	hiddenPos map[int]int

	// Reset by every Filter.
	mode   planner.Mode
	active table.Table
	iter   *table.Iterator
	row    int
	args   []value.Value

	// Kept across Filter calls.
	shape       string
	probes      int
	cache       *table.Memory
	cacheColumn int
}

func newCursor(t *Table, st *registry.State) *Cursor {
	c := &Cursor{
		tbl:         t,
		src:         st.Source,
		schema:      st.Schema,
		hiddenPos:   make(map[int]int),
		cacheColumn: -1,
	}
	for i, col := range st.Schema.Hidden() {
		c.hiddenPos[col] = i
	}
	return c
}

// Filter starts a scan using the strategy BestIndex encoded in idxStr.
// argv holds one value per strategy term.
func (c *Cursor) Filter(idxNum int, idxStr string, argv []value.Value) error {
	if c.state == stateClosed {
		return status.NewProtocolViolation("filter on closed cursor").WithTable(c.tbl.name)
	}
	if _, err := c.tbl.State(); err != nil {
		return err
	}
	strat, err := planner.ParseStrategy(idxStr)
	if err != nil {
		return status.Wrap(status.ProtocolViolation, err, "strategy %d is not decodable", idxNum).WithTable(c.tbl.name)
	}
	if err := strat.Validate(c.schema); err != nil {
		return status.Wrap(status.ProtocolViolation, err, "strategy %d does not fit the schema", idxNum).WithTable(c.tbl.name)
	}
	if len(argv) != strat.ArgCount() {
		return status.NewProtocolViolation("strategy %q takes %d arguments, got %d", idxStr, strat.ArgCount(), len(argv)).WithTable(c.tbl.name)
	}

	c.reset()
	c.tbl.module.stats.filters.Add(1)

	filters := c.bind(strat, argv)
	base, err := c.materialize()
	if err != nil {
		return err
	}

	c.track(strat, idxStr, base)
	if strat.Mode == planner.ModeSingleRow {
		c.filterSingle(base, filters)
	} else {
		c.filterTable(strat, base, filters)
	}
	return nil
}

func (c *Cursor) reset() {
	c.state = stateCreated
	c.mode = planner.ModeTable
	c.active = nil
	c.iter = nil
	c.row = 0
	c.args = nil
}

// bind splits argv into function arguments and filters. Filter values take
// the column's affinity and text is normalised so probes match stored
// values. Function arguments are kept as given; Column reports them back
// unchanged.
func (c *Cursor) bind(strat planner.Strategy, argv []value.Value) []table.Filter {
	if len(c.hiddenPos) > 0 {
		c.args = make([]value.Value, len(c.hiddenPos))
		for i := range c.args {
			c.args[i] = value.Null{}
		}
	}
	var filters []table.Filter
	for k, term := range strat.Terms {
		v := argv[k]
		if v == nil {
			v = value.Null{}
		}
		if pos, ok := c.hiddenPos[term.Column]; ok {
			c.args[pos] = v
			continue
		}
		if kind := c.schema.Columns[term.Column].Type; kind != value.KindNull {
			v = value.ApplyAffinity(v, kind)
		}
		filters = append(filters, table.Filter{Column: term.Column, Op: term.Op, Value: value.Normalize(v)})
	}
	return filters
}

// materialize returns the table to scan. Table functions are computed
// here, once per Filter.
func (c *Cursor) materialize() (table.Table, error) {
	switch s := c.src.(type) {
	case *source.TableFunction:
		args := make([]value.Value, len(c.args))
		for i, a := range c.args {
			args[i] = value.Normalize(a)
		}
		t, err := s.Compute(args)
		if err != nil {
			return nil, withTable(err, c.tbl.name)
		}
		c.tbl.module.stats.computations.Add(1)
		return t, nil
	case *source.Static:
		return s.Table, nil
	case *source.Runtime:
		return s.Table, nil
	}
	return nil, status.NewProtocolViolation("unknown source %T", c.src).WithTable(c.tbl.name)
}

func (c *Cursor) filterSingle(base table.Table, filters []table.Filter) {
	c.tbl.module.stats.singleRow.Add(1)
	c.mode = planner.ModeSingleRow
	c.active = base
	// Scan resolves an identifier equality through the row index.
	if it := table.Scan(base, filters, nil); !it.Done() {
		c.row = it.Row()
		c.state = stateFiltered
		return
	}
	c.state = stateExhausted
}

// track counts consecutive probes of one strategy and builds or drops the
// sorted cache accordingly.
func (c *Cursor) track(strat planner.Strategy, shape string, base table.Table) {
	if shape == c.shape {
		c.probes++
	} else {
		c.shape = shape
		c.probes = 1
	}

	candidate := c.cacheCandidate(strat, base)
	if c.cache != nil && c.cacheColumn != candidate {
		c.tbl.module.logger.Debug("sorted cache dropped",
			"table", c.tbl.name,
			"column", c.schema.Columns[c.cacheColumn].Name)
		c.cache = nil
		c.cacheColumn = -1
	}
	if c.cache == nil && candidate >= 0 && c.probes > c.tbl.module.cfg.CacheThreshold {
		c.cache = table.SortedBy(base, candidate)
		c.cacheColumn = candidate
		c.tbl.module.stats.cacheBuilds.Add(1)
		c.tbl.module.logger.Debug("sorted cache built",
			"table", c.tbl.name,
			"column", c.schema.Columns[candidate].Name,
			"rows", c.cache.RowCount(),
			"probes", c.probes)
	}
}

func (c *Cursor) filterTable(strat planner.Strategy, base table.Table, filters []table.Filter) {
	c.active = base
	if c.cache != nil {
		c.active = c.cache
		c.tbl.module.stats.cacheHits.Add(1)
	}
	c.iter = table.Scan(c.active, filters, strat.Orders)
	if c.iter.Done() {
		c.state = stateExhausted
		return
	}
	c.state = stateFiltered
}

// cacheCandidate returns the column a sorted cache would be built on for
// strat, or -1. Only stored tables are cached, and only when no equality
// already hits a sorted or identifier column.
func (c *Cursor) cacheCandidate(strat planner.Strategy, base table.Table) int {
	if _, ok := c.src.(*source.TableFunction); ok {
		return -1
	}
	cols := strat.EqualityColumns(c.schema)
	if len(cols) == 0 {
		return -1
	}
	bs := base.Schema()
	for _, col := range cols {
		if bs.Columns[col].IsSorted() || bs.Columns[col].IsID() {
			return -1
		}
	}
	return cols[0]
}

// Next advances to the following row.
func (c *Cursor) Next() error {
	switch c.state {
	case stateClosed:
		return status.NewProtocolViolation("next on closed cursor").WithTable(c.tbl.name)
	case stateCreated:
		return status.NewProtocolViolation("next before filter").WithTable(c.tbl.name)
	case stateExhausted:
		return nil
	}
	if c.mode == planner.ModeSingleRow {
		c.state = stateExhausted
		return nil
	}
	c.iter.Next()
	if c.iter.Done() {
		c.state = stateExhausted
	}
	return nil
}

// Eof reports whether no current row is available.
func (c *Cursor) Eof() bool {
	return c.state != stateFiltered
}

// Column returns column col of the current row. Hidden columns of table
// functions return the bound argument.
func (c *Cursor) Column(col int) (value.Value, error) {
	if err := c.checkRow(); err != nil {
		return nil, err
	}
	if col < 0 || col >= c.schema.Len() {
		return nil, status.NewOutOfRange("column %d outside schema of %d columns", col, c.schema.Len()).WithTable(c.tbl.name)
	}
	if pos, ok := c.hiddenPos[col]; ok {
		return c.args[pos], nil
	}
	return c.active.Cell(c.currentRow(), col), nil
}

// Rowid returns the current row's position in the active iteration
// source: the base table, the sorted cache, or the computed table. It is
// stable only within one Filter.
func (c *Cursor) Rowid() (int64, error) {
	if err := c.checkRow(); err != nil {
		return 0, err
	}
	return int64(c.currentRow()), nil
}

func (c *Cursor) checkRow() error {
	switch c.state {
	case stateClosed:
		return status.NewProtocolViolation("read from closed cursor").WithTable(c.tbl.name)
	case stateFiltered:
		return nil
	}
	return status.NewOutOfRange("no current row (cursor %s)", c.state).WithTable(c.tbl.name)
}

func (c *Cursor) currentRow() int {
	if c.mode == planner.ModeSingleRow {
		return c.row
	}
	return c.iter.Row()
}

// Close releases the iterator and the sorted cache. It is safe to call
// in any state and more than once.
func (c *Cursor) Close() error {
	if c.state == stateClosed {
		return nil
	}
	if c.cache != nil {
		c.tbl.module.logger.Debug("sorted cache released", "table", c.tbl.name, "probes", c.probes)
	}
	c.reset()
	c.cache = nil
	c.cacheColumn = -1
	c.state = stateClosed
	return nil
}

// Probes returns the number of consecutive Filter calls with the current
// strategy.
func (c *Cursor) Probes() int { return c.probes }

// CacheColumn returns the column of the sorted cache, if one is built.
func (c *Cursor) CacheColumn() (int, bool) {
	return c.cacheColumn, c.cache != nil
}

func withTable(err error, name string) error {
	var se *status.Error
	if errors.As(err, &se) && se.Table == "" {
		return se.WithTable(name)
	}
	return err
}
