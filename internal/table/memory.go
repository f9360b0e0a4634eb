package table

import (
	"sort"

	"github.com/roach88/coltab/internal/status"
	"github.com/roach88/coltab/internal/value"
)

// Table is the read-only columnar table capability consumed by the adapter.
type Table interface {
	// Schema returns the column layout.
	Schema() Schema

	// RowCount returns the number of rows.
	RowCount() int

	// Cell returns the value at (row, col). Both must be in range.
	Cell(row, col int) value.Value
}

// RowFinder is implemented by tables that can locate a row by identifier
// without scanning.
type RowFinder interface {
	FindRow(id int64) (row int, ok bool)
}

// Memory is a column-major table held entirely in memory.
type Memory struct {
	schema Schema
	cols   [][]value.Value
	rows   int
	ids    map[int64]int
}

var (
	_ Table     = (*Memory)(nil)
	_ RowFinder = (*Memory)(nil)
)

// Schema returns the column layout.
func (m *Memory) Schema() Schema { return m.schema }

// RowCount returns the number of rows.
func (m *Memory) RowCount() int { return m.rows }

// Cell returns the value at (row, col).
func (m *Memory) Cell(row, col int) value.Value { return m.cols[col][row] }

// FindRow returns the row holding identifier id.
func (m *Memory) FindRow(id int64) (int, bool) {
	if m.ids == nil {
		return 0, false
	}
	row, ok := m.ids[id]
	return row, ok
}

// Row returns a copy of row r.
func (m *Memory) Row(r int) []value.Value {
	out := make([]value.Value, len(m.cols))
	for c := range m.cols {
		out[c] = m.cols[c][r]
	}
	return out
}

// Builder accumulates rows for a Memory table.
type Builder struct {
	schema Schema
	cols   [][]value.Value
	rows   int
	err    error
}

// NewBuilder returns a Builder for schema.
func NewBuilder(schema Schema) *Builder {
	return &Builder{
		schema: schema,
		cols:   make([][]value.Value, schema.Len()),
	}
}

// Append adds one row. Values are coerced to each column's declared kind
// and text is normalised to NFC. The first error is sticky and returned
// again by Build.
func (b *Builder) Append(vals ...value.Value) error {
	if b.err != nil {
		return b.err
	}
	if len(vals) != b.schema.Len() {
		b.err = status.NewSchemaMismatch("", "row %d has %d values, schema has %d columns", b.rows, len(vals), b.schema.Len())
		return b.err
	}
	for i, v := range vals {
		col := b.schema.Columns[i]
		cv, err := Coerce(v, col.Type)
		if err != nil {
			b.err = status.Wrap(status.SchemaMismatch, err, "row %d column %q", b.rows, col.Name)
			return b.err
		}
		b.cols[i] = append(b.cols[i], cv)
	}
	b.rows++
	return nil
}

// Len returns the number of rows appended so far.
func (b *Builder) Len() int { return b.rows }

// Build validates identifier uniqueness and sortedness and returns the
// finished table. The builder must not be reused.
func (b *Builder) Build() (*Memory, error) {
	if b.err != nil {
		return nil, b.err
	}
	m := &Memory{schema: b.schema, cols: b.cols, rows: b.rows}
	if err := m.index(); err != nil {
		return nil, err
	}
	for c, col := range b.schema.Columns {
		if !col.IsSorted() {
			continue
		}
		for r := 1; r < m.rows; r++ {
			if value.Compare(m.cols[c][r-1], m.cols[c][r]) > 0 {
				return nil, status.NewSchemaMismatch("", "column %q is declared sorted but row %d is out of order", col.Name, r)
			}
		}
	}
	b.cols = nil
	return m, nil
}

func (m *Memory) index() error {
	idCol := m.schema.IDColumn()
	if idCol < 0 {
		return nil
	}
	m.ids = make(map[int64]int, m.rows)
	name := m.schema.Columns[idCol].Name
	for r, v := range m.cols[idCol] {
		id, ok := v.(value.Int)
		if !ok {
			return status.NewSchemaMismatch("", "identifier column %q has non-integer value %v at row %d", name, v, r)
		}
		if _, dup := m.ids[int64(id)]; dup {
			return status.NewSchemaMismatch("", "identifier column %q has duplicate value %d", name, id)
		}
		m.ids[int64(id)] = r
	}
	return nil
}

// Coerce converts v to kind k, applying column affinity. NULL is accepted
// by every kind; columns of KindNull accept any value.
func Coerce(v value.Value, k value.Kind) (value.Value, error) {
	if value.IsNull(v) {
		return value.Null{}, nil
	}
	v = value.Normalize(v)
	if k == value.KindNull {
		return v, nil
	}
	v = value.ApplyAffinity(v, k)
	if k == value.KindFloat {
		if i, ok := v.(value.Int); ok {
			return value.Float(float64(i)), nil
		}
	}
	if v.Kind() != k {
		return nil, status.Errorf(status.SchemaMismatch, "cannot store %s value %v in %s column", v.Kind(), v, k)
	}
	return v, nil
}

// SortedBy returns a copy of t with every row stably sorted ascending by
// column col. The copy marks col as sorted and clears the sorted flag on
// every other column.
func SortedBy(t Table, col int) *Memory {
	n := t.RowCount()
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		return value.Compare(t.Cell(perm[i], col), t.Cell(perm[j], col)) < 0
	})

	src := t.Schema()
	cols := make([]Column, len(src.Columns))
	for i, c := range src.Columns {
		c.Flags &^= FlagSorted
		if i == col {
			c.Flags |= FlagSorted
		}
		cols[i] = c
	}
	m := &Memory{schema: Schema{Columns: cols}, cols: make([][]value.Value, len(cols)), rows: n}
	for c := range cols {
		data := make([]value.Value, n)
		for i, r := range perm {
			data[i] = t.Cell(r, c)
		}
		m.cols[c] = data
	}
	// Identifiers were validated on the source table.
	_ = m.index()
	return m
}
