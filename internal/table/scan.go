package table

import (
	"sort"

	"github.com/roach88/coltab/internal/value"
)

// Iterator walks the rows selected by Scan.
type Iterator struct {
	rows []int
	pos  int
}

// Done reports whether the iterator is exhausted.
func (it *Iterator) Done() bool { return it.pos >= len(it.rows) }

// Next advances to the following row.
func (it *Iterator) Next() {
	if it.pos < len(it.rows) {
		it.pos++
	}
}

// Row returns the current row index in the scanned table.
func (it *Iterator) Row() int { return it.rows[it.pos] }

// Len returns the number of selected rows.
func (it *Iterator) Len() int { return len(it.rows) }

// Rows returns the selected row indices in output order.
func (it *Iterator) Rows() []int { return it.rows }

// Scan selects the rows of t satisfying every filter and returns them in
// the requested order.
//
// Filters on sorted columns narrow the candidate range with binary search;
// an equality filter on the identifier column uses RowFinder when t
// provides it. Remaining filters are evaluated row by row. Ordering is
// skipped when the first order is ascending on a sorted column and is the
// only order.
func Scan(t Table, filters []Filter, orders []Order) *Iterator {
	lo, hi := 0, t.RowCount()
	schema := t.Schema()

	if row, ok, used := findByID(t, schema, filters); used {
		if !ok || !matchAll(t, row, filters) {
			return &Iterator{}
		}
		return &Iterator{rows: []int{row}}
	}

	for _, f := range filters {
		if f.Column < 0 || f.Column >= schema.Len() || !schema.Columns[f.Column].IsSorted() {
			continue
		}
		flo, fhi := sortedRange(t, f, lo, hi)
		lo, hi = max(lo, flo), min(hi, fhi)
		if lo >= hi {
			return &Iterator{}
		}
	}

	rows := make([]int, 0, hi-lo)
	for r := lo; r < hi; r++ {
		if matchAll(t, r, filters) {
			rows = append(rows, r)
		}
	}

	if needsSort(schema, orders) {
		sort.SliceStable(rows, func(i, j int) bool {
			return less(t, orders, rows[i], rows[j])
		})
	}
	return &Iterator{rows: rows}
}

// NaturallyOrdered reports whether orders are satisfied by the storage
// order of a table with schema s.
func NaturallyOrdered(s Schema, orders []Order) bool {
	if len(orders) == 0 {
		return true
	}
	if len(orders) != 1 || orders[0].Desc {
		return false
	}
	c := orders[0].Column
	return c >= 0 && c < s.Len() && s.Columns[c].IsSorted()
}

func needsSort(s Schema, orders []Order) bool {
	return !NaturallyOrdered(s, orders)
}

func findByID(t Table, s Schema, filters []Filter) (row int, ok bool, used bool) {
	finder, isFinder := t.(RowFinder)
	idCol := s.IDColumn()
	if !isFinder || idCol < 0 {
		return 0, false, false
	}
	for _, f := range filters {
		if f.Column != idCol || f.Op != OpEQ {
			continue
		}
		id, isInt := value.ApplyAffinity(f.Value, value.KindInt).(value.Int)
		if !isInt {
			// Non-integer probe against an integer identifier never matches.
			return 0, false, true
		}
		row, ok = finder.FindRow(int64(id))
		return row, ok, true
	}
	return 0, false, false
}

// sortedRange returns [lo, hi) within the given bounds satisfying f on an
// ascending column. Ops that cannot narrow return the bounds unchanged.
func sortedRange(t Table, f Filter, lo, hi int) (int, int) {
	at := func(i int) value.Value { return t.Cell(i, f.Column) }
	// First index in [lo,hi) whose value is >= v (or > v when strict).
	search := func(v value.Value, strict bool) int {
		return lo + sort.Search(hi-lo, func(i int) bool {
			c := value.Compare(at(lo+i), v)
			if strict {
				return c > 0
			}
			return c >= 0
		})
	}
	// NULLs sort first; comparison operators never match them.
	firstNonNull := lo + sort.Search(hi-lo, func(i int) bool { return !value.IsNull(at(lo + i)) })

	switch f.Op {
	case OpEQ, OpIs:
		if value.IsNull(f.Value) {
			if f.Op == OpIs {
				return lo, firstNonNull
			}
			return lo, lo
		}
		return search(f.Value, false), search(f.Value, true)
	case OpIsNull:
		return lo, firstNonNull
	case OpIsNotNull:
		return firstNonNull, hi
	case OpGT, OpGE, OpLT, OpLE:
		if value.IsNull(f.Value) {
			return lo, lo
		}
	default:
		return lo, hi
	}
	switch f.Op {
	case OpGT:
		return search(f.Value, true), hi
	case OpGE:
		return search(f.Value, false), hi
	case OpLT:
		return firstNonNull, search(f.Value, false)
	default:
		return firstNonNull, search(f.Value, true)
	}
}

func matchAll(t Table, row int, filters []Filter) bool {
	for _, f := range filters {
		if !f.Match(t.Cell(row, f.Column)) {
			return false
		}
	}
	return true
}

func less(t Table, orders []Order, a, b int) bool {
	for _, o := range orders {
		c := value.Compare(t.Cell(a, o.Column), t.Cell(b, o.Column))
		if c == 0 {
			continue
		}
		if o.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}
