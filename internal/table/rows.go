package table

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/coltab/internal/value"
)

// FromRows drains rows into a Memory table and closes them.
//
// Column kinds come from the declared database type when the driver
// reports one; otherwise they are inferred from the values read. Integer
// and real values mixed in one inferred column widen to REAL; any other mix
// leaves the column untyped.
func FromRows(rows *sql.Rows) (*Memory, error) {
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read column types: %w", err)
	}

	n := len(types)
	var data [][]value.Value
	for rows.Next() {
		raw := make([]any, n)
		ptrs := make([]any, n)
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(data), err)
		}
		row := make([]value.Value, n)
		for i, r := range raw {
			v, err := value.FromDriver(r)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", len(data), types[i].Name(), err)
			}
			row[i] = v
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	cols := make([]Column, n)
	for i, ct := range types {
		kind := inferKind(data, i)
		if decl := ct.DatabaseTypeName(); decl != "" && coercible(data, i, value.ParseKind(decl)) {
			kind = value.ParseKind(decl)
		}
		cols[i] = Column{Name: ct.Name(), Type: kind}
	}
	schema, err := NewSchema(dedupeNames(cols)...)
	if err != nil {
		return nil, err
	}

	b := NewBuilder(schema)
	for _, row := range data {
		if err := b.Append(row...); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// FromRowsWithSchema drains rows into a table with a caller-supplied
// schema, for callers that know identifier and sort flags.
func FromRowsWithSchema(rows *sql.Rows, schema Schema) (*Memory, error) {
	m, err := FromRows(rows)
	if err != nil {
		return nil, err
	}
	if m.schema.Len() != schema.Len() {
		return nil, fmt.Errorf("query returned %d columns, schema has %d", m.schema.Len(), schema.Len())
	}
	b := NewBuilder(schema)
	for r := 0; r < m.rows; r++ {
		if err := b.Append(m.Row(r)...); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// coercible reports whether every value in column col can be stored in a
// column of kind k. SQLite columns are loosely typed, so a declared type is
// only a hint.
func coercible(data [][]value.Value, col int, k value.Kind) bool {
	for _, row := range data {
		if _, err := Coerce(row[col], k); err != nil {
			return false
		}
	}
	return true
}

func inferKind(data [][]value.Value, col int) value.Kind {
	kind := value.KindNull
	for _, row := range data {
		k := row[col].Kind()
		switch {
		case k == value.KindNull:
		case kind == value.KindNull:
			kind = k
		case kind == k:
		case (kind == value.KindInt && k == value.KindFloat) || (kind == value.KindFloat && k == value.KindInt):
			kind = value.KindFloat
		default:
			return value.KindNull
		}
	}
	return kind
}

func dedupeNames(cols []Column) []Column {
	seen := make(map[string]int, len(cols))
	for i := range cols {
		base := cols[i].Name
		if base == "" {
			base = fmt.Sprintf("column%d", i+1)
			cols[i].Name = base
		}
		key := strings.ToLower(base)
		if n := seen[key]; n > 0 {
			cols[i].Name = fmt.Sprintf("%s:%d", base, n)
		}
		seen[key]++
	}
	return cols
}
