package table

import (
	"fmt"

	"github.com/roach88/coltab/internal/value"
)

// Reflag rebuilds m with the identifier and sorted flags set on the named
// columns. Building checks the flags hold for the data.
func Reflag(m *Memory, id string, sorted []string) (*Memory, error) {
	if id == "" && len(sorted) == 0 {
		return m, nil
	}
	cols := append([]Column(nil), m.Schema().Columns...)
	lookup := m.Schema()
	if id != "" {
		i, ok := lookup.Index(id)
		if !ok {
			return nil, fmt.Errorf("identifier column %q not in result", id)
		}
		cols[i].Flags |= FlagID
		// An empty or all-NULL result leaves the column untyped.
		if cols[i].Type == value.KindNull {
			cols[i].Type = value.KindInt
		}
	}
	for _, name := range sorted {
		i, ok := lookup.Index(name)
		if !ok {
			return nil, fmt.Errorf("sorted column %q not in result", name)
		}
		cols[i].Flags |= FlagSorted
	}
	schema, err := NewSchema(cols...)
	if err != nil {
		return nil, err
	}

	b := NewBuilder(schema)
	for r := 0; r < m.RowCount(); r++ {
		if err := b.Append(m.Row(r)...); err != nil {
			return nil, err
		}
	}
	return b.Build()
}
