package testutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/coltab/internal/table"
	"github.com/roach88/coltab/internal/value"
)

// SliceNames is the number of distinct values in the name column of
// Slices.
const SliceNames = 100

// SliceSchema is the schema of Slices: an identifier, a sorted timestamp,
// an unsorted name and a duration.
func SliceSchema() table.Schema {
	return table.MustSchema(
		table.Column{Name: "id", Type: value.KindInt, Flags: table.FlagID | table.FlagSorted},
		table.Column{Name: "ts", Type: value.KindInt, Flags: table.FlagSorted},
		table.Column{Name: "name", Type: value.KindText},
		table.Column{Name: "dur", Type: value.KindFloat},
	)
}

// Slices builds n rows of SliceSchema. Row i has id i, ts 10*i, name
// "slice-<i mod SliceNames>" and dur i/2. Every seventh dur is NULL.
func Slices(t testing.TB, n int) *table.Memory {
	t.Helper()
	b := table.NewBuilder(SliceSchema())
	for i := 0; i < n; i++ {
		var dur value.Value = value.Float(float64(i) / 2)
		if i%7 == 6 {
			dur = value.Null{}
		}
		require.NoError(t, b.Append(
			value.Int(int64(i)),
			value.Int(int64(i)*10),
			value.Text(fmt.Sprintf("slice-%d", i%SliceNames)),
			dur,
		))
	}
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

// Values builds a table of one untyped column holding vals, for round
// trip tests.
func Values(t testing.TB, vals ...value.Value) *table.Memory {
	t.Helper()
	b := table.NewBuilder(table.MustSchema(
		table.Column{Name: "id", Type: value.KindInt, Flags: table.FlagID | table.FlagSorted},
		table.Column{Name: "v"},
	))
	for i, v := range vals {
		require.NoError(t, b.Append(value.Int(int64(i)), v))
	}
	m, err := b.Build()
	require.NoError(t, err)
	return m
}
