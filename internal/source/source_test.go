package source

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/coltab/internal/status"
	"github.com/roach88/coltab/internal/table"
	"github.com/roach88/coltab/internal/value"
)

func ints(t *testing.T, tbl table.Table) []int64 {
	t.Helper()
	out := make([]int64, 0, tbl.RowCount())
	for r := 0; r < tbl.RowCount(); r++ {
		out = append(out, int64(tbl.Cell(r, 0).(value.Int)))
	}
	return out
}

func TestTableFunctionSchema(t *testing.T) {
	f, err := NewTableFunction(Series{})
	require.NoError(t, err)

	assert.Equal(t, KindTableFunction, f.Kind())
	assert.Equal(t, 3, f.ArgumentCount())
	assert.Equal(t, 1, f.OutputCount())
	assert.Equal(t, []int{1, 2, 3}, f.Schema().Hidden())
	assert.Equal(t, 3, ArgumentCount(f))
	assert.Equal(t, 1024, EstimateRows(f))
	assert.Nil(t, Base(f))
}

func TestStaticAndRuntime(t *testing.T) {
	b := table.NewBuilder(table.MustSchema(table.Column{Name: "v", Type: value.KindInt}))
	require.NoError(t, b.Append(value.Int(1)))
	m, err := b.Build()
	require.NoError(t, err)

	for _, src := range []Source{NewStatic(m), NewRuntime(m)} {
		assert.Equal(t, 0, ArgumentCount(src))
		assert.Equal(t, 1, EstimateRows(src))
		assert.Same(t, m, Base(src))
		assert.Equal(t, m.Schema(), src.Schema())
	}
	assert.Equal(t, "static", KindStatic.String())
	assert.Equal(t, "runtime", KindRuntime.String())
}

func TestSeries(t *testing.T) {
	f, err := NewTableFunction(Series{})
	require.NoError(t, err)

	tests := []struct {
		name string
		args []value.Value
		want []int64
	}{
		{"ascending", []value.Value{value.Int(1), value.Int(10), value.Int(3)}, []int64{1, 4, 7, 10}},
		{"descending", []value.Value{value.Int(5), value.Int(1), value.Int(-2)}, []int64{5, 3, 1}},
		{"empty", []value.Value{value.Int(5), value.Int(1), value.Int(1)}, []int64{}},
		{"null step", []value.Value{value.Int(1), value.Int(3), value.Null{}}, []int64{1, 2, 3}},
		{"text args", []value.Value{value.Text("1"), value.Text("3"), value.Int(1)}, []int64{1, 2, 3}},
		{"near max", []value.Value{value.Int(9223372036854775806), value.Int(9223372036854775807), value.Int(5)}, []int64{9223372036854775806}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := f.Compute(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ints(t, tbl))
		})
	}
}

func TestSeriesErrors(t *testing.T) {
	f, err := NewTableFunction(Series{})
	require.NoError(t, err)

	_, err = f.Compute([]value.Value{value.Int(1), value.Int(2), value.Int(0)})
	assert.True(t, status.Is(err, status.UpstreamFailure))
	assert.ErrorContains(t, err, "step must be non-zero")

	_, err = f.Compute([]value.Value{value.Int(1), value.Int(2)})
	assert.True(t, status.Is(err, status.SchemaMismatch))
}

func TestSplit(t *testing.T) {
	f, err := NewTableFunction(Split{})
	require.NoError(t, err)

	tbl, err := f.Compute([]value.Value{value.Text("a,b,,c"), value.Text(",")})
	require.NoError(t, err)
	require.Equal(t, 4, tbl.RowCount())
	assert.Equal(t, value.Text(""), tbl.Cell(2, 1))
	assert.Equal(t, value.Int(3), tbl.Cell(3, 0))

	tbl, err = f.Compute([]value.Value{value.Null{}, value.Text(",")})
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.RowCount())

	_, err = f.Compute([]value.Value{value.Text("a"), value.Text("")})
	assert.True(t, status.Is(err, status.UpstreamFailure))
}

type badGenerator struct{ Series }

func (badGenerator) Compute([]value.Value) (table.Table, error) {
	return table.NewBuilder(table.MustSchema(
		table.Column{Name: "a", Type: value.KindInt},
		table.Column{Name: "b", Type: value.KindInt},
	)).Build()
}

type failingGenerator struct{ Series }

func (failingGenerator) Compute([]value.Value) (table.Table, error) {
	return nil, errors.New("trace file truncated")
}

func TestComputeShapeAndFailure(t *testing.T) {
	bad, err := NewTableFunction(badGenerator{})
	require.NoError(t, err)
	_, err = bad.Compute(make([]value.Value, 3))
	assert.True(t, status.Is(err, status.UpstreamFailure))

	failing, err := NewTableFunction(failingGenerator{})
	require.NoError(t, err)
	_, err = failing.Compute(make([]value.Value, 3))
	assert.ErrorContains(t, err, "trace file truncated")
}

type clashingGenerator struct{ Series }

func (clashingGenerator) Arguments() []table.Column {
	return []table.Column{{Name: "value", Type: value.KindInt}}
}

func TestNewTableFunctionRejectsClash(t *testing.T) {
	_, err := NewTableFunction(clashingGenerator{})
	assert.True(t, status.Is(err, status.SchemaMismatch))
}
