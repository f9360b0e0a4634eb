package planner

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/coltab/internal/source"
	"github.com/roach88/coltab/internal/table"
	"github.com/roach88/coltab/internal/value"
)

func sliceSchema() table.Schema {
	return table.MustSchema(
		table.Column{Name: "id", Type: value.KindInt, Flags: table.FlagID | table.FlagSorted},
		table.Column{Name: "ts", Type: value.KindInt, Flags: table.FlagSorted},
		table.Column{Name: "name", Type: value.KindText},
		table.Column{Name: "dur", Type: value.KindFloat},
	)
}

func seriesSchema(t *testing.T) table.Schema {
	t.Helper()
	f, err := source.NewTableFunction(source.Series{})
	require.NoError(t, err)
	return f.Schema()
}

func eq(col int) Constraint { return Constraint{Column: col, Op: table.OpEQ, Usable: true} }

func TestBestIndexGolden(t *testing.T) {
	e := New(DefaultConfig())
	slices := sliceSchema()
	series := seriesSchema(t)

	cases := []struct {
		name string
		req  Request
	}{
		{"full scan", Request{Schema: slices, RowCount: 1000}},
		{"id lookup", Request{Schema: slices, RowCount: 1000, Constraints: []Constraint{eq(0)}}},
		{"id lookup with range", Request{Schema: slices, RowCount: 1000, Constraints: []Constraint{
			eq(0), {Column: 3, Op: table.OpGT, Usable: true},
		}}},
		{"two equalities", Request{Schema: slices, RowCount: 1000, Constraints: []Constraint{eq(0), eq(2)}}},
		{"unusable and unsupported", Request{Schema: slices, RowCount: 1000, Constraints: []Constraint{
			{Column: 2, Op: table.OpEQ, Usable: false},
			{Column: 2, Op: table.OpLike, Usable: true},
			{Column: -1, Op: table.OpEQ, Usable: true},
		}}},
		{"range on sorted", Request{Schema: slices, RowCount: 1000, Constraints: []Constraint{
			{Column: 1, Op: table.OpGE, Usable: true},
			{Column: 1, Op: table.OpLT, Usable: true},
		}}},
		{"natural order", Request{Schema: slices, RowCount: 1000, Orders: []table.Order{{Column: 1}}}},
		{"sort required", Request{Schema: slices, RowCount: 1000,
			Constraints: []Constraint{{Column: 2, Op: table.OpNE, Usable: true}},
			Orders:      []table.Order{{Column: 2, Desc: true}, {Column: 3}},
		}},
		{"is null", Request{Schema: slices, RowCount: 1000, Constraints: []Constraint{{Column: 2, Op: table.OpIsNull, Usable: true}}}},
		{"function bound", Request{Schema: series, RowCount: 1024, Constraints: []Constraint{
			eq(1), eq(2), eq(3), {Column: 0, Op: table.OpGT, Usable: true},
		}}},
		{"function missing step", Request{Schema: series, RowCount: 1024, Constraints: []Constraint{eq(1), eq(2)}}},
		{"function hidden range", Request{Schema: series, RowCount: 1024, Constraints: []Constraint{
			eq(1), eq(2), eq(3), {Column: 1, Op: table.OpGT, Usable: true},
		}}},
	}

	var b strings.Builder
	for _, c := range cases {
		plan := e.BestIndex(c.req)
		fmt.Fprintf(&b, "%s: %s rows=%d args=%v\n", c.name, plan.Strategy.Encode(), plan.Rows, plan.ArgIndex)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "strategies", []byte(b.String()))
}

func TestSingleRowIndependentOfRowCount(t *testing.T) {
	e := New(DefaultConfig())
	for _, r := range []int{0, 1, 10, 1_000_000} {
		plan := e.BestIndex(Request{Schema: sliceSchema(), RowCount: r, Constraints: []Constraint{eq(0)}})
		assert.Equal(t, ModeSingleRow, plan.Strategy.Mode, "rows=%d", r)
		assert.Equal(t, int64(1), plan.Rows, "rows=%d", r)
		assert.Equal(t, DefaultConfig().SingleRowCost, plan.Cost)
		assert.True(t, plan.Unique)
	}
}

func TestSingleRowKeepsExtraTerms(t *testing.T) {
	e := New(DefaultConfig())
	gt := Constraint{Column: 3, Op: table.OpGT, Usable: true}

	plan := e.BestIndex(Request{Schema: sliceSchema(), RowCount: 1000, Constraints: []Constraint{eq(0), gt}})
	assert.Equal(t, ModeSingleRow, plan.Strategy.Mode)
	assert.Equal(t, "single;terms=0:eq,3:gt", plan.Strategy.Encode())
	assert.Equal(t, []int{0, 1}, plan.ArgIndex)
	assert.Equal(t, int64(1), plan.Rows)
	assert.True(t, plan.Unique)

	for _, cons := range [][]Constraint{
		{eq(0), eq(2)},
		{eq(0), eq(0)},
	} {
		plan = e.BestIndex(Request{Schema: sliceSchema(), RowCount: 1000, Constraints: cons})
		assert.NotEqual(t, ModeSingleRow, plan.Strategy.Mode, plan.Strategy.Encode())
		assert.False(t, plan.Unique)
	}
}

func TestNoConstraintsIsMostExpensive(t *testing.T) {
	e := New(DefaultConfig())
	schema := sliceSchema()
	candidates := []Constraint{
		eq(0),
		eq(2),
		{Column: 1, Op: table.OpGT, Usable: true},
		{Column: 3, Op: table.OpLE, Usable: true},
		{Column: 2, Op: table.OpNE, Usable: true},
		{Column: 2, Op: table.OpIsNotNull, Usable: true},
	}
	orderSets := [][]table.Order{nil, {{Column: 1}}, {{Column: 2}, {Column: 3, Desc: true}}}

	for _, r := range []int{0, 1, 2, 3, 7, 100, 12345} {
		for _, orders := range orderSets {
			full := e.BestIndex(Request{Schema: schema, RowCount: r, Orders: orders})
			assert.Equal(t, int64(r), full.Rows)

			// Every subset of the candidates.
			for mask := 1; mask < 1<<len(candidates); mask++ {
				var cs []Constraint
				for i, c := range candidates {
					if mask&(1<<i) != 0 {
						cs = append(cs, c)
					}
				}
				plan := e.BestIndex(Request{Schema: schema, RowCount: r, Constraints: cs, Orders: orders})
				assert.LessOrEqual(t, plan.Cost, full.Cost, "rows=%d mask=%b", r, mask)
				assert.LessOrEqual(t, plan.Rows, max(full.Rows, 1), "rows=%d mask=%b", r, mask)
			}

			// Unusable constraints do not narrow anything.
			unusable := e.BestIndex(Request{Schema: schema, RowCount: r, Orders: orders, Constraints: []Constraint{
				{Column: 2, Op: table.OpEQ}, {Column: 0, Op: table.OpEQ},
			}})
			assert.Equal(t, full.QueryCost, unusable.QueryCost)
		}
	}
}

func TestBestIndexDeterministic(t *testing.T) {
	e := New(DefaultConfig())
	req := Request{
		Schema:      sliceSchema(),
		RowCount:    5000,
		Constraints: []Constraint{eq(2), {Column: 1, Op: table.OpLT, Usable: true}, {Column: 3, Op: table.OpGlob, Usable: true}},
		Orders:      []table.Order{{Column: 3}},
	}
	first := e.BestIndex(req)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, e.BestIndex(req))
	}
}

func TestNaturalOrderIsCheaper(t *testing.T) {
	e := New(DefaultConfig())
	natural := e.BestIndex(Request{Schema: sliceSchema(), RowCount: 10000, Orders: []table.Order{{Column: 1}}})
	sorted := e.BestIndex(Request{Schema: sliceSchema(), RowCount: 10000, Orders: []table.Order{{Column: 2}}})
	assert.True(t, natural.Strategy.Ordered)
	assert.False(t, sorted.Strategy.Ordered)
	assert.Less(t, natural.Cost, sorted.Cost)
	assert.True(t, natural.OrderConsumed)
	assert.True(t, sorted.OrderConsumed)
}

func TestEmptyTable(t *testing.T) {
	e := New(DefaultConfig())
	plan := e.BestIndex(Request{Schema: sliceSchema(), RowCount: 0, Constraints: []Constraint{eq(2)}})
	assert.Equal(t, int64(0), plan.Rows)
	assert.Equal(t, DefaultConfig().FixedCost, plan.Cost)
}

func TestUnboundFunctionArgument(t *testing.T) {
	e := New(DefaultConfig())
	plan := e.BestIndex(Request{Schema: seriesSchema(t), RowCount: 1024, Constraints: []Constraint{eq(1)}})
	assert.True(t, plan.Unbound)
	assert.Equal(t, DefaultConfig().UnboundArgumentCost, plan.Cost)

	bound := e.BestIndex(Request{Schema: seriesSchema(t), RowCount: 1024, Constraints: []Constraint{eq(1), eq(2), eq(3)}})
	assert.False(t, bound.Unbound)
	assert.Less(t, bound.Cost, plan.Cost)
}

func TestSelectivityFloor(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg)
	plan := e.BestIndex(Request{Schema: sliceSchema(), RowCount: 1_000_000, Constraints: []Constraint{eq(2)}})
	assert.Equal(t, int64(10_000), plan.Rows)

	cfg.EqualitySelectivityFloor = 0.001
	plan = New(cfg).BestIndex(Request{Schema: sliceSchema(), RowCount: 1_000_000, Constraints: []Constraint{eq(2)}})
	assert.Equal(t, int64(1000), plan.Rows)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.FixedCost = 0
	cfg.RangeSelectivity = 1.5
	cfg.CacheThreshold = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fixed_cost")
	assert.Contains(t, err.Error(), "range_selectivity")
	assert.Contains(t, err.Error(), "cache_threshold")
	assert.Contains(t, err.Error(), "single_row_cost")
}

func TestSortCostGrowsWithTerms(t *testing.T) {
	e := New(DefaultConfig())
	one := e.EstimateCost(sliceSchema(), 4096, nil, []table.Order{{Column: 2}}, false)
	two := e.EstimateCost(sliceSchema(), 4096, nil, []table.Order{{Column: 2}, {Column: 3}}, false)
	none := e.EstimateCost(sliceSchema(), 4096, nil, nil, false)
	assert.InDelta(t, 4096*12.0, one.Cost-none.Cost, 1e-6)
	assert.InDelta(t, 2*4096*12.0, two.Cost-none.Cost, 1e-6)
	assert.False(t, math.IsNaN(one.Cost))
}
