//go:build sqlite_vtable

package sqlitevtab_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/coltab/internal/engine"
	"github.com/roach88/coltab/internal/registry"
	"github.com/roach88/coltab/internal/sqlitevtab"
	"github.com/roach88/coltab/internal/status"
	"github.com/roach88/coltab/internal/testutil"
	"github.com/roach88/coltab/internal/value"
	"github.com/roach88/coltab/internal/vtab"
)

func openMattn(t *testing.T) *engine.Engine {
	t.Helper()
	b, ok := sqlitevtab.Lookup("mattn")
	require.True(t, ok, "mattn binding missing from %v", sqlitevtab.Bindings())

	e, err := engine.Open(context.Background(),
		engine.WithLogger(testutil.NewTestLogger(t)),
		engine.WithBinding(b))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestMattn_FilteredScan(t *testing.T) {
	ctx := context.Background()
	e := openMattn(t)
	require.NoError(t, e.CreateStatic(ctx, "slices", testutil.Slices(t, 1000)))

	res, err := e.Query(ctx, "SELECT id FROM slices WHERE ts >= 9950 ORDER BY ts DESC")
	require.NoError(t, err)
	var ids []value.Value
	for _, r := range res.Rows {
		ids = append(ids, r[0])
	}
	assert.Equal(t, []value.Value{value.Int(999), value.Int(998), value.Int(997), value.Int(996), value.Int(995)}, ids)

	res, err = e.Query(ctx, "SELECT name, dur FROM slices WHERE id = ?", 42)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []value.Value{value.Text("slice-42"), value.Float(21)}, res.Rows[0])
	assert.GreaterOrEqual(t, e.Stats().SingleRow, int64(1))

	res, err = e.Query(ctx, "SELECT count(*) FROM slices WHERE dur IS NULL")
	require.NoError(t, err)
	assert.Equal(t, value.Int(142), res.Rows[0][0])
}

func TestMattn_TableFunction(t *testing.T) {
	ctx := context.Background()
	e := openMattn(t)
	require.NoError(t, e.RegisterBuiltins(ctx))

	res, err := e.Query(ctx, "SELECT count(*), sum(value) FROM series(1, 10)")
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.Int(10), value.Int(55)}, res.Rows[0])

	res, err = e.Query(ctx, "SELECT part FROM split('a,b', ',') ORDER BY idx DESC")
	require.NoError(t, err)
	assert.Equal(t, [][]value.Value{{value.Text("b")}, {value.Text("a")}}, res.Rows)

	_, err = e.Query(ctx, "SELECT value FROM series(1, 10, 0)")
	assert.True(t, status.Is(err, status.UpstreamFailure))
}

func TestMattn_DuplicateModule(t *testing.T) {
	m := vtab.NewModule(registry.New())
	_, err := sqlitevtab.Mattn("coltab_dup", m)
	require.NoError(t, err)
	_, err = sqlitevtab.Mattn("coltab_dup", m)
	assert.True(t, status.Is(err, status.AlreadyExists))
}
