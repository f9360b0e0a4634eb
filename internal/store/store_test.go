package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/coltab/internal/status"
	"github.com/roach88/coltab/internal/table"
	"github.com/roach88/coltab/internal/testutil"
	"github.com/roach88/coltab/internal/value"
)

func seedDatabase(t *testing.T) string {
	return testutil.SeedDatabase(t, "", testutil.TraceSchema...)
}

func openSeeded(t *testing.T) *Store {
	t.Helper()
	s, err := Open(seedDatabase(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)
}

func TestOpen_ReadOnly(t *testing.T) {
	s := openSeeded(t)
	require.NoError(t, s.verifyPragma("query_only", "1"))
	require.NoError(t, s.verifyPragma("busy_timeout", "5000"))

	_, err := s.DB().Exec(`INSERT INTO tags VALUES (2, 'x')`)
	assert.Error(t, err)
}

func TestTablesAndColumns(t *testing.T) {
	ctx := context.Background()
	s := openSeeded(t)

	names, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"events", "slow", "tags"}, names)

	cols, err := s.Columns(ctx, "events")
	require.NoError(t, err)
	assert.Equal(t, []ColumnInfo{
		{Name: "id", Type: "INTEGER", PK: 1},
		{Name: "name", Type: "TEXT"},
		{Name: "dur", Type: "REAL"},
	}, cols)
	assert.Equal(t, "id", idColumn(cols))

	_, err = s.Columns(ctx, "nope")
	assert.True(t, status.Is(err, status.NotFound))
}

func TestReadTable_IntegerKey(t *testing.T) {
	s := openSeeded(t)
	m, err := s.ReadTable(context.Background(), "events")
	require.NoError(t, err)

	schema := m.Schema()
	assert.True(t, schema.Columns[0].IsID())
	assert.True(t, schema.Columns[0].IsSorted())
	assert.Equal(t, value.KindFloat, schema.Columns[2].Type)

	require.Equal(t, 3, m.RowCount())
	assert.Equal(t, []value.Value{value.Int(1), value.Text("layout"), value.Float(2)}, m.Row(0))
	assert.Equal(t, value.Null{}, m.Cell(1, 2))
	row, ok := m.FindRow(3)
	require.True(t, ok)
	assert.Equal(t, value.Text("draw"), m.Cell(row, 1))
}

func TestReadTable_NoKeyAndView(t *testing.T) {
	ctx := context.Background()
	s := openSeeded(t)

	m, err := s.ReadTable(ctx, "tags")
	require.NoError(t, err)
	assert.Equal(t, -1, m.Schema().IDColumn())
	assert.Equal(t, 3, m.RowCount())

	m, err = s.ReadTable(ctx, "slow")
	require.NoError(t, err)
	require.Equal(t, 1, m.RowCount())
	assert.Equal(t, value.Text("layout"), m.Cell(0, 1))
}

func TestQueryFunction_File(t *testing.T) {
	s := openSeeded(t)
	f := s.Function(
		"SELECT tag FROM tags WHERE event_id = ? ORDER BY tag",
		[]table.Column{{Name: "tag", Type: value.KindText}},
		[]table.Column{{Name: "event", Type: value.KindInt}},
		0,
	)
	assert.Equal(t, 1000, f.EstimateRows())

	out, err := f.Compute([]value.Value{value.Int(1)})
	require.NoError(t, err)
	require.Equal(t, 2, out.RowCount())
	assert.Equal(t, value.Text("slow"), out.Cell(0, 0))
	assert.Equal(t, value.Text("ui"), out.Cell(1, 0))
}
