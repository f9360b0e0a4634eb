package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCommand(t *testing.T) {
	dir := project(t)

	out, _, err := execute(t, dir, "query", "SELECT id, name FROM events WHERE id = ?", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "paint")
	assert.Contains(t, out, "(1 rows)")

	out, _, err = execute(t, dir, "query", "--format", "text", "SELECT e.name, t.tag FROM events e, tags(e.id) t ORDER BY e.id, t.tag")
	require.NoError(t, err)
	assert.Equal(t, "name\ttag\nlayout\tslow\nlayout\tui\ndraw\tgpu\n", out)
}

func TestQueryCommand_JSONAndStats(t *testing.T) {
	dir := project(t)

	out, errOut, err := execute(t, dir, "query", "--format", "json", "--stats", "SELECT value FROM series(1, 3)")
	require.NoError(t, err)
	assert.Empty(t, errOut)

	var resp struct {
		Status string      `json:"status"`
		Data   QueryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"value"}, resp.Data.Columns)
	assert.Len(t, resp.Data.Rows, 3)
	assert.NotNil(t, resp.Data.Stats)
}

func TestQueryCommand_Failures(t *testing.T) {
	dir := project(t)

	out, _, err := execute(t, dir, "query", "SELECT value FROM series(1, 5, 0)")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [UPSTREAM_FAILURE]")

	_, _, err = execute(t, dir, "query", "--catalog", "missing", "SELECT 1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, dir, "query", "--format", "xml", "SELECT 1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, dir, "query", "--driver", "duckdb", "SELECT 1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorContains(t, err, "invalid driver")
}

func TestQueryCommand_DefaultCatalogMissing(t *testing.T) {
	out, _, err := execute(t, t.TempDir(), "query", "--format", "text", "SELECT part FROM split('a b', ' ')")
	require.NoError(t, err)
	assert.Equal(t, "part\na\nb\n", out)
}

func TestExplainCommand(t *testing.T) {
	dir := project(t)
	out, _, err := execute(t, dir, "explain", "--format", "text", "SELECT * FROM events WHERE id = 1")
	require.NoError(t, err)
	assert.Contains(t, out, "single;terms=0:eq")
}

func TestTablesCommand(t *testing.T) {
	dir := project(t)
	out, _, err := execute(t, dir, "tables", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data []struct {
			Name   string `json:"name"`
			Source string `json:"source"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	names := make(map[string]string)
	for _, d := range resp.Data {
		names[d.Name] = d.Source
	}
	assert.Contains(t, names, "events")
	assert.Contains(t, names, "tags")
	assert.Contains(t, names, "series")
	assert.NotEqual(t, names["events"], names["tags"])
}

func TestValidateCommand(t *testing.T) {
	dir := project(t)

	out, _, err := execute(t, dir, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Catalog valid (1 tables, 1 functions)")

	bad := filepath.Join(dir, "bad")
	require.NoError(t, os.Mkdir(bad, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, "t.yaml"), []byte(`tables:
  - name: a
    source: cloud
  - name: b
    source: runtime
`), 0644))

	out, _, err = execute(t, dir, "validate", "bad")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E101")
	assert.Contains(t, out, "E104")

	_, _, err = execute(t, dir, "validate", "nowhere")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand(t *testing.T) {
	dir := project(t)
	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.Mkdir(scenarios, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "events.yaml"), []byte(`name: events
description: store table lookups
catalog: ../catalog
database: ../trace.db
steps:
  - query: SELECT name FROM events WHERE id = 3
    expect:
      rows: [[draw]]
`), 0644))

	golden := filepath.Join(dir, "golden")
	out, _, err := execute(t, dir, "test", "scenarios", "--golden", golden, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
	assert.FileExists(t, filepath.Join(golden, "events.golden"))

	_, _, err = execute(t, dir, "test", "scenarios", "--golden", golden)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(golden, "events.golden"), []byte("{}\n"), 0644))
	out, _, err = execute(t, dir, "test", "scenarios", "--golden", golden)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace differs")

	_, _, err = execute(t, dir, "test", "scenarios", "--update")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
