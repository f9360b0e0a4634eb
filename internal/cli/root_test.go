package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/coltab/internal/testutil"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "coltab", cmd.Use)
	assert.Contains(t, cmd.Long, "virtual tables")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"query", "explain", "tables", "validate", "test"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "Command %s should exist", name)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "table", format.DefValue)

	for _, name := range []string{"config", "catalog", "database", "driver", "cache-threshold"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

// execute runs the CLI in dir and returns stdout, stderr and the error.
func execute(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(dir)

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// project writes a catalog over a seeded store file into a temp dir.
func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "catalog"), 0755))
	testutil.SeedDatabase(t, dir, testutil.TraceSchema...)

	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	write("catalog/trace.yaml", `tables:
  - name: events
    source: store
    from: events
functions:
  - name: tags
    query: SELECT tag FROM tags WHERE event_id = ? ORDER BY tag
    columns: [{name: tag, type: TEXT}]
    arguments: [{name: event, type: INTEGER}]
`)
	write("coltab.yaml", "database: trace.db\n")
	return dir
}
