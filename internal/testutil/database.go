package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// TraceSchema seeds a small trace database: events keyed by an INTEGER
// primary key, tags per event and a view over both.
var TraceSchema = []string{
	`CREATE TABLE events (id INTEGER PRIMARY KEY, name TEXT, dur REAL)`,
	`INSERT INTO events (id, name, dur) VALUES (3, 'draw', 1.5), (1, 'layout', 2), (2, 'paint', NULL)`,
	`CREATE TABLE tags (event_id INT, tag TEXT)`,
	`INSERT INTO tags VALUES (1, 'slow'), (1, 'ui'), (3, 'gpu')`,
	`CREATE VIEW slow AS SELECT e.id, e.name FROM events e JOIN tags t ON t.event_id = e.id WHERE t.tag = 'slow'`,
}

// SeedDatabase writes a database file named trace.db under dir, or a
// fresh temp dir when dir is empty, runs stmts against it and returns its
// path.
func SeedDatabase(t testing.TB, dir string, stmts ...string) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	path := filepath.Join(dir, "trace.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err, s)
	}
	return path
}
