package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/coltab/internal/status"
	"github.com/roach88/coltab/internal/table"
	"github.com/roach88/coltab/internal/value"
)

// ColumnInfo describes one column of a stored table as reported by
// PRAGMA table_info.
type ColumnInfo struct {
	Name string
	Type string
	// PK is the column's 1-based position in the primary key, or 0.
	PK int
}

// Tables returns the user tables and views in the database, by name.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		ORDER BY name COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return names, nil
}

// Columns returns the declared columns of the named table.
// Returns NotFound if the table does not exist.
func (s *Store) Columns(ctx context.Context, name string) ([]ColumnInfo, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+table.QuoteIdent(name)+")")
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", name, err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var (
			cid      int
			c        ColumnInfo
			notNull  int
			defValue any
		)
		if err := rows.Scan(&cid, &c.Name, &c.Type, &notNull, &defValue, &c.PK); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info: %w", err)
	}
	if len(cols) == 0 {
		return nil, status.NewNotFound(name)
	}
	return cols, nil
}

// idColumn returns the single INTEGER primary key column, which SQLite
// stores as the rowid, or "".
func idColumn(cols []ColumnInfo) string {
	var pk []ColumnInfo
	for _, c := range cols {
		if c.PK > 0 {
			pk = append(pk, c)
		}
	}
	if len(pk) == 1 && strings.EqualFold(strings.TrimSpace(pk[0].Type), "INTEGER") {
		return pk[0].Name
	}
	return ""
}

// ReadTable reads the whole of the named table or view.
//
// A table whose primary key is a single INTEGER column is read in key
// order and the key becomes the identifier column, so lookups by key run
// as single-row scans.
func (s *Store) ReadTable(ctx context.Context, name string) (*table.Memory, error) {
	cols, err := s.Columns(ctx, name)
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + table.QuoteIdent(name)
	id := idColumn(cols)
	if id != "" {
		query += " ORDER BY " + table.QuoteIdent(id)
	}
	m, err := s.Materialize(ctx, query)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return m, nil
	}
	m, err = table.Reflag(m, id, []string{id})
	if err != nil {
		return nil, status.Wrap(status.SchemaMismatch, err, "primary key").WithTable(name)
	}
	return m, nil
}

// Materialize runs query and reads every row into a table.
func (s *Store) Materialize(ctx context.Context, query string, args ...any) (*table.Memory, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, status.Wrap(status.UpstreamFailure, err, "query %s", s.describe())
	}
	m, err := table.FromRows(rows)
	if err != nil {
		return nil, status.Wrap(status.UpstreamFailure, err, "read %s", s.describe())
	}
	return m, nil
}

func (s *Store) describe() string {
	if s.path == "" {
		return "store"
	}
	return s.path
}

// driverArgs converts function arguments to query parameters.
func driverArgs(args []value.Value) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = value.ToDriver(a)
	}
	return out
}
