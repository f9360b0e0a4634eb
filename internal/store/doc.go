// Package store reads external SQLite database files into coltab tables.
//
// A Store is a read-only handle on one database file, opened through
// github.com/mattn/go-sqlite3. It is the input side of runtime tables:
// whole tables or query results are read into table.Memory values that an
// engine registers as runtime sources, and SQL queries with parameters can
// back table-valued functions.
//
// # Database Configuration
//
//   - mode=ro: the file is never written
//   - query_only=ON: rejects writes even through attached databases
//   - 5-second busy timeout for files another process is writing
//
// Results are read in full before any table is built; nothing holds a
// cursor open on the file once a call returns.
package store
