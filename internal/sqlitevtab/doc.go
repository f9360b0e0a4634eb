// Package sqlitevtab binds a vtab.Module to a concrete SQLite driver.
//
// The default binding targets modernc.org/sqlite, the pure Go driver
// registered as "sqlite". Modules registered there are process-global and
// installed on every connection opened afterwards, so Register must run
// before the first connection of a *sql.DB that uses the module.
//
// Builds with the sqlite_vtable tag also carry the "mattn" binding for
// github.com/mattn/go-sqlite3, which registers one driver per module.
// Lookup resolves a binding by name.
package sqlitevtab
