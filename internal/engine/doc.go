// Package engine owns one SQLite session with the coltab virtual-table
// module installed.
//
// An Engine holds a single SQLite connection (modernc.org/sqlite unless
// WithBinding picks another driver), the registry of
// registered tables and the vtab.Module serving them. Tables are declared
// through Go calls (CreateStatic, CreateFunction, CreateRuntime,
// Materialize) and then queried with ordinary SQL:
//
//	eng, _ := engine.Open(ctx)
//	defer eng.Close()
//	_ = eng.CreateStatic(ctx, "slices", slices)
//	_ = eng.RegisterBuiltins(ctx)
//	res, _ := eng.Query(ctx, `SELECT s.name, v.value
//		FROM slices s JOIN series(1, 10) v ON v.value = s.id`)
//
// Creating a table stages its source on the module and runs CREATE
// VIRTUAL TABLE, so the registry entry and the SQLite schema entry always
// appear together. DROP TABLE goes through the module's Destroy.
//
// Thread-safety: an Engine serialises its own calls. The connection pool
// is pinned to one connection, since an in-memory database lives and dies
// with its connection.
package engine
