// Package vtab implements the virtual-table protocol over the columnar
// store, independent of any particular SQLite binding.
//
// The protocol has three levels, each owned by the one above:
//
//	Module  - Create and Connect bind an engine-side table to a registered Source
//	Table   - BestIndex plans a scan; Open starts one; Disconnect and Destroy release
//	Cursor  - Filter, Next, Eof, Column and Rowid iterate the rows of one scan
//
// Sources are staged on the Module under a table name before the engine's
// CREATE VIRTUAL TABLE statement reaches Create. Every entry point returns
// a *status.Error on failure and never panics across the boundary.
//
// A Cursor counts consecutive Filter calls that share a strategy. Past the
// configured threshold it builds a copy of the base table sorted by the
// probed equality column, so later probes become binary searches. The cache
// lives until the cursor is closed.
package vtab
