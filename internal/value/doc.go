// Package value defines the closed set of cell values that flow between
// columnar tables and the SQL engine.
//
// A Value is exactly one of Null, Int, Float, Text or Blob. Conversion to
// and from database/sql/driver.Value is lossless for every variant, so a
// value read from a table and handed to the engine compares equal to the
// value the table stored.
//
// Ordering follows SQLite: NULL sorts before numbers, numbers before text,
// text before blobs. Int and Float compare numerically with each other.
package value
