// Package table is the in-process columnar store exposed through the
// virtual-table adapter.
//
// A Table is read-only: a Schema, a row count, and random cell access.
// Memory is the column-major implementation used for static and runtime
// tables and for the sorted caches built by cursors. Scan evaluates a set
// of filters and orderings against any Table, using binary search on
// sorted columns and the identifier index where it can.
package table
