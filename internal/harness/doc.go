// Package harness runs YAML scenarios against a fresh engine.
//
// A scenario names a catalog directory, runs a list of query and explain
// steps against the tables it defines and checks each step's result.
// Assertions over the adapter's counters run after the last step.
//
//	name: lookup
//	description: identifier lookups run as single-row scans
//	catalog: ../catalog
//	steps:
//	  - explain: SELECT * FROM slices WHERE id = 3
//	    expect: {plan: "single;terms=0:eq"}
//	  - query: SELECT id, name FROM slices WHERE id = 3
//	    expect: {rows: [[3, slice-3]]}
//	assertions:
//	  - type: stats_min
//	    stats: {single_row: 1}
//
// Query steps are recorded in a trace that RunWithGolden compares
// against testdata/golden/<name>.golden.
package harness
