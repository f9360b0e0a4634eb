// Package catalog loads table definitions from CUE and YAML files and
// registers them with an engine.
//
// A catalog directory holds any mix of .cue and .yaml files. CUE files
// declare tables and functions as labelled structs:
//
//	table: slices: {
//		source: "static"
//		columns: [
//			{name: "id", type: "INTEGER", id: true},
//			{name: "ts", type: "INTEGER", sorted: true},
//			{name: "name", type: "TEXT"},
//		]
//		rows: [[1, 100, "draw"], [2, 250, "paint"]]
//	}
//
//	function: tags: {
//		database:  "trace.db"
//		query:     "SELECT tag FROM tags WHERE event_id = ?"
//		columns:   [{name: "tag", type: "TEXT"}]
//		arguments: [{name: "event", type: "INTEGER"}]
//	}
//
// YAML files carry the same fields as lists under tables: and functions:,
// each entry with a name.
//
// Table sources:
//
//	static   columns and rows given inline
//	store    read from an external database file, by table (from) or query
//	runtime  a query over tables registered earlier in the catalog
//
// Runtime tables are materialised in declaration order, after every other
// table and function, so they may refer to anything but later runtime
// tables.
package catalog
