// Package planner estimates the cost of scanning a columnar table under a
// set of engine-proposed constraints and orderings, and records the chosen
// scan strategy in a form that survives the round trip through the engine.
//
// Estimation is a pure function of the schema, the row count and the
// engine's request. It never fails: when no cheap plan exists it returns
// a full-scan estimate.
//
// Cost model, per plan:
//
//	cost = FixedCost + filter cost + PerRowCost*rows + sort cost
//
// Filters are applied in a fixed order: sorted-column comparisons first
// (binary search, log2 of the current row count each), then equality,
// range and remaining operators (linear in the current row count each).
// Each filter multiplies the running row count by its selectivity.
// Single-row identifier lookups bypass the model and cost SingleRowCost.
package planner
