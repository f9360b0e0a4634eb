package planner

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Config holds the heuristic constants of the cost model and the cursor
// caching policy. The values carry no meaning beyond their relative size.
type Config struct {
	// FixedCost is charged once per scan.
	FixedCost float64 `koanf:"fixed_cost"`

	// PerRowCost is charged for every row the scan produces.
	PerRowCost float64 `koanf:"per_row_cost"`

	// FilterRowCost is charged per row examined by a linear filter.
	FilterRowCost float64 `koanf:"filter_row_cost"`

	// SingleRowCost is the total cost of an identifier lookup.
	SingleRowCost float64 `koanf:"single_row_cost"`

	// EqualitySelectivityFloor bounds equality selectivity from below
	// on non-identifier columns.
	EqualitySelectivityFloor float64 `koanf:"equality_selectivity_floor"`

	// RangeSelectivity is the fraction of rows kept by <, <=, > and >=.
	RangeSelectivity float64 `koanf:"range_selectivity"`

	// OtherSelectivity is the fraction kept by !=, IS, IS NOT and the
	// null tests.
	OtherSelectivity float64 `koanf:"other_selectivity"`

	// SortCostFactor scales the n*log2(n) sort cost per order term.
	SortCostFactor float64 `koanf:"sort_cost_factor"`

	// UnboundArgumentCost is reported for table-function plans missing
	// an argument, steering the engine towards plans that bind them all.
	UnboundArgumentCost float64 `koanf:"unbound_argument_cost"`

	// CacheThreshold is the number of consecutive probes with the same
	// strategy after which a cursor builds a sorted cache.
	CacheThreshold int `koanf:"cache_threshold"`
}

// DefaultConfig returns the default tuning.
func DefaultConfig() Config {
	return Config{
		FixedCost:                1000,
		PerRowCost:               2,
		FilterRowCost:            1,
		SingleRowCost:            10,
		EqualitySelectivityFloor: 0.01,
		RangeSelectivity:         1.0 / 3,
		OtherSelectivity:         0.5,
		SortCostFactor:           1,
		UnboundArgumentCost:      1e12,
		CacheThreshold:           10,
	}
}

// Validate checks every constant is in range.
func (c Config) Validate() error {
	var result *multierror.Error
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"fixed_cost", c.FixedCost},
		{"per_row_cost", c.PerRowCost},
		{"filter_row_cost", c.FilterRowCost},
		{"single_row_cost", c.SingleRowCost},
		{"sort_cost_factor", c.SortCostFactor},
		{"unbound_argument_cost", c.UnboundArgumentCost},
	} {
		if f.v <= 0 {
			result = multierror.Append(result, fmt.Errorf("%s must be positive, got %g", f.name, f.v))
		}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"equality_selectivity_floor", c.EqualitySelectivityFloor},
		{"range_selectivity", c.RangeSelectivity},
		{"other_selectivity", c.OtherSelectivity},
	} {
		if f.v <= 0 || f.v > 1 {
			result = multierror.Append(result, fmt.Errorf("%s must be in (0, 1], got %g", f.name, f.v))
		}
	}
	if c.SingleRowCost >= c.FixedCost {
		result = multierror.Append(result, fmt.Errorf("single_row_cost %g must be below fixed_cost %g", c.SingleRowCost, c.FixedCost))
	}
	if c.CacheThreshold < 0 {
		result = multierror.Append(result, fmt.Errorf("cache_threshold must not be negative, got %d", c.CacheThreshold))
	}
	return result.ErrorOrNil()
}
