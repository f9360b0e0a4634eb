package planner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/coltab/internal/table"
)

// Mode selects how a cursor produces rows.
type Mode int

const (
	// ModeTable iterates the base table, a sorted cache, or a computed
	// function table.
	ModeTable Mode = iota

	// ModeSingleRow looks one row up by identifier.
	ModeSingleRow
)

func (m Mode) String() string {
	if m == ModeSingleRow {
		return "single"
	}
	return "table"
}

// Term is one consumed constraint: its column and operator. The value is
// supplied later as a Filter argument. An equality term on a hidden
// column binds a table-function argument instead of filtering.
type Term struct {
	Column int
	Op     table.Op
}

// Strategy is the plan chosen by BestIndex and replayed by Filter.
// Filter receives exactly one argument per term, in term order.
type Strategy struct {
	Mode Mode

	// Terms lists the consumed constraints in engine constraint order.
	Terms []Term

	// Orders is the requested output order.
	Orders []table.Order

	// Ordered reports that rows come out in Orders without sorting.
	Ordered bool
}

// ArgCount returns the number of Filter arguments the strategy expects.
func (s Strategy) ArgCount() int {
	return len(s.Terms)
}

// EqualityColumns returns the columns of schema constrained by equality,
// in term order, skipping function arguments.
func (s Strategy) EqualityColumns(schema table.Schema) []int {
	var out []int
	for _, t := range s.Terms {
		if t.Op == table.OpEQ && !isHidden(schema, t.Column) {
			out = append(out, t.Column)
		}
	}
	return out
}

// Validate checks every column the strategy names exists in schema.
func (s Strategy) Validate(schema table.Schema) error {
	for _, t := range s.Terms {
		if t.Column < 0 || t.Column >= schema.Len() {
			return fmt.Errorf("term column %d outside schema of %d columns", t.Column, schema.Len())
		}
		if schema.Columns[t.Column].IsHidden() && t.Op != table.OpEQ {
			return fmt.Errorf("argument column %d bound with %s", t.Column, t.Op)
		}
	}
	for _, o := range s.Orders {
		if o.Column < 0 || o.Column >= schema.Len() || schema.Columns[o.Column].IsHidden() {
			return fmt.Errorf("order column %d is not an output column", o.Column)
		}
	}
	return nil
}

func isHidden(schema table.Schema, col int) bool {
	return col >= 0 && col < schema.Len() && schema.Columns[col].IsHidden()
}

var opCodes = map[table.Op]string{
	table.OpEQ:        "eq",
	table.OpNE:        "ne",
	table.OpLT:        "lt",
	table.OpLE:        "le",
	table.OpGT:        "gt",
	table.OpGE:        "ge",
	table.OpIs:        "is",
	table.OpIsNot:     "isnot",
	table.OpIsNull:    "isnull",
	table.OpIsNotNull: "notnull",
}

var codeOps = func() map[string]table.Op {
	m := make(map[string]table.Op, len(opCodes))
	for op, code := range opCodes {
		m[code] = op
	}
	return m
}()

// Encode renders s as the engine's index string, for example
//
//	table;terms=3:eq,0:eq,2:lt;orders=1,-2;ordered
//
// The encoding is canonical: equal strategies encode identically.
func (s Strategy) Encode() string {
	parts := []string{s.Mode.String()}
	if len(s.Terms) > 0 {
		terms := make([]string, len(s.Terms))
		for i, t := range s.Terms {
			terms[i] = fmt.Sprintf("%d:%s", t.Column, opCodes[t.Op])
		}
		parts = append(parts, "terms="+strings.Join(terms, ","))
	}
	if len(s.Orders) > 0 {
		orders := make([]string, len(s.Orders))
		for i, o := range s.Orders {
			if o.Desc {
				orders[i] = "-" + strconv.Itoa(o.Column)
			} else {
				orders[i] = strconv.Itoa(o.Column)
			}
		}
		parts = append(parts, "orders="+strings.Join(orders, ","))
	}
	if s.Ordered {
		parts = append(parts, "ordered")
	}
	return strings.Join(parts, ";")
}

// String returns the encoded form.
func (s Strategy) String() string { return s.Encode() }

// ParseStrategy decodes an index string produced by Encode.
func ParseStrategy(encoded string) (Strategy, error) {
	fields := strings.Split(encoded, ";")
	var s Strategy
	switch fields[0] {
	case "single":
		s.Mode = ModeSingleRow
	case "table":
		s.Mode = ModeTable
	default:
		return Strategy{}, fmt.Errorf("unknown strategy mode %q", fields[0])
	}

	for _, f := range fields[1:] {
		key, val, _ := strings.Cut(f, "=")
		var err error
		switch key {
		case "terms":
			s.Terms, err = parseTerms(val)
		case "orders":
			s.Orders, err = parseOrders(val)
		case "ordered":
			s.Ordered = true
		default:
			err = fmt.Errorf("unknown field %q", key)
		}
		if err != nil {
			return Strategy{}, fmt.Errorf("strategy %q: %w", encoded, err)
		}
	}
	return s, nil
}

func parseTerms(val string) ([]Term, error) {
	var out []Term
	for _, item := range strings.Split(val, ",") {
		colStr, code, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("malformed term %q", item)
		}
		col, err := strconv.Atoi(colStr)
		if err != nil {
			return nil, fmt.Errorf("term column %q: %w", colStr, err)
		}
		op, ok := codeOps[code]
		if !ok {
			return nil, fmt.Errorf("unknown operator %q", code)
		}
		out = append(out, Term{Column: col, Op: op})
	}
	return out, nil
}

func parseOrders(val string) ([]table.Order, error) {
	var out []table.Order
	for _, item := range strings.Split(val, ",") {
		desc := strings.HasPrefix(item, "-")
		col, err := strconv.Atoi(strings.TrimPrefix(item, "-"))
		if err != nil {
			return nil, fmt.Errorf("order column %q: %w", item, err)
		}
		out = append(out, table.Order{Column: col, Desc: desc})
	}
	return out, nil
}
