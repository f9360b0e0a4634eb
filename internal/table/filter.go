package table

import (
	"fmt"

	"github.com/roach88/coltab/internal/value"
)

// Op is a constraint operator as reported by the engine.
type Op int

const (
	OpUnknown Op = iota
	OpEQ
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE
	OpIs
	OpIsNot
	OpIsNull
	OpIsNotNull
	OpLike
	OpGlob
	OpMatch
	OpRegexp
	OpFunction
	OpLimit
	OpOffset
)

var opNames = map[Op]string{
	OpUnknown:   "?",
	OpEQ:        "=",
	OpNE:        "!=",
	OpLT:        "<",
	OpLE:        "<=",
	OpGT:        ">",
	OpGE:        ">=",
	OpIs:        "IS",
	OpIsNot:     "IS NOT",
	OpIsNull:    "IS NULL",
	OpIsNotNull: "IS NOT NULL",
	OpLike:      "LIKE",
	OpGlob:      "GLOB",
	OpMatch:     "MATCH",
	OpRegexp:    "REGEXP",
	OpFunction:  "FUNCTION",
	OpLimit:     "LIMIT",
	OpOffset:    "OFFSET",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Filterable reports whether the store evaluates o itself. Pattern
// matching, functions and paging are left to the engine.
func (o Op) Filterable() bool {
	switch o {
	case OpEQ, OpNE, OpLT, OpLE, OpGT, OpGE, OpIs, OpIsNot, OpIsNull, OpIsNotNull:
		return true
	}
	return false
}

// IsRange reports whether o is an ordering comparison.
func (o Op) IsRange() bool {
	switch o {
	case OpLT, OpLE, OpGT, OpGE:
		return true
	}
	return false
}

// Filter restricts column Column to values satisfying Op against Value.
// Value is ignored by OpIsNull and OpIsNotNull.
type Filter struct {
	Column int
	Op     Op
	Value  value.Value
}

func (f Filter) String() string {
	switch f.Op {
	case OpIsNull, OpIsNotNull:
		return fmt.Sprintf("c%d %s", f.Column, f.Op)
	}
	return fmt.Sprintf("c%d %s %v", f.Column, f.Op, f.Value)
}

// Match reports whether v satisfies the filter using SQL three-valued
// logic collapsed to false: comparisons against NULL never match.
func (f Filter) Match(v value.Value) bool {
	switch f.Op {
	case OpIsNull:
		return value.IsNull(v)
	case OpIsNotNull:
		return !value.IsNull(v)
	case OpIs:
		if value.IsNull(v) || value.IsNull(f.Value) {
			return value.IsNull(v) && value.IsNull(f.Value)
		}
		return value.Compare(v, f.Value) == 0
	case OpIsNot:
		return !Filter{Op: OpIs, Value: f.Value}.Match(v)
	}
	if value.IsNull(v) || value.IsNull(f.Value) {
		return false
	}
	c := value.Compare(v, f.Value)
	switch f.Op {
	case OpEQ:
		return c == 0
	case OpNE:
		return c != 0
	case OpLT:
		return c < 0
	case OpLE:
		return c <= 0
	case OpGT:
		return c > 0
	case OpGE:
		return c >= 0
	}
	return false
}

// Order requests ordering by Column.
type Order struct {
	Column int
	Desc   bool
}

func (o Order) String() string {
	if o.Desc {
		return fmt.Sprintf("c%d desc", o.Column)
	}
	return fmt.Sprintf("c%d", o.Column)
}
