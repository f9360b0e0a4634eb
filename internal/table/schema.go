package table

import (
	"fmt"
	"strings"

	"github.com/roach88/coltab/internal/status"
	"github.com/roach88/coltab/internal/value"
)

// ColumnFlag carries the per-column properties the planner relies on.
type ColumnFlag uint8

const (
	// FlagID marks the unique, non-null integer identifier column.
	FlagID ColumnFlag = 1 << iota

	// FlagSorted marks a column whose values are in ascending order.
	FlagSorted

	// FlagHidden marks a table-valued function argument column. Hidden
	// columns are not returned by SELECT * and are bound through the
	// function call syntax.
	FlagHidden
)

// Column describes one column of a Schema.
type Column struct {
	Name  string
	Type  value.Kind
	Flags ColumnFlag
}

// IsID reports whether the column is the identifier column.
func (c Column) IsID() bool { return c.Flags&FlagID != 0 }

// IsSorted reports whether the column is in ascending order.
func (c Column) IsSorted() bool { return c.Flags&FlagSorted != 0 }

// IsHidden reports whether the column is a function argument.
func (c Column) IsHidden() bool { return c.Flags&FlagHidden != 0 }

// Schema is the immutable, ordered column list of a table.
type Schema struct {
	Columns []Column
}

// NewSchema validates cols and returns a Schema.
//
// Column names must be non-empty and unique ignoring case. At most one
// column may carry FlagID and it must be an INTEGER column.
func NewSchema(cols ...Column) (Schema, error) {
	seen := make(map[string]bool, len(cols))
	ids := 0
	for _, c := range cols {
		if c.Name == "" {
			return Schema{}, status.NewSchemaMismatch("", "column name must not be empty")
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			return Schema{}, status.NewSchemaMismatch("", "duplicate column %q", c.Name)
		}
		seen[key] = true
		if c.IsID() {
			ids++
			if c.Type != value.KindInt {
				return Schema{}, status.NewSchemaMismatch("", "identifier column %q must be INTEGER, got %s", c.Name, c.Type)
			}
		}
	}
	if ids > 1 {
		return Schema{}, status.NewSchemaMismatch("", "at most one identifier column allowed, got %d", ids)
	}
	return Schema{Columns: append([]Column(nil), cols...)}, nil
}

// MustSchema is NewSchema for fixtures.
func MustSchema(cols ...Column) Schema {
	s, err := NewSchema(cols...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of columns.
func (s Schema) Len() int { return len(s.Columns) }

// Index returns the position of the named column, ignoring case.
func (s Schema) Index(name string) (int, bool) {
	for i, c := range s.Columns {
		if strings.EqualFold(c.Name, name) {
			return i, true
		}
	}
	return -1, false
}

// IDColumn returns the identifier column index, or -1.
func (s Schema) IDColumn() int {
	for i, c := range s.Columns {
		if c.IsID() {
			return i
		}
	}
	return -1
}

// Hidden returns the indices of hidden columns in declaration order.
func (s Schema) Hidden() []int {
	var out []int
	for i, c := range s.Columns {
		if c.IsHidden() {
			out = append(out, i)
		}
	}
	return out
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// WithFlags returns a copy of s with flags replaced on column col.
func (s Schema) WithFlags(col int, flags ColumnFlag) Schema {
	cols := append([]Column(nil), s.Columns...)
	cols[col].Flags = flags
	return Schema{Columns: cols}
}

// DeclareSQL renders the CREATE TABLE statement handed to the engine's
// declare call. The table name is ignored by the engine.
func (s Schema) DeclareSQL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE x(")
	for i, c := range s.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(QuoteIdent(c.Name))
		if c.Type != value.KindNull {
			b.WriteByte(' ')
			b.WriteString(c.Type.String())
		}
		if c.IsHidden() {
			b.WriteString(" HIDDEN")
		}
	}
	b.WriteString(")")
	return b.String()
}

// String renders the schema compactly for logs.
func (s Schema) String() string {
	parts := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		parts[i] = fmt.Sprintf("%s %s%s", c.Name, c.Type, c.flagSuffix())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (c Column) flagSuffix() string {
	var out []string
	if c.IsID() {
		out = append(out, "id")
	}
	if c.IsSorted() {
		out = append(out, "sorted")
	}
	if c.IsHidden() {
		out = append(out, "hidden")
	}
	if len(out) == 0 {
		return ""
	}
	return " [" + strings.Join(out, ",") + "]"
}

// QuoteIdent quotes an SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
