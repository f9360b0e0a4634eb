package catalog

import (
	"fmt"
	"strings"

	"github.com/roach88/coltab/internal/table"
	"github.com/roach88/coltab/internal/value"
)

// Source kinds a table definition may name.
const (
	SourceStatic  = "static"
	SourceStore   = "store"
	SourceRuntime = "runtime"
)

// Catalog is the merged content of a catalog directory.
type Catalog struct {
	Dir       string
	Tables    []TableDef
	Functions []FunctionDef

	// Builtins controls registration of the builtin table functions.
	Builtins bool

	// FileCount is the number of catalog files read.
	FileCount int
}

// ColumnDef declares one column.
type ColumnDef struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	ID     bool   `yaml:"id"`
	Sorted bool   `yaml:"sorted"`
}

// TableDef declares one table.
type TableDef struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`

	// static
	Columns []ColumnDef `yaml:"columns"`
	Rows    [][]any     `yaml:"rows"`

	// store; an empty database means the default one
	Database string `yaml:"database"`
	From     string `yaml:"from"`

	// store and runtime
	Query  string   `yaml:"query"`
	ID     string   `yaml:"id"`
	Sorted []string `yaml:"sorted"`

	// Origin is the file position the definition came from.
	Origin string `yaml:"-"`
}

// FunctionDef declares a table-valued function backed by a store query.
type FunctionDef struct {
	Name      string      `yaml:"name"`
	Database  string      `yaml:"database"`
	Query     string      `yaml:"query"`
	Columns   []ColumnDef `yaml:"columns"`
	Arguments []ColumnDef `yaml:"arguments"`
	Estimate  int         `yaml:"estimate"`

	Origin string `yaml:"-"`
}

// DefinitionError reports an invalid table or function definition.
type DefinitionError struct {
	Name    string
	Field   string
	Message string
	Origin  string
}

func (e *DefinitionError) Error() string {
	msg := fmt.Sprintf("%s.%s: %s", e.Name, e.Field, e.Message)
	if e.Origin != "" {
		msg = e.Origin + ": " + msg
	}
	return msg
}

// Kind maps a declared column type to a value kind. An empty type leaves
// the column untyped.
func Kind(typ string) value.Kind {
	if strings.TrimSpace(typ) == "" {
		return value.KindNull
	}
	return value.ParseKind(typ)
}

// Columns converts column definitions to table columns.
func Columns(defs []ColumnDef) []table.Column {
	cols := make([]table.Column, len(defs))
	for i, d := range defs {
		cols[i] = table.Column{Name: d.Name, Type: Kind(d.Type)}
		if d.ID {
			cols[i].Flags |= table.FlagID
		}
		if d.Sorted {
			cols[i].Flags |= table.FlagSorted
		}
	}
	return cols
}

// Validate checks every definition without touching any database.
// Static tables are built in full, so row errors surface here too.
func (c *Catalog) Validate() []error {
	var errs []error
	seen := make(map[string]string)
	claim := func(name, origin string) {
		key := strings.ToLower(name)
		if prev, ok := seen[key]; ok {
			errs = append(errs, &DefinitionError{Name: name, Field: "name", Message: "already defined at " + prev, Origin: origin})
			return
		}
		seen[key] = origin
	}

	for _, t := range c.Tables {
		claim(t.Name, t.Origin)
		errs = append(errs, validateTable(t)...)
	}
	for _, f := range c.Functions {
		claim(f.Name, f.Origin)
		errs = append(errs, validateFunction(f)...)
	}
	return errs
}

func validateTable(t TableDef) []error {
	fail := func(field, format string, args ...any) error {
		return &DefinitionError{Name: t.Name, Field: field, Message: fmt.Sprintf(format, args...), Origin: t.Origin}
	}
	if t.Name == "" {
		return []error{fail("name", "table name is required")}
	}

	var errs []error
	switch t.Source {
	case SourceStatic:
		if len(t.Columns) == 0 {
			errs = append(errs, fail("columns", "static table needs at least one column"))
			break
		}
		if _, err := StaticTable(t); err != nil {
			errs = append(errs, fail("rows", "%v", err))
		}
	case SourceStore:
		if (t.From == "") == (t.Query == "") {
			errs = append(errs, fail("from", "store table needs exactly one of from and query"))
		}
	case SourceRuntime:
		if t.Query == "" {
			errs = append(errs, fail("query", "runtime table needs a query"))
		}
	default:
		errs = append(errs, fail("source", "unknown source %q, want static, store or runtime", t.Source))
	}
	if t.Source != SourceStatic && (len(t.Columns) > 0 || len(t.Rows) > 0) {
		errs = append(errs, fail("columns", "only static tables declare columns and rows"))
	}
	return errs
}

func validateFunction(f FunctionDef) []error {
	fail := func(field, format string, args ...any) error {
		return &DefinitionError{Name: f.Name, Field: field, Message: fmt.Sprintf(format, args...), Origin: f.Origin}
	}
	if f.Name == "" {
		return []error{fail("name", "function name is required")}
	}
	var errs []error
	if f.Query == "" {
		errs = append(errs, fail("query", "function needs a query"))
	}
	if len(f.Columns) == 0 {
		errs = append(errs, fail("columns", "function needs at least one output column"))
	}
	all := append(Columns(f.Columns), Columns(f.Arguments)...)
	if _, err := table.NewSchema(all...); err != nil {
		errs = append(errs, fail("arguments", "%v", err))
	}
	if f.Estimate < 0 {
		errs = append(errs, fail("estimate", "must not be negative"))
	}
	return errs
}

// StaticTable builds the table a static definition describes.
func StaticTable(t TableDef) (*table.Memory, error) {
	schema, err := table.NewSchema(Columns(t.Columns)...)
	if err != nil {
		return nil, err
	}
	b := table.NewBuilder(schema)
	for i, raw := range t.Rows {
		if len(raw) != schema.Len() {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(raw), schema.Len())
		}
		row := make([]value.Value, len(raw))
		for j, r := range raw {
			v, err := value.FromDriver(r)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, schema.Columns[j].Name, err)
			}
			row[j] = v
		}
		if err := b.Append(row...); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return b.Build()
}
