package catalog

import (
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError is an invalid CUE definition, with its source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileTable turns a CUE table struct into a TableDef. The table name is
// the struct's label.
func CompileTable(v cue.Value) (*TableDef, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	def := &TableDef{Name: label(v), Origin: position(v)}
	var err error
	if def.Source, err = optString(v, "source"); err != nil {
		return nil, err
	}
	if def.Source == "" {
		return nil, &CompileError{Field: "source", Message: "source is required", Pos: v.Pos()}
	}
	if def.Columns, err = compileColumns(v, "columns"); err != nil {
		return nil, err
	}
	if def.Rows, err = compileRows(v); err != nil {
		return nil, err
	}
	for field, dst := range map[string]*string{
		"database": &def.Database,
		"from":     &def.From,
		"query":    &def.Query,
		"id":       &def.ID,
	} {
		if *dst, err = optString(v, field); err != nil {
			return nil, err
		}
	}
	if def.Sorted, err = optStrings(v, "sorted"); err != nil {
		return nil, err
	}
	return def, nil
}

// CompileFunction turns a CUE function struct into a FunctionDef.
func CompileFunction(v cue.Value) (*FunctionDef, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	def := &FunctionDef{Name: label(v), Origin: position(v)}
	var err error
	if def.Database, err = optString(v, "database"); err != nil {
		return nil, err
	}
	if def.Query, err = optString(v, "query"); err != nil {
		return nil, err
	}
	if def.Query == "" {
		return nil, &CompileError{Field: "query", Message: "query is required", Pos: v.Pos()}
	}
	if def.Columns, err = compileColumns(v, "columns"); err != nil {
		return nil, err
	}
	if def.Arguments, err = compileColumns(v, "arguments"); err != nil {
		return nil, err
	}
	if ev := v.LookupPath(cue.ParsePath("estimate")); ev.Exists() {
		n, err := ev.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.Estimate = int(n)
	}
	return def, nil
}

func compileColumns(v cue.Value, field string) ([]ColumnDef, error) {
	lv := v.LookupPath(cue.ParsePath(field))
	if !lv.Exists() {
		return nil, nil
	}
	iter, err := lv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var cols []ColumnDef
	for iter.Next() {
		cv := iter.Value()
		name, err := optString(cv, "name")
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, &CompileError{Field: field + ".name", Message: "column name is required", Pos: cv.Pos()}
		}
		col := ColumnDef{Name: name}
		if col.Type, err = optString(cv, "type"); err != nil {
			return nil, err
		}
		if col.ID, err = optBool(cv, "id"); err != nil {
			return nil, err
		}
		if col.Sorted, err = optBool(cv, "sorted"); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func compileRows(v cue.Value) ([][]any, error) {
	rv := v.LookupPath(cue.ParsePath("rows"))
	if !rv.Exists() {
		return nil, nil
	}
	rows, err := rv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out [][]any
	for rows.Next() {
		cells, err := rows.Value().List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var row []any
		for cells.Next() {
			x, err := scalar(cells.Value())
			if err != nil {
				return nil, err
			}
			row = append(row, x)
		}
		out = append(out, row)
	}
	return out, nil
}

// scalar extracts a cell value. CUE integers stay integers.
func scalar(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return n, nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return f, nil
	case cue.StringKind:
		return v.String()
	case cue.BytesKind:
		return v.Bytes()
	case cue.BoolKind:
		return v.Bool()
	}
	return nil, &CompileError{
		Field:   "rows",
		Message: fmt.Sprintf("cell must be a scalar, got %v", v.Kind()),
		Pos:     v.Pos(),
	}
}

func optString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func optStrings(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	var out []string
	if err := fv.Decode(&out); err != nil {
		return nil, formatCUEError(err)
	}
	return out, nil
}

func label(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	name := sels[len(sels)-1].String()
	if unq, err := strconv.Unquote(name); err == nil {
		return unq
	}
	return name
}

func position(v cue.Value) string {
	pos := v.Pos()
	if !pos.IsValid() {
		return ""
	}
	return fmt.Sprintf("%s:%d", pos.Filename(), pos.Line())
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
