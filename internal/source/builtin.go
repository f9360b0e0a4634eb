package source

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/coltab/internal/table"
	"github.com/roach88/coltab/internal/value"
)

// MaxSeriesRows bounds the rows a single series call may produce.
const MaxSeriesRows = 10_000_000

// Series generates integers from start to stop inclusive by step.
//
//	SELECT value FROM series WHERE start = 1 AND stop = 10 AND step = 3
//	SELECT value FROM series(1, 10, 3)
type Series struct{}

var _ Generator = Series{}

func (Series) Columns() []table.Column {
	return []table.Column{{Name: "value", Type: value.KindInt}}
}

func (Series) Arguments() []table.Column {
	return []table.Column{
		{Name: "start", Type: value.KindInt},
		{Name: "stop", Type: value.KindInt},
		{Name: "step", Type: value.KindInt},
	}
}

func (Series) EstimateRows() int { return 1024 }

func (Series) Compute(args []value.Value) (table.Table, error) {
	bounds := [3]int64{0, 0, 1}
	for i, name := range []string{"start", "stop", "step"} {
		// An unbound step counts by one.
		if i == 2 && value.IsNull(args[i]) {
			continue
		}
		v, ok := value.ApplyAffinity(args[i], value.KindInt).(value.Int)
		if !ok {
			return nil, fmt.Errorf("series: %s must be an integer, got %v", name, args[i])
		}
		bounds[i] = int64(v)
	}
	start, stop, step := bounds[0], bounds[1], bounds[2]
	if step == 0 {
		return nil, errors.New("series: step must be non-zero")
	}

	flags := table.FlagID
	if step > 0 {
		flags |= table.FlagSorted
	}
	b := table.NewBuilder(table.MustSchema(table.Column{Name: "value", Type: value.KindInt, Flags: flags}))
	for v := start; (step > 0 && v <= stop) || (step < 0 && v >= stop); v += step {
		if b.Len() >= MaxSeriesRows {
			return nil, fmt.Errorf("series: more than %d rows", MaxSeriesRows)
		}
		if err := b.Append(value.Int(v)); err != nil {
			return nil, err
		}
		// Stop before the increment overflows.
		if (step > 0 && v > stop-step) || (step < 0 && v < stop-step) {
			break
		}
	}
	return b.Build()
}

// Split breaks text on a delimiter, one row per part.
//
//	SELECT idx, part FROM split('a,b,c', ',')
type Split struct{}

var _ Generator = Split{}

func (Split) Columns() []table.Column {
	return []table.Column{
		{Name: "idx", Type: value.KindInt, Flags: table.FlagID | table.FlagSorted},
		{Name: "part", Type: value.KindText},
	}
}

func (Split) Arguments() []table.Column {
	return []table.Column{
		{Name: "input", Type: value.KindText},
		{Name: "delimiter", Type: value.KindText},
	}
}

func (Split) EstimateRows() int { return 16 }

func (Split) Compute(args []value.Value) (table.Table, error) {
	b := table.NewBuilder(table.MustSchema(Split{}.Columns()...))
	if value.IsNull(args[0]) {
		return b.Build()
	}
	input, ok := value.ApplyAffinity(args[0], value.KindText).(value.Text)
	if !ok {
		return nil, fmt.Errorf("split: input must be text, got %v", args[0])
	}
	delim, ok := value.ApplyAffinity(args[1], value.KindText).(value.Text)
	if !ok || delim == "" {
		return nil, errors.New("split: delimiter must be non-empty text")
	}
	for i, part := range strings.Split(string(input), string(delim)) {
		if err := b.Append(value.Int(int64(i)), value.Text(part)); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// Builtins returns the generators every engine registers by name.
func Builtins() map[string]Generator {
	return map[string]Generator{
		"series": Series{},
		"split":  Split{},
	}
}
