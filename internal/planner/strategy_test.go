package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/coltab/internal/table"
)

func TestStrategyEncodeParse(t *testing.T) {
	tests := []struct {
		name    string
		s       Strategy
		encoded string
	}{
		{"empty scan", Strategy{}, "table"},
		{"single", Strategy{Mode: ModeSingleRow, Terms: []Term{{Column: 0, Op: table.OpEQ}}}, "single;terms=0:eq"},
		{
			"everything",
			Strategy{
				Terms: []Term{
					{Column: 4, Op: table.OpEQ},
					{Column: 1, Op: table.OpLE},
					{Column: 2, Op: table.OpIsNotNull},
					{Column: 3, Op: table.OpIsNot},
				},
				Orders:  []table.Order{{Column: 1}, {Column: 2, Desc: true}},
				Ordered: true,
			},
			"table;terms=4:eq,1:le,2:notnull,3:isnot;orders=1,-2;ordered",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.encoded, tt.s.Encode())
			back, err := ParseStrategy(tt.encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.s.Encode(), back.Encode())
			assert.Equal(t, tt.s.Mode, back.Mode)
			assert.Equal(t, len(tt.s.Terms), back.ArgCount())
		})
	}
}

func TestParseStrategyRejects(t *testing.T) {
	for _, bad := range []string{
		"",
		"bogus",
		"table;terms=0",
		"table;terms=x:eq",
		"table;terms=0:like",
		"table;orders=a",
		"table;limit=3",
	} {
		_, err := ParseStrategy(bad)
		assert.Error(t, err, bad)
	}
}

func TestStrategyValidate(t *testing.T) {
	schema := table.MustSchema(
		table.Column{Name: "value"},
		table.Column{Name: "start", Flags: table.FlagHidden},
	)
	ok := Strategy{Terms: []Term{{Column: 1, Op: table.OpEQ}, {Column: 0, Op: table.OpGT}}, Orders: []table.Order{{Column: 0}}}
	assert.NoError(t, ok.Validate(schema))
	assert.Equal(t, []int(nil), ok.EqualityColumns(schema))

	assert.Error(t, Strategy{Terms: []Term{{Column: 5, Op: table.OpEQ}}}.Validate(schema))
	assert.Error(t, Strategy{Terms: []Term{{Column: 1, Op: table.OpLT}}}.Validate(schema))
	assert.Error(t, Strategy{Orders: []table.Order{{Column: 1}}}.Validate(schema))
	assert.Error(t, Strategy{Orders: []table.Order{{Column: -1}}}.Validate(schema))
}
