package sqlitevtab

import (
	"database/sql/driver"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/coltab/internal/status"
	"github.com/roach88/coltab/internal/value"
)

func TestFromDriverArgs(t *testing.T) {
	got, err := fromDriverArgs([]driver.Value{nil, int64(7), 2.5, "naïve", []byte{1}})
	require.NoError(t, err)
	assert.Equal(t, []value.Value{
		value.Null{}, value.Int(7), value.Float(2.5), value.Text("naïve"), value.Blob{1},
	}, got)

	got, err = fromDriverArgs(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFromDriverArgs_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []driver.Value
		code status.Code
		msg  string
	}{
		{"uint64 above int64", []driver.Value{int64(1), uint64(math.MaxInt64) + 1}, status.OutOfRange, "filter argument 1"},
		{"unsupported type", []driver.Value{struct{}{}}, status.ProtocolViolation, "filter argument 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fromDriverArgs(tt.args)
			require.Error(t, err)
			assert.True(t, status.Is(err, tt.code), "got %v", err)
			assert.ErrorContains(t, err, tt.msg)
		})
	}

	// The largest representable uint64 still converts.
	got, err := fromDriverArgs([]driver.Value{uint64(math.MaxInt64)})
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.Int(math.MaxInt64)}, got)
}

func TestLookup(t *testing.T) {
	b, ok := Lookup(DefaultBinding)
	require.True(t, ok)
	assert.NotNil(t, b)
	assert.Contains(t, Bindings(), DefaultBinding)

	_, ok = Lookup("duckdb")
	assert.False(t, ok)
}
