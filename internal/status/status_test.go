package status

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"bare", Errorf(OutOfRange, "column %d", 9), "OUT_OF_RANGE: column 9"},
		{"table", NewNotFound("slices"), "NOT_FOUND: table is not registered (table=slices)"},
		{
			"cause",
			NewUpstreamFailure("series", errors.New("step must be non-zero")),
			"UPSTREAM_FAILURE: table function failed (table=series): step must be non-zero",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestCodeOfWrapped(t *testing.T) {
	err := fmt.Errorf("filter: %w", NewSchemaMismatch("t", "want %d args, got %d", 2, 1))
	assert.Equal(t, SchemaMismatch, CodeOf(err))
	assert.True(t, Is(err, SchemaMismatch))
	assert.False(t, Is(err, NotFound))
	assert.False(t, IsFatal(err))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.False(t, Is(nil, NotFound))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(NewProtocolViolation("filter after close")))
	assert.False(t, IsFatal(NewOutOfRange("eof")))
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("disk gone")
	err := Wrap(UpstreamFailure, cause, "compute")
	assert.ErrorIs(t, err, cause)
}

func TestWithTable(t *testing.T) {
	base := NewOutOfRange("column 3")
	named := base.WithTable("t")
	assert.Empty(t, base.Table)
	assert.Equal(t, "t", named.Table)
}

func TestCodeInMessage(t *testing.T) {
	flat := errors.New("SQL logic error: " + Errorf(UpstreamFailure, "series: step must be non-zero").Error())
	assert.Equal(t, UpstreamFailure, CodeInMessage(flat.Error()))
	assert.Equal(t, Code(""), CodeInMessage("no such table: ghosts"))
}
