package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	return resp
}

func TestOutputFormatter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: FormatJSON, Writer: buf}

	require.NoError(t, f.Success(map[string]int{"tables": 3}))
	resp := decode(t, buf)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"tables": float64(3)}, resp.Data)
	assert.Nil(t, resp.Error)

	buf.Reset()
	require.NoError(t, f.Error("NOT_FOUND", "no such table: spans", []string{"catalog/trace.yaml"}))
	resp = decode(t, buf)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "no such table: spans", resp.Error.Message)
	assert.Equal(t, []any{"catalog/trace.yaml"}, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &OutputFormatter{Format: FormatText, Writer: buf, Verbose: tt.verbose}

			require.NoError(t, f.Error("E102", "columns: missing name", "tables.cue:4"))
			assert.Contains(t, buf.String(), "Error [E102]: columns: missing name\n")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details: tables.cue:4")
			} else {
				assert.NotContains(t, buf.String(), "Details")
			}
		})
	}
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out, diag := &bytes.Buffer{}, &bytes.Buffer{}
	f := &OutputFormatter{Format: FormatJSON, Writer: out, ErrWriter: diag, Verbose: true}

	f.VerboseLog("loaded %d table(s)", 2)
	assert.Empty(t, out.String())
	assert.Equal(t, "loaded 2 table(s)\n", diag.String())

	f.Verbose = false
	f.VerboseLog("dropped")
	assert.Equal(t, "loaded 2 table(s)\n", diag.String())

	f.ErrWriter = nil
	assert.Same(t, out, f.GetErrWriter())
}

func TestOutputFormatter_Rows(t *testing.T) {
	header := []string{"id", "name"}
	rows := [][]string{{"1", "draw"}, {"2", "NULL"}}

	t.Run("table", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: FormatTable, Writer: buf}
		require.NoError(t, f.Rows(header, rows, nil))
		out := buf.String()
		assert.Contains(t, out, "draw")
		assert.Contains(t, out, "NULL")
		assert.Contains(t, out, "(2 rows)")
	})

	t.Run("empty table", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: FormatTable, Writer: buf}
		require.NoError(t, f.Rows(header, nil, nil))
		assert.Equal(t, "(0 rows)\n", buf.String())
	})

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: FormatText, Writer: buf}
		require.NoError(t, f.Rows(header, rows, nil))
		assert.Equal(t, "id\tname\n1\tdraw\n2\tNULL\n", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: FormatJSON, Writer: buf}
		require.NoError(t, f.Rows(header, rows, map[string]int{"rows": 2}))
		assert.Equal(t, "ok", decode(t, buf).Status)
	})
}

func TestExitErrors(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("run: %w", WrapExitError(ExitCommandError, "open store", cause))

	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "run: open store: disk full")
	assert.EqualError(t, NewExitError(ExitFailure, "2 scenarios failed"), "2 scenarios failed")
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
}
