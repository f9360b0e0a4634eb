package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/coltab/internal/testutil"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name))
	require.NoError(t, err)
	return s
}

func TestLoadScenario(t *testing.T) {
	s := loadTestScenario(t, "cache.yaml")
	assert.Equal(t, "nested-loop-cache", s.Name)
	assert.Equal(t, filepath.Join("testdata", "catalog"), s.Catalog)
	require.NotNil(t, s.CacheThreshold)
	assert.Equal(t, 5, *s.CacheThreshold)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, "SELECT * FROM slices WHERE id = 3", s.Steps[0].SQL())
	assert.Len(t, s.Assertions, 3)
}

func TestLoadScenario_Invalid(t *testing.T) {
	catalogDir, err := filepath.Abs(filepath.Join("testdata", "catalog"))
	require.NoError(t, err)

	tests := []struct {
		name      string
		yaml      string
		errSubstr string
	}{
		{"unknown field", "name: x\ndescription: d\ncatalog: " + catalogDir + "\nstep: []\n", "field step not found"},
		{"missing name", "description: d\ncatalog: " + catalogDir + "\nsteps: [{query: SELECT 1}]\n", "name is required"},
		{"missing catalog dir", "name: x\ndescription: d\ncatalog: nowhere\nsteps: [{query: SELECT 1}]\n", "catalog directory not found"},
		{"no steps", "name: x\ndescription: d\ncatalog: " + catalogDir + "\n", "steps list is required"},
		{"query and explain", "name: x\ndescription: d\ncatalog: " + catalogDir + "\nsteps: [{query: SELECT 1, explain: SELECT 1}]\n", "exactly one of query and explain"},
		{"unknown code", "name: x\ndescription: d\ncatalog: " + catalogDir + "\nsteps: [{query: SELECT 1, expect: {error: BROKEN}}]\n", "unknown error code"},
		{"plan on query", "name: x\ndescription: d\ncatalog: " + catalogDir + "\nsteps: [{query: SELECT 1, expect: {plan: SCAN}}]\n", "plan needs an explain step"},
		{"unknown counter", "name: x\ndescription: d\ncatalog: " + catalogDir + "\nsteps: [{query: SELECT 1}]\nassertions: [{type: stats, stats: {misses: 1}}]\n", "unknown counter"},
		{"unknown assertion", "name: x\ndescription: d\ncatalog: " + catalogDir + "\nsteps: [{query: SELECT 1}]\nassertions: [{type: vibes}]\n", "unknown assertion type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "s.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLoadScenarios_Filter(t *testing.T) {
	all, err := LoadScenarios(filepath.Join("testdata", "scenarios"), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := LoadScenarios(filepath.Join("testdata", "scenarios"), "nested-*")
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "nested-loop-cache", some[0].Name)
}

func TestRunWithGolden_Lookup(t *testing.T) {
	result, err := RunWithGolden(t, loadTestScenario(t, "lookup.yaml"), WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Positive(t, result.Stats.SingleRow)
}

func TestRun_Cache(t *testing.T) {
	result, err := Run(context.Background(), loadTestScenario(t, "cache.yaml"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 2)
	assert.Equal(t, KindExplain, result.Trace[0].Kind)
	assert.NotEmpty(t, result.Trace[0].Plan)
	for _, line := range result.Trace[0].Plan {
		assert.NotRegexp(t, `INDEX \d+:`, line)
	}
	assert.Equal(t, int64(1), result.Stats.CacheBuilds)
}

func TestRun_Errors(t *testing.T) {
	result, err := Run(context.Background(), loadTestScenario(t, "errors.yaml"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 3)
	assert.Equal(t, "UPSTREAM_FAILURE", result.Trace[0].Error)
	assert.Equal(t, "ERROR", result.Trace[1].Error)
	assert.Empty(t, result.Trace[2].Error)
}

func TestRun_ReportsFailures(t *testing.T) {
	count := 2
	s := &Scenario{
		Name:    "failing",
		Catalog: filepath.Join("testdata", "catalog"),
		Steps: []Step{
			{Query: "SELECT label FROM kinds WHERE id = 1", Expect: &ExpectClause{Rows: [][]any{{"uno"}}}},
			{Query: "SELECT label FROM kinds", Expect: &ExpectClause{Count: &count}},
			{Query: "SELECT * FROM ghosts"},
			{Query: "SELECT 1", Expect: &ExpectClause{Error: ErrorAny}},
			{Explain: "SELECT * FROM kinds WHERE id = 1", Expect: &ExpectClause{Plan: "full"}},
		},
		Assertions: []Assertion{
			{Type: AssertStats, Stats: map[string]int64{"cache_builds": 3}},
			{Type: AssertTableRows, Table: "kinds", Count: 4},
		},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 7)
	assert.Contains(t, result.Errors[0], "steps[0]: rows")
	assert.Contains(t, result.Errors[1], "steps[1]: count")
	assert.Contains(t, result.Errors[2], "steps[2]: step")
	assert.Contains(t, result.Errors[3], "steps[3]: error")
	assert.Contains(t, result.Errors[4], "steps[4]: plan")
	assert.Contains(t, result.Errors[5], "cache_builds = 3")
	assert.Contains(t, result.Errors[6], "4 rows in kinds")
}

func TestRun_SetupFailure(t *testing.T) {
	s := &Scenario{Name: "broken", Catalog: t.TempDir(), Steps: []Step{{Query: "SELECT 1"}}}
	_, err := Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load catalog")
}
