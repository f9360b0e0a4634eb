package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/coltab/internal/status"
)

// Scenario defines a list of steps run against the tables of one catalog.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is the directory of table definitions, relative to the
	// scenario file.
	Catalog string `yaml:"catalog"`

	// Database is the default store file for the catalog, relative to the
	// scenario file.
	Database string `yaml:"database,omitempty"`

	// CacheThreshold overrides the planner's repeated-probe threshold.
	CacheThreshold *int `yaml:"cache_threshold,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step runs one statement. Exactly one of Query and Explain is set.
type Step struct {
	Query   string `yaml:"query,omitempty"`
	Explain string `yaml:"explain,omitempty"`

	// Args are bound to the statement's ? parameters.
	Args []any `yaml:"args,omitempty"`

	// Expect validates the step. If nil, the step must not fail.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// SQL returns the statement the step runs.
func (s Step) SQL() string {
	if s.Explain != "" {
		return s.Explain
	}
	return s.Query
}

// ExpectClause specifies what a step must produce.
type ExpectClause struct {
	// Rows is the full expected result, in order. Numbers compare by
	// value, so 2 matches 2.0.
	Rows [][]any `yaml:"rows,omitempty"`

	// Count is the expected number of rows.
	Count *int `yaml:"count,omitempty"`

	// Error is the expected error code, or ErrorAny for any failure.
	Error string `yaml:"error,omitempty"`

	// Plan is a substring one line of the query plan must contain.
	Plan string `yaml:"plan,omitempty"`
}

// ErrorAny matches any step failure.
const ErrorAny = "any"

// Assertion validates the adapter counters or a table after the steps.
type Assertion struct {
	// Type specifies the assertion type:
	// - "stats": each listed counter equals the given value
	// - "stats_min": each listed counter is at least the given value
	// - "table_rows": the table holds Count rows
	Type string `yaml:"type"`

	// Stats maps counter names, as in vtab.Stats' JSON, to values.
	Stats map[string]int64 `yaml:"stats,omitempty"`

	Table string `yaml:"table,omitempty"`
	Count int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertStats     = "stats"
	AssertStatsMin  = "stats_min"
	AssertTableRows = "table_rows"
)

// LoadScenario reads and parses a scenario YAML file. Catalog and
// database paths are resolved relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(base, scenario.Catalog)
	}
	if scenario.Database != "" && !filepath.IsAbs(scenario.Database) {
		scenario.Database = filepath.Join(base, scenario.Database)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every .yaml file in dir whose name matches the
// glob pattern filter. An empty filter matches all.
func LoadScenarios(dir, filter string) ([]*Scenario, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}

	var out []*Scenario
	for _, f := range files {
		s, err := LoadScenario(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(f), err)
		}
		if filter != "" {
			ok, err := filepath.Match(filter, s.Name)
			if err != nil {
				return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
			}
			if !ok {
				continue
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}
	if _, err := os.Stat(s.Catalog); os.IsNotExist(err) {
		return fmt.Errorf("catalog directory not found: %s", s.Catalog)
	}
	if s.CacheThreshold != nil && *s.CacheThreshold < 0 {
		return fmt.Errorf("cache_threshold must not be negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if (step.Query == "") == (step.Explain == "") {
			return fmt.Errorf("steps[%d]: exactly one of query and explain is required", i)
		}
		if err := validateExpect(i, step); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateExpect(index int, step Step) error {
	e := step.Expect
	if e == nil {
		return nil
	}
	if e.Error != "" && e.Error != ErrorAny && !knownCode(e.Error) {
		return fmt.Errorf("steps[%d].expect: unknown error code %q", index, e.Error)
	}
	if e.Error != "" && (e.Rows != nil || e.Count != nil || e.Plan != "") {
		return fmt.Errorf("steps[%d].expect: error excludes rows, count and plan", index)
	}
	if step.Explain != "" && (e.Rows != nil || e.Count != nil) {
		return fmt.Errorf("steps[%d].expect: explain steps check plan only", index)
	}
	if step.Query != "" && e.Plan != "" {
		return fmt.Errorf("steps[%d].expect: plan needs an explain step", index)
	}
	return nil
}

func knownCode(code string) bool {
	for _, c := range status.Codes {
		if string(c) == code {
			return true
		}
	}
	return false
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertStats, AssertStatsMin:
		if len(a.Stats) == 0 {
			return fmt.Errorf("assertions[%d]: stats is required for %s", index, a.Type)
		}
		for name := range a.Stats {
			if _, ok := statField(name); !ok {
				return fmt.Errorf("assertions[%d]: unknown counter %q", index, name)
			}
		}
	case AssertTableRows:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for table_rows", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for table_rows", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
