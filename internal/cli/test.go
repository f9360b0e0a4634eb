package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/coltab/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
	Golden string // golden file directory
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run query scenarios",
		Long: `Run YAML query scenarios, each against a fresh engine.

Each scenario names its own catalog. With --golden, query traces are
compared with <golden>/<scenario>.golden; --update rewrites them.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  coltab test ./scenarios
  coltab test ./scenarios --filter "lookup*"
  coltab test ./scenarios --golden ./golden --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "directory of golden trace files")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}
	if opts.Update && opts.Golden == "" {
		return NewExitError(ExitCommandError, "--update needs --golden")
	}

	scenarios, err := harness.LoadScenarios(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "load scenarios", err)
	}
	if len(scenarios) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no scenarios found in %s", dir))
	}

	var result TestResult
	for _, s := range scenarios {
		f.VerboseLog("Running scenario: %s", s.Name)
		sr := ScenarioResult{Name: s.Name}

		res, err := harness.Run(cmd.Context(), s, harness.WithLogger(opts.Logger))
		if err != nil {
			sr.Errors = []string{err.Error()}
		} else {
			sr.Pass = res.Pass
			sr.Errors = res.Errors
			if opts.Golden != "" {
				if msg := checkGolden(opts, s.Name, res); msg != "" {
					sr.Pass = false
					sr.Errors = append(sr.Errors, msg)
				}
			}
		}

		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
	}
	result.Total = len(result.Scenarios)

	if err := outputTestResult(f, result); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total))
	}
	return nil
}

// checkGolden compares or rewrites the golden trace of one scenario and
// returns a failure message, or "" on success.
func checkGolden(opts *TestOptions, name string, res *harness.Result) string {
	data, err := harness.Snapshot(name, res)
	if err != nil {
		return fmt.Sprintf("golden: %v", err)
	}
	path := filepath.Join(opts.Golden, name+".golden")

	if opts.Update {
		if err := os.MkdirAll(opts.Golden, 0755); err != nil {
			return fmt.Sprintf("golden: %v", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Sprintf("golden: %v", err)
		}
		return ""
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("golden: %v", err)
	}
	if !bytes.Equal(want, data) {
		return fmt.Sprintf("golden: trace differs from %s", path)
	}
	return ""
}

func outputTestResult(f *OutputFormatter, result TestResult) error {
	if f.Format == FormatJSON {
		return f.Success(result)
	}
	for _, sr := range result.Scenarios {
		mark := "✓"
		if !sr.Pass {
			mark = "✗"
		}
		fmt.Fprintf(f.Writer, "%s %s\n", mark, sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(f.Writer, "    %s\n", e)
		}
	}
	fmt.Fprintf(f.Writer, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	return nil
}
