package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/coltab/internal/catalog"
)

// ValidationIssue is one problem found in a catalog.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Tables    int               `json:"tables"`
	Functions int               `json:"functions"`
	Errors    []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [catalog-dir]",
		Short: "Validate catalog definitions without opening any database",
		Long: `Validate the CUE and YAML table definitions of a catalog.

Checks syntax, required fields, column lists and inline rows, and
reports every problem found. Store files are not opened.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rootOpts.Config.Catalog
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(rootOpts, dir, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	cat, loadErrors := catalog.Load(dir, catalog.LoadModeCollectAll)

	// Directory not found, no files and the like
	if cat == nil && len(loadErrors) > 0 {
		var loadErr *catalog.LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(f, loadErr.Code, loadErr.Message)
		}
		return outputValidateError(f, catalog.ErrCodeGeneric, loadErrors[0].Error())
	}

	f.VerboseLog("Found %d catalog file(s) in %s", cat.FileCount, dir)

	var issues []ValidationIssue
	for _, err := range append(loadErrors, cat.Validate()...) {
		issues = append(issues, ValidationIssue{Code: catalog.Code(err), Message: err.Error()})
	}

	result := ValidationResult{
		Valid:     len(issues) == 0,
		Tables:    len(cat.Tables),
		Functions: len(cat.Functions),
		Errors:    issues,
	}
	if !result.Valid {
		return outputValidationErrors(f, result)
	}
	return outputValidateSuccess(f, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(f *OutputFormatter, result ValidationResult) error {
	if f.Format == FormatJSON {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "✓ Catalog valid (%d tables, %d functions)\n", result.Tables, result.Functions)
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(f *OutputFormatter, code, message string) error {
	_ = f.Error(code, message, nil)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(f *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if f.Format == FormatJSON {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(f.Writer, "✗ Validation failed")
	fmt.Fprintln(f.Writer)
	for _, err := range errs {
		fmt.Fprintf(f.Writer, "  %s: %s\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
