package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/wsm/internal/compiler"
)

// ValidationIssue is one problem found in the schemas.
type ValidationIssue struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Entities int               `json:"entities"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [schemas-dir]",
		Short: "Validate entity schemas",
		Long: `Validate CUE entity schemas without writing output.

Reports every compile and registration problem: empty or duplicate names,
invalid kinds and element types, defaults outside the field's domain and
declarations of the implicit entitySource field.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, firstArg(args), cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, arg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	dir := opts.schemasDir(arg)
	if dir == "" {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "no schemas directory given")
	}

	loadResult, loadErrors := LoadSchemas(dir, LoadModeCollectAll)
	if loadResult == nil {
		code, message := parseCompileError(loadErrors[0])
		return formatter.Fail(ExitCommandError, code, message)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)

	issues := ValidateSchemas(loadResult, loadErrors)
	if len(issues) > 0 {
		return outputValidationErrors(formatter, issues)
	}

	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{Valid: true, Entities: len(loadResult.Schemas)})
	}
	fmt.Fprintf(formatter.Writer, "✓ All %d entity schema(s) valid\n", len(loadResult.Schemas))
	return nil
}

// ValidateSchemas converts load errors and schema validation errors into
// issues, load errors first.
func ValidateSchemas(result *LoadResult, loadErrors []error) []ValidationIssue {
	var issues []ValidationIssue
	for _, err := range loadErrors {
		code, message := parseCompileError(err)
		issue := ValidationIssue{Code: code, Field: "load", Message: message}
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			issue.Line = loadErr.Pos.Line()
		}
		issues = append(issues, issue)
	}
	for _, verr := range compiler.ValidateAll(result.Schemas) {
		issues = append(issues, ValidationIssue{
			Code:    verr.Code,
			Field:   verr.Field,
			Message: verr.Message,
		})
	}
	return issues
}

func outputValidationErrors(formatter *OutputFormatter, issues []ValidationIssue) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))

	if formatter.IsJSON() {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: issues},
			Error:  &CLIError{Code: issues[0].Code, Message: issues[0].Message},
		}); err != nil {
			return err
		}
		return exitErr
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(w, "line %d\n", issue.Line)
		}
		fmt.Fprintf(w, "  %s: %s: %s\n\n", issue.Code, issue.Field, issue.Message)
	}
	return exitErr
}
