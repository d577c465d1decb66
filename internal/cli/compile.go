package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/wsm/internal/compiler"
	"github.com/roach88/wsm/internal/entity"
	"github.com/roach88/wsm/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledEntity is one compiled entity type with its schema hash.
type CompiledEntity struct {
	ir.EntitySchema
	Hash     string   `json:"hash"`
	Required []string `json:"required"`
}

// CompilationResult holds the compiled entity types, sorted by name.
type CompilationResult struct {
	FormatVersion string           `json:"format_version"`
	Entities      []CompiledEntity `json:"entities"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [schemas-dir]",
		Short: "Compile CUE entity schemas",
		Long: `Compile the CUE entity schemas in a directory to their canonical form.

Every entity under the top-level "entity" struct is compiled and validated;
all errors are reported together. The schemas directory defaults to the
configured "schemas" value.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, firstArg(args), cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, arg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
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
	for _, s := range loadResult.Schemas {
		formatter.VerboseLog("Compiled entity: %s", s.Name)
	}

	errs := loadErrors
	for _, verr := range compiler.ValidateAll(loadResult.Schemas) {
		errs = append(errs, verr)
	}
	if len(errs) > 0 {
		return outputCompileErrors(formatter, errs)
	}

	reg, err := compiler.BuildRegistry(loadResult.Schemas)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	result := newCompilationResult(reg)

	if opts.Output != "" {
		if err := writeResultToFile(result, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func newCompilationResult(reg *entity.Registry) *CompilationResult {
	result := &CompilationResult{FormatVersion: ir.SchemaFormatVersion, Entities: []CompiledEntity{}}
	for _, d := range reg.Descriptors() {
		required := d.RequiredFields()
		if required == nil {
			required = []string{}
		}
		result.Entities = append(result.Entities, CompiledEntity{
			EntitySchema: d.Schema(),
			Hash:         d.Hash(),
			Required:     required,
		})
	}
	return result
}

func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d entity type(s)\n\n", len(result.Entities))
	fmt.Fprintln(w, "Entities:")
	for _, e := range result.Entities {
		fmt.Fprintf(w, "  %s@v%d: %d field(s), %d required\n",
			e.Name, e.Version, len(e.Fields), len(e.Required))
	}
	fmt.Fprintln(w)

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote compiled schemas to %s\n", outputFile)
	}
	return nil
}

func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	exitErr := NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))

	if formatter.IsJSON() {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}
		return exitErr
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Compilation failed")
	fmt.Fprintln(w)
	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(w, "%s:%d:%d\n", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
		fmt.Fprintf(w, "  %s: %s\n\n", code, message)
	}
	return exitErr
}

// parseCompileError extracts a code and message from a load, compile or
// validation error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var verr compiler.ValidationError
	if errors.As(err, &verr) {
		return verr.Code, fmt.Sprintf("%s: %s", verr.Field, verr.Message)
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeResultToFile writes the result as indented JSON.
func writeResultToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling schemas: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
