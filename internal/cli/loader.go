package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/wsm/internal/compiler"
	"github.com/roach88/wsm/internal/entity"
	"github.com/roach88/wsm/internal/ir"
)

// LoadMode controls how errors are handled while loading schemas.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll reports every entity that fails to compile.
	LoadModeCollectAll
)

// LoadResult holds the entity schemas loaded from a directory.
type LoadResult struct {
	Schemas   []ir.EntitySchema
	CUEValue  cue.Value
	FileCount int
}

// LoadError is an error raised while loading schemas.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSchemas loads the CUE package in dir and compiles every entity
// declared under its top-level "entity" struct.
//
// A nil result means nothing could be loaded. A non-nil result with errors
// holds the entities that did compile.
func LoadSchemas(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schemas directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schemas directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{CUEValue: value, FileCount: len(cueFiles)}
	var errs []error

	entitiesVal := value.LookupPath(cue.ParsePath("entity"))
	if !entitiesVal.Exists() {
		return result, []error{&LoadError{Code: ErrCodeNoEntities, Message: "no entities found in schemas"}}
	}
	iter, err := entitiesVal.Fields()
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating entities: %v", err)}}
	}
	for iter.Next() {
		schema, compileErr := compiler.CompileEntity(iter.Value())
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "entity."+iter.Label()))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Schemas = append(result.Schemas, *schema)
	}

	if len(result.Schemas) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoEntities, Message: "no entities found in schemas"})
	}
	return result, errs
}

// LoadRegistry loads dir and registers a descriptor per entity. Any load,
// compile or validation error fails the whole registry.
func LoadRegistry(dir string) (*entity.Registry, error) {
	result, errs := LoadSchemas(dir, LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return compiler.BuildRegistry(result.Schemas)
}

// FindCUEFiles walks dir and returns every .cue file path.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error codes shared by all commands. Schema validation codes (E12x) come
// from the compiler package.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeNoEntities  = "E008" // No entity declarations
	ErrCodeStore       = "E009" // Database open, read or write failed

	ErrCodeInvalidVersion = "E101" // version is not a positive int
	ErrCodeInvalidField   = "E102" // malformed field declaration
	ErrCodeInvalidDefault = "E103" // default is not concrete or unsupported
	ErrCodeInvalidType    = "E104" // unsupported type, e.g. float
)

// MapFieldToErrorCode maps the Field of a compiler.CompileError to a code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "version":
		return ErrCodeInvalidVersion
	case field == "type":
		return ErrCodeInvalidType
	case field == "default":
		return ErrCodeInvalidDefault
	case strings.HasPrefix(field, "fields."):
		return ErrCodeInvalidField
	default:
		return ErrCodeGeneric
	}
}
