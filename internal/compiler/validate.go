package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/wsm/internal/ir"
)

// Validation error codes (E120-E139)
const (
	ErrEntityNameEmpty     = "E120" // entity name is required
	ErrInvalidVersion      = "E121" // version must be positive
	ErrFieldNameEmpty      = "E122" // field name is required
	ErrDuplicateField      = "E123" // duplicate field name
	ErrInvalidFieldKind    = "E124" // kind is not scalar/list/set
	ErrInvalidElemType     = "E125" // type is not string/int/bool/any
	ErrInvalidDefault      = "E126" // default outside the field's value domain
	ErrReservedField       = "E127" // entitySource is implicit
	ErrDuplicateEntityName = "E128" // two schemas with the same name
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks an entity schema against the registration rules.
// Returns all errors found (does not fail fast).
func Validate(schema *ir.EntitySchema) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(schema.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "entity name is required and must be non-empty",
			Code:    ErrEntityNameEmpty,
		})
	}

	if schema.Version < 1 {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("version must be positive, got %d", schema.Version),
			Code:    ErrInvalidVersion,
		})
	}

	seen := make(map[string]bool, len(schema.Fields))
	for i, f := range schema.Fields {
		path := fmt.Sprintf("fields[%d]", i)

		if strings.TrimSpace(f.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: "field name is required",
				Code:    ErrFieldNameEmpty,
			})
			continue
		}
		if f.Name == ir.SourceField {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: "entitySource is implicit and cannot be declared",
				Code:    ErrReservedField,
			})
		}
		if seen[f.Name] {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("duplicate field name: %q", f.Name),
				Code:    ErrDuplicateField,
			})
		}
		seen[f.Name] = true

		kindOK := ir.ValidKinds[f.Kind]
		if !kindOK {
			errs = append(errs, ValidationError{
				Field:   path + ".kind",
				Message: fmt.Sprintf("invalid kind %q: must be scalar, list or set", f.Kind),
				Code:    ErrInvalidFieldKind,
			})
		}
		typeOK := ir.ValidElemTypes[f.Type]
		if !typeOK {
			errs = append(errs, ValidationError{
				Field:   path + ".type",
				Message: fmt.Sprintf("invalid type %q: must be string, int, bool or any", f.Type),
				Code:    ErrInvalidElemType,
			})
		}

		if f.Default != nil && kindOK && typeOK {
			if err := f.Check(f.Default); err != nil {
				errs = append(errs, ValidationError{
					Field:   path + ".default",
					Message: fmt.Sprintf("default for %q: %v", f.Name, err),
					Code:    ErrInvalidDefault,
				})
			}
		}
	}

	return errs
}

// ValidateAll validates each schema and checks names are unique across them.
func ValidateAll(schemas []ir.EntitySchema) []ValidationError {
	var errs []ValidationError
	names := make(map[string]bool, len(schemas))
	for i := range schemas {
		s := &schemas[i]
		for _, e := range Validate(s) {
			e.Field = fmt.Sprintf("%s.%s", s.Name, e.Field)
			errs = append(errs, e)
		}
		if s.Name != "" && names[s.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("entities[%d].name", i),
				Message: fmt.Sprintf("duplicate entity name: %q", s.Name),
				Code:    ErrDuplicateEntityName,
			})
		}
		names[s.Name] = true
	}
	return errs
}
