package entity

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes storage errors.
type ErrorCode string

const (
	// CodeMissingField: a required field without default was not supplied at
	// construction.
	CodeMissingField ErrorCode = "MISSING_FIELD"

	// CodeDuplicateIdentity: an explicit entity ID collides with a live one.
	CodeDuplicateIdentity ErrorCode = "DUPLICATE_IDENTITY"

	// CodeStaleEntity: a modification targets an ID absent from the storage.
	CodeStaleEntity ErrorCode = "STALE_ENTITY"

	// CodeSchemaMismatch: a value's runtime shape is outside the field's
	// value domain, or names no field of the schema.
	CodeSchemaMismatch ErrorCode = "SCHEMA_MISMATCH"
)

// Error is the error type returned by entity and storage operations.
// All errors are synchronous and none are retried internally.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// EntityType names the affected entity type, if known.
	EntityType string

	// EntityID identifies the affected entity, zero if none was assigned.
	EntityID ID

	// Field names the affected field, if any.
	Field string

	// Err is the underlying cause, if any.
	Err error
}

// Sentinels for errors.Is. Matching is by Code only.
var (
	ErrMissingField      = &Error{Code: CodeMissingField}
	ErrDuplicateIdentity = &Error{Code: CodeDuplicateIdentity}
	ErrStaleEntity       = &Error{Code: CodeStaleEntity}
	ErrSchemaMismatch    = &Error{Code: CodeSchemaMismatch}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.EntityType != "" && e.Field != "":
		msg += fmt.Sprintf(" (entity=%s, field=%s)", e.EntityType, e.Field)
	case e.EntityType != "" && e.EntityID != 0:
		msg += fmt.Sprintf(" (entity=%s, id=%d)", e.EntityType, e.EntityID)
	case e.EntityType != "":
		msg += fmt.Sprintf(" (entity=%s)", e.EntityType)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewMissingFieldError reports a required field omitted at construction.
func NewMissingFieldError(entityType, field string) *Error {
	return &Error{
		Code:       CodeMissingField,
		Message:    "required field has no value and no default",
		EntityType: entityType,
		Field:      field,
	}
}

// NewDuplicateIdentityError reports an explicit ID that is already in use.
func NewDuplicateIdentityError(entityType string, id ID) *Error {
	return &Error{
		Code:       CodeDuplicateIdentity,
		Message:    fmt.Sprintf("entity id %d is already in use", id),
		EntityType: entityType,
		EntityID:   id,
	}
}

// NewStaleEntityError reports a modification of an ID the storage does not hold.
func NewStaleEntityError(entityType string, id ID) *Error {
	return &Error{
		Code:       CodeStaleEntity,
		Message:    fmt.Sprintf("entity id %d does not exist in this storage", id),
		EntityType: entityType,
		EntityID:   id,
	}
}

// NewSchemaMismatchError reports a value outside a field's value domain.
func NewSchemaMismatchError(entityType, field string, cause error) *Error {
	return &Error{
		Code:       CodeSchemaMismatch,
		Message:    "value does not satisfy the schema",
		EntityType: entityType,
		Field:      field,
		Err:        cause,
	}
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsMissingField reports whether err is a missing-field error.
func IsMissingField(err error) bool { return hasCode(err, CodeMissingField) }

// IsDuplicateIdentity reports whether err is a duplicate-identity error.
func IsDuplicateIdentity(err error) bool { return hasCode(err, CodeDuplicateIdentity) }

// IsStaleEntity reports whether err is a stale-entity error.
func IsStaleEntity(err error) bool { return hasCode(err, CodeStaleEntity) }

// IsSchemaMismatch reports whether err is a schema-mismatch error.
func IsSchemaMismatch(err error) bool { return hasCode(err, CodeSchemaMismatch) }
