package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/wsm/internal/ir"
)

// CompileEntity parses a CUE value into an EntitySchema.
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
//
// The value should be the entity struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`entity: DefaultProp: { ... }`)
//	schema, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.DefaultProp")))
//
// Fields come in two forms. The long form is a struct:
//
//	someList: {kind: "list", type: "int"}
//	constInt: {type: "int", default: 5}
//
// The short form is a bare CUE type, for scalars only. A CUE default
// marker becomes the field default:
//
//	someString: string
//	constInt:   int | *5
func CompileEntity(v cue.Value) (*ir.EntitySchema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := &ir.EntitySchema{Version: 1}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		schema.Name = labels[len(labels)-1].String()
	}

	if versionVal := v.LookupPath(cue.ParsePath("version")); versionVal.Exists() {
		version, err := versionVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if version < 1 {
			return nil, &CompileError{
				Field:   "version",
				Message: fmt.Sprintf("version must be positive, got %d", version),
				Pos:     versionVal.Pos(),
			}
		}
		schema.Version = int(version)
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return schema, nil
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		field, err := compileField(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		schema.Fields = append(schema.Fields, field)
	}

	return schema, nil
}

// compileField parses one field declaration in either form.
func compileField(name string, v cue.Value) (ir.FieldSchema, error) {
	field := ir.FieldSchema{Name: name, Kind: ir.KindScalar}

	if name == ir.SourceField {
		return field, &CompileError{
			Field:   "fields." + name,
			Message: "entitySource is implicit and cannot be declared",
			Pos:     v.Pos(),
		}
	}

	if v.IncompleteKind() != cue.StructKind {
		typ, err := extractElemType(v)
		if err != nil {
			return field, err
		}
		field.Type = typ
		if def, ok := v.Default(); ok && def.IsConcrete() {
			field.Default, err = toValue(def)
			if err != nil {
				return field, err
			}
		} else if v.IsConcrete() {
			field.Default, err = toValue(v)
			if err != nil {
				return field, err
			}
		}
		return field, nil
	}

	if kindVal := v.LookupPath(cue.ParsePath("kind")); kindVal.Exists() {
		kind, err := kindVal.String()
		if err != nil {
			return field, formatCUEError(err)
		}
		field.Kind = ir.FieldKind(kind)
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return field, &CompileError{
			Field:   "fields." + name + ".type",
			Message: "field type is required",
			Pos:     v.Pos(),
		}
	}
	typ, err := typeVal.String()
	if err != nil {
		return field, formatCUEError(err)
	}
	field.Type = ir.ElemType(typ)

	if defVal := v.LookupPath(cue.ParsePath("default")); defVal.Exists() {
		field.Default, err = toValue(defVal)
		if err != nil {
			return field, err
		}
	}

	return field, nil
}

// extractElemType maps a bare CUE type to an element type.
// Floats are rejected, there is no float in the value domain.
func extractElemType(v cue.Value) (ir.ElemType, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return ir.TypeString, nil
	case cue.IntKind:
		return ir.TypeInt, nil
	case cue.BoolKind:
		return ir.TypeBool, nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   "type",
			Message: "float types are not supported, use int",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported short-form type kind: %v (use {kind, type} form)", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// toValue converts a concrete CUE value into an ir.Value.
func toValue(v cue.Value) (ir.Value, error) {
	if !v.IsConcrete() {
		return nil, &CompileError{
			Field:   "default",
			Message: "default must be a concrete value",
			Pos:     v.Pos(),
		}
	}
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.Array{}
		for iter.Next() {
			elem, err := toValue(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.Object{}
		for iter.Next() {
			elem, err := toValue(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = elem
		}
		return obj, nil
	default:
		return nil, &CompileError{
			Field:   "default",
			Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
