package compiler

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/wsm/internal/entity"
	"github.com/roach88/wsm/internal/ir"
)

// CompileEntities compiles every entity declared under the top-level
// "entity" struct of v, in declaration order. Stops at the first error.
func CompileEntities(v cue.Value) ([]ir.EntitySchema, error) {
	entitiesVal := v.LookupPath(cue.ParsePath("entity"))
	if !entitiesVal.Exists() {
		return nil, nil
	}
	iter, err := entitiesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var schemas []ir.EntitySchema
	for iter.Next() {
		schema, err := CompileEntity(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("entity.%s: %w", iter.Label(), err)
		}
		schemas = append(schemas, *schema)
	}
	return schemas, nil
}

// BuildRegistry validates schemas and registers a descriptor for each.
// All validation errors are reported together.
func BuildRegistry(schemas []ir.EntitySchema) (*entity.Registry, error) {
	if errs := ValidateAll(schemas); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return nil, errors.Join(joined...)
	}
	descs := make([]*entity.Descriptor, 0, len(schemas))
	for _, s := range schemas {
		d, err := entity.NewDescriptor(s)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	return entity.NewRegistry(descs...)
}
