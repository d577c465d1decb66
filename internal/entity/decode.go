package entity

import (
	"fmt"

	"github.com/roach88/wsm/internal/ir"
)

// Decode rebuilds a Record from persisted field values against the current
// descriptor, which may be a newer schema version than the one the data was
// written with.
//
//   - A stored value is kept as-is if it is in the field's current value
//     domain, even if the field has since become required. Defaults are
//     never recomputed for values that are present.
//   - A stored value of the wrong shape is a schema mismatch.
//   - A field with no stored value takes the current default; with no
//     default the data cannot satisfy the schema, which is a schema mismatch.
//   - Stored fields the schema no longer declares are dropped.
func Decode(d *Descriptor, id ID, version int64, source EntitySource, raw ir.Object) (*Record, error) {
	fields := make(ir.Object, len(d.fields)-1)
	for _, f := range d.fields {
		if f.Kind == ir.KindSource {
			continue
		}
		v, ok := raw[f.Name]
		if !ok {
			if f.Default == nil {
				return nil, &Error{
					Code:       CodeSchemaMismatch,
					Message:    "stored record has no value for a required field",
					EntityType: d.name,
					EntityID:   id,
					Field:      f.Name,
				}
			}
			fields[f.Name] = ir.Clone(f.Default)
			continue
		}
		if v == nil {
			return nil, NewSchemaMismatchError(d.name, f.Name, fmt.Errorf("stored value is null"))
		}
		if err := f.Check(v); err != nil {
			e := NewSchemaMismatchError(d.name, f.Name, err)
			e.EntityID = id
			return nil, e
		}
		fields[f.Name] = ir.Clone(v)
	}
	return &Record{
		id:      id,
		desc:    d,
		version: version,
		source:  source,
		fields:  fields,
		lineage: lineages.Add(1),
	}, nil
}
