// Package entities provides typed front-ends over the generic entity engine
// for the entity types the storage ships with.
//
// Each type gets a read view wrapping entity.Entity, a builder wrapping
// entity.Builder with one accessor pair per field, a constructor whose
// parameters are the required fields, and a typed ModifyXxx helper.
// All state lives in the generic records; these wrappers add no storage.
package entities

import (
	"github.com/roach88/wsm/internal/entity"
)

// Registry returns a registry holding the current version of every entity
// type in this package.
func Registry() *entity.Registry {
	reg, err := entity.NewRegistry(DefaultPropDescriptor, CollectionFieldDescriptor)
	if err != nil {
		panic(err)
	}
	return reg
}
