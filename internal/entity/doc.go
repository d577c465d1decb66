// Package entity implements the typed record model behind workspace storage.
//
// An entity type is described by a Descriptor built from an ir.EntitySchema.
// Values of that type exist in three forms:
//
//   - Record: the committed, immutable payload for one entity ID at one
//     version. Records are owned by a storage and never mutated in place.
//   - Entity: a read-only view bound to one Record. Its field values never
//     change, even after newer versions of the same ID are committed.
//   - Builder: a mutable staging area. A Builder either stages a brand-new
//     Record or a copy-on-write delta over an existing one. Nothing a Builder
//     does is visible until the storage commits it.
//
// Collection fields are staged through MutableList and MutableSet adapters.
// Every adapter owns its elements: converting a plain ir.Array into an adapter
// always copies, and reading an adapter's values returns a copy.
//
// Builders are not safe for concurrent use. Records and Entities are.
package entity
