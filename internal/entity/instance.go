package entity

import (
	"github.com/roach88/wsm/internal/ir"
)

// Entity is a read-only view of one committed version of an entity.
// The view is bound to the Record it was taken from: committing a newer
// version of the same ID does not change what an Entity returns.
//
// The zero Entity is not valid; see IsZero.
type Entity struct {
	rec *Record
}

// IsZero reports whether e is the zero Entity.
func (e Entity) IsZero() bool { return e.rec == nil }

// ID returns the entity ID.
func (e Entity) ID() ID { return e.rec.id }

// Type returns the entity type name.
func (e Entity) Type() string { return e.rec.desc.name }

// Descriptor returns the entity type descriptor.
func (e Entity) Descriptor() *Descriptor { return e.rec.desc }

// Version returns the version of the underlying record.
func (e Entity) Version() int64 { return e.rec.version }

// Source returns the entity source.
func (e Entity) Source() EntitySource { return e.rec.source }

// Record returns the underlying record.
func (e Entity) Record() *Record { return e.rec }

// Get returns a copy of a field value. The entity source is readable under
// ir.SourceField.
func (e Entity) Get(name string) (ir.Value, bool) {
	v, ok := e.rec.value(name)
	if !ok {
		return nil, false
	}
	return ir.Clone(v), true
}

// String returns a string field, or "" if absent or not a string.
func (e Entity) String(name string) string {
	v, _ := e.rec.value(name)
	s, _ := v.(ir.String)
	return string(s)
}

// Int returns an int field, or 0 if absent or not an int.
func (e Entity) Int(name string) int64 {
	v, _ := e.rec.value(name)
	n, _ := v.(ir.Int)
	return int64(n)
}

// Bool returns a bool field, or false if absent or not a bool.
func (e Entity) Bool(name string) bool {
	v, _ := e.rec.value(name)
	b, _ := v.(ir.Bool)
	return bool(b)
}

// Values returns a copy of a list or set field's elements, or nil if the
// field is absent or not a collection.
func (e Entity) Values(name string) ir.Array {
	v, _ := e.rec.value(name)
	arr, ok := v.(ir.Array)
	if !ok {
		return nil
	}
	return ir.Clone(arr).(ir.Array)
}

// Fields returns a deep copy of all field values, without the source.
func (e Entity) Fields() ir.Object { return e.rec.Fields() }

// Hash returns the content hash of the underlying record.
func (e Entity) Hash() (string, error) { return e.rec.Hash() }

// Builder opens a copy-on-write builder over this entity's record.
func (e Entity) Builder() *Builder { return e.rec.Builder() }

// SameVersion reports whether a and b view the same committed record.
func (e Entity) SameVersion(other Entity) bool { return e.rec == other.rec }

// SameEntity reports whether other is a version, older or newer, of the same
// entity. Entities from different storages never match, even with equal IDs.
func (e Entity) SameEntity(other Entity) bool {
	if e.rec == nil || other.rec == nil {
		return false
	}
	return e.rec.SameEntity(other.rec)
}
