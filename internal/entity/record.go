package entity

import (
	"fmt"
	"sync/atomic"

	"github.com/roach88/wsm/internal/ir"
)

// ID identifies an entity within a storage. IDs are assigned by the storage,
// stable across versions, and never reused after removal.
type ID int64

// lineages issues the token shared by every version of one entity. Two
// storages may hand out the same ID; they never hand out the same lineage.
var lineages atomic.Uint64

// EntitySource records where an entity's data came from. It is an opaque
// tag to this package; reconciling conflicting sources is the caller's job.
type EntitySource string

// Record is the committed payload of one entity at one version.
// A Record is never mutated after it is built. A modification produces a
// new Record whose unchanged field values are shared with the old one.
type Record struct {
	id      ID
	desc    *Descriptor
	version int64
	source  EntitySource
	fields  ir.Object
	lineage uint64
}

// ID returns the entity ID.
func (r *Record) ID() ID { return r.id }

// SameEntity reports whether o is a version of the same entity as r: same
// ID, and descended from the same created or loaded record.
func (r *Record) SameEntity(o *Record) bool {
	return r.id == o.id && r.lineage == o.lineage
}

// Descriptor returns the entity type.
func (r *Record) Descriptor() *Descriptor { return r.desc }

// Version returns the logical-clock version the record was committed at.
func (r *Record) Version() int64 { return r.version }

// Source returns the entity source.
func (r *Record) Source() EntitySource { return r.source }

// Fields returns a deep copy of the field values, without the source.
func (r *Record) Fields() ir.Object {
	return ir.Clone(r.fields).(ir.Object)
}

// Hash returns the content hash of the record, excluding ID and version.
func (r *Record) Hash() (string, error) {
	return ir.RecordHash(r.desc.name, string(r.source), r.fields)
}

// Entity returns a read-only view of the record.
func (r *Record) Entity() Entity {
	return Entity{rec: r}
}

// Builder opens a copy-on-write builder over the record.
func (r *Record) Builder() *Builder {
	return newBuilder(r.desc, r, r.source)
}

// value returns the stored value of a field, shared, not copied.
func (r *Record) value(name string) (ir.Value, bool) {
	if name == ir.SourceField {
		return ir.String(r.source), true
	}
	v, ok := r.fields[name]
	return v, ok
}

func (r *Record) String() string {
	return fmt.Sprintf("%s#%d@%d", r.desc.name, r.id, r.version)
}
