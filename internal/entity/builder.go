package entity

import (
	"fmt"

	"github.com/roach88/wsm/internal/ir"
)

// Builder stages the field values of one entity. A builder either creates a
// new record (no base) or modifies an existing one copy-on-write: reads fall
// through to the base record until a field is written, and the base record
// is never touched.
//
// Builders are not safe for concurrent use.
type Builder struct {
	desc    *Descriptor
	base    *Record
	source  EntitySource
	staged  map[string]ir.Value
	lists   map[string]*MutableList
	sets    map[string]*MutableSet
	changed map[string]bool
}

// NewBuilder returns a builder for a new entity. Fields with a default are
// pre-populated with a copy of it; required fields start unset.
func (d *Descriptor) NewBuilder(source EntitySource) *Builder {
	return newBuilder(d, nil, source)
}

func newBuilder(d *Descriptor, base *Record, source EntitySource) *Builder {
	b := &Builder{
		desc:    d,
		base:    base,
		source:  source,
		staged:  make(map[string]ir.Value),
		lists:   make(map[string]*MutableList),
		sets:    make(map[string]*MutableSet),
		changed: make(map[string]bool),
	}
	if base == nil {
		for _, f := range d.fields {
			if f.Kind != ir.KindSource && f.Default != nil {
				b.staged[f.Name] = ir.Clone(f.Default)
			}
		}
	}
	return b
}

// Create stages a new entity: the builder is seeded with values and source,
// then init runs, then every required field must hold a value. It is the
// generic form of the typed constructors in package entities.
func Create(d *Descriptor, source EntitySource, values ir.Object, init func(*Builder) error) (*Builder, error) {
	b := d.NewBuilder(source)
	for _, name := range values.SortedKeys() {
		if err := b.Set(name, values[name]); err != nil {
			return nil, err
		}
	}
	if init != nil {
		if err := init(b); err != nil {
			return nil, err
		}
	}
	if name, ok := b.missing(); ok {
		return nil, NewMissingFieldError(d.name, name)
	}
	return b, nil
}

// Descriptor returns the entity type being built.
func (b *Builder) Descriptor() *Descriptor { return b.desc }

// Base returns the record being modified, or nil for a new entity.
func (b *Builder) Base() *Record { return b.base }

// Source returns the staged entity source.
func (b *Builder) Source() EntitySource { return b.source }

// SetSource replaces the entity source.
func (b *Builder) SetSource(src EntitySource) {
	if b.source == src {
		return
	}
	b.source = src
	b.changed[ir.SourceField] = true
}

// Get returns a copy of the current value of a field: the staged value if
// the field was written, otherwise the base record's.
func (b *Builder) Get(name string) (ir.Value, bool) {
	if name == ir.SourceField {
		return ir.String(b.source), true
	}
	if l, ok := b.lists[name]; ok {
		return l.Values(), true
	}
	if s, ok := b.sets[name]; ok {
		return s.Values(), true
	}
	v, ok := b.current(name)
	if !ok {
		return nil, false
	}
	return ir.Clone(v), true
}

// current returns the staged or base value of a non-adapter field, shared.
func (b *Builder) current(name string) (ir.Value, bool) {
	if v, ok := b.staged[name]; ok {
		return v, true
	}
	if b.base != nil {
		return b.base.value(name)
	}
	return nil, false
}

// Set replaces the value of a field. The value is checked against the
// field's domain immediately; collection values are copied into a fresh
// adapter. Duplicates in a set value collapse to one element.
func (b *Builder) Set(name string, v ir.Value) error {
	f, err := b.desc.lookup(name)
	if err != nil {
		return err
	}
	if v == nil {
		return NewSchemaMismatchError(b.desc.name, name, fmt.Errorf("value is required"))
	}
	if err := f.CheckElems(v); err != nil {
		return NewSchemaMismatchError(b.desc.name, name, err)
	}

	switch f.Kind {
	case ir.KindSource:
		b.SetSource(EntitySource(v.(ir.String)))
		return nil
	case ir.KindList:
		l, err := NewMutableList(f.Type, v.(ir.Array))
		if err != nil {
			return NewSchemaMismatchError(b.desc.name, name, err)
		}
		b.attachList(name, l)
	case ir.KindSet:
		s, err := NewMutableSet(f.Type, v.(ir.Array))
		if err != nil {
			return NewSchemaMismatchError(b.desc.name, name, err)
		}
		b.attachSet(name, s)
	default:
		b.staged[name] = ir.Clone(v)
	}
	b.changed[name] = true
	return nil
}

// ListField returns the mutable adapter of a list field. The adapter is
// created on first access from a copy of the current value; later calls
// return the same adapter.
func (b *Builder) ListField(name string) (*MutableList, error) {
	f, err := b.desc.lookup(name)
	if err != nil {
		return nil, err
	}
	if f.Kind != ir.KindList {
		return nil, NewSchemaMismatchError(b.desc.name, name, fmt.Errorf("field is %s, not list", f.Kind))
	}
	if l, ok := b.lists[name]; ok {
		return l, nil
	}
	cur, _ := b.current(name)
	arr, _ := cur.(ir.Array)
	l, err := NewMutableList(f.Type, arr)
	if err != nil {
		return nil, NewSchemaMismatchError(b.desc.name, name, err)
	}
	b.attachList(name, l)
	return l, nil
}

// SetField returns the mutable adapter of a set field, like ListField.
func (b *Builder) SetField(name string) (*MutableSet, error) {
	f, err := b.desc.lookup(name)
	if err != nil {
		return nil, err
	}
	if f.Kind != ir.KindSet {
		return nil, NewSchemaMismatchError(b.desc.name, name, fmt.Errorf("field is %s, not set", f.Kind))
	}
	if s, ok := b.sets[name]; ok {
		return s, nil
	}
	cur, _ := b.current(name)
	arr, _ := cur.(ir.Array)
	s, err := NewMutableSet(f.Type, arr)
	if err != nil {
		return nil, NewSchemaMismatchError(b.desc.name, name, err)
	}
	b.attachSet(name, s)
	return s, nil
}

func (b *Builder) attachList(name string, l *MutableList) {
	if old, ok := b.lists[name]; ok {
		old.onChange = nil
	}
	delete(b.staged, name)
	l.onChange = func() { b.changed[name] = true }
	b.lists[name] = l
}

func (b *Builder) attachSet(name string, s *MutableSet) {
	if old, ok := b.sets[name]; ok {
		old.onChange = nil
	}
	delete(b.staged, name)
	s.onChange = func() { b.changed[name] = true }
	b.sets[name] = s
}

// Changed returns the names of the fields written since the builder was
// opened, in declaration order.
func (b *Builder) Changed() []string {
	var names []string
	for _, f := range b.desc.fields {
		if b.changed[f.Name] {
			names = append(names, f.Name)
		}
	}
	return names
}

// Dirty reports whether any field was written.
func (b *Builder) Dirty() bool { return len(b.changed) > 0 }

// missing returns the first field in declaration order without a value.
func (b *Builder) missing() (string, bool) {
	for _, f := range b.desc.fields {
		if f.Kind == ir.KindSource {
			continue
		}
		if _, ok := b.lists[f.Name]; ok {
			continue
		}
		if _, ok := b.sets[f.Name]; ok {
			continue
		}
		if _, ok := b.current(f.Name); !ok {
			return f.Name, true
		}
	}
	return "", false
}

// Validate reports a missing-field error if a field without default was
// never given a value.
func (b *Builder) Validate() error {
	if name, ok := b.missing(); ok {
		return NewMissingFieldError(b.desc.name, name)
	}
	return nil
}

// Commit freezes the staged values into the first Record of a new entity
// with the given identity and version. Unchanged values of a base record
// are shared rather than copied. Storage implementations call Commit; it
// never modifies the builder's base.
func Commit(b *Builder, id ID, version int64) (*Record, error) {
	fields, err := b.freeze()
	if err != nil {
		return nil, err
	}
	return &Record{
		id:      id,
		desc:    b.desc,
		version: version,
		source:  b.source,
		fields:  fields,
		lineage: lineages.Add(1),
	}, nil
}

// Revise freezes a modification builder into the next version of its base
// record. The new record keeps the base's identity.
func Revise(b *Builder, version int64) (*Record, error) {
	if b.base == nil {
		return nil, fmt.Errorf("Revise: builder has no base record")
	}
	fields, err := b.freeze()
	if err != nil {
		return nil, err
	}
	return &Record{
		id:      b.base.id,
		desc:    b.desc,
		version: version,
		source:  b.source,
		fields:  fields,
		lineage: b.base.lineage,
	}, nil
}

func (b *Builder) freeze() (ir.Object, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	fields := make(ir.Object, len(b.desc.fields)-1)
	for _, f := range b.desc.fields {
		if f.Kind == ir.KindSource {
			continue
		}
		if l, ok := b.lists[f.Name]; ok {
			fields[f.Name] = l.Values()
			continue
		}
		if s, ok := b.sets[f.Name]; ok {
			fields[f.Name] = s.Values()
			continue
		}
		v, _ := b.current(f.Name)
		if _, staged := b.staged[f.Name]; staged {
			v = ir.Clone(v)
		}
		fields[f.Name] = v
	}
	return fields, nil
}
