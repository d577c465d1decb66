package entities

import (
	"github.com/roach88/wsm/internal/entity"
	"github.com/roach88/wsm/internal/ir"
	"github.com/roach88/wsm/internal/workspace"
)

// CollectionField field names.
const (
	FieldVersions = "versions"
	FieldNames    = "names"
)

// CollectionFieldSchema holds a set and a list field.
func CollectionFieldSchema() ir.EntitySchema {
	return ir.EntitySchema{
		Name:    "CollectionField",
		Version: 1,
		Fields: []ir.FieldSchema{
			{Name: FieldVersions, Kind: ir.KindSet, Type: ir.TypeInt},
			{Name: FieldNames, Kind: ir.KindList, Type: ir.TypeString},
		},
	}
}

// CollectionFieldDescriptor describes CollectionField.
var CollectionFieldDescriptor = entity.MustDescriptor(CollectionFieldSchema())

// CollectionField is a read-only CollectionField entity.
type CollectionField struct {
	entity.Entity
}

// AsCollectionField wraps e if it is a CollectionField.
func AsCollectionField(e entity.Entity) (CollectionField, bool) {
	if e.IsZero() || e.Type() != CollectionFieldDescriptor.Name() {
		return CollectionField{}, false
	}
	return CollectionField{Entity: e}, true
}

func (c CollectionField) Versions() []int64 {
	return entity.ValuesOf[int64](c.Values(FieldVersions))
}

func (c CollectionField) Names() []string {
	return entity.ValuesOf[string](c.Values(FieldNames))
}

// CollectionFieldBuilder stages changes to a CollectionField.
type CollectionFieldBuilder struct {
	b *entity.Builder
}

func (b CollectionFieldBuilder) Builder() *entity.Builder { return b.b }

func (b CollectionFieldBuilder) EntitySource() entity.EntitySource { return b.b.Source() }

func (b CollectionFieldBuilder) SetEntitySource(src entity.EntitySource) { b.b.SetSource(src) }

// Versions returns the mutable set adapter.
func (b CollectionFieldBuilder) Versions() entity.Set[int64] {
	return mustSetField[int64](b.b, FieldVersions)
}

// Names returns the mutable list adapter.
func (b CollectionFieldBuilder) Names() entity.List[string] {
	return mustList[string](b.b, FieldNames)
}

// NewCollectionField stages a new CollectionField. Duplicate versions
// collapse to one element.
func NewCollectionField(versions []int64, names []string, source entity.EntitySource, init func(CollectionFieldBuilder)) (*entity.Builder, error) {
	return entity.Create(CollectionFieldDescriptor, source, nil, func(b *entity.Builder) error {
		cb := CollectionFieldBuilder{b: b}
		set := cb.Versions()
		for _, v := range versions {
			set.Add(v)
		}
		cb.Names().AddAll(names...)
		if init != nil {
			init(cb)
		}
		return nil
	})
}

// CreateCollectionField stages a new CollectionField and commits it to s.
func CreateCollectionField(s *workspace.MutableStorage, versions []int64, names []string, source entity.EntitySource, init func(CollectionFieldBuilder)) (CollectionField, error) {
	b, err := NewCollectionField(versions, names, source, init)
	if err != nil {
		return CollectionField{}, err
	}
	e, err := s.AddEntity(b)
	if err != nil {
		return CollectionField{}, err
	}
	return CollectionField{Entity: e}, nil
}

// ModifyCollectionField applies fn to a copy-on-write builder over c and
// commits the result to s.
func ModifyCollectionField(s *workspace.MutableStorage, c CollectionField, fn func(CollectionFieldBuilder)) (CollectionField, error) {
	e, err := s.ModifyEntity(c.Entity, func(b *entity.Builder) error {
		fn(CollectionFieldBuilder{b: b})
		return nil
	})
	if err != nil {
		return CollectionField{}, err
	}
	return CollectionField{Entity: e}, nil
}
