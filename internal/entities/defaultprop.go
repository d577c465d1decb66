package entities

import (
	"github.com/roach88/wsm/internal/entity"
	"github.com/roach88/wsm/internal/ir"
	"github.com/roach88/wsm/internal/workspace"
)

// DefaultProp field names.
const (
	FieldSomeString = "someString"
	FieldSomeList   = "someList"
	FieldConstInt   = "constInt"
)

// DefaultPropSchemaV1 is the first version of DefaultProp, where constInt
// defaulted to 5. Data persisted under it must still load under the current
// schema.
func DefaultPropSchemaV1() ir.EntitySchema {
	return ir.EntitySchema{
		Name:    "DefaultProp",
		Version: 1,
		Fields: []ir.FieldSchema{
			{Name: FieldSomeString, Kind: ir.KindScalar, Type: ir.TypeString},
			{Name: FieldSomeList, Kind: ir.KindList, Type: ir.TypeInt},
			{Name: FieldConstInt, Kind: ir.KindScalar, Type: ir.TypeInt, Default: ir.Int(5)},
		},
	}
}

// DefaultPropSchema is the current version of DefaultProp: constInt is
// required.
func DefaultPropSchema() ir.EntitySchema {
	s := DefaultPropSchemaV1()
	s.Version = 2
	s.Fields[2].Default = nil
	return s
}

// DefaultPropDescriptor describes the current DefaultProp schema.
var DefaultPropDescriptor = entity.MustDescriptor(DefaultPropSchema())

// DefaultProp is a read-only DefaultProp entity.
type DefaultProp struct {
	entity.Entity
}

// AsDefaultProp wraps e if it is a DefaultProp.
func AsDefaultProp(e entity.Entity) (DefaultProp, bool) {
	if e.IsZero() || e.Type() != DefaultPropDescriptor.Name() {
		return DefaultProp{}, false
	}
	return DefaultProp{Entity: e}, true
}

func (p DefaultProp) SomeString() string { return p.String(FieldSomeString) }

func (p DefaultProp) SomeList() []int64 {
	return entity.ValuesOf[int64](p.Values(FieldSomeList))
}

func (p DefaultProp) ConstInt() int64 { return p.Int(FieldConstInt) }

// DefaultPropBuilder stages changes to a DefaultProp.
type DefaultPropBuilder struct {
	b *entity.Builder
}

// Builder returns the underlying generic builder.
func (b DefaultPropBuilder) Builder() *entity.Builder { return b.b }

func (b DefaultPropBuilder) EntitySource() entity.EntitySource { return b.b.Source() }

func (b DefaultPropBuilder) SetEntitySource(src entity.EntitySource) { b.b.SetSource(src) }

func (b DefaultPropBuilder) SomeString() string {
	v, _ := b.b.Get(FieldSomeString)
	s, _ := entity.ScalarOf[string](v)
	return s
}

func (b DefaultPropBuilder) SetSomeString(s string) {
	mustSet(b.b, FieldSomeString, ir.String(s))
}

// SomeList returns the mutable list adapter.
func (b DefaultPropBuilder) SomeList() entity.List[int64] {
	return mustList[int64](b.b, FieldSomeList)
}

// SetSomeList replaces the list with a copy of vals.
func (b DefaultPropBuilder) SetSomeList(vals []int64) {
	mustSet(b.b, FieldSomeList, entity.ArrayOf(vals...))
}

func (b DefaultPropBuilder) ConstInt() int64 {
	v, _ := b.b.Get(FieldConstInt)
	n, _ := entity.ScalarOf[int64](v)
	return n
}

func (b DefaultPropBuilder) SetConstInt(n int64) {
	mustSet(b.b, FieldConstInt, ir.Int(n))
}

// NewDefaultProp stages a new DefaultProp. Every required field is a
// parameter; init may adjust the builder before it is returned.
func NewDefaultProp(someString string, someList []int64, constInt int64, source entity.EntitySource, init func(DefaultPropBuilder)) (*entity.Builder, error) {
	return entity.Create(DefaultPropDescriptor, source, ir.Object{
		FieldSomeString: ir.String(someString),
		FieldSomeList:   entity.ArrayOf(someList...),
		FieldConstInt:   ir.Int(constInt),
	}, func(b *entity.Builder) error {
		if init != nil {
			init(DefaultPropBuilder{b: b})
		}
		return nil
	})
}

// CreateDefaultProp stages a new DefaultProp and commits it to s.
func CreateDefaultProp(s *workspace.MutableStorage, someString string, someList []int64, constInt int64, source entity.EntitySource, init func(DefaultPropBuilder)) (DefaultProp, error) {
	b, err := NewDefaultProp(someString, someList, constInt, source, init)
	if err != nil {
		return DefaultProp{}, err
	}
	e, err := s.AddEntity(b)
	if err != nil {
		return DefaultProp{}, err
	}
	return DefaultProp{Entity: e}, nil
}

// ModifyDefaultProp applies fn to a copy-on-write builder over p and
// commits the result to s.
func ModifyDefaultProp(s *workspace.MutableStorage, p DefaultProp, fn func(DefaultPropBuilder)) (DefaultProp, error) {
	e, err := s.ModifyEntity(p.Entity, func(b *entity.Builder) error {
		fn(DefaultPropBuilder{b: b})
		return nil
	})
	if err != nil {
		return DefaultProp{}, err
	}
	return DefaultProp{Entity: e}, nil
}
