package entities

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wsm/internal/entity"
	"github.com/roach88/wsm/internal/ir"
	"github.com/roach88/wsm/internal/workspace"
)

func newStorage() *workspace.MutableStorage {
	return workspace.New(workspace.WithLogger(slog.New(slog.DiscardHandler)))
}

func TestDefaultPropScenario(t *testing.T) {
	s := newStorage()

	orig, err := CreateDefaultProp(s, "a", []int64{1, 2}, 5, "S1", nil)
	require.NoError(t, err)
	assert.Equal(t, entity.EntitySource("S1"), orig.Source())
	assert.Equal(t, "a", orig.SomeString())
	assert.Equal(t, []int64{1, 2}, orig.SomeList())
	assert.Equal(t, int64(5), orig.ConstInt())

	next, err := ModifyDefaultProp(s, orig, func(b DefaultPropBuilder) {
		b.SomeList().Add(3)
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3}, next.SomeList())
	assert.Equal(t, "a", next.SomeString())
	assert.Equal(t, int64(5), next.ConstInt())
	assert.Equal(t, orig.ID(), next.ID())
	assert.Greater(t, next.Version(), orig.Version())
	assert.Equal(t, []int64{1, 2}, orig.SomeList())
}

func TestDefaultPropInit(t *testing.T) {
	s := newStorage()
	p, err := CreateDefaultProp(s, "a", nil, 1, "S1", func(b DefaultPropBuilder) {
		assert.Equal(t, "a", b.SomeString())
		assert.Equal(t, int64(1), b.ConstInt())
		b.SetSomeString("b")
		b.SetConstInt(2)
		b.SetSomeList([]int64{4, 4})
		b.SetEntitySource("S2")
	})
	require.NoError(t, err)

	assert.Equal(t, "b", p.SomeString())
	assert.Equal(t, int64(2), p.ConstInt())
	assert.Equal(t, []int64{4, 4}, p.SomeList())
	assert.Equal(t, entity.EntitySource("S2"), p.Source())
}

func TestDefaultPropRequiresConstInt(t *testing.T) {
	assert.Equal(t, []string{FieldSomeString, FieldSomeList, FieldConstInt}, DefaultPropDescriptor.RequiredFields())

	// The generic factory rejects a DefaultProp without constInt.
	_, err := entity.Create(DefaultPropDescriptor, "S1", ir.Object{
		FieldSomeString: ir.String("a"),
		FieldSomeList:   ir.Ints(),
	}, nil)
	assert.True(t, entity.IsMissingField(err))
}

func TestModifyDefaultPropStale(t *testing.T) {
	s := newStorage()
	other := newStorage()
	p, err := CreateDefaultProp(other, "a", nil, 1, "S1", nil)
	require.NoError(t, err)

	_, err = ModifyDefaultProp(s, p, func(b DefaultPropBuilder) { b.SetConstInt(9) })
	assert.True(t, entity.IsStaleEntity(err))
	assert.Equal(t, 0, s.Len())
}

// Records written under the schema where constInt had a default load under
// the current schema where it is required, keeping the stored value.
func TestDefaultPropSchemaEvolution(t *testing.T) {
	v1 := entity.MustDescriptor(DefaultPropSchemaV1())
	old := newStorage()
	b, err := entity.Create(v1, "S1", ir.Object{
		FieldSomeString: ir.String("a"),
		FieldSomeList:   ir.Ints(1),
		FieldConstInt:   ir.Int(7),
	}, nil)
	require.NoError(t, err)
	stored, err := old.AddEntity(b)
	require.NoError(t, err)

	rec, err := entity.Decode(DefaultPropDescriptor, stored.ID(), stored.Version(), stored.Source(), stored.Fields())
	require.NoError(t, err)
	p, ok := AsDefaultProp(rec.Entity())
	require.True(t, ok)
	assert.Equal(t, int64(7), p.ConstInt())
	assert.Equal(t, 2, p.Descriptor().Version())

	// A v1 record that never stored constInt cannot satisfy v2.
	_, err = entity.Decode(DefaultPropDescriptor, 2, 1, "S1", ir.Object{
		FieldSomeString: ir.String("a"),
		FieldSomeList:   ir.Ints(),
	})
	assert.True(t, entity.IsSchemaMismatch(err))
}

func TestCollectionField(t *testing.T) {
	s := newStorage()
	c, err := CreateCollectionField(s, []int64{1, 2, 2}, []string{"x", "x"}, "S1", nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []int64{1, 2}, c.Versions())
	assert.Equal(t, []string{"x", "x"}, c.Names())

	next, err := ModifyCollectionField(s, c, func(b CollectionFieldBuilder) {
		assert.False(t, b.Versions().Add(1))
		assert.True(t, b.Versions().Add(3))
		b.Names().Add("y")
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3}, next.Versions())
	assert.Equal(t, []string{"x", "x", "y"}, next.Names())
	assert.ElementsMatch(t, []int64{1, 2}, c.Versions())
}

func TestCollectionFieldSetNoopKeepsVersion(t *testing.T) {
	s := newStorage()
	c, err := CreateCollectionField(s, []int64{1}, nil, "S1", nil)
	require.NoError(t, err)

	same, err := ModifyCollectionField(s, c, func(b CollectionFieldBuilder) {
		b.Versions().Add(1)
	})
	require.NoError(t, err)
	assert.Equal(t, c.Version(), same.Version())
}

func TestAsWrappers(t *testing.T) {
	s := newStorage()
	c, err := CreateCollectionField(s, nil, nil, "S1", nil)
	require.NoError(t, err)

	_, ok := AsDefaultProp(c.Entity)
	assert.False(t, ok)
	_, ok = AsCollectionField(c.Entity)
	assert.True(t, ok)
	_, ok = AsDefaultProp(entity.Entity{})
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	reg := Registry()
	d, ok := reg.Lookup("DefaultProp")
	require.True(t, ok)
	assert.Same(t, DefaultPropDescriptor, d)
	_, ok = reg.Lookup("CollectionField")
	assert.True(t, ok)
}
