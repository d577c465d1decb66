package workspace

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wsm/internal/entity"
	"github.com/roach88/wsm/internal/ir"
)

func TestCreateStoresConstructorValues(t *testing.T) {
	s := newTestStorage()
	e, err := s.Create(propDesc, "S1", ir.Object{
		"someString": ir.String("a"),
		"someList":   ir.Ints(1, 2),
		"constInt":   ir.Int(7),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, entity.ID(1), e.ID())
	assert.Equal(t, entity.EntitySource("S1"), e.Source())
	assert.Equal(t, "a", e.String("someString"))
	assert.Equal(t, ir.Ints(1, 2), e.Values("someList"))
	assert.Equal(t, int64(7), e.Int("constInt"))
	assert.Equal(t, int64(1), e.Version())

	got, ok := s.Resolve(e.ID())
	require.True(t, ok)
	assert.True(t, got.SameVersion(e))
	assert.Equal(t, 1, s.Len())
}

func TestCreateCollapsesDuplicateSetValues(t *testing.T) {
	s := newTestStorage()
	e, err := s.Create(propDesc, "S1", ir.Object{
		"someString": ir.String("a"),
		"someList":   ir.Ints(),
		"tags":       ir.Strings("x", "x"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.Strings("x"), e.Values("tags"))
}

func TestCreateMissingFieldLeavesStorageUnchanged(t *testing.T) {
	s := newTestStorage()
	_, err := s.Create(propDesc, "S1", ir.Object{"someString": ir.String("a")}, nil)
	require.Error(t, err)
	assert.True(t, entity.IsMissingField(err))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, entity.ID(0), s.LastID())

	// A builder committed directly is checked the same way, before the
	// clock advances.
	b := propDesc.NewBuilder("S1")
	_, err = s.AddEntity(b)
	assert.True(t, entity.IsMissingField(err))
	assert.Equal(t, int64(0), s.Snapshot().Clock())
}

func TestAddEntityAllocatesIDs(t *testing.T) {
	s := newTestStorage()
	a := createProp(t, s, "a")
	b := createProp(t, s, "b")
	assert.Equal(t, entity.ID(1), a.ID())
	assert.Equal(t, entity.ID(2), b.ID())
	assert.Less(t, a.Version(), b.Version())
}

func TestAddEntityExplicitID(t *testing.T) {
	s := newTestStorage()
	b, err := entity.Create(noteDesc, "S1", nil, nil)
	require.NoError(t, err)

	e, err := s.AddEntity(b, WithID(10))
	require.NoError(t, err)
	assert.Equal(t, entity.ID(10), e.ID())

	_, err = s.AddEntity(b, WithID(10))
	require.Error(t, err)
	assert.True(t, entity.IsDuplicateIdentity(err))
	assert.Equal(t, 1, s.Len())

	// Allocation continues after the explicit ID.
	next, err := s.AddEntity(b)
	require.NoError(t, err)
	assert.Equal(t, entity.ID(11), next.ID())

	_, err = s.AddEntity(b, WithID(-1))
	assert.Error(t, err)
}

func TestModifyEntityCopyOnWrite(t *testing.T) {
	s := newTestStorage()
	orig := createProp(t, s, "a", 1, 2)

	next, err := s.ModifyEntity(orig, func(b *entity.Builder) error {
		return b.Set("someString", ir.String("b"))
	})
	require.NoError(t, err)

	assert.Equal(t, orig.ID(), next.ID())
	assert.Greater(t, next.Version(), orig.Version())
	assert.Equal(t, "b", next.String("someString"))
	assert.Equal(t, ir.Ints(1, 2), next.Values("someList"))
	assert.Equal(t, int64(5), next.Int("constInt"))
	assert.Equal(t, entity.EntitySource("S1"), next.Source())

	// The old view is bound to the old record.
	assert.Equal(t, "a", orig.String("someString"))

	cur, _ := s.Resolve(orig.ID())
	assert.True(t, cur.SameVersion(next))
}

func TestModifyEntityFromOlderView(t *testing.T) {
	s := newTestStorage()
	v1 := createProp(t, s, "a", 1)

	_, err := s.ModifyEntity(v1, func(b *entity.Builder) error {
		return b.Set("constInt", ir.Int(6))
	})
	require.NoError(t, err)

	// Modifying through the stale view applies to the current record.
	v3, err := s.ModifyEntity(v1, func(b *entity.Builder) error {
		return b.Set("someString", ir.String("c"))
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), v3.Int("constInt"))
	assert.Equal(t, "c", v3.String("someString"))
}

// Concrete scenario: add to a list inside modifyEntity.
func TestModifyEntityListAdd(t *testing.T) {
	s := newTestStorage()
	orig, err := s.Create(propDesc, "S1", ir.Object{
		"someString": ir.String("a"),
		"someList":   ir.Ints(1, 2),
		"constInt":   ir.Int(5),
	}, nil)
	require.NoError(t, err)

	next, err := s.ModifyEntity(orig, func(b *entity.Builder) error {
		l, err := b.ListField("someList")
		if err != nil {
			return err
		}
		return l.Add(ir.Int(3))
	})
	require.NoError(t, err)

	assert.Equal(t, ir.Ints(1, 2, 3), next.Values("someList"))
	assert.Equal(t, "a", next.String("someString"))
	assert.Equal(t, int64(5), next.Int("constInt"))
	assert.NotEqual(t, orig.Version(), next.Version())
	assert.Greater(t, next.Version(), orig.Version())
	assert.Equal(t, ir.Ints(1, 2), orig.Values("someList"))
}

func TestModifyEntitySetAndListDuplicates(t *testing.T) {
	s := newTestStorage()
	e := createProp(t, s, "a")

	e, err := s.ModifyEntity(e, func(b *entity.Builder) error {
		tags, err := b.SetField("tags")
		if err != nil {
			return err
		}
		if _, err := tags.Add(ir.String("x")); err != nil {
			return err
		}
		if _, err := tags.Add(ir.String("x")); err != nil {
			return err
		}
		l, err := b.ListField("someList")
		if err != nil {
			return err
		}
		return l.AddAll(ir.Int(9), ir.Int(9))
	})
	require.NoError(t, err)

	assert.Equal(t, ir.Strings("x"), e.Values("tags"))
	assert.Equal(t, ir.Ints(9, 9), e.Values("someList"))
}

func TestModifyEntityStale(t *testing.T) {
	s := newTestStorage()
	other := newTestStorage()
	createProp(t, other, "elsewhere")
	createProp(t, other, "elsewhere too")
	stale, _ := other.Resolve(2)

	local := createProp(t, s, "a")
	before := s.Snapshot()

	called := false
	_, err := s.ModifyEntity(stale, func(*entity.Builder) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, entity.IsStaleEntity(err))
	assert.False(t, called)

	// Same ID as a local entity, different type.
	third := newTestStorage()
	n, err := entity.Create(noteDesc, "S1", nil, nil)
	require.NoError(t, err)
	note, err := third.AddEntity(n)
	require.NoError(t, err)
	require.Equal(t, local.ID(), note.ID())
	_, err = s.ModifyEntity(note, func(*entity.Builder) error { return nil })
	assert.True(t, entity.IsStaleEntity(err))

	after := s.Snapshot()
	assert.Equal(t, before.Len(), after.Len())
	assert.Equal(t, before.Clock(), after.Clock())
	e1, _ := before.Resolve(local.ID())
	e2, _ := after.Resolve(local.ID())
	assert.True(t, e1.SameVersion(e2))
}

func TestModifyEntityForeignInstanceWithCollidingID(t *testing.T) {
	s := newTestStorage()
	other := newTestStorage()
	foreign := createProp(t, other, "elsewhere")
	local := createProp(t, s, "a")
	require.Equal(t, foreign.ID(), local.ID())
	require.Equal(t, foreign.Type(), local.Type())
	assert.False(t, foreign.SameEntity(local))

	_, err := s.ModifyEntity(foreign, func(b *entity.Builder) error {
		return b.Set("someString", ir.String("overwritten"))
	})
	require.Error(t, err)
	assert.True(t, entity.IsStaleEntity(err))

	err = s.RemoveEntity(foreign)
	assert.True(t, entity.IsStaleEntity(err))

	cur, ok := s.Resolve(local.ID())
	require.True(t, ok)
	assert.True(t, cur.SameVersion(local))
	assert.Equal(t, "a", cur.String("someString"))
}

func TestAddEntityRejectsRetiredAndSkippedIDs(t *testing.T) {
	s := newTestStorage()
	old := createProp(t, s, "a")
	require.NoError(t, s.RemoveEntity(old))

	b, err := entity.Create(propDesc, "S1", ir.Object{
		"someString": ir.String("new"),
		"someList":   ir.Ints(),
	}, nil)
	require.NoError(t, err)
	_, err = s.AddEntity(b, WithID(old.ID()))
	require.Error(t, err)
	assert.True(t, entity.IsDuplicateIdentity(err))

	_, err = s.ModifyEntity(old, func(b *entity.Builder) error {
		return b.Set("someString", ir.String("via removed view"))
	})
	assert.True(t, entity.IsStaleEntity(err))

	// IDs skipped by an explicit ID stay below the high-water mark.
	_, err = s.AddEntity(b, WithID(10))
	require.NoError(t, err)
	_, err = s.AddEntity(b, WithID(5))
	assert.True(t, entity.IsDuplicateIdentity(err))
	assert.Equal(t, 1, s.Len())
}

func TestModifyEntityNilFunc(t *testing.T) {
	s := newTestStorage()
	e := createProp(t, s, "a")

	_, err := s.ModifyEntity(e, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil modify function")

	cur, _ := s.Resolve(e.ID())
	assert.True(t, cur.SameVersion(e))
}

func TestModifyEntityRemoved(t *testing.T) {
	s := newTestStorage()
	e := createProp(t, s, "a")
	require.NoError(t, s.RemoveEntity(e))

	_, err := s.ModifyEntity(e, func(b *entity.Builder) error {
		return b.Set("someString", ir.String("b"))
	})
	assert.True(t, entity.IsStaleEntity(err))
}

func TestModifyEntityCallbackErrorIsAtomic(t *testing.T) {
	s := newTestStorage()
	e := createProp(t, s, "a", 1)
	boom := errors.New("boom")

	_, err := s.ModifyEntity(e, func(b *entity.Builder) error {
		if err := b.Set("someString", ir.String("changed")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	cur, _ := s.Resolve(e.ID())
	assert.True(t, cur.SameVersion(e))
	assert.Equal(t, "a", cur.String("someString"))

	_, err = s.ModifyEntity(e, func(b *entity.Builder) error {
		return b.Set("constInt", ir.String("five"))
	})
	assert.True(t, entity.IsSchemaMismatch(err))
	cur, _ = s.Resolve(e.ID())
	assert.True(t, cur.SameVersion(e))
}

func TestModifyEntityNoChanges(t *testing.T) {
	s := newTestStorage()
	e := createProp(t, s, "a")
	clock := s.Snapshot().Clock()

	got, err := s.ModifyEntity(e, func(b *entity.Builder) error {
		_, _ = b.Get("someString")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, got.SameVersion(e))
	assert.Equal(t, clock, s.Snapshot().Clock())
}

func TestRemoveEntity(t *testing.T) {
	s := newTestStorage()
	a := createProp(t, s, "a")
	b := createProp(t, s, "b")

	require.NoError(t, s.RemoveEntity(a))
	_, ok := s.Resolve(a.ID())
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())

	err := s.RemoveEntity(a)
	assert.True(t, entity.IsStaleEntity(err))

	// IDs are not reused.
	c := createProp(t, s, "c")
	assert.Equal(t, b.ID()+1, c.ID())
}

func TestEntitiesQueries(t *testing.T) {
	s := newTestStorage()
	createProp(t, s, "a")
	n, err := s.Create(noteDesc, "S2", ir.Object{"text": ir.String("hi")}, nil)
	require.NoError(t, err)
	createProp(t, s, "b")

	props := s.Entities(propDesc)
	require.Len(t, props, 2)
	assert.Equal(t, "a", props[0].String("someString"))
	assert.Equal(t, "b", props[1].String("someString"))

	assert.Len(t, s.Entities(nil), 3)

	fromS2 := s.EntitiesBySource("S2")
	require.Len(t, fromS2, 1)
	assert.Equal(t, n.ID(), fromS2[0].ID())
	assert.Empty(t, s.EntitiesBySource("none"))
}

func TestFromRecords(t *testing.T) {
	s := newTestStorage()
	createProp(t, s, "a")
	b := createProp(t, s, "b")
	require.NoError(t, s.RemoveEntity(b))
	snap := s.Snapshot()

	restored, err := FromRecords(snap.Records(), snap.LastID(), snap.Clock(),
		WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)
	assert.Equal(t, 1, restored.Len())

	c := createProp(t, restored, "c")
	assert.Equal(t, entity.ID(3), c.ID(), "removed IDs stay retired")
	assert.Greater(t, c.Version(), snap.Clock())

	recs := snap.Records()
	_, err = FromRecords(append(recs, recs[0]), 0, 0)
	assert.True(t, entity.IsDuplicateIdentity(err))
}

type fixedClock struct{ n int64 }

func (c *fixedClock) Next() int64    { c.n += 10; return c.n }
func (c *fixedClock) Current() int64 { return c.n }

func TestWithClock(t *testing.T) {
	s := newTestStorage(WithClock(&fixedClock{}))
	a := createProp(t, s, "a")
	b := createProp(t, s, "b")
	assert.Equal(t, int64(10), a.Version())
	assert.Equal(t, int64(20), b.Version())
}

func TestRejectionIsLogged(t *testing.T) {
	var buf bytes.Buffer
	s := New(WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	e := createProp(t, s, "a")
	require.NoError(t, s.RemoveEntity(e))

	_, err := s.ModifyEntity(e, func(*entity.Builder) error { return nil })
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"msg":"storage operation rejected"`)
	assert.Contains(t, buf.String(), `"op":"modify"`)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}
