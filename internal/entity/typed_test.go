package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wsm/internal/ir"
)

type label string

func TestScalarConversions(t *testing.T) {
	assert.Equal(t, ir.String("a"), ScalarValue("a"))
	assert.Equal(t, ir.Int(3), ScalarValue(int64(3)))
	assert.Equal(t, ir.Bool(true), ScalarValue(true))
	assert.Equal(t, ir.String("x"), ScalarValue(label("x")))

	v, ok := ScalarOf[label](ir.String("x"))
	require.True(t, ok)
	assert.Equal(t, label("x"), v)

	_, ok = ScalarOf[int64](ir.String("x"))
	assert.False(t, ok)

	assert.Equal(t, ir.Ints(1, 2), ArrayOf[int64](1, 2))
	assert.Equal(t, []int64{1, 3}, ValuesOf[int64](ir.Array{ir.Int(1), ir.String("2"), ir.Int(3)}))
}

func TestTypedList(t *testing.T) {
	d := propDescriptor(t)
	b := d.NewBuilder("src")

	l, err := ListOf[int64](b, "someList")
	require.NoError(t, err)
	l.AddAll(1, 2)
	l.Add(2)
	require.NoError(t, l.Insert(0, 0))
	require.NoError(t, l.SetAt(1, 10))
	assert.Equal(t, []int64{0, 10, 2, 2}, l.Values())
	assert.Equal(t, int64(10), l.At(1))
	assert.True(t, l.Remove(2))
	assert.True(t, l.Contains(2))
	require.NoError(t, l.RemoveAt(0))
	assert.Equal(t, 2, l.Len())

	v, _ := b.Get("someList")
	assert.Equal(t, ir.Ints(10, 2), v)
	assert.Equal(t, []string{"someList"}, b.Changed())

	_, err = ListOf[string](b, "someList")
	assert.True(t, IsSchemaMismatch(err))
}

func TestTypedSet(t *testing.T) {
	d := propDescriptor(t)
	b := d.NewBuilder("src")

	s, err := SetOf[label](b, "tags")
	require.NoError(t, err)
	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("a"))
	assert.True(t, s.Add("b"))
	assert.True(t, s.Remove("a"))
	assert.False(t, s.Contains("a"))
	assert.Equal(t, []label{"b"}, s.Values())
	assert.Equal(t, 1, s.Len())

	s.Clear()
	v, _ := b.Get("tags")
	assert.Equal(t, ir.Array{}, v)

	_, err = SetOf[bool](b, "tags")
	assert.True(t, IsSchemaMismatch(err))
}
