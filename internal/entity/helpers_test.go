package entity

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/wsm/internal/ir"
)

func propSchema() ir.EntitySchema {
	return ir.EntitySchema{
		Name:    "DefaultProp",
		Version: 2,
		Fields: []ir.FieldSchema{
			{Name: "someString", Kind: ir.KindScalar, Type: ir.TypeString},
			{Name: "someList", Kind: ir.KindList, Type: ir.TypeInt},
			{Name: "constInt", Kind: ir.KindScalar, Type: ir.TypeInt, Default: ir.Int(5)},
			{Name: "tags", Kind: ir.KindSet, Type: ir.TypeString, Default: ir.Array{}},
		},
	}
}

func propDescriptor(t *testing.T) *Descriptor {
	t.Helper()
	d, err := NewDescriptor(propSchema())
	require.NoError(t, err)
	return d
}

func newProp(t *testing.T, d *Descriptor, id ID, version int64) *Record {
	t.Helper()
	b, err := Create(d, "test", ir.Object{
		"someString": ir.String("x"),
		"someList":   ir.Ints(1, 2),
	}, nil)
	require.NoError(t, err)
	rec, err := Commit(b, id, version)
	require.NoError(t, err)
	return rec
}
