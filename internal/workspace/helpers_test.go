package workspace

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/wsm/internal/entity"
	"github.com/roach88/wsm/internal/ir"
)

var propDesc = entity.MustDescriptor(ir.EntitySchema{
	Name:    "DefaultProp",
	Version: 1,
	Fields: []ir.FieldSchema{
		{Name: "someString", Kind: ir.KindScalar, Type: ir.TypeString},
		{Name: "someList", Kind: ir.KindList, Type: ir.TypeInt},
		{Name: "constInt", Kind: ir.KindScalar, Type: ir.TypeInt, Default: ir.Int(5)},
		{Name: "tags", Kind: ir.KindSet, Type: ir.TypeString, Default: ir.Array{}},
	},
})

var noteDesc = entity.MustDescriptor(ir.EntitySchema{
	Name:    "Note",
	Version: 1,
	Fields: []ir.FieldSchema{
		{Name: "text", Kind: ir.KindScalar, Type: ir.TypeString, Default: ir.String("")},
	},
})

func newTestStorage(opts ...Option) *MutableStorage {
	opts = append([]Option{WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	return New(opts...)
}

func createProp(t *testing.T, s *MutableStorage, str string, list ...int64) entity.Entity {
	t.Helper()
	e, err := s.Create(propDesc, "S1", ir.Object{
		"someString": ir.String(str),
		"someList":   ir.Ints(list...),
	}, nil)
	require.NoError(t, err)
	return e
}
