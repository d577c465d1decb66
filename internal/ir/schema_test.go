package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElemTypeAccepts(t *testing.T) {
	tests := []struct {
		typ  ElemType
		v    Value
		want bool
	}{
		{TypeString, String("a"), true},
		{TypeString, Int(1), false},
		{TypeInt, Int(1), true},
		{TypeInt, Bool(true), false},
		{TypeBool, Bool(false), true},
		{TypeAny, Object{}, true},
		{TypeAny, nil, false},
		{ElemType("float"), Int(1), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.Accepts(tt.v), "%s accepts %s", tt.typ, TypeName(tt.v))
	}
}

func TestFieldSchemaRequired(t *testing.T) {
	assert.True(t, FieldSchema{Name: "constInt", Type: TypeInt}.Required())
	assert.False(t, FieldSchema{Name: "constInt", Type: TypeInt, Default: Int(5)}.Required())
}

func TestEntitySchemaField(t *testing.T) {
	s := EntitySchema{Name: "E", Fields: []FieldSchema{{Name: "a"}, {Name: "b"}}}
	f, ok := s.Field("b")
	assert.True(t, ok)
	assert.Equal(t, "b", f.Name)
	_, ok = s.Field("c")
	assert.False(t, ok)
}

func TestFieldSchemaCheck(t *testing.T) {
	tests := []struct {
		name    string
		field   FieldSchema
		v       Value
		wantErr string
	}{
		{"scalar ok", FieldSchema{Kind: KindScalar, Type: TypeInt}, Int(5), ""},
		{"scalar wrong type", FieldSchema{Kind: KindScalar, Type: TypeInt}, String("5"), "expected int, got string"},
		{"list ok with duplicates", FieldSchema{Kind: KindList, Type: TypeInt}, Ints(1, 1), ""},
		{"list not array", FieldSchema{Kind: KindList, Type: TypeInt}, Int(1), "expected array of int"},
		{"list bad element", FieldSchema{Kind: KindList, Type: TypeString}, Array{String("a"), Int(1)}, "element 1"},
		{"set ok", FieldSchema{Kind: KindSet, Type: TypeInt}, Ints(1, 2), ""},
		{"set duplicate", FieldSchema{Kind: KindSet, Type: TypeInt}, Ints(1, 1), "duplicate set element"},
		{"source ok", FieldSchema{Kind: KindSource}, String("S1"), ""},
		{"unknown kind", FieldSchema{Kind: "map", Type: TypeInt}, Int(1), "unknown field kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.field.Check(tt.v)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFieldSchemaCheckElems(t *testing.T) {
	set := FieldSchema{Kind: KindSet, Type: TypeInt}
	assert.NoError(t, set.CheckElems(Ints(1, 1)))
	assert.ErrorContains(t, set.CheckElems(Array{String("a")}), "element 0")
	assert.ErrorContains(t, set.CheckElems(Int(1)), "expected array of int")
	assert.ErrorContains(t, set.Check(Ints(1, 1)), "duplicate set element")
}

func TestFieldSchemaJSON(t *testing.T) {
	in := EntitySchema{
		Name:    "Note",
		Version: 1,
		Fields: []FieldSchema{
			{Name: "text", Kind: KindScalar, Type: TypeString, Default: String("")},
			{Name: "tags", Kind: KindSet, Type: TypeInt, Default: Array{Int(1)}},
			{Name: "title", Kind: KindScalar, Type: TypeString},
		},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out EntitySchema
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
	assert.True(t, out.Fields[2].Required())

	err = json.Unmarshal([]byte(`{"name":"x","kind":"scalar","type":"int","default":1.5}`), &FieldSchema{})
	assert.ErrorContains(t, err, "floats are not valid values")
}
