package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = String("a")
	var _ Value = Int(1)
	var _ Value = Bool(true)
	var _ Value = Array{String("a"), Int(1)}
	var _ Value = Object{"k": String("v")}
}

func TestObjectSortedKeysUTF16Order(t *testing.T) {
	obj := Object{
		"a":  Int(1),
		"A":  Int(2),
		"aa": Int(3),
		"Aa": Int(4),
		"AA": Int(5),
	}
	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aa"}, obj.SortedKeys())
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same string", String("x"), String("x"), true},
		{"different string", String("x"), String("y"), false},
		{"int vs string", Int(1), String("1"), false},
		{"arrays", Ints(1, 2), Ints(1, 2), true},
		{"array order matters", Ints(1, 2), Ints(2, 1), false},
		{"array length", Ints(1), Ints(1, 1), false},
		{"objects", ObjectOf(P("a", Int(1))), Object{"a": Int(1)}, true},
		{"object values", Object{"a": Int(1)}, Object{"a": Int(2)}, false},
		{"object keys", Object{"a": Int(1)}, Object{"b": Int(1)}, false},
		{"nested", Array{Object{"a": Ints(1)}}, Array{Object{"a": Ints(1)}}, true},
		{"nil and nil", nil, nil, true},
		{"nil and value", nil, Int(0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := Array{Ints(1, 2), Object{"k": Strings("a")}}
	cp := Clone(orig).(Array)

	cp[0].(Array)[0] = Int(99)
	cp[1].(Object)["k"] = String("changed")

	assert.Equal(t, Int(1), orig[0].(Array)[0])
	assert.Equal(t, Strings("a"), orig[1].(Object)["k"])
}

func TestKeyMatchesEqual(t *testing.T) {
	assert.Equal(t, Key(Object{"b": Int(1), "a": Int(2)}), Key(Object{"a": Int(2), "b": Int(1)}))
	assert.NotEqual(t, Key(Int(1)), Key(String("1")))
	assert.Panics(t, func() { Key(nil) })
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{
		"s":    "x",
		"n":    3,
		"b":    true,
		"list": []any{1, int64(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, Object{
		"s":    String("x"),
		"n":    Int(3),
		"b":    Bool(true),
		"list": Ints(1, 2),
	}, v)

	_, err = FromGo(1.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float")

	_, err = FromGo([]any{"a", nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[1]")
}

func TestToGoRoundTrip(t *testing.T) {
	v := Object{"list": Strings("a", "b"), "n": Int(7)}
	back, err := FromGo(ToGo(v))
	require.NoError(t, err)
	assert.True(t, Equal(v, back))
}

func TestUnmarshalValueStrict(t *testing.T) {
	v, err := UnmarshalValue([]byte(`{"big":9223372036854775807,"xs":[1,"a",true]}`))
	require.NoError(t, err)
	assert.Equal(t, Object{
		"big": Int(9223372036854775807),
		"xs":  Array{Int(1), String("a"), Bool(true)},
	}, v)

	_, err = UnmarshalValue([]byte(`1.5`))
	assert.ErrorContains(t, err, "float")

	_, err = UnmarshalValue([]byte(`{"a":null}`))
	assert.ErrorContains(t, err, "null")
}

func TestObjectJSONRoundTrip(t *testing.T) {
	obj := Object{"b": Ints(1), "a": String("<x>")}
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<x>","b":[1]}`, string(data))

	var back Object
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, obj, back)

	var arr Array
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &arr))
}
