package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordHashDeterministic(t *testing.T) {
	fields := Object{"someString": String("a"), "someList": Ints(1, 2)}

	h1, err := RecordHash("DefaultProp", "S1", fields)
	require.NoError(t, err)
	h2, err := RecordHash("DefaultProp", "S1", Object{"someList": Ints(1, 2), "someString": String("a")})
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestRecordHashChangesWithInput(t *testing.T) {
	fields := Object{"someList": Ints(1, 2)}
	base := MustRecordHash("DefaultProp", "S1", fields)

	assert.NotEqual(t, base, MustRecordHash("Other", "S1", fields))
	assert.NotEqual(t, base, MustRecordHash("DefaultProp", "S2", fields))
	assert.NotEqual(t, base, MustRecordHash("DefaultProp", "S1", Object{"someList": Ints(2, 1)}))
}

func TestRecordHashDomainSeparation(t *testing.T) {
	data := []byte("payload")
	assert.NotEqual(t, hashWithDomain(DomainRecord, data), hashWithDomain(DomainSchema, data))
}

func TestSchemaHashCoversDefaults(t *testing.T) {
	withDefault := EntitySchema{Name: "E", Version: 1, Fields: []FieldSchema{
		{Name: "constInt", Kind: KindScalar, Type: TypeInt, Default: Int(5)},
	}}
	required := EntitySchema{Name: "E", Version: 1, Fields: []FieldSchema{
		{Name: "constInt", Kind: KindScalar, Type: TypeInt},
	}}

	h1, err := SchemaHash(withDefault)
	require.NoError(t, err)
	h2, err := SchemaHash(required)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}
