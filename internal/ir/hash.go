package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix leaves room for
// algorithm migration.
const (
	DomainRecord = "wsm/record/v1"
	DomainSchema = "wsm/schema/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RecordHash computes the content hash of a record's payload: its entity
// type, source and field values. Identity and version are excluded, so two
// records with equal content hash equally regardless of when they were
// committed.
func RecordHash(entityType, source string, fields Object) (string, error) {
	obj := Object{
		"entity_type": String(entityType),
		"source":      String(source),
		"fields":      fields,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("RecordHash: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

// SchemaHash computes a hash over an entity schema, covering field names,
// kinds, types and defaults in declaration order.
func SchemaHash(s EntitySchema) (string, error) {
	fields := make(Array, len(s.Fields))
	for i, f := range s.Fields {
		field := Object{
			"name": String(f.Name),
			"kind": String(f.Kind),
			"type": String(f.Type),
		}
		if f.Default != nil {
			field["default"] = f.Default
		}
		fields[i] = field
	}
	canonical, err := MarshalCanonical(Object{
		"name":    String(s.Name),
		"version": Int(s.Version),
		"fields":  fields,
	})
	if err != nil {
		return "", fmt.Errorf("SchemaHash: %w", err)
	}
	return hashWithDomain(DomainSchema, canonical), nil
}

// MustRecordHash is like RecordHash but panics on error.
// Use only in tests or when fields are known to be valid.
func MustRecordHash(entityType, source string, fields Object) string {
	h, err := RecordHash(entityType, source, fields)
	if err != nil {
		panic(err)
	}
	return h
}
