package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/wsm/internal/ir"
)

// marshalFields converts a record's fields to canonical JSON TEXT.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalFields(fields ir.Object) (string, error) {
	data, err := ir.MarshalCanonical(fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

// unmarshalFields parses canonical JSON TEXT to an ir.Object.
// ir.Object.UnmarshalJSON keeps integers exact and rejects floats and null.
func unmarshalFields(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	var obj ir.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return obj, nil
}
