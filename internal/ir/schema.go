package ir

import (
	"encoding/json"
	"fmt"
)

// SourceField is the reserved name of the entity-source field every entity
// type carries.
const SourceField = "entitySource"

// FieldKind distinguishes scalar fields from collection-valued ones.
type FieldKind string

const (
	KindScalar FieldKind = "scalar"
	KindList   FieldKind = "list" // ordered sequence, duplicates allowed
	KindSet    FieldKind = "set"  // unique elements, no defined order
	KindSource FieldKind = "source"
)

// ValidKinds lists the kinds a schema may declare. KindSource is implicit.
var ValidKinds = map[FieldKind]bool{
	KindScalar: true,
	KindList:   true,
	KindSet:    true,
}

// ElemType is the value type of a scalar field or of a collection's elements.
type ElemType string

const (
	TypeString ElemType = "string"
	TypeInt    ElemType = "int"
	TypeBool   ElemType = "bool"
	TypeAny    ElemType = "any"
)

// ValidElemTypes lists the element types a schema may declare.
var ValidElemTypes = map[ElemType]bool{
	TypeString: true,
	TypeInt:    true,
	TypeBool:   true,
	TypeAny:    true,
}

// Accepts reports whether v is in the value domain of t.
func (t ElemType) Accepts(v Value) bool {
	switch t {
	case TypeString:
		_, ok := v.(String)
		return ok
	case TypeInt:
		_, ok := v.(Int)
		return ok
	case TypeBool:
		_, ok := v.(Bool)
		return ok
	case TypeAny:
		return v != nil
	default:
		return false
	}
}

// FieldSchema declares one field of an entity type.
type FieldSchema struct {
	Name string    `json:"name"`
	Kind FieldKind `json:"kind"`
	Type ElemType  `json:"type"`
	// Default is the value used when a builder is created without one.
	// A nil Default makes the field required at construction time.
	Default Value `json:"default,omitempty"`
}

// UnmarshalJSON decodes a field, parsing its default strictly.
func (f *FieldSchema) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name    string          `json:"name"`
		Kind    FieldKind       `json:"kind"`
		Type    ElemType        `json:"type"`
		Default json.RawMessage `json:"default"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = FieldSchema{Name: raw.Name, Kind: raw.Kind, Type: raw.Type}
	if len(raw.Default) > 0 {
		def, err := UnmarshalValue(raw.Default)
		if err != nil {
			return fmt.Errorf("field %s default: %w", raw.Name, err)
		}
		f.Default = def
	}
	return nil
}

// Required reports whether the field must be supplied explicitly.
func (f FieldSchema) Required() bool {
	return f.Default == nil
}

// Check reports whether v is in the field's value domain: an element of
// Type for scalars, an Array of such elements for lists, and an Array of
// unique such elements for sets.
func (f FieldSchema) Check(v Value) error {
	return f.check(v, true)
}

// CheckElems is Check without the set uniqueness rule, for values that are
// about to be collapsed into a set.
func (f FieldSchema) CheckElems(v Value) error {
	return f.check(v, false)
}

func (f FieldSchema) check(v Value, unique bool) error {
	switch f.Kind {
	case KindScalar:
		if !f.Type.Accepts(v) {
			return fmt.Errorf("expected %s, got %s", f.Type, TypeName(v))
		}
	case KindList, KindSet:
		arr, ok := v.(Array)
		if !ok {
			return fmt.Errorf("expected array of %s, got %s", f.Type, TypeName(v))
		}
		seen := make(map[string]bool, len(arr))
		for i, elem := range arr {
			if !f.Type.Accepts(elem) {
				return fmt.Errorf("element %d: expected %s, got %s", i, f.Type, TypeName(elem))
			}
			if f.Kind == KindSet && unique {
				k := Key(elem)
				if seen[k] {
					return fmt.Errorf("element %d: duplicate set element %s", i, k)
				}
				seen[k] = true
			}
		}
	case KindSource:
		if _, ok := v.(String); !ok {
			return fmt.Errorf("expected string source, got %s", TypeName(v))
		}
	default:
		return fmt.Errorf("unknown field kind %q", f.Kind)
	}
	return nil
}

// EntitySchema is the registration contract for one entity type.
// Field order is declaration order and is preserved everywhere.
type EntitySchema struct {
	Name    string        `json:"name"`
	Version int           `json:"version"`
	Fields  []FieldSchema `json:"fields"`
}

// Field returns the field with the given name.
func (s EntitySchema) Field(name string) (FieldSchema, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSchema{}, false
}
