package entity

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/roach88/wsm/internal/ir"
)

// Field is one declared field of a Descriptor, with its position in
// declaration order. The entity-source field is always last.
type Field struct {
	ir.FieldSchema
	Index int
}

// Descriptor is the runtime description of one entity type: its name,
// version and ordered fields. Descriptors are immutable once built.
type Descriptor struct {
	name    string
	version int
	fields  []Field
	byName  map[string]int
	hash    string
}

// NewDescriptor builds a Descriptor from a schema. The entity-source field
// is appended implicitly and must not be declared.
func NewDescriptor(schema ir.EntitySchema) (*Descriptor, error) {
	if schema.Name == "" {
		return nil, fmt.Errorf("NewDescriptor: entity name is required")
	}
	if schema.Version < 1 {
		return nil, fmt.Errorf("NewDescriptor %s: version must be positive, got %d", schema.Name, schema.Version)
	}

	d := &Descriptor{
		name:    schema.Name,
		version: schema.Version,
		fields:  make([]Field, 0, len(schema.Fields)+1),
		byName:  make(map[string]int, len(schema.Fields)+1),
	}
	for _, fs := range schema.Fields {
		if fs.Name == "" {
			return nil, fmt.Errorf("NewDescriptor %s: field name is required", schema.Name)
		}
		if fs.Name == ir.SourceField {
			return nil, fmt.Errorf("NewDescriptor %s: %s is implicit and cannot be declared", schema.Name, ir.SourceField)
		}
		if _, dup := d.byName[fs.Name]; dup {
			return nil, fmt.Errorf("NewDescriptor %s: duplicate field %q", schema.Name, fs.Name)
		}
		if !ir.ValidKinds[fs.Kind] {
			return nil, fmt.Errorf("NewDescriptor %s: field %q: invalid kind %q", schema.Name, fs.Name, fs.Kind)
		}
		if !ir.ValidElemTypes[fs.Type] {
			return nil, fmt.Errorf("NewDescriptor %s: field %q: invalid type %q", schema.Name, fs.Name, fs.Type)
		}
		if fs.Default != nil {
			if err := fs.Check(fs.Default); err != nil {
				return nil, fmt.Errorf("NewDescriptor %s: field %q default: %w", schema.Name, fs.Name, err)
			}
			fs.Default = ir.Clone(fs.Default)
		}
		d.byName[fs.Name] = len(d.fields)
		d.fields = append(d.fields, Field{FieldSchema: fs, Index: len(d.fields)})
	}
	d.byName[ir.SourceField] = len(d.fields)
	d.fields = append(d.fields, Field{
		FieldSchema: ir.FieldSchema{
			Name:    ir.SourceField,
			Kind:    ir.KindSource,
			Type:    ir.TypeString,
			Default: ir.String(""),
		},
		Index: len(d.fields),
	})

	hash, err := ir.SchemaHash(d.Schema())
	if err != nil {
		return nil, fmt.Errorf("NewDescriptor %s: %w", schema.Name, err)
	}
	d.hash = hash
	return d, nil
}

// MustDescriptor is like NewDescriptor but panics on error.
// Intended for package-level descriptor variables.
func MustDescriptor(schema ir.EntitySchema) *Descriptor {
	d, err := NewDescriptor(schema)
	if err != nil {
		panic(err)
	}
	return d
}

// Name returns the entity type name.
func (d *Descriptor) Name() string { return d.name }

// Version returns the schema version.
func (d *Descriptor) Version() int { return d.version }

// Hash returns the schema hash.
func (d *Descriptor) Hash() string { return d.hash }

// Fields returns all fields in declaration order, entity source last.
func (d *Descriptor) Fields() []Field {
	return slices.Clone(d.fields)
}

// Field looks up a field by name, including the entity-source field.
func (d *Descriptor) Field(name string) (Field, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Field{}, false
	}
	return d.fields[i], true
}

// RequiredFields names the fields that must be supplied at construction.
func (d *Descriptor) RequiredFields() []string {
	var names []string
	for _, f := range d.fields {
		if f.Required() {
			names = append(names, f.Name)
		}
	}
	return names
}

// Schema returns the declared schema, without the implicit source field.
func (d *Descriptor) Schema() ir.EntitySchema {
	s := ir.EntitySchema{
		Name:    d.name,
		Version: d.version,
		Fields:  make([]ir.FieldSchema, 0, len(d.fields)-1),
	}
	for _, f := range d.fields {
		if f.Kind == ir.KindSource {
			continue
		}
		fs := f.FieldSchema
		if fs.Default != nil {
			fs.Default = ir.Clone(fs.Default)
		}
		s.Fields = append(s.Fields, fs)
	}
	return s
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s@v%d", d.name, d.version)
}

// lookup resolves a field name or returns a schema-mismatch error.
func (d *Descriptor) lookup(name string) (Field, error) {
	f, ok := d.Field(name)
	if !ok {
		return Field{}, NewSchemaMismatchError(d.name, name, fmt.Errorf("unknown field %q", name))
	}
	return f, nil
}

// Registry maps entity type names to descriptors. Registration happens once
// at startup; lookups are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Descriptor
}

// NewRegistry creates a registry holding the given descriptors.
func NewRegistry(descs ...*Descriptor) (*Registry, error) {
	r := &Registry{types: make(map[string]*Descriptor, len(descs))}
	for _, d := range descs {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a descriptor. Names must be unique.
func (r *Registry) Register(d *Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.types == nil {
		r.types = make(map[string]*Descriptor)
	}
	if _, exists := r.types[d.name]; exists {
		return fmt.Errorf("Register: entity type %q already registered", d.name)
	}
	r.types[d.name] = d
	return nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.types[name]
	return d, ok
}

// Descriptors returns all registered descriptors sorted by name.
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, 0, len(r.types))
	for _, d := range r.types {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
