package schema

import (
	"fmt"
	"sync"
)

// Schema is the registry entry for one declared document type: the
// inheritance-flattened field map plus the collection the type is stored in.
// A Schema is built once by Declare and never mutated afterwards.
type Schema struct {
	Name       string
	Collection string
	Parent     *Schema

	// fields is the merged accessor table, keyed by semantic field name.
	fields map[string]*FieldDescriptor

	// order keeps declaration order, parent fields first.
	order []string
}

// DeclareOption adjusts a type declaration.
type DeclareOption func(*Schema)

// WithParent makes the new type inherit every field of parent.
func WithParent(parent *Schema) DeclareOption {
	return func(s *Schema) {
		s.Parent = parent
	}
}

// WithCollection stores the type under a collection other than its type name.
func WithCollection(collection string) DeclareOption {
	return func(s *Schema) {
		s.Collection = collection
	}
}

var registry = struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}{schemas: make(map[string]*Schema)}

// Declare registers a document type and builds its registry entry. Parent
// fields are flattened into the entry, and any two fields (own or inherited)
// resolving to the same storage name fail the declaration with
// ErrSchemaConflict. The collection name defaults to the type name.
func Declare(name string, fields []*FieldDescriptor, opts ...DeclareOption) (*Schema, error) {
	s := &Schema{
		Name:       name,
		Collection: name,
		fields:     make(map[string]*FieldDescriptor),
	}
	for _, opt := range opts {
		opt(s)
	}

	storageNames := make(map[string]string)

	if s.Parent != nil {
		for _, fieldName := range s.Parent.order {
			f := s.Parent.fields[fieldName]
			s.fields[f.Name] = f
			s.order = append(s.order, f.Name)
			storageNames[f.StorageName] = f.Name
		}
	}

	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: document type %s declares a field with no name", ErrSchemaConflict, name)
		}
		if f.StorageName == "" {
			f.StorageName = f.Name
		}
		if owner, exists := storageNames[f.StorageName]; exists {
			return nil, fmt.Errorf("%w: multiple storage fields defined for: %s (also declared by %q)",
				ErrSchemaConflict, f.StorageName, owner)
		}
		if _, exists := s.fields[f.Name]; exists {
			return nil, fmt.Errorf("%w: field %q declared twice on document type %s", ErrSchemaConflict, f.Name, name)
		}
		s.fields[f.Name] = f
		s.order = append(s.order, f.Name)
		storageNames[f.StorageName] = f.Name
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, exists := registry.schemas[name]; exists {
		return nil, fmt.Errorf("%w: document type %s already declared", ErrSchemaConflict, name)
	}
	registry.schemas[name] = s

	return s, nil
}

// Lookup returns the registry entry for a declared type name.
func Lookup(name string) (*Schema, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	s, ok := registry.schemas[name]
	return s, ok
}

// Field returns the descriptor for a semantic field name.
func (s *Schema) Field(name string) (*FieldDescriptor, error) {
	f, ok := s.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: field %q is not declared on document type %s", ErrUnknownField, name, s.Name)
	}
	return f, nil
}

// StorageName maps a semantic field name to the name it is stored under.
func (s *Schema) StorageName(name string) (string, error) {
	f, err := s.Field(name)
	if err != nil {
		return "", err
	}
	return f.StorageName, nil
}

// Allows reports whether name is a declared field of the type.
func (s *Schema) Allows(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// AllowedFields returns every declared field name in declaration order,
// parent fields first.
func (s *Schema) AllowedFields() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Fields returns every descriptor in declaration order.
func (s *Schema) Fields() []*FieldDescriptor {
	out := make([]*FieldDescriptor, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.fields[name])
	}
	return out
}
