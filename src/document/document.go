package document

import (
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"docmap/src/schema"
)

// Document is a typed, mutable record bound to one Schema entry. Every
// attribute read and write routes through the schema's accessor table, so
// only declared fields are ever settable. Instances are not safe for
// concurrent mutation.
type Document struct {
	schema *schema.Schema

	id    primitive.ObjectID
	hasID bool

	values map[string]interface{}

	// partlyLoaded is set when the instance was rehydrated from a stored
	// document that lacked some of the declared fields.
	partlyLoaded bool
}

// New constructs an instance of the given type. Every key in values must be a
// declared field; the first undeclared key (in lexical order) fails the
// construction. Declared fields that carry a default and are not supplied get
// the default.
func New(s *schema.Schema, values map[string]interface{}) (*Document, error) {
	d := &Document{
		schema: s,
		values: make(map[string]interface{}),
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !s.Allows(k) {
			return nil, fmt.Errorf("error creating document %s: %w: invalid property %q", s.Name, ErrInvalidDocument, k)
		}
		if err := d.Set(k, values[k]); err != nil {
			return nil, err
		}
	}

	d.applyDefaults()

	return d, nil
}

func (d *Document) applyDefaults() {
	for _, f := range d.schema.Fields() {
		if f.Default == nil {
			continue
		}
		if _, ok := d.values[f.Name]; !ok {
			d.values[f.Name] = f.Default
		}
	}
}

// Schema returns the registry entry the instance is bound to.
func (d *Document) Schema() *schema.Schema {
	return d.schema
}

// ID returns the store-assigned identity, if the instance has one yet.
func (d *Document) ID() (primitive.ObjectID, bool) {
	return d.id, d.hasID
}

// SetID records the identity assigned by the store.
func (d *Document) SetID(id primitive.ObjectID) {
	d.id = id
	d.hasID = true
}

// IsPartlyLoaded reports whether the instance was rehydrated from a stored
// document missing some declared fields.
func (d *Document) IsPartlyLoaded() bool {
	return d.partlyLoaded
}

// Set updates a declared field after running the field's validate/convert
// step. Undeclared names are rejected.
func (d *Document) Set(name string, value interface{}) error {
	f, err := d.schema.Field(name)
	if err != nil {
		return fmt.Errorf("error updating property on document %s: %w: invalid property %q", d.schema.Name, ErrInvalidDocument, name)
	}

	converted, err := convertValue(f, value)
	if err != nil {
		return fmt.Errorf("error updating property %q on document %s: %w", name, d.schema.Name, err)
	}

	d.values[name] = converted
	return nil
}

// Get reads a declared field. Reading an unresolved reference field fails
// with ErrLoadReferencesRequired so callers always know a reference load was
// skipped.
func (d *Document) Get(name string) (interface{}, error) {
	f, err := d.schema.Field(name)
	if err != nil {
		return nil, err
	}

	v, ok := d.values[name]
	if !ok {
		return nil, nil
	}

	if f.Kind == schema.KindRef {
		ref, isRef := v.(*Reference)
		if !isRef {
			return v, nil
		}
		if !ref.Resolved() {
			return nil, fmt.Errorf("%w: property %q can't be accessed on %s before references are loaded",
				ErrLoadReferencesRequired, name, d.schema.Name)
		}
		return ref.Document(), nil
	}

	return v, nil
}

// GetDocument reads an embedded document or resolved reference field.
func (d *Document) GetDocument(name string) (*Document, error) {
	v, err := d.Get(name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	sub, ok := v.(*Document)
	if !ok {
		return nil, fmt.Errorf("field %q of %s does not hold a document", name, d.schema.Name)
	}
	return sub, nil
}

// GetList reads a list field.
func (d *Document) GetList(name string) ([]interface{}, error) {
	v, err := d.Get(name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("field %q of %s does not hold a list", name, d.schema.Name)
	}
	return list, nil
}

// Append validates value against the list's element descriptor and appends it.
func (d *Document) Append(name string, value interface{}) error {
	f, err := d.schema.Field(name)
	if err != nil {
		return err
	}
	if f.Kind != schema.KindList {
		return fmt.Errorf("field %q of %s is not a list", name, d.schema.Name)
	}

	elem, err := convertValue(f.Elem, value)
	if err != nil {
		return fmt.Errorf("error appending to property %q on document %s: %w", name, d.schema.Name, err)
	}

	list, _ := d.values[name].([]interface{})
	d.values[name] = append(list, elem)
	return nil
}

// ValidateForSave checks that every required field holds a value, descending
// into embedded documents. The first missing field fails the validation.
func (d *Document) ValidateForSave() error {
	for _, f := range d.schema.Fields() {
		v, ok := d.values[f.Name]
		if f.Required && (!ok || v == nil) {
			return fmt.Errorf("%w: field %q is required", ErrInvalidDocument, f.Name)
		}
		if !ok || v == nil {
			continue
		}

		switch f.Kind {
		case schema.KindEmbedded:
			if sub, isDoc := v.(*Document); isDoc {
				if err := sub.ValidateForSave(); err != nil {
					return err
				}
			}
		case schema.KindList:
			list, _ := v.([]interface{})
			for _, item := range list {
				if sub, isDoc := item.(*Document); isDoc {
					if err := sub.ValidateForSave(); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// CollectUnresolvedReferences walks the instance graph, descending into
// embedded documents and lists, and returns every reference slot that has not
// been resolved yet. Resolved references are not descended into; they were
// loaded shallow.
func (d *Document) CollectUnresolvedReferences() []*Reference {
	var refs []*Reference
	for _, f := range d.schema.Fields() {
		v, ok := d.values[f.Name]
		if !ok || v == nil {
			continue
		}

		switch f.Kind {
		case schema.KindRef:
			if ref, isRef := v.(*Reference); isRef && !ref.Resolved() {
				refs = append(refs, ref)
			}
		case schema.KindEmbedded:
			if sub, isDoc := v.(*Document); isDoc {
				refs = append(refs, sub.CollectUnresolvedReferences()...)
			}
		case schema.KindList:
			list, _ := v.([]interface{})
			for _, item := range list {
				switch e := item.(type) {
				case *Document:
					refs = append(refs, e.CollectUnresolvedReferences()...)
				case *Reference:
					if !e.Resolved() {
						refs = append(refs, e)
					}
				}
			}
		}
	}
	return refs
}
