package document

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"docmap/src/schema"
)

// convertValue runs the validate/convert step for one field value. Scalars
// go through the descriptor; structural kinds (embedded, reference, list) are
// checked here against the descriptor's Embedded/Target/Elem schemas.
func convertValue(f *schema.FieldDescriptor, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	switch f.Kind {
	case schema.KindEmbedded:
		sub, ok := value.(*Document)
		if !ok {
			return nil, fmt.Errorf("field %q expects an embedded %s document, got %T", f.Name, f.Embedded.Name, value)
		}
		if !schemaMatches(sub.schema, f.Embedded) {
			return nil, fmt.Errorf("field %q expects an embedded %s document, got %s", f.Name, f.Embedded.Name, sub.schema.Name)
		}
		return sub, nil

	case schema.KindRef:
		switch v := value.(type) {
		case *Reference:
			return v, nil
		case primitive.ObjectID:
			return NewReference(f.Target, v), nil
		case *Document:
			if !schemaMatches(v.schema, f.Target) {
				return nil, fmt.Errorf("field %q references %s documents, got %s", f.Name, f.Target.Name, v.schema.Name)
			}
			ref := &Reference{Target: f.Target, doc: v}
			if id, hasID := v.ID(); hasID {
				ref.ID = id
			}
			return ref, nil
		}
		return nil, fmt.Errorf("field %q expects a %s reference, got %T", f.Name, f.Target.Name, value)

	case schema.KindList:
		items, err := listItems(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		out := make([]interface{}, 0, len(items))
		for i, item := range items {
			converted, convErr := convertValue(f.Elem, item)
			if convErr != nil {
				return nil, fmt.Errorf("field %q element %d: %w", f.Name, i, convErr)
			}
			out = append(out, converted)
		}
		return out, nil
	}

	return f.Validate(value)
}

func listItems(value interface{}) ([]interface{}, error) {
	switch v := value.(type) {
	case []interface{}:
		return v, nil
	case bson.A:
		return v, nil
	case []*Document:
		out := make([]interface{}, len(v))
		for i, d := range v {
			out[i] = d
		}
		return out, nil
	}
	return nil, fmt.Errorf("expects a list, got %T", value)
}

// schemaMatches reports whether s is want or descends from it, so a field
// declared against a base type accepts subtype instances.
func schemaMatches(s, want *schema.Schema) bool {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur == want {
			return true
		}
	}
	return false
}

// ToBSON serializes the instance's declared fields into the store's
// structural format. Embedded documents nest, lists map element-wise, and
// reference fields collapse to the stored identity. The identity itself is
// not part of the representation; the executor handles _id.
func (d *Document) ToBSON() (bson.M, error) {
	out := bson.M{}
	for _, f := range d.schema.Fields() {
		v, ok := d.values[f.Name]
		if !ok || v == nil {
			continue
		}
		encoded, err := encodeValue(f, v)
		if err != nil {
			return nil, fmt.Errorf("error serializing document %s: %w", d.schema.Name, err)
		}
		out[f.StorageName] = encoded
	}
	return out, nil
}

func encodeValue(f *schema.FieldDescriptor, value interface{}) (interface{}, error) {
	switch f.Kind {
	case schema.KindEmbedded:
		sub := value.(*Document)
		return sub.ToBSON()

	case schema.KindRef:
		ref, ok := value.(*Reference)
		if !ok {
			return nil, fmt.Errorf("field %q holds %T instead of a reference", f.Name, value)
		}
		if ref.ID.IsZero() {
			return nil, fmt.Errorf("field %q references an unsaved %s document", f.Name, ref.Target.Name)
		}
		return ref.ID, nil

	case schema.KindList:
		list := value.([]interface{})
		out := make(bson.A, 0, len(list))
		for i, item := range list {
			encoded, err := encodeValue(f.Elem, item)
			if err != nil {
				return nil, fmt.Errorf("field %q element %d: %w", f.Name, i, err)
			}
			out = append(out, encoded)
		}
		return out, nil

	case schema.KindUUID:
		if u, ok := value.(uuid.UUID); ok {
			return u.String(), nil
		}
		return value, nil
	}

	return value, nil
}

// FromBSON rehydrates a stored document into a typed instance. Stored keys
// unknown to the schema are ignored, so documents written by a subtype read
// back cleanly through the base type. The instance is marked partly loaded
// when declared fields are absent from the stored document.
func FromBSON(s *schema.Schema, raw bson.M) (*Document, error) {
	d := &Document{
		schema: s,
		values: make(map[string]interface{}),
	}

	if rawID, ok := raw["_id"]; ok {
		if oid, isOID := rawID.(primitive.ObjectID); isOID {
			d.SetID(oid)
		}
	}

	for _, f := range s.Fields() {
		rawValue, ok := raw[f.StorageName]
		if !ok {
			d.partlyLoaded = true
			continue
		}
		decoded, err := decodeValue(f, rawValue)
		if err != nil {
			return nil, fmt.Errorf("error reading document %s: %w", s.Name, err)
		}
		d.values[f.Name] = decoded
	}

	d.applyDefaults()

	return d, nil
}

func decodeValue(f *schema.FieldDescriptor, raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}

	switch f.Kind {
	case schema.KindEmbedded:
		sub, err := rawDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		return FromBSON(f.Embedded, sub)

	case schema.KindRef:
		oid, ok := raw.(primitive.ObjectID)
		if !ok {
			return nil, fmt.Errorf("field %q holds %T instead of a stored identity", f.Name, raw)
		}
		return NewReference(f.Target, oid), nil

	case schema.KindList:
		items, err := listItems(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		out := make([]interface{}, 0, len(items))
		for i, item := range items {
			decoded, decErr := decodeValue(f.Elem, item)
			if decErr != nil {
				return nil, fmt.Errorf("field %q element %d: %w", f.Name, i, decErr)
			}
			out = append(out, decoded)
		}
		return out, nil

	case schema.KindDateTime:
		if dt, ok := raw.(primitive.DateTime); ok {
			return dt.Time().UTC(), nil
		}
		if t, ok := raw.(time.Time); ok {
			return t, nil
		}
		return f.Validate(raw)
	}

	return f.Validate(raw)
}

func rawDocument(raw interface{}) (bson.M, error) {
	switch v := raw.(type) {
	case bson.M:
		return v, nil
	case bson.D:
		return v.Map(), nil
	}
	return nil, fmt.Errorf("expects a stored document, got %T", raw)
}
