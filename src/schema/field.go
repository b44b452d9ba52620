package schema

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kind identifies the value type a field holds.
type Kind string

const (
	KindString   Kind = "string"
	KindBoolean  Kind = "boolean"
	KindInteger  Kind = "integer"
	KindFloat    Kind = "float"
	KindDateTime Kind = "datetime"
	KindUUID     Kind = "uuid"
	KindList     Kind = "list"
	KindEmbedded Kind = "embedded"
	KindRef      Kind = "reference"
)

// FieldDescriptor describes one typed attribute of a document type.
// Descriptors are owned by a Schema and must not be mutated after the
// type is declared.
type FieldDescriptor struct {
	Name        string
	StorageName string
	Kind        Kind
	Required    bool
	Unique      bool
	Default     interface{}

	// MaxLength bounds string values; zero means unbounded.
	MaxLength int

	// Elem describes the element type of a list field.
	Elem *FieldDescriptor

	// Embedded is the schema of an embedded document field.
	Embedded *Schema

	// Target is the schema of the document type a reference field points at.
	Target *Schema
}

func StringField(name string) *FieldDescriptor {
	return &FieldDescriptor{Name: name, Kind: KindString}
}

func BooleanField(name string) *FieldDescriptor {
	return &FieldDescriptor{Name: name, Kind: KindBoolean}
}

func IntegerField(name string) *FieldDescriptor {
	return &FieldDescriptor{Name: name, Kind: KindInteger}
}

func FloatField(name string) *FieldDescriptor {
	return &FieldDescriptor{Name: name, Kind: KindFloat}
}

func DateTimeField(name string) *FieldDescriptor {
	return &FieldDescriptor{Name: name, Kind: KindDateTime}
}

func UUIDField(name string) *FieldDescriptor {
	return &FieldDescriptor{Name: name, Kind: KindUUID}
}

// ListField declares a homogeneous list whose elements are described by elem.
// The element descriptor needs no name of its own.
func ListField(name string, elem *FieldDescriptor) *FieldDescriptor {
	return &FieldDescriptor{Name: name, Kind: KindList, Elem: elem}
}

func EmbeddedField(name string, embedded *Schema) *FieldDescriptor {
	return &FieldDescriptor{Name: name, Kind: KindEmbedded, Embedded: embedded}
}

func ReferenceField(name string, target *Schema) *FieldDescriptor {
	return &FieldDescriptor{Name: name, Kind: KindRef, Target: target}
}

// Element builds an unnamed descriptor for use as a list element type.
func Element(kind Kind) *FieldDescriptor {
	return &FieldDescriptor{Kind: kind}
}

// WithStorageName overrides the name the field is stored under.
func (f *FieldDescriptor) WithStorageName(storageName string) *FieldDescriptor {
	f.StorageName = storageName
	return f
}

// WithRequired marks the field as mandatory at save time.
func (f *FieldDescriptor) WithRequired() *FieldDescriptor {
	f.Required = true
	return f
}

// WithUnique marks the field as unique. The mapper records the flag for
// callers that build indexes; it does not manage indexes itself.
func (f *FieldDescriptor) WithUnique() *FieldDescriptor {
	f.Unique = true
	return f
}

// WithDefault sets the value used when the field is not supplied at
// construction time.
func (f *FieldDescriptor) WithDefault(value interface{}) *FieldDescriptor {
	f.Default = value
	return f
}

// WithMaxLength bounds the length of a string field.
func (f *FieldDescriptor) WithMaxLength(n int) *FieldDescriptor {
	f.MaxLength = n
	return f
}

// Validate checks a raw scalar value against the descriptor and returns it in
// normalized form. List, embedded and reference values are structural; the
// document layer validates those against Elem, Embedded and Target, so they
// pass through here untouched.
func (f *FieldDescriptor) Validate(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	switch f.Kind {
	case KindString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("field %q expects a string, got %T", f.Name, value)
		}
		if f.MaxLength > 0 && len(s) > f.MaxLength {
			return nil, fmt.Errorf("field %q exceeds max length of %d", f.Name, f.MaxLength)
		}
		return s, nil

	case KindBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("field %q expects a boolean, got %T", f.Name, value)
		}
		return b, nil

	case KindInteger:
		switch n := value.(type) {
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		}
		return nil, fmt.Errorf("field %q expects an integer, got %T", f.Name, value)

	case KindFloat:
		switch n := value.(type) {
		case float32:
			return float64(n), nil
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		}
		return nil, fmt.Errorf("field %q expects a float, got %T", f.Name, value)

	case KindDateTime:
		switch t := value.(type) {
		case time.Time:
			return t, nil
		case primitive.DateTime:
			return t.Time(), nil
		}
		return nil, fmt.Errorf("field %q expects a timestamp, got %T", f.Name, value)

	case KindUUID:
		switch u := value.(type) {
		case uuid.UUID:
			return u, nil
		case string:
			parsed, err := uuid.Parse(u)
			if err != nil {
				return nil, fmt.Errorf("field %q holds an invalid uuid: %w", f.Name, err)
			}
			return parsed, nil
		}
		return nil, fmt.Errorf("field %q expects a uuid, got %T", f.Name, value)

	case KindList, KindEmbedded, KindRef:
		return value, nil
	}

	return nil, fmt.Errorf("field %q has unsupported kind %q", f.Name, f.Kind)
}
