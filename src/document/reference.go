package document

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"docmap/src/schema"
)

// Reference is the value of a reference field: the identity of a document in
// the target type's collection, plus the resolved instance once a reference
// load has run. Before resolution only the identity is known.
type Reference struct {
	Target *schema.Schema
	ID     primitive.ObjectID

	doc *Document
}

// NewReference builds an unresolved reference to the document with the given
// identity in target's collection.
func NewReference(target *schema.Schema, id primitive.ObjectID) *Reference {
	return &Reference{Target: target, ID: id}
}

// Resolved reports whether the target instance has been loaded.
func (r *Reference) Resolved() bool {
	return r.doc != nil
}

// Resolve splices the loaded target instance into the reference slot.
func (r *Reference) Resolve(doc *Document) {
	r.doc = doc
}

// Document returns the resolved target instance, or nil before resolution.
func (r *Reference) Document() *Document {
	return r.doc
}
