package document

// Add custom error definitions here
import "errors"

// ErrInvalidDocument is returned when a document is constructed or updated
// with an undeclared property, or fails save-time validation.
var ErrInvalidDocument = errors.New("invalid document")

// ErrLoadReferencesRequired is returned when a reference field is read
// before LoadReferences resolved it.
var ErrLoadReferencesRequired = errors.New("load references required")
