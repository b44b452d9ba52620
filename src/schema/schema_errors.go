package schema

// Add custom error definitions here
import "errors"

// ErrSchemaConflict is returned when two fields of a document type resolve to the same storage name.
var ErrSchemaConflict = errors.New("schema conflict")

// ErrUnknownField is returned when a field name is not declared on a document type.
var ErrUnknownField = errors.New("unknown field")
