package helpers

import (
	"github.com/google/uuid"
)

// GenerateUUID returns a fresh operation id for log correlation.
func GenerateUUID() string {
	return uuid.New().String()
}
