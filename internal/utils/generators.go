package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a fresh opaque identifier.
func GenerateID() string {
	return uuid.NewString()
}
