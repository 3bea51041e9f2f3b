package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a time-ordered UUIDv7 string, falling back to a random
// v4 when the clock sequence cannot be read
func GenerateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
