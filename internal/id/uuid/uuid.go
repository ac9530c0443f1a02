// Package uuid generates run identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates UUIDv7 strings, so run ids sort by start time.
type Generator struct{}

// New returns a Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUIDv7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// Valid reports whether s parses as a UUID.
func Valid(s string) bool {
	return uuid.Validate(s) == nil
}
