// Package idgen provides unique identifier generation for process instances.
package idgen

import (
	"github.com/google/uuid"
)

// Generator produces unique, time-ordered identifiers.
type Generator struct{}

// New creates a Generator.
func New() *Generator {
	return &Generator{}
}

// GenerateID returns a new unique ID. UUIDv7 is preferred for its
// time-ordered prefix; on entropy failure it falls back to a random UUIDv4.
func (g *Generator) GenerateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
