package utils

import "github.com/google/uuid"

// IDGenerator produces unique identifiers. Injected so tests can use
// deterministic sequences.
type IDGenerator interface {
	NewID() string
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() string {
	return uuid.New().String()
}

// NewUUIDGenerator returns the production UUID-backed generator.
func NewUUIDGenerator() IDGenerator {
	return uuidGenerator{}
}
