// Package identifier generates and validates document identifiers.
package identifier

import "github.com/google/uuid"

// canonicalLen is the length of the 8-4-4-4-12 form. uuid.Parse also accepts
// the braced, urn and undashed forms, which are not valid ids here.
const canonicalLen = 36

// Generator produces unique identifiers and recognises the ones it produces.
type Generator interface {
	Generate() string
	IsValid(id string) bool
}

// UUID generates random (version 4) UUIDs in canonical textual form.
type UUID struct{}

// Generate returns a new random UUID. It panics if the system entropy source fails.
func (UUID) Generate() string {
	return uuid.NewString()
}

// IsValid reports whether id is a canonical 8-4-4-4-12 hex UUID string.
func (UUID) IsValid(id string) bool {
	if len(id) != canonicalLen {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// New returns a new random UUID.
func New() string {
	return UUID{}.Generate()
}

// IsValid reports whether id is a canonical UUID string.
func IsValid(id string) bool {
	return UUID{}.IsValid(id)
}
