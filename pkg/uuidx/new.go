// Package uuidx generates the time-ordered v7 identifiers used for
// listener handles.
package uuidx

import "github.com/google/uuid"

// New returns a fresh UUIDv7. It panics when the randomness source fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString returns a fresh UUIDv7 rendered as a string.
func NewString() string {
	return New().String()
}
