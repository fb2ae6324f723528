package models

import (
	"time"

	"github.com/google/uuid"
)

// Entity carries the identity and bookkeeping fields shared by every
// persisted object. Equality is by ID only.
type Entity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// NewID returns a fresh globally unique entity identifier.
func NewID() string {
	return uuid.NewString()
}

// IsValidID reports whether id is a canonical entity identifier.
func IsValidID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}

// SameEntity reports identity equality. Two unassigned entities are never equal.
func (e Entity) SameEntity(other Entity) bool {
	return e.ID != "" && e.ID == other.ID
}

// Stamp sets CreatedAt on first persist and UpdatedAt on every persist.
func (e *Entity) Stamp(now time.Time) {
	now = now.UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
}
