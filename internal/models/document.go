package models

// Document is the owning entity that originals and renditions belong to.
type Document struct {
	Entity
	Description string `json:"description,omitempty"`
}

// NewDocument returns an unsaved document with a fresh ID.
func NewDocument(name string) Document {
	return Document{Entity: Entity{ID: NewID(), Name: name}}
}
