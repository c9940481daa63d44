package domain

import "time"

type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// TagStore owns tags and the note↔tag association. Tags are created lazily:
// FetchOrCreateTag is the only creation path the save pipeline uses.
type TagStore interface {
	// FetchOrCreateTag returns the existing tag with the exact name, creating
	// it first when absent. It never errors on "already exists".
	FetchOrCreateTag(name string) (*Tag, error)
	// GetTag returns (nil, nil) when the id does not resolve.
	GetTag(id string) (*Tag, error)
	ListTags() ([]Tag, error)
	// AttachTag links a tag to a note; attaching an already-attached tag is a
	// no-op.
	AttachTag(noteID, tagID string) error
	TagsForNote(noteID string) ([]Tag, error)
	// DeleteTag is a no-op when the id does not resolve.
	DeleteTag(id string) error
	// PruneOrphanTags deletes tags no note references and reports how many
	// were removed. Maintenance operation, never called from the save path.
	PruneOrphanTags() (int, error)
}
