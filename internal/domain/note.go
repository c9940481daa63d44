package domain

import "time"

type Note struct {
	ID             string    `json:"id"`
	NotebookID     *string   `json:"notebookId,omitempty"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	RecognizedText string    `json:"recognizedText"`
	HasDrawing     bool      `json:"hasDrawing"`
	Tags           []string  `json:"tags"` // lowercase tag names, sorted
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NoteStore owns note persistence. The drawing payload is stored out-of-line
// from the note row and accessed through SetDrawing/GetDrawing so list
// queries never haul canvas blobs around.
type NoteStore interface {
	// CreateNote rejects a title that is empty after trimming with ErrEmptyTitle.
	CreateNote(n *Note) error
	// GetNote returns (nil, nil) when the id does not resolve.
	GetNote(id string) (*Note, error)
	ListNotes() ([]Note, error)
	ListNotesByNotebook(notebookID string) ([]Note, error)
	ListNotesByTag(tagName string) ([]Note, error)
	// SearchNotes matches the query case-insensitively against title,
	// content, and recognized text.
	SearchNotes(query string) ([]Note, error)
	UpdateNote(n *Note) error
	// SetDrawing stores the serialized canvas snapshot and bumps updatedAt.
	SetDrawing(noteID string, data []byte) error
	// GetDrawing returns (nil, nil) when the note has no drawing payload.
	GetDrawing(noteID string) ([]byte, error)
	// DeleteNote is a no-op when the id does not resolve.
	DeleteNote(id string) error
}
