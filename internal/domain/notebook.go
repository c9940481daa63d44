package domain

import "time"

type Notebook struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parentId,omitempty"` // nil for root notebooks
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NotebookStore owns notebook persistence. Deleting a notebook cascades to
// its descendant notebooks and every note they own transitively; the cascade
// is a store relationship rule, not caller logic.
type NotebookStore interface {
	CreateNotebook(nb *Notebook) error
	// GetNotebook returns (nil, nil) when the id does not resolve.
	GetNotebook(id string) (*Notebook, error)
	ListNotebooks() ([]Notebook, error)
	ListRootNotebooks() ([]Notebook, error)
	ListChildNotebooks(parentID string) ([]Notebook, error)
	UpdateNotebook(nb *Notebook) error
	// DeleteNotebook is a no-op when the id does not resolve.
	DeleteNotebook(id string) error
}
