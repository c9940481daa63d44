package storage

import (
	"time"

	"inkpad/internal/domain"
)

// NotebookStore implements domain.NotebookStore using SQLite.
type NotebookStore struct {
	db *DB
}

func NewNotebookStore(db *DB) *NotebookStore {
	return &NotebookStore{db: db}
}

func (s *NotebookStore) CreateNotebook(nb *domain.Notebook) error {
	now := time.Now()
	nb.CreatedAt = now
	nb.UpdatedAt = now
	_, err := s.db.conn.Exec(
		`INSERT INTO notebooks (id, name, parent_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		nb.ID, nb.Name, nb.ParentID, nb.CreatedAt, nb.UpdatedAt,
	)
	return err
}

func (s *NotebookStore) GetNotebook(id string) (*domain.Notebook, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, name, parent_id, created_at, updated_at FROM notebooks WHERE id = ?`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	nb, err := scanNotebook(rows)
	if err != nil {
		return nil, err
	}
	return nb, nil
}

func (s *NotebookStore) ListNotebooks() ([]domain.Notebook, error) {
	return s.queryNotebooks(`SELECT id, name, parent_id, created_at, updated_at FROM notebooks ORDER BY name`)
}

func (s *NotebookStore) ListRootNotebooks() ([]domain.Notebook, error) {
	return s.queryNotebooks(`SELECT id, name, parent_id, created_at, updated_at FROM notebooks WHERE parent_id IS NULL ORDER BY name`)
}

func (s *NotebookStore) ListChildNotebooks(parentID string) ([]domain.Notebook, error) {
	return s.queryNotebooks(`SELECT id, name, parent_id, created_at, updated_at FROM notebooks WHERE parent_id = ? ORDER BY name`, parentID)
}

func (s *NotebookStore) UpdateNotebook(nb *domain.Notebook) error {
	nb.UpdatedAt = time.Now()
	_, err := s.db.conn.Exec(
		`UPDATE notebooks SET name = ?, parent_id = ?, updated_at = ? WHERE id = ?`,
		nb.Name, nb.ParentID, nb.UpdatedAt, nb.ID,
	)
	return err
}

// DeleteNotebook removes the notebook; the schema cascades the delete through
// descendant notebooks and every note they own. Missing ids are a no-op.
func (s *NotebookStore) DeleteNotebook(id string) error {
	_, err := s.db.conn.Exec(`DELETE FROM notebooks WHERE id = ?`, id)
	return err
}

func (s *NotebookStore) queryNotebooks(query string, args ...any) ([]domain.Notebook, error) {
	rows, err := s.db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notebooks []domain.Notebook
	for rows.Next() {
		nb, err := scanNotebook(rows)
		if err != nil {
			return nil, err
		}
		notebooks = append(notebooks, *nb)
	}
	return notebooks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotebook(r rowScanner) (*domain.Notebook, error) {
	var nb domain.Notebook
	var parent *string
	if err := r.Scan(&nb.ID, &nb.Name, &parent, &nb.CreatedAt, &nb.UpdatedAt); err != nil {
		return nil, err
	}
	nb.ParentID = parent
	return &nb, nil
}
