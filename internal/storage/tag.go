package storage

import (
	"time"

	"github.com/google/uuid"

	"inkpad/internal/domain"
)

// TagStore implements domain.TagStore using SQLite.
type TagStore struct {
	db *DB
}

func NewTagStore(db *DB) *TagStore {
	return &TagStore{db: db}
}

// FetchOrCreateTag returns the tag with the exact name, creating it when
// absent. Name uniqueness is enforced here, not by the schema.
func (s *TagStore) FetchOrCreateTag(name string) (*domain.Tag, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, name, created_at FROM tags WHERE name = ? LIMIT 1`, name,
	)
	if err != nil {
		return nil, err
	}
	if rows.Next() {
		var t domain.Tag
		err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt)
		rows.Close()
		if err != nil {
			return nil, err
		}
		return &t, nil
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	t := &domain.Tag{ID: uuid.New().String(), Name: name, CreatedAt: time.Now()}
	_, err = s.db.conn.Exec(
		`INSERT INTO tags (id, name, created_at) VALUES (?, ?, ?)`,
		t.ID, t.Name, t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TagStore) GetTag(id string) (*domain.Tag, error) {
	rows, err := s.db.conn.Query(`SELECT id, name, created_at FROM tags WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var t domain.Tag
	if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TagStore) ListTags() ([]domain.Tag, error) {
	rows, err := s.db.conn.Query(`SELECT id, name, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *TagStore) AttachTag(noteID, tagID string) error {
	_, err := s.db.conn.Exec(
		`INSERT OR IGNORE INTO note_tags (note_id, tag_id) VALUES (?, ?)`,
		noteID, tagID,
	)
	return err
}

func (s *TagStore) TagsForNote(noteID string) ([]domain.Tag, error) {
	rows, err := s.db.conn.Query(
		`SELECT t.id, t.name, t.created_at FROM tags t
		 JOIN note_tags nt ON nt.tag_id = t.id
		 WHERE nt.note_id = ? ORDER BY t.name`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *TagStore) DeleteTag(id string) error {
	_, err := s.db.conn.Exec(`DELETE FROM tags WHERE id = ?`, id)
	return err
}

// PruneOrphanTags removes tags no note references.
func (s *TagStore) PruneOrphanTags() (int, error) {
	res, err := s.db.conn.Exec(
		`DELETE FROM tags WHERE id NOT IN (SELECT DISTINCT tag_id FROM note_tags)`,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
