package storage

import (
	"sort"
	"strings"
	"time"

	"inkpad/internal/domain"
)

// NoteStore implements domain.NoteStore using SQLite.
type NoteStore struct {
	db *DB
}

func NewNoteStore(db *DB) *NoteStore {
	return &NoteStore{db: db}
}

const noteColumns = `n.id, n.notebook_id, n.title, n.content, n.recognized_text,
	EXISTS(SELECT 1 FROM drawings d WHERE d.note_id = n.id),
	COALESCE((SELECT GROUP_CONCAT(t.name) FROM note_tags nt JOIN tags t ON t.id = nt.tag_id WHERE nt.note_id = n.id), ''),
	n.created_at, n.updated_at`

func (s *NoteStore) CreateNote(n *domain.Note) error {
	if strings.TrimSpace(n.Title) == "" {
		return domain.ErrEmptyTitle
	}
	now := time.Now()
	n.CreatedAt = now
	n.UpdatedAt = now
	_, err := s.db.conn.Exec(
		`INSERT INTO notes (id, notebook_id, title, content, recognized_text, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.NotebookID, n.Title, n.Content, n.RecognizedText, n.CreatedAt, n.UpdatedAt,
	)
	return err
}

func (s *NoteStore) GetNote(id string) (*domain.Note, error) {
	notes, err := s.queryNotes(`SELECT `+noteColumns+` FROM notes n WHERE n.id = ?`, id)
	if err != nil || len(notes) == 0 {
		return nil, err
	}
	return &notes[0], nil
}

func (s *NoteStore) ListNotes() ([]domain.Note, error) {
	return s.queryNotes(`SELECT ` + noteColumns + ` FROM notes n ORDER BY n.created_at DESC`)
}

func (s *NoteStore) ListNotesByNotebook(notebookID string) ([]domain.Note, error) {
	return s.queryNotes(`SELECT `+noteColumns+` FROM notes n WHERE n.notebook_id = ? ORDER BY n.created_at DESC`, notebookID)
}

func (s *NoteStore) ListNotesByTag(tagName string) ([]domain.Note, error) {
	return s.queryNotes(
		`SELECT `+noteColumns+` FROM notes n
		 JOIN note_tags nt ON nt.note_id = n.id
		 JOIN tags t ON t.id = nt.tag_id
		 WHERE t.name = ? ORDER BY n.created_at DESC`, tagName)
}

// SearchNotes matches query case-insensitively against title, content, and
// recognized text. instr avoids LIKE wildcard escaping on user input.
func (s *NoteStore) SearchNotes(query string) ([]domain.Note, error) {
	q := strings.ToLower(query)
	return s.queryNotes(
		`SELECT `+noteColumns+` FROM notes n
		 WHERE instr(lower(n.title), ?) > 0
		    OR instr(lower(n.content), ?) > 0
		    OR instr(lower(n.recognized_text), ?) > 0
		 ORDER BY n.created_at DESC`, q, q, q)
}

func (s *NoteStore) UpdateNote(n *domain.Note) error {
	n.UpdatedAt = time.Now()
	_, err := s.db.conn.Exec(
		`UPDATE notes SET notebook_id = ?, title = ?, content = ?, recognized_text = ?, updated_at = ? WHERE id = ?`,
		n.NotebookID, n.Title, n.Content, n.RecognizedText, n.UpdatedAt, n.ID,
	)
	return err
}

func (s *NoteStore) SetDrawing(noteID string, data []byte) error {
	_, err := s.db.conn.Exec(
		`INSERT INTO drawings (note_id, data) VALUES (?, ?)
		 ON CONFLICT(note_id) DO UPDATE SET data = excluded.data`,
		noteID, data,
	)
	if err != nil {
		return err
	}
	_, err = s.db.conn.Exec(`UPDATE notes SET updated_at = ? WHERE id = ?`, time.Now(), noteID)
	return err
}

func (s *NoteStore) GetDrawing(noteID string) ([]byte, error) {
	rows, err := s.db.conn.Query(`SELECT data FROM drawings WHERE note_id = ?`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var data []byte
	if err := rows.Scan(&data); err != nil {
		return nil, err
	}
	return data, nil
}

// DeleteNote removes the note; the schema cascades its drawing payload and
// tag links. Missing ids are a no-op.
func (s *NoteStore) DeleteNote(id string) error {
	_, err := s.db.conn.Exec(`DELETE FROM notes WHERE id = ?`, id)
	return err
}

func (s *NoteStore) queryNotes(query string, args ...any) ([]domain.Note, error) {
	rows, err := s.db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		var n domain.Note
		var notebookID *string
		var tagCSV string
		if err := rows.Scan(&n.ID, &notebookID, &n.Title, &n.Content, &n.RecognizedText,
			&n.HasDrawing, &tagCSV, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		n.NotebookID = notebookID
		if tagCSV != "" {
			n.Tags = strings.Split(tagCSV, ",")
			sort.Strings(n.Tags)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
