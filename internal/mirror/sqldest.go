package mirror

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// sqlDest mirrors into MySQL or Postgres. The two share everything except
// placeholder style and upsert syntax, so each dialect supplies its three
// upsert statements.
type sqlDest struct {
	name    string
	db      *sql.DB
	upserts sqlUpserts
}

type sqlUpserts struct {
	notebook string
	note     string
	tag      string
}

var mirrorDDL = []string{
	`CREATE TABLE IF NOT EXISTS inkpad_notebooks (
		id VARCHAR(64) PRIMARY KEY,
		name TEXT NOT NULL,
		parent_id VARCHAR(64),
		created_at TIMESTAMP NULL,
		updated_at TIMESTAMP NULL
	)`,
	`CREATE TABLE IF NOT EXISTS inkpad_notes (
		id VARCHAR(64) PRIMARY KEY,
		notebook_id VARCHAR(64),
		title TEXT NOT NULL,
		content TEXT,
		recognized_text TEXT,
		tags TEXT,
		created_at TIMESTAMP NULL,
		updated_at TIMESTAMP NULL
	)`,
	`CREATE TABLE IF NOT EXISTS inkpad_tags (
		id VARCHAR(64) PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TIMESTAMP NULL
	)`,
}

// NewPostgres opens a Postgres mirror destination.
func NewPostgres(dsn string) (Destination, error) {
	return newSQLDest("postgres", "postgres", dsn, sqlUpserts{
		notebook: `INSERT INTO inkpad_notebooks (id, name, parent_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name, parent_id = excluded.parent_id, updated_at = excluded.updated_at
			WHERE inkpad_notebooks.updated_at < excluded.updated_at`,
		note: `INSERT INTO inkpad_notes (id, notebook_id, title, content, recognized_text, tags, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				notebook_id = excluded.notebook_id, title = excluded.title, content = excluded.content,
				recognized_text = excluded.recognized_text, tags = excluded.tags, updated_at = excluded.updated_at
			WHERE inkpad_notes.updated_at < excluded.updated_at`,
		tag: `INSERT INTO inkpad_tags (id, name, created_at) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING`,
	})
}

// NewMySQL opens a MySQL mirror destination. The DSN should carry
// parseTime=true so timestamps round-trip.
func NewMySQL(dsn string) (Destination, error) {
	if !strings.Contains(dsn, "parseTime") {
		if strings.Contains(dsn, "?") {
			dsn += "&parseTime=true"
		} else {
			dsn += "?parseTime=true"
		}
	}
	return newSQLDest("mysql", "mysql", dsn, sqlUpserts{
		notebook: `INSERT INTO inkpad_notebooks (id, name, parent_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				name = IF(VALUES(updated_at) > updated_at, VALUES(name), name),
				parent_id = IF(VALUES(updated_at) > updated_at, VALUES(parent_id), parent_id),
				updated_at = IF(VALUES(updated_at) > updated_at, VALUES(updated_at), updated_at)`,
		note: `INSERT INTO inkpad_notes (id, notebook_id, title, content, recognized_text, tags, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				notebook_id = IF(VALUES(updated_at) > updated_at, VALUES(notebook_id), notebook_id),
				title = IF(VALUES(updated_at) > updated_at, VALUES(title), title),
				content = IF(VALUES(updated_at) > updated_at, VALUES(content), content),
				recognized_text = IF(VALUES(updated_at) > updated_at, VALUES(recognized_text), recognized_text),
				tags = IF(VALUES(updated_at) > updated_at, VALUES(tags), tags),
				updated_at = IF(VALUES(updated_at) > updated_at, VALUES(updated_at), updated_at)`,
		tag: `INSERT INTO inkpad_tags (id, name, created_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE name = name`,
	})
}

func newSQLDest(name, driver, dsn string, upserts sqlUpserts) (Destination, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s mirror: %w", name, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	d := &sqlDest{name: name, db: db, upserts: upserts}
	for _, ddl := range mirrorDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("prepare %s mirror schema: %w", name, err)
		}
	}
	return d, nil
}

func (d *sqlDest) Name() string { return d.name }

func (d *sqlDest) Push(ctx context.Context, batch Batch) (int, error) {
	pushed := 0
	for _, nb := range batch.Notebooks {
		_, err := d.db.ExecContext(ctx, d.upserts.notebook,
			nb.ID, nb.Name, nb.ParentID, nb.CreatedAt, nb.UpdatedAt)
		if err != nil {
			return pushed, fmt.Errorf("notebook %s: %w", nb.ID, err)
		}
		pushed++
	}
	for _, n := range batch.Notes {
		_, err := d.db.ExecContext(ctx, d.upserts.note,
			n.ID, n.NotebookID, n.Title, n.Content, n.RecognizedText,
			strings.Join(n.Tags, ","), n.CreatedAt, n.UpdatedAt)
		if err != nil {
			return pushed, fmt.Errorf("note %s: %w", n.ID, err)
		}
		pushed++
	}
	for _, t := range batch.Tags {
		if _, err := d.db.ExecContext(ctx, d.upserts.tag, t.ID, t.Name, t.CreatedAt); err != nil {
			return pushed, fmt.Errorf("tag %s: %w", t.ID, err)
		}
		pushed++
	}
	return pushed, nil
}

func (d *sqlDest) Close() error { return d.db.Close() }
