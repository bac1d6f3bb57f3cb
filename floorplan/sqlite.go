package floorplan

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DefaultDocumentName is the row key used when a database holds one map
const DefaultDocumentName = "default"

const createDocumentsTable = `
CREATE TABLE IF NOT EXISTS documents (
	name       TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	revision   INTEGER NOT NULL DEFAULT 1,
	updated_at INTEGER NOT NULL
)`

// SQLiteSink stores the document as a JSON row in a SQLite database
type SQLiteSink struct {
	db   *sql.DB
	name string
}

// OpenSQLiteSink opens (and if needed creates) the database at dbPath
func OpenSQLiteSink(dbPath, name string) (*SQLiteSink, error) {
	if name == "" {
		name = DefaultDocumentName
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(createDocumentsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &SQLiteSink{db: db, name: name}, nil
}

// Close closes the database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// Save upserts the document row, bumping its revision
func (s *SQLiteSink) Save(doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			body = excluded.body,
			revision = documents.revision + 1,
			updated_at = excluded.updated_at`,
		s.name, string(body), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save document %q: %w", s.name, err)
	}
	return nil
}

// Load reads the stored document. ok is false when no row exists yet.
func (s *SQLiteSink) Load() (doc Document, ok bool, err error) {
	var body string
	err = s.db.QueryRow(`SELECT body FROM documents WHERE name = ?`, s.name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}.Clone(), false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("load document %q: %w", s.name, err)
	}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return Document{}, false, fmt.Errorf("unmarshal document %q: %w", s.name, err)
	}
	return doc.Clone(), true, nil
}

// Revision returns how many times the document has been saved
func (s *SQLiteSink) Revision() (int, error) {
	var rev int
	err := s.db.QueryRow(`SELECT revision FROM documents WHERE name = ?`, s.name).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return rev, nil
}
