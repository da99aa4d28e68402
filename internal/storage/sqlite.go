// Package storage persists documents to SQLite. It is an application-side
// collaborator: the engine never reads or writes it.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tally/internal/document"
	"tally/internal/engine"
)

var ErrNotFound = errors.New("document not found")

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		lines      TEXT NOT NULL,
		variables  TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	return err
}

// lineRecord is the JSON row shape for one line. Results serialize through
// engine.Result's wire format.
type lineRecord struct {
	ID       string         `json:"id"`
	Input    string         `json:"input"`
	Result   *engine.Result `json:"result,omitempty"`
	Category string         `json:"category,omitempty"`
}

// SaveDocument upserts a document snapshot.
func (s *SQLiteStore) SaveDocument(ctx context.Context, doc *document.Document) error {
	records := make([]lineRecord, len(doc.Lines))
	for i, l := range doc.Lines {
		records[i] = lineRecord{ID: l.ID, Input: l.Input, Result: l.Result, Category: string(l.Category)}
	}
	lines, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode lines: %w", err)
	}
	vars, err := json.Marshal(doc.Variables)
	if err != nil {
		return fmt.Errorf("failed to encode variables: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO documents (id, title, lines, variables, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			lines = excluded.lines,
			variables = excluded.variables,
			updated_at = excluded.updated_at`,
		doc.ID, doc.Title, string(lines), string(vars),
		doc.CreatedAt.UTC().Format(time.RFC3339Nano),
		doc.UpdatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// GetDocument loads one document by id.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*document.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, lines, variables, created_at, updated_at FROM documents WHERE id = ?`, id)

	var doc document.Document
	var lines, vars, created, updated string
	if err := row.Scan(&doc.ID, &doc.Title, &lines, &vars, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	var records []lineRecord
	if err := json.Unmarshal([]byte(lines), &records); err != nil {
		return nil, fmt.Errorf("failed to decode lines for %s: %w", id, err)
	}
	doc.Lines = make([]document.Line, len(records))
	for i, r := range records {
		doc.Lines[i] = document.Line{
			ID:       r.ID,
			Input:    r.Input,
			Result:   r.Result,
			Category: engine.Category(r.Category),
		}
	}
	if err := json.Unmarshal([]byte(vars), &doc.Variables); err != nil {
		return nil, fmt.Errorf("failed to decode variables for %s: %w", id, err)
	}

	var err error
	if doc.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, err
	}
	if doc.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DocumentInfo is one row of a document listing.
type DocumentInfo struct {
	ID        string
	Title     string
	UpdatedAt time.Time
}

// ListDocuments returns all stored documents, most recently updated first.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, updated_at FROM documents ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DocumentInfo
	for rows.Next() {
		var info DocumentInfo
		var updated string
		if err := rows.Scan(&info.ID, &info.Title, &updated); err != nil {
			return nil, err
		}
		if info.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteDocument removes a document by id.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
