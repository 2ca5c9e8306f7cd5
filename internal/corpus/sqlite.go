package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	abstract TEXT NOT NULL DEFAULT '',
	keywords TEXT NOT NULL DEFAULT '[]',
	year INTEGER NOT NULL DEFAULT 0,
	cited_by_count INTEGER NOT NULL DEFAULT 0,
	cites TEXT NOT NULL DEFAULT '[]',
	cited_by TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_documents_year ON documents(year);
`

// SQLiteStore is a DocumentStore backed by SQLite (modernc.org/sqlite, no CGO).
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ DocumentStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a corpus database at the given path.
// An empty path defaults to ~/.litmatch/data/corpus.db. WAL mode is enabled
// for concurrent readers.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".litmatch", "data", "corpus.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// NewMemoryStore opens an in-memory corpus store, used by tests and the CLI
// when no persistence is wanted.
func NewMemoryStore() (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db, path: ":memory:"}, nil
}

// SaveDocuments upserts documents in a single transaction.
func (s *SQLiteStore) SaveDocuments(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, title, abstract, keywords, year, cited_by_count, cites, cited_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			abstract = excluded.abstract,
			keywords = excluded.keywords,
			year = excluded.year,
			cited_by_count = excluded.cited_by_count,
			cites = excluded.cites,
			cited_by = excluded.cited_by`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("document with empty id")
		}
		keywords, err := marshalStrings(d.Keywords)
		if err != nil {
			return err
		}
		cites, err := marshalStrings(d.Cites)
		if err != nil {
			return err
		}
		citedBy, err := marshalStrings(d.CitedBy)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, d.ID, d.Title, d.Abstract, keywords,
			d.Year, d.CitedByCount, cites, citedBy); err != nil {
			return fmt.Errorf("upsert document %s: %w", d.ID, err)
		}
	}

	return tx.Commit()
}

// GetDocument fetches one document by ID. Returns nil, nil when absent.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, abstract, keywords, year, cited_by_count, cites, cited_by
		FROM documents WHERE id = ?`, id)

	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return doc, nil
}

// GetDocuments batch-fetches documents by ID, preserving the input order.
func (s *SQLiteStore) GetDocuments(ctx context.Context, ids []string) ([]*Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, title, abstract, keywords, year, cited_by_count, cites, cited_by
		FROM documents WHERE id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("batch get documents: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*Document, len(ids))
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		byID[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]*Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			result = append(result, doc)
		}
	}
	return result, nil
}

// AllDocuments returns the full corpus ordered by ID.
func (s *SQLiteStore) AllDocuments(ctx context.Context) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, abstract, keywords, year, cited_by_count, cites, cited_by
		FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Count returns the number of stored documents.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var d Document
	var keywords, cites, citedBy string
	if err := row.Scan(&d.ID, &d.Title, &d.Abstract, &keywords,
		&d.Year, &d.CitedByCount, &cites, &citedBy); err != nil {
		return nil, err
	}
	var err error
	if d.Keywords, err = unmarshalStrings(keywords); err != nil {
		return nil, fmt.Errorf("document %s keywords: %w", d.ID, err)
	}
	if d.Cites, err = unmarshalStrings(cites); err != nil {
		return nil, fmt.Errorf("document %s cites: %w", d.ID, err)
	}
	if d.CitedBy, err = unmarshalStrings(citedBy); err != nil {
		return nil, fmt.Errorf("document %s cited_by: %w", d.ID, err)
	}
	return &d, nil
}

func marshalStrings(vals []string) (string, error) {
	if len(vals) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(vals)
	if err != nil {
		return "", fmt.Errorf("marshal string list: %w", err)
	}
	return string(data), nil
}

func unmarshalStrings(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var vals []string
	if err := json.Unmarshal([]byte(data), &vals); err != nil {
		return nil, err
	}
	return vals, nil
}
