// Package archive persists free-text artifacts (design notes, review
// writeups, delegation transcripts) keyed by phase and category, with FTS5
// search so agents can recall prior context.
//
// The archive database is kept separate from the session file because the
// session is persisted with a full-replace write pattern; the archive
// instead accumulates documents incrementally across sessions.
package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jaakkos/loomwork/internal/domain"
)

// Document is one archived artifact.
type Document struct {
	ID        int64     `json:"id"`
	Phase     string    `json:"phase"`
	Category  string    `json:"category"` // e.g. "design", "review", "delegation", "note"
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Result is one search hit.
type Result struct {
	ID       int64   `json:"id"`
	Phase    string  `json:"phase"`
	Category string  `json:"category"`
	Title    string  `json:"title"`
	Snippet  string  `json:"snippet"`
	Rank     float64 `json:"rank"`
}

const archiveSchema = `
CREATE TABLE IF NOT EXISTS artifacts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	phase TEXT NOT NULL,
	category TEXT NOT NULL,
	title TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE VIRTUAL TABLE IF NOT EXISTS artifact_text USING fts5(
	title,
	content,
	tokenize='porter unicode61'
);
CREATE INDEX IF NOT EXISTS idx_artifacts_phase_category ON artifacts(phase, category);
`

// Store wraps the archive SQLite database.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens (or creates) the archive database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create archive db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	if _, err := db.Exec(archiveSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save archives one artifact and returns its id.
func (s *Store) Save(phase domain.Phase, category, title, content string) (int64, error) {
	if title == "" {
		return 0, fmt.Errorf("title is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO artifacts (phase, category, title, created_at) VALUES (?, ?, ?, ?)`,
		string(phase), category, title, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert artifact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("artifact id: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO artifact_text (rowid, title, content) VALUES (?, ?, ?)`,
		id, title, content,
	); err != nil {
		return 0, fmt.Errorf("insert artifact text: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns one artifact by id.
func (s *Store) Get(id int64) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc Document
	var created string
	err := s.db.QueryRow(`
		SELECT a.id, a.phase, a.category, a.title, t.content, a.created_at
		FROM artifacts a JOIN artifact_text t ON t.rowid = a.id
		WHERE a.id = ?
	`, id).Scan(&doc.ID, &doc.Phase, &doc.Category, &doc.Title, &doc.Content, &created)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("artifact %d not found", id)
		}
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	doc.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &doc, nil
}

// List returns artifacts filtered by phase and/or category (empty = any),
// newest first, up to limit.
func (s *Store) List(phase, category string, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT a.id, a.phase, a.category, a.title, t.content, a.created_at
		FROM artifacts a JOIN artifact_text t ON t.rowid = a.id
		WHERE (? = '' OR a.phase = ?) AND (? = '' OR a.category = ?)
		ORDER BY a.id DESC LIMIT ?`
	rows, err := s.db.Query(query, phase, phase, category, category, limit)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var created string
		if err := rows.Scan(&doc.ID, &doc.Phase, &doc.Category, &doc.Title, &doc.Content, &created); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		doc.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Search runs an FTS5 query over archived artifacts, sorted by relevance.
func (s *Store) Search(query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}
	ftsQuery := sanitizeFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT a.id, a.phase, a.category, a.title,
		       snippet(artifact_text, 1, '>>>', '<<<', '...', 40) AS snip, rank
		FROM artifact_text t
		JOIN artifacts a ON a.id = t.rowid
		WHERE artifact_text MATCH ?
		ORDER BY rank LIMIT ?
	`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Phase, &r.Category, &r.Title, &r.Snippet, &r.Rank); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// sanitizeFTSQuery converts a natural language query into a safe FTS5 query:
// special characters are stripped and tokens joined with implicit AND.
func sanitizeFTSQuery(q string) string {
	replacer := strings.NewReplacer(
		"\"", "", "'", "", "(", "", ")", "", "*", "",
		":", "", "^", "", "{", "", "}", "",
	)
	cleaned := replacer.Replace(q)

	words := strings.Fields(cleaned)
	var tokens []string
	for _, w := range words {
		if w != "" && w != "AND" && w != "OR" && w != "NOT" && w != "NEAR" {
			tokens = append(tokens, w)
		}
	}
	return strings.Join(tokens, " ")
}
