package imgembed

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested build or image does not exist.
var ErrNotFound = errors.New("not found")

// BuildRecord is one persisted manifest build.
type BuildRecord struct {
	ID         int64           `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	SourceRoot string          `json:"source_root"`
	OutputPath string          `json:"output_path"`
	Images     int             `json:"images"`
	TotalBytes int64           `json:"total_bytes"`
	Failures   int             `json:"failures"`
	Categories []CategoryStats `json:"categories,omitempty"`
}

// Store wraps a SQLite database holding the history of manifest builds.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS builds (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TEXT NOT NULL,
    source_root TEXT NOT NULL,
    output_path TEXT NOT NULL,
    image_count INTEGER NOT NULL,
    total_bytes INTEGER NOT NULL,
    failures INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS build_categories (
    build_id INTEGER NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
    category TEXT NOT NULL,
    image_count INTEGER NOT NULL,
    total_bytes INTEGER NOT NULL,
    PRIMARY KEY (build_id, category)
);
`)
	return err
}

// RecordBuild persists r and returns the new build id.
func (s *Store) RecordBuild(r *Report) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO builds (started_at, source_root, output_path, image_count, total_bytes, failures) VALUES (?, ?, ?, ?, ?, ?)`,
		r.StartedAt.UTC().Format(time.RFC3339Nano), r.SourceRoot, r.OutputPath, r.Images, r.TotalBytes, len(r.Failures))
	if err != nil {
		return 0, fmt.Errorf("insert build: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, c := range r.Categories {
		if _, err := tx.Exec(`INSERT INTO build_categories (build_id, category, image_count, total_bytes) VALUES (?, ?, ?, ?)`,
			id, c.Name, c.Images, c.TotalBytes); err != nil {
			return 0, fmt.Errorf("insert build category: %w", err)
		}
	}
	return id, tx.Commit()
}

// ListBuilds returns the most recent builds, newest first, without categories.
// A limit of zero or less returns all builds.
func (s *Store) ListBuilds(limit int) ([]BuildRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT id, started_at, source_root, output_path, image_count, total_bytes, failures FROM builds ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var builds []BuildRecord
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}
	return builds, rows.Err()
}

// GetBuild returns one build with its per-category statistics.
func (s *Store) GetBuild(id int64) (BuildRecord, error) {
	row := s.db.QueryRow(`SELECT id, started_at, source_root, output_path, image_count, total_bytes, failures FROM builds WHERE id = ?`, id)
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return BuildRecord{}, ErrNotFound
	}
	if err != nil {
		return BuildRecord{}, err
	}

	rows, err := s.db.Query(`SELECT category, image_count, total_bytes FROM build_categories WHERE build_id = ? ORDER BY category`, id)
	if err != nil {
		return BuildRecord{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var c CategoryStats
		if err := rows.Scan(&c.Name, &c.Images, &c.TotalBytes); err != nil {
			return BuildRecord{}, err
		}
		b.Categories = append(b.Categories, c)
	}
	return b, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuild(r rowScanner) (BuildRecord, error) {
	var b BuildRecord
	var startedAt string
	if err := r.Scan(&b.ID, &startedAt, &b.SourceRoot, &b.OutputPath, &b.Images, &b.TotalBytes, &b.Failures); err != nil {
		return BuildRecord{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return BuildRecord{}, fmt.Errorf("parse started_at %q: %w", startedAt, err)
	}
	b.StartedAt = t
	return b, nil
}
