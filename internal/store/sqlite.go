package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"cinelist/internal/domain/film"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

// SQLite is the disk-file backend: one database file, JSON values.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS list_snapshots (
	key        TEXT PRIMARY KEY,
	snapshot   TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS list_marks (
	key        TEXT PRIMARY KEY,
	marks      TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS film_enrichment (
	film_id    TEXT PRIMARY KEY,
	entry      TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) getJSON(ctx context.Context, query, arg string, out any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLite) upsertJSON(ctx context.Context, query, arg string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, arg, string(b))
	return err
}

func (s *SQLite) GetList(ctx context.Context, key string) (*film.ListSnapshot, error) {
	var snap film.ListSnapshot
	ok, err := s.getJSON(ctx, `SELECT snapshot FROM list_snapshots WHERE key = ?`, key, &snap)
	if err != nil || !ok {
		return nil, err
	}
	return &snap, nil
}

func (s *SQLite) SaveList(ctx context.Context, key string, snap *film.ListSnapshot) error {
	if snap == nil {
		return nil
	}
	return s.upsertJSON(ctx,
		`INSERT INTO list_snapshots (key, snapshot, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (key) DO UPDATE SET snapshot = excluded.snapshot, updated_at = CURRENT_TIMESTAMP`,
		key, snap,
	)
}

func (s *SQLite) GetMarks(ctx context.Context, key string) ([]string, error) {
	var marks []string
	ok, err := s.getJSON(ctx, `SELECT marks FROM list_marks WHERE key = ?`, key, &marks)
	if err != nil || !ok {
		return []string{}, err
	}
	return marks, nil
}

func (s *SQLite) SaveMarks(ctx context.Context, key string, marks []string) error {
	if marks == nil {
		marks = []string{}
	}
	return s.upsertJSON(ctx,
		`INSERT INTO list_marks (key, marks, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (key) DO UPDATE SET marks = excluded.marks, updated_at = CURRENT_TIMESTAMP`,
		key, marks,
	)
}

func (s *SQLite) GetEnrichment(ctx context.Context, filmID string) (*film.EnrichmentEntry, error) {
	var entry film.EnrichmentEntry
	ok, err := s.getJSON(ctx, `SELECT entry FROM film_enrichment WHERE film_id = ?`, filmID, &entry)
	if err != nil || !ok {
		return nil, err
	}
	return &entry, nil
}

func (s *SQLite) SaveEnrichment(ctx context.Context, filmID string, entry *film.EnrichmentEntry) error {
	if entry == nil {
		return nil
	}
	return s.upsertJSON(ctx,
		`INSERT INTO film_enrichment (film_id, entry, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (film_id) DO UPDATE SET entry = excluded.entry, updated_at = CURRENT_TIMESTAMP`,
		filmID, entry,
	)
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
