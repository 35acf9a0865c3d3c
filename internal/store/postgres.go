package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cinelist/internal/config"
	"cinelist/internal/domain/film"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres persists the three collections as JSONB rows.
type Postgres struct {
	pool *pgxpool.Pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS list_snapshots (
	key        TEXT PRIMARY KEY,
	snapshot   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS list_marks (
	key        TEXT PRIMARY KEY,
	marks      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS film_enrichment (
	film_id    TEXT PRIMARY KEY,
	entry      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func ConnectPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		strings.TrimSpace(cfg.DBHost),
		strings.TrimSpace(cfg.DBPort),
		strings.TrimSpace(cfg.DBUser),
		cfg.DBPassword,
		strings.TrimSpace(cfg.DBName),
		strings.TrimSpace(cfg.DBSSLMode),
	)

	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.ConnectTimeout > 0 {
		pcfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.PoolMaxConns > 0 {
		pcfg.MaxConns = cfg.PoolMaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	pingCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) getJSON(ctx context.Context, query, arg string, out any) (bool, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, query, arg).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Postgres) GetList(ctx context.Context, key string) (*film.ListSnapshot, error) {
	var snap film.ListSnapshot
	ok, err := p.getJSON(ctx, `SELECT snapshot FROM list_snapshots WHERE key = $1`, key, &snap)
	if err != nil || !ok {
		return nil, err
	}
	return &snap, nil
}

func (p *Postgres) SaveList(ctx context.Context, key string, snap *film.ListSnapshot) error {
	if snap == nil {
		return nil
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO list_snapshots (key, snapshot, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now()`,
		key, b,
	)
	return err
}

func (p *Postgres) GetMarks(ctx context.Context, key string) ([]string, error) {
	var marks []string
	ok, err := p.getJSON(ctx, `SELECT marks FROM list_marks WHERE key = $1`, key, &marks)
	if err != nil || !ok {
		return []string{}, err
	}
	return marks, nil
}

func (p *Postgres) SaveMarks(ctx context.Context, key string, marks []string) error {
	if marks == nil {
		marks = []string{}
	}
	b, err := json.Marshal(marks)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO list_marks (key, marks, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET marks = EXCLUDED.marks, updated_at = now()`,
		key, b,
	)
	return err
}

func (p *Postgres) GetEnrichment(ctx context.Context, filmID string) (*film.EnrichmentEntry, error) {
	var entry film.EnrichmentEntry
	ok, err := p.getJSON(ctx, `SELECT entry FROM film_enrichment WHERE film_id = $1`, filmID, &entry)
	if err != nil || !ok {
		return nil, err
	}
	return &entry, nil
}

func (p *Postgres) SaveEnrichment(ctx context.Context, filmID string, entry *film.EnrichmentEntry) error {
	if entry == nil {
		return nil
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO film_enrichment (film_id, entry, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (film_id) DO UPDATE SET entry = EXCLUDED.entry, updated_at = now()`,
		filmID, b,
	)
	return err
}

func (p *Postgres) Close() error {
	if p == nil || p.pool == nil {
		return nil
	}
	p.pool.Close()
	return nil
}
