// Package store persists list snapshots, user marks and per-film enrichment
// behind one key-value contract with swappable backends.
package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"time"

	"cinelist/internal/config"
	"cinelist/internal/domain/film"
)

// EnrichmentTTL bounds how long a cached enrichment outcome, positive or
// negative, is trusted.
const EnrichmentTTL = 7 * 24 * time.Hour

const listKeyMaxLen = 32

// Store is the persistence contract. Absent values are (nil, nil) for
// snapshots and enrichment, and an empty slice for marks. All writes are
// idempotent upserts; there are no multi-key guarantees.
type Store interface {
	GetList(ctx context.Context, key string) (*film.ListSnapshot, error)
	SaveList(ctx context.Context, key string, snap *film.ListSnapshot) error

	GetMarks(ctx context.Context, key string) ([]string, error)
	SaveMarks(ctx context.Context, key string, marks []string) error

	GetEnrichment(ctx context.Context, filmID string) (*film.EnrichmentEntry, error)
	SaveEnrichment(ctx context.Context, filmID string, entry *film.EnrichmentEntry) error

	Close() error
}

// ListKey derives the storage key for a source list URL: base64 of the URL
// with non-alphanumeric characters stripped, truncated to 32 characters.
// Collisions after truncation are accepted.
func ListKey(sourceURL string) string {
	enc := base64.StdEncoding.EncodeToString([]byte(strings.TrimSpace(sourceURL)))
	var b strings.Builder
	for _, r := range enc {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() >= listKeyMaxLen {
			break
		}
	}
	return b.String()
}

// Open selects a backend by cfg.Store.Driver.
func Open(ctx context.Context, cfg config.Config, logger *log.Logger) (Store, error) {
	switch cfg.Store.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		return NewRedis(cfg.Redis, logger), nil
	case "postgres":
		return ConnectPostgres(ctx, cfg.Database)
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "cinelist.db"
		}
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
