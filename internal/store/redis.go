package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"cinelist/internal/config"
	"cinelist/internal/domain/film"

	"github.com/redis/go-redis/v9"
)

const (
	redisListPrefix   = "list:"
	redisMarksPrefix  = "marks:"
	redisEnrichPrefix = "enrich:"
)

// Redis stores everything as JSON values. List and mark keys never expire;
// enrichment keys carry the enrichment ttl so stale outcomes age out on
// the server side too.
type Redis struct {
	client *redis.Client
	logger *log.Logger

	warnedUnavailable atomic.Bool
}

func NewRedis(cfg config.RedisConfig, logger *log.Logger) *Redis {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == "" {
		port = "6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: cfg.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil && logger != nil {
		logger.Printf("[Store] Redis ping failed, operations will retry: %v", err)
	}

	return &Redis{client: client, logger: logger}
}

func (r *Redis) warnUnavailableOnce(err error) {
	if r == nil || r.logger == nil {
		return
	}
	if r.warnedUnavailable.CompareAndSwap(false, true) {
		r.logger.Printf("[Store] Redis unavailable: %v", err)
	}
}

func (r *Redis) getJSON(ctx context.Context, key string, out any) (bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		r.warnUnavailableOnce(err)
		return false, err
	}
	if len(b) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Redis) setJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, b, ttl).Err(); err != nil {
		r.warnUnavailableOnce(err)
		return err
	}
	return nil
}

func (r *Redis) GetList(ctx context.Context, key string) (*film.ListSnapshot, error) {
	var snap film.ListSnapshot
	ok, err := r.getJSON(ctx, redisListPrefix+key, &snap)
	if err != nil || !ok {
		return nil, err
	}
	return &snap, nil
}

func (r *Redis) SaveList(ctx context.Context, key string, snap *film.ListSnapshot) error {
	if snap == nil {
		return nil
	}
	return r.setJSON(ctx, redisListPrefix+key, snap, 0)
}

func (r *Redis) GetMarks(ctx context.Context, key string) ([]string, error) {
	var marks []string
	ok, err := r.getJSON(ctx, redisMarksPrefix+key, &marks)
	if err != nil || !ok {
		return []string{}, err
	}
	return marks, nil
}

func (r *Redis) SaveMarks(ctx context.Context, key string, marks []string) error {
	if marks == nil {
		marks = []string{}
	}
	return r.setJSON(ctx, redisMarksPrefix+key, marks, 0)
}

func (r *Redis) GetEnrichment(ctx context.Context, filmID string) (*film.EnrichmentEntry, error) {
	var entry film.EnrichmentEntry
	ok, err := r.getJSON(ctx, redisEnrichPrefix+filmID, &entry)
	if err != nil || !ok {
		return nil, err
	}
	return &entry, nil
}

func (r *Redis) SaveEnrichment(ctx context.Context, filmID string, entry *film.EnrichmentEntry) error {
	if entry == nil {
		return nil
	}
	return r.setJSON(ctx, redisEnrichPrefix+filmID, entry, EnrichmentTTL)
}

func (r *Redis) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
