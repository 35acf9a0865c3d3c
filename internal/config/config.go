package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App      AppConfig
	Source   SourceConfig
	Enrich   EnrichConfig
	Store    StoreConfig
	Redis    RedisConfig
	Database DatabaseConfig
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
}

// SourceConfig describes the upstream list site.
type SourceConfig struct {
	// BaseURL is the site root, also used for the session landing page and
	// to validate incoming list URLs.
	BaseURL string

	// MaxPages caps how many paginated list pages one refresh may fetch.
	MaxPages int

	// HeadlessFallback enables one headless-browser attempt after a
	// challenge-blocked fetch.
	HeadlessFallback bool
}

type EnrichConfig struct {
	// TMDBAPIKey is optional; enrichment is skipped entirely without it.
	TMDBAPIKey string
}

type StoreConfig struct {
	// Driver selects the store backend: memory, redis, postgres or sqlite.
	Driver string

	SQLitePath string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout time.Duration
	PoolMaxConns   int32
}

var errMissingRequiredEnv = errors.New("missing required environment variables")

func Load() (Config, error) {
	cfg := Config{}

	var missing []string
	req := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key string) string {
		return strings.TrimSpace(os.Getenv(key))
	}

	cfg.App = AppConfig{
		AppName:     req("APP_NAME"),
		Environment: req("APP_ENV"),
		HTTPPort:    req("HTTP_PORT"),
	}

	cfg.Source = SourceConfig{
		BaseURL:          req("SOURCE_BASE_URL"),
		MaxPages:         optInt("SCRAPE_MAX_PAGES", 30),
		HeadlessFallback: optBool("HEADLESS_FALLBACK"),
	}

	cfg.Enrich = EnrichConfig{
		TMDBAPIKey: opt("TMDB_API_KEY"),
	}

	driver := strings.ToLower(opt("STORE_DRIVER"))
	if driver == "" {
		driver = "memory"
	}
	cfg.Store = StoreConfig{
		Driver:     driver,
		SQLitePath: opt("SQLITE_PATH"),
	}

	cfg.Redis = RedisConfig{
		Host:     opt("REDIS_HOST"),
		Port:     opt("REDIS_PORT"),
		Password: opt("REDIS_PASSWORD"),
	}

	cfg.Database = DatabaseConfig{
		DBHost:         opt("DB_HOST"),
		DBPort:         opt("DB_PORT"),
		DBName:         opt("DB_NAME"),
		DBUser:         opt("DB_USER"),
		DBPassword:     opt("DB_PASSWORD"),
		DBSSLMode:      opt("DB_SSL_MODE"),
		ConnectTimeout: 5 * time.Second,
		PoolMaxConns:   optInt32("DB_POOL_MAX_CONNS", 0),
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}

	return cfg, nil
}

func optInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func optInt32(key string, def int32) int32 {
	return int32(optInt(key, int(def)))
}

func optBool(key string) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return raw == "1" || raw == "true" || raw == "yes"
}
