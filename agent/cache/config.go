package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

const (
	BackendSQLite   = "sqlite"
	BackendFile     = "file"
	BackendUpstash  = "upstash"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Enabled        bool          `envconfig:"ENABLED" split_words:"true" default:"true"`
	TTL            time.Duration `envconfig:"TTL" split_words:"true" default:"24h"`
	Backend        string        `envconfig:"BACKEND" split_words:"true" default:"sqlite"`
	DBPath         string        `envconfig:"DB_PATH" split_words:"true"`
	Dir            string        `envconfig:"DIR" split_words:"true"`
	UpstashURL     string        `envconfig:"UPSTASH_URL" split_words:"true"`
	UpstashToken   string        `envconfig:"UPSTASH_TOKEN" split_words:"true"`
	UpstashTimeout time.Duration `envconfig:"UPSTASH_TIMEOUT" split_words:"true" default:"10s"`
	PostgresDSN    string        `envconfig:"POSTGRES_DSN" split_words:"true"`
}

func DefaultDBPath() string {
	return filepath.Join(xdg.CacheHome, "entity-research", "cache.db")
}

func DefaultDir() string {
	return filepath.Join(xdg.CacheHome, "entity-research", "entries")
}

// Open builds the Service described by cfg, including its durable backend.
func Open(ctx context.Context, cfg Config, opts ...ServiceOption) (*Service, error) {
	durable, err := openDurable(ctx, cfg)
	if err != nil {
		return nil, err
	}
	base := []ServiceOption{WithTTL(cfg.TTL), WithEnabled(cfg.Enabled)}
	return NewService(durable, append(base, opts...)...), nil
}

func openDurable(ctx context.Context, cfg Config) (Durable, error) {
	switch backend := strings.ToLower(strings.TrimSpace(cfg.Backend)); backend {
	case "", BackendSQLite:
		path := strings.TrimSpace(cfg.DBPath)
		if path == "" {
			path = DefaultDBPath()
		}
		return OpenSQLiteStore(path)
	case BackendFile:
		dir := strings.TrimSpace(cfg.Dir)
		if dir == "" {
			dir = DefaultDir()
		}
		return OpenFileStore(dir)
	case BackendUpstash:
		return NewUpstashStore(UpstashConfig{
			URL:     cfg.UpstashURL,
			Token:   cfg.UpstashToken,
			Timeout: cfg.UpstashTimeout,
		})
	case BackendPostgres:
		return OpenPostgresStore(ctx, cfg.PostgresDSN)
	case BackendMemory:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %q (valid: sqlite, file, upstash, postgres, memory)", backend)
	}
}
