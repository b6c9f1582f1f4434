// Package backend opens the auction store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danwhitston/auction-api/internal/config"
	"github.com/danwhitston/auction-api/internal/redis"
	"github.com/danwhitston/auction-api/internal/storage"
	"github.com/danwhitston/auction-api/internal/storage/bolt"
	"github.com/danwhitston/auction-api/internal/storage/memory"
	"github.com/danwhitston/auction-api/internal/storage/sqlstore"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Open returns the store named by cfg.Driver. The redis driver reuses rc,
// which must be non-nil and stays owned by the caller.
func Open(ctx context.Context, cfg config.Store, rc *redis.Client) (storage.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverMemory:
		return memory.New(), nil
	case DriverBolt:
		if err := ensureDir(cfg.Path); err != nil {
			return nil, err
		}
		return bolt.Open(cfg.Path)
	case DriverSQLite:
		if err := ensureDir(cfg.Path); err != nil {
			return nil, err
		}
		return sqlstore.Open(ctx, sqlstore.SQLite, sqlstore.SQLiteDSN(cfg.Path))
	case DriverPostgres:
		return sqlstore.Open(ctx, sqlstore.Postgres, cfg.DSN)
	case DriverRedis:
		if rc == nil {
			return nil, fmt.Errorf("redis store requires a redis client")
		}
		return redis.NewStore(rc), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// NeedsRedis reports whether the driver stores auctions in Redis.
func NeedsRedis(driver string) bool {
	return strings.EqualFold(strings.TrimSpace(driver), DriverRedis)
}

func ensureDir(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("store path is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	return nil
}
