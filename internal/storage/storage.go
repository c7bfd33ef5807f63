// Package storage selects the session store backend from configuration.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/ports"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/pkg/config"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/storage/badger"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/storage/memory"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/storage/redis"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/storage/sqldb"
)

// SessionStore is re-exported so callers only need this package.
type SessionStore = ports.SessionStore

const badgerGCInterval = 5 * time.Minute

// Open returns the session store named by cfg.Storage.
func Open(ctx context.Context, cfg config.SessionConfig, logger *slog.Logger) (SessionStore, error) {
	logger.Info("opening session store", slog.String("storage", cfg.Storage))

	switch cfg.Storage {
	case "", "memory":
		return memory.New(cfg.TTL), nil
	case "sqlite":
		return sqldb.NewSQLite(cfg.SQLitePath, cfg.TTL)
	case "file":
		return badger.Open(badger.Config{
			Path:       cfg.FilePath,
			TTL:        cfg.TTL,
			GCInterval: badgerGCInterval,
			Logger:     logger.With(slog.String("component", "badger")),
		})
	case "redis":
		return redis.New(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		})
	default:
		return nil, fmt.Errorf("unknown session storage %q", cfg.Storage)
	}
}
