package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/oriys/lastgood/internal/config"
)

// Open builds the backend named by cfg.Driver and wraps it with Instrument.
// The "none" driver (and an empty driver) returns a nil Backend, which puts
// the fallback store in memory-only mode.
func Open(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))

	var (
		b   Backend
		err error
	)
	switch driver {
	case "", DriverNone:
		return nil, nil
	case DriverMemory:
		b = NewMemory()
	case DriverFile:
		b, err = NewFile(cfg.DSN)
	case DriverSQLite:
		b, err = NewSQLite(ctx, cfg.DSN)
	case DriverRedis:
		r := NewRedis(RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if pingErr := r.Ping(ctx); pingErr != nil {
			_ = r.Close()
			return nil, fmt.Errorf("redis connection failed: %w", pingErr)
		}
		b = r
	case DriverPostgres:
		b, err = NewPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", driver, err)
	}
	return Instrument(b, driver), nil
}
