// Package storage defines the persistent key-value substrate behind the
// fallback store. A backend only moves opaque byte values under string keys;
// encoding and version checks belong to the caller.
//
// Implementations: Memory (in-process), File (one file per key), SQLite
// (modernc.org/sqlite), Redis (go-redis) and Postgres (pgx). Open picks one
// from configuration and wraps it with Instrument.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key does not exist.
var ErrNotFound = errors.New("storage: key not found")

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("storage: backend closed")

// Backend abstracts a string-keyed byte store.
// All operations are safe for concurrent use.
type Backend interface {
	// Get retrieves the value stored under key.
	// Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping verifies connectivity to the underlying backend.
	Ping(ctx context.Context) error

	// Close releases all resources held by the backend.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverNone     = "none"
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
