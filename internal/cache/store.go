// Package cache is the local best-effort store of the last full price payload
// per location, plus a few small metadata values (last-used location,
// feedback client id).
package cache

import (
	"context"
	"fmt"
	"path/filepath"

	"gold-rate/internal/config"
	"gold-rate/internal/rates"
)

const (
	keyPrefix = "gold:full:"

	// MetaLastLocation holds the last successfully resolved location.
	MetaLastLocation = "lastCity"
	// MetaClientID holds the id sent with feedback.
	MetaClientID = "clientId"
)

// Store maps a location key to its last payload. Get returns (nil, nil) on a
// miss, like a redis.Nil lookup.
type Store interface {
	Get(ctx context.Context, location string) (*rates.PricePayload, error)
	Put(ctx context.Context, p *rates.PricePayload) error
	Meta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error
	Close() error
}

// Key is the storage key for a location: "gold:full:<lowercase location>".
func Key(location string) string {
	return keyPrefix + rates.Key(location)
}

// Open returns the backend selected by cfg.CacheBackend.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.CacheBackend {
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case "sqlite", "":
		return OpenSQLite(filepath.Join(cfg.DataDir, "goldrate.db"))
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
}
