package cache

import (
	"context"
	"time"
)

// Cache is a small TTL cache used to hold last-good snapshots between
// refreshes.
type Cache interface {
	// Get returns the cached value for key.
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value under key for the given expiration.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a key is present and unexpired.
	Exists(ctx context.Context, key string) bool

	// Clear drops all entries.
	Clear(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}

// Config selects and sizes a cache backend.
type Config struct {
	// Backend type: "local", "gocache" or "redis"
	Type string `json:"type" env:"CACHE_TYPE" default:"gocache"`

	// Maximum number of entries (local backend only)
	MaxSize int `json:"max_size" env:"CACHE_MAX_SIZE" default:"1000"`

	// Default entry lifetime
	DefaultExpiration time.Duration `json:"default_expiration" env:"CACHE_DEFAULT_EXPIRATION" default:"5m"`

	// Sweep interval for expired entries
	CleanupInterval time.Duration `json:"cleanup_interval" env:"CACHE_CLEANUP_INTERVAL" default:"10m"`

	// Redis connection (redis backend only). Values pass through JSON, so
	// typed snapshot reads miss on this backend; use it for shared flags and
	// counters, not in-process snapshots.
	RedisAddr     string `json:"redis_addr" env:"CACHE_REDIS_ADDR"`
	RedisPassword string `json:"redis_password" env:"CACHE_REDIS_PASSWORD"`
	RedisDB       int    `json:"redis_db" env:"CACHE_REDIS_DB"`
}

// DefaultConfig returns a config suitable for snapshot caching.
func DefaultConfig() Config {
	return Config{
		Type:              "gocache",
		MaxSize:           1000,
		DefaultExpiration: 5 * time.Minute,
		CleanupInterval:   10 * time.Minute,
	}
}
