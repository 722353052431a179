package cache

import (
	"fmt"
	"strings"
)

// NewCache creates a cache instance for the configured backend.
func NewCache(config Config) (Cache, error) {
	switch strings.ToLower(config.Type) {
	case "local":
		return NewLocalCache(config)
	case "gocache", "":
		return NewGoCache(config), nil
	case "redis":
		return NewRedisCache(config)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", config.Type)
	}
}
