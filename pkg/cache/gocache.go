package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// goCacheWrapper adapts patrickmn/go-cache to the Cache interface.
type goCacheWrapper struct {
	cache *gocache.Cache
}

// NewGoCache creates a go-cache backed cache.
func NewGoCache(config Config) Cache {
	c := gocache.New(config.DefaultExpiration, config.CleanupInterval)
	return &goCacheWrapper{cache: c}
}

func (gc *goCacheWrapper) Get(ctx context.Context, key string) (interface{}, bool) {
	if value, found := gc.cache.Get(key); found {
		return value, true
	}
	return nil, false
}

func (gc *goCacheWrapper) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	gc.cache.Set(key, value, expiration)
	return nil
}

func (gc *goCacheWrapper) Delete(ctx context.Context, key string) error {
	gc.cache.Delete(key)
	return nil
}

func (gc *goCacheWrapper) Exists(ctx context.Context, key string) bool {
	_, found := gc.cache.Get(key)
	return found
}

func (gc *goCacheWrapper) Clear(ctx context.Context) error {
	gc.cache.Flush()
	return nil
}

func (gc *goCacheWrapper) Close() error {
	// go-cache holds no external resources
	return nil
}
