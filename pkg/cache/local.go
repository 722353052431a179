package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// localCache bounds entries with an LRU and expires them with a deadline
// checked on read plus a periodic sweep.
type localCache struct {
	config Config
	lru    *lru.Cache[string, *cacheItem]
	stop   chan struct{}
}

type cacheItem struct {
	value      interface{}
	expiration time.Time
}

// NewLocalCache creates an LRU-bounded local cache.
func NewLocalCache(config Config) (Cache, error) {
	if config.MaxSize <= 0 {
		config.MaxSize = 1000
	}
	l, err := lru.New[string, *cacheItem](config.MaxSize)
	if err != nil {
		return nil, err
	}

	lc := &localCache{config: config, lru: l, stop: make(chan struct{})}
	if config.CleanupInterval > 0 {
		go lc.startCleanup()
	}
	return lc, nil
}

func (lc *localCache) Get(ctx context.Context, key string) (interface{}, bool) {
	item, ok := lc.lru.Get(key)
	if !ok {
		return nil, false
	}
	if !item.expiration.IsZero() && time.Now().After(item.expiration) {
		lc.lru.Remove(key)
		return nil, false
	}
	return item.value, true
}

func (lc *localCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = lc.config.DefaultExpiration
	}
	var exp time.Time
	if expiration > 0 {
		exp = time.Now().Add(expiration)
	}
	lc.lru.Add(key, &cacheItem{value: value, expiration: exp})
	return nil
}

func (lc *localCache) Delete(ctx context.Context, key string) error {
	lc.lru.Remove(key)
	return nil
}

func (lc *localCache) Exists(ctx context.Context, key string) bool {
	_, ok := lc.Get(ctx, key)
	return ok
}

func (lc *localCache) Clear(ctx context.Context) error {
	lc.lru.Purge()
	return nil
}

func (lc *localCache) Close() error {
	close(lc.stop)
	return nil
}

func (lc *localCache) startCleanup() {
	ticker := time.NewTicker(lc.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-lc.stop:
			return
		case <-ticker.C:
			now := time.Now()
			for _, key := range lc.lru.Keys() {
				if item, ok := lc.lru.Peek(key); ok {
					if !item.expiration.IsZero() && now.After(item.expiration) {
						lc.lru.Remove(key)
					}
				}
			}
		}
	}
}
