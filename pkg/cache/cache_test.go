package cache

import (
	"context"
	"testing"
	"time"
)

func TestLocalCache(t *testing.T) {
	config := Config{
		Type:              "local",
		MaxSize:           100,
		DefaultExpiration: 5 * time.Minute,
		CleanupInterval:   10 * time.Minute,
	}

	cache, err := NewLocalCache(config)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		key := "test_key"
		value := "test_value"

		err := cache.Set(ctx, key, value, time.Minute)
		if err != nil {
			t.Errorf("Failed to set cache: %v", err)
		}

		if retrieved, exists := cache.Get(ctx, key); !exists {
			t.Error("Cache value not found")
		} else if retrieved != value {
			t.Errorf("Expected %v, got %v", value, retrieved)
		}
	})

	t.Run("Expired entry is dropped", func(t *testing.T) {
		err := cache.Set(ctx, "short", "v", time.Millisecond)
		if err != nil {
			t.Fatalf("Failed to set cache: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
		if _, exists := cache.Get(ctx, "short"); exists {
			t.Error("Expected expired entry to be gone")
		}
	})

	t.Run("Eviction at capacity", func(t *testing.T) {
		small, err := NewLocalCache(Config{Type: "local", MaxSize: 2, DefaultExpiration: time.Minute})
		if err != nil {
			t.Fatalf("Failed to create cache: %v", err)
		}
		defer small.Close()

		_ = small.Set(ctx, "a", 1, time.Minute)
		_ = small.Set(ctx, "b", 2, time.Minute)
		_ = small.Set(ctx, "c", 3, time.Minute)

		if small.Exists(ctx, "a") {
			t.Error("Expected oldest entry to be evicted")
		}
		if !small.Exists(ctx, "c") {
			t.Error("Expected newest entry to remain")
		}
	})
}

func TestGoCache(t *testing.T) {
	cache := NewGoCache(DefaultConfig())
	defer cache.Close()

	ctx := context.Background()

	if err := cache.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}
	if v, ok := cache.Get(ctx, "k"); !ok || v != "v" {
		t.Errorf("Expected v, got %v (found=%v)", v, ok)
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Failed to clear cache: %v", err)
	}
	if cache.Exists(ctx, "k") {
		t.Error("Expected cache to be empty after Clear")
	}
}
