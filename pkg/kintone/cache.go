package kintone

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/kintone/internal/constants"
)

// Cache stores serialized metadata responses.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// CacheEntry is one cached payload.
type CacheEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
	// ETag is the form revision the payload was read at.
	ETag string `json:"etag,omitempty"`
}

// Expired reports whether the entry is past its lifetime.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// CacheOptions configures cache behaviour shared by every backend.
type CacheOptions struct {
	// TTL is the lifetime of new entries.
	TTL time.Duration
	// MaxSize bounds in-memory backends.
	MaxSize int
}

// DefaultCacheOptions returns default cache options.
func DefaultCacheOptions() *CacheOptions {
	return &CacheOptions{
		TTL:     constants.DefaultCacheTTL,
		MaxSize: constants.DefaultCacheSize,
	}
}

// FormFieldsCacheKey is the key under which an app's form layout is stored.
func FormFieldsCacheKey(app string) string {
	return "kintone:form-fields:" + app
}

// MemoryCache is a bounded in-process cache. When full, the entry closest to
// expiry is evicted.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
	maxSize int
	now     func() time.Time
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = constants.DefaultCacheSize
	}

	return &MemoryCache{
		entries: make(map[string]*CacheEntry),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get retrieves an entry.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}

	if entry.Expired(c.now()) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()

		return nil, fmt.Errorf("%w: %s", ErrCacheEntryExpired, key)
	}

	return entry, nil
}

// Set stores an entry.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLocked()
	}

	c.entries[key] = entry

	return nil
}

// Delete removes an entry.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	return nil
}

// Clear removes all entries.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]*CacheEntry)
	c.mu.Unlock()

	return nil
}

// Has reports whether a live entry exists for key.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Cleanup drops expired entries.
func (c *MemoryCache) Cleanup() {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, key)
		}
	}
}

func (c *MemoryCache) evictLocked() {
	var (
		victim string
		oldest time.Time
	)

	for key, entry := range c.entries {
		if victim == "" || entry.ExpiresAt.Before(oldest) {
			victim = key
			oldest = entry.ExpiresAt
		}
	}

	delete(c.entries, victim)
}
