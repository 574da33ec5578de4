package kintone

import (
	"context"
	"fmt"
	"strings"
)

// CacheType selects a cache backend.
type CacheType string

const (
	// CacheTypeMemory keeps entries in process.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNATS shares entries through a JetStream KV bucket.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeNone disables caching.
	CacheTypeNone CacheType = "none"
)

// CacheConfig configures a cache backend.
type CacheConfig struct {
	Type CacheType

	// NATS is required when Type is CacheTypeNATS.
	NATS *NATSKVConfig

	// Options applied to the backend. If nil, DefaultCacheOptions() is used.
	Options *CacheOptions
}

// DefaultCacheConfig returns an in-memory cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type:    CacheTypeMemory,
		Options: DefaultCacheOptions(),
	}
}

// ParseCacheType maps a configuration string to a CacheType.
func ParseCacheType(raw string) (CacheType, error) {
	switch CacheType(strings.ToLower(strings.TrimSpace(raw))) {
	case CacheTypeMemory:
		return CacheTypeMemory, nil
	case CacheTypeNATS:
		return CacheTypeNATS, nil
	case CacheTypeNone, "":
		return CacheTypeNone, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedCacheType, raw)
	}
}

// NewCacheFromConfig creates a cache backend from configuration.
func NewCacheFromConfig(config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	options := config.Options
	if options == nil {
		options = DefaultCacheOptions()
	}

	switch config.Type {
	case CacheTypeMemory:
		return NewMemoryCache(options.MaxSize), nil

	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		natsConfig := *config.NATS
		if natsConfig.TTL == 0 {
			natsConfig.TTL = options.TTL
		}

		return NewNATSKVCache(&natsConfig)

	case CacheTypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// NoOpCache caches nothing.
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always fails.
func (c *NoOpCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	return nil, ErrCacheDisabled
}

// Set does nothing.
func (c *NoOpCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return nil
}

// Delete does nothing.
func (c *NoOpCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Clear does nothing.
func (c *NoOpCache) Clear(ctx context.Context) error {
	return nil
}

// Has always returns false.
func (c *NoOpCache) Has(ctx context.Context, key string) bool {
	return false
}

// CacheBuilder helps build cache configurations.
type CacheBuilder struct {
	config *CacheConfig
}

// NewCacheBuilder creates a new cache builder.
func NewCacheBuilder() *CacheBuilder {
	return &CacheBuilder{config: DefaultCacheConfig()}
}

// WithType sets the cache type.
func (b *CacheBuilder) WithType(cacheType CacheType) *CacheBuilder {
	b.config.Type = cacheType

	return b
}

// WithNATSConfig sets NATS cache configuration.
func (b *CacheBuilder) WithNATSConfig(config *NATSKVConfig) *CacheBuilder {
	b.config.NATS = config

	return b
}

// WithOptions sets cache options.
func (b *CacheBuilder) WithOptions(options *CacheOptions) *CacheBuilder {
	b.config.Options = options

	return b
}

// Build creates the cache from the configuration.
func (b *CacheBuilder) Build() (Cache, error) {
	return NewCacheFromConfig(b.config)
}

// CacheChain layers caches: reads fall through L1, L2, ... and backfill the
// faster layers on a hit.
type CacheChain struct {
	caches []Cache
}

// NewCacheChain creates a new cache chain.
func NewCacheChain(caches ...Cache) *CacheChain {
	return &CacheChain{caches: caches}
}

// Get retrieves an item from the first layer holding it.
func (c *CacheChain) Get(ctx context.Context, key string) (*CacheEntry, error) {
	for i, cache := range c.caches {
		entry, err := cache.Get(ctx, key)
		if err == nil {
			for j := 0; j < i; j++ {
				_ = c.caches[j].Set(ctx, key, entry)
			}

			return entry, nil
		}
	}

	return nil, ErrKeyNotFoundInAnyCache
}

// Set stores an item in all layers.
func (c *CacheChain) Set(ctx context.Context, key string, entry *CacheEntry) error {
	var lastErr error

	for _, cache := range c.caches {
		err := cache.Set(ctx, key, entry)
		if err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Delete removes an item from all layers.
func (c *CacheChain) Delete(ctx context.Context, key string) error {
	var lastErr error

	for _, cache := range c.caches {
		err := cache.Delete(ctx, key)
		if err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Clear empties all layers.
func (c *CacheChain) Clear(ctx context.Context) error {
	var lastErr error

	for _, cache := range c.caches {
		err := cache.Clear(ctx)
		if err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Has checks if a key exists in any layer.
func (c *CacheChain) Has(ctx context.Context, key string) bool {
	for _, cache := range c.caches {
		if cache.Has(ctx, key) {
			return true
		}
	}

	return false
}
