package kintone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fivetwenty-io/kintone/internal/constants"
)

// NATSKVConfig configures the JetStream key-value cache.
type NATSKVConfig struct {
	// URL of the NATS server. Empty uses nats.DefaultURL.
	URL string
	// Bucket is the KV bucket name, created on first use.
	Bucket string
	// TTL is the bucket-level lifetime of every key.
	TTL time.Duration
	// Options are extra connection options.
	Options []nats.Option
}

// NATSKVCache shares cached metadata between processes through a JetStream
// key-value bucket.
type NATSKVCache struct {
	conn   *nats.Conn
	bucket nats.KeyValue
}

// NewNATSKVCache connects to NATS and opens (or creates) the bucket.
func NewNATSKVCache(config *NATSKVConfig) (*NATSKVCache, error) {
	if config == nil {
		return nil, ErrNATSConfigRequired
	}

	url := config.URL
	if url == "" {
		url = nats.DefaultURL
	}

	bucketName := config.Bucket
	if bucketName == "" {
		bucketName = constants.DefaultNATSBucket
	}

	conn, err := nats.Connect(url, config.Options...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	bucket, err := js.KeyValue(bucketName)
	if err != nil {
		if !errors.Is(err, nats.ErrBucketNotFound) {
			conn.Close()

			return nil, fmt.Errorf("getting bucket %s: %w", bucketName, err)
		}

		bucket, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucketName,
			Description: "kintone client metadata cache",
			TTL:         config.TTL,
		})
		if err != nil {
			conn.Close()

			return nil, fmt.Errorf("creating bucket %s: %w", bucketName, err)
		}
	}

	return &NATSKVCache{conn: conn, bucket: bucket}, nil
}

// Get retrieves an entry.
func (c *NATSKVCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	kv, err := c.bucket.Get(natsKey(key))
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}

	if err != nil {
		return nil, fmt.Errorf("getting %s from bucket: %w", key, err)
	}

	var entry CacheEntry

	err = json.Unmarshal(kv.Value(), &entry)
	if err != nil {
		return nil, fmt.Errorf("decoding cache entry %s: %w", key, err)
	}

	if entry.Expired(time.Now()) {
		_ = c.bucket.Delete(natsKey(key))

		return nil, fmt.Errorf("%w: %s", ErrCacheEntryExpired, key)
	}

	return &entry, nil
}

// Set stores an entry.
func (c *NATSKVCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", key, err)
	}

	_, err = c.bucket.Put(natsKey(key), data)
	if err != nil {
		return fmt.Errorf("storing %s in bucket: %w", key, err)
	}

	return nil
}

// Delete removes an entry.
func (c *NATSKVCache) Delete(ctx context.Context, key string) error {
	err := c.bucket.Delete(natsKey(key))
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("deleting %s from bucket: %w", key, err)
	}

	return nil
}

// Clear removes every key in the bucket.
func (c *NATSKVCache) Clear(ctx context.Context) error {
	keys, err := c.bucket.Keys()
	if errors.Is(err, nats.ErrNoKeysFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("listing bucket keys: %w", err)
	}

	for _, key := range keys {
		err = c.bucket.Delete(key)
		if err != nil {
			return fmt.Errorf("deleting %s from bucket: %w", key, err)
		}
	}

	return nil
}

// Has reports whether a live entry exists for key.
func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close drains the NATS connection.
func (c *NATSKVCache) Close() {
	c.conn.Close()
}

// JetStream KV keys may not contain ':'.
func natsKey(key string) string {
	out := []byte(key)
	for i, b := range out {
		if b == ':' {
			out[i] = '.'
		}
	}

	return string(out)
}
