package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fivetwenty-io/kintone/internal/http"
	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

const (
	apiApp        = "app.json"
	apiFormFields = "app/form/fields.json"
)

// AppsClient implements kintone.AppsClient. Form layouts are cached when a
// cache is configured.
type AppsClient struct {
	httpClient *http.Client
	cache      kintone.Cache
	ttl        time.Duration
}

// NewAppsClient creates a new apps client. A nil cache disables caching.
func NewAppsClient(httpClient *http.Client, cache kintone.Cache, options *kintone.CacheOptions) *AppsClient {
	if options == nil {
		options = kintone.DefaultCacheOptions()
	}

	return &AppsClient{
		httpClient: httpClient,
		cache:      cache,
		ttl:        options.TTL,
	}
}

// Get implements kintone.AppsClient.Get.
func (c *AppsClient) Get(ctx context.Context, id string) (*kintone.App, error) {
	if id == "" {
		return nil, kintone.ErrAppRequired
	}

	resp, err := c.httpClient.Get(ctx, apiApp, map[string]string{"id": id})
	if err != nil {
		return nil, fmt.Errorf("getting app: %w", err)
	}

	var app kintone.App

	err = json.Unmarshal(resp.Body, &app)
	if err != nil {
		return nil, fmt.Errorf("parsing app response: %w", err)
	}

	return &app, nil
}

// GetFormFields implements kintone.AppsClient.GetFormFields.
func (c *AppsClient) GetFormFields(ctx context.Context, app string) (*kintone.FormFields, error) {
	if app == "" {
		return nil, kintone.ErrAppRequired
	}

	key := kintone.FormFieldsCacheKey(app)

	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		if err == nil {
			var fields kintone.FormFields

			if json.Unmarshal(entry.Data, &fields) == nil {
				return &fields, nil
			}
		}
	}

	resp, err := c.httpClient.Get(ctx, apiFormFields, map[string]string{"app": app})
	if err != nil {
		return nil, fmt.Errorf("getting form fields: %w", err)
	}

	var fields kintone.FormFields

	err = json.Unmarshal(resp.Body, &fields)
	if err != nil {
		return nil, fmt.Errorf("parsing form fields response: %w", err)
	}

	if c.cache != nil {
		entry := &kintone.CacheEntry{Data: resp.Body, ETag: fields.Revision}
		if c.ttl > 0 {
			entry.ExpiresAt = time.Now().Add(c.ttl)
		}

		// A failed cache write only costs a refetch.
		_ = c.cache.Set(ctx, key, entry)
	}

	return &fields, nil
}

// InvalidateFormFields drops the cached layout of app.
func (c *AppsClient) InvalidateFormFields(ctx context.Context, app string) error {
	if c.cache == nil {
		return nil
	}

	err := c.cache.Delete(ctx, kintone.FormFieldsCacheKey(app))
	if err != nil {
		return fmt.Errorf("invalidating form fields: %w", err)
	}

	return nil
}
