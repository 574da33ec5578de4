package client

import (
	"context"

	"github.com/fivetwenty-io/kintone/internal/auth"
	"github.com/fivetwenty-io/kintone/internal/constants"
	"github.com/fivetwenty-io/kintone/internal/http"
	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

// Client implements the kintone.Client interface.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     kintone.Logger

	// Resource clients
	records  *RecordsClient
	bulk     *BulkClient
	apps     *AppsClient
	spaces   *SpacesClient
	comments *CommentsClient
	files    *FilesClient
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *kintone.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithHTTPTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := config.RetryWaitMin
		if retryWaitMin <= 0 {
			retryWaitMin = constants.DefaultRetryWaitMin
		}

		retryWaitMax := config.RetryWaitMax
		if retryWaitMax <= 0 {
			retryWaitMax = constants.DefaultRetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	if config.RateLimiter != nil {
		httpOpts = append(httpOpts, http.WithRateLimiter(config.RateLimiter))
	}

	if config.Interceptors != nil {
		httpOpts = append(httpOpts, http.WithInterceptors(config.Interceptors))
	}

	if config.GuestSpaceID != "" {
		httpOpts = append(httpOpts, http.WithGuestSpace(config.GuestSpaceID))
	}

	return httpOpts
}

// New creates a kintone client. BaseURL must already be normalized.
func New(ctx context.Context, config *kintone.Config) (*Client, error) {
	if config == nil {
		return nil, kintone.ErrConfigRequired
	}

	return NewWithCredentials(config, auth.FromConfig(config))
}

// NewWithCredentials creates a client with explicit credentials.
func NewWithCredentials(config *kintone.Config, credentials auth.Credentials) (*Client, error) {
	if config == nil {
		return nil, kintone.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, kintone.ErrBaseURLRequired
	}

	httpClient := http.NewClient(config.BaseURL, credentials, createHTTPClientOptions(config)...)

	client := &Client{
		httpClient: httpClient,
		baseURL:    httpClient.BaseURL(),
		logger:     config.Logger,
	}

	client.initializeResourceClients(config)

	return client, nil
}

func (c *Client) initializeResourceClients(config *kintone.Config) {
	c.bulk = NewBulkClient(c.httpClient, c.logger)
	c.records = NewRecordsClient(c.httpClient, c.bulk, c.logger)
	c.apps = NewAppsClient(c.httpClient, config.Cache, config.CacheOptions)
	c.spaces = NewSpacesClient(c.httpClient)
	c.comments = NewCommentsClient(c.httpClient)
	c.files = NewFilesClient(c.httpClient)
}

// BaseURL returns the kintone domain URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Records implements kintone.Client.Records.
func (c *Client) Records() kintone.RecordsClient {
	return c.records
}

// Bulk implements kintone.Client.Bulk.
func (c *Client) Bulk() kintone.BulkClient {
	return c.bulk
}

// Apps implements kintone.Client.Apps.
func (c *Client) Apps() kintone.AppsClient {
	return c.apps
}

// Spaces implements kintone.Client.Spaces.
func (c *Client) Spaces() kintone.SpacesClient {
	return c.spaces
}

// Comments implements kintone.Client.Comments.
func (c *Client) Comments() kintone.CommentsClient {
	return c.comments
}

// Files implements kintone.Client.Files.
func (c *Client) Files() kintone.FilesClient {
	return c.files
}
