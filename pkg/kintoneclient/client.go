package kintoneclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/kintone/internal/client"
	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

// New creates a kintone client. The base URL gains "https://" when it has no
// scheme, and a trailing slash is dropped. config is not modified.
func New(ctx context.Context, config *kintone.Config) (kintone.Client, error) {
	if config == nil {
		return nil, kintone.ErrConfigRequired
	}

	if strings.TrimSpace(config.BaseURL) == "" {
		return nil, kintone.ErrBaseURLRequired
	}

	normalized := *config
	normalized.BaseURL = NormalizeBaseURL(config.BaseURL)

	c, err := client.New(ctx, &normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NormalizeBaseURL turns "example.cybozu.com/" into "https://example.cybozu.com".
func NormalizeBaseURL(raw string) string {
	endpoint := strings.TrimSuffix(strings.TrimSpace(raw), "/")
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}

// NewWithAPIToken creates a client authenticated by one or more app API tokens.
func NewWithAPIToken(ctx context.Context, baseURL string, tokens ...string) (kintone.Client, error) {
	return New(ctx, &kintone.Config{
		BaseURL:   baseURL,
		APITokens: tokens,
	})
}

// NewWithPassword creates a client using password authentication.
func NewWithPassword(ctx context.Context, baseURL, username, password string) (kintone.Client, error) {
	return New(ctx, &kintone.Config{
		BaseURL:  baseURL,
		Username: username,
		Password: password,
	})
}

// NewWithOAuthToken creates a client with an OAuth2 access token you already have.
func NewWithOAuthToken(ctx context.Context, baseURL, token string) (kintone.Client, error) {
	return New(ctx, &kintone.Config{
		BaseURL:    baseURL,
		OAuthToken: token,
	})
}
