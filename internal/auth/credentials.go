package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/fivetwenty-io/kintone/internal/constants"
	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

// Credentials set authentication headers on an outgoing request.
type Credentials interface {
	Apply(ctx context.Context, header http.Header) error
}

// APITokenCredentials authenticate with one or more app API tokens.
type APITokenCredentials struct {
	Tokens []string
}

// Apply sets X-Cybozu-API-Token.
func (c *APITokenCredentials) Apply(ctx context.Context, header http.Header) error {
	header.Set(constants.HeaderAPIToken, strings.Join(c.Tokens, ","))

	return nil
}

// PasswordCredentials authenticate as a kintone user.
type PasswordCredentials struct {
	Username string
	Password string
}

// Apply sets X-Cybozu-Authorization.
func (c *PasswordCredentials) Apply(ctx context.Context, header http.Header) error {
	encoded := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
	header.Set(constants.HeaderPasswordAuth, encoded)

	return nil
}

// BearerCredentials authenticate with an OAuth2 access token.
type BearerCredentials struct {
	Manager TokenManager
}

// Apply sets Authorization: Bearer.
func (c *BearerCredentials) Apply(ctx context.Context, header http.Header) error {
	token, err := c.Manager.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("getting access token: %w", err)
	}

	header.Set("Authorization", "Bearer "+token)

	return nil
}

// NoCredentials sends requests unauthenticated.
type NoCredentials struct{}

// Apply does nothing.
func (NoCredentials) Apply(ctx context.Context, header http.Header) error {
	return nil
}

// FromConfig picks a credential strategy: OAuth2, then password, then API
// tokens.
func FromConfig(config *kintone.Config) Credentials {
	switch {
	case config.OAuthToken != "" || config.OAuthRefreshToken != "":
		manager := NewOAuth2TokenManager(&OAuth2Config{
			TokenURL:     strings.TrimSuffix(config.BaseURL, "/") + "/oauth2/token",
			ClientID:     config.OAuthClientID,
			ClientSecret: config.OAuthClientSecret,
			RefreshToken: config.OAuthRefreshToken,
			AccessToken:  config.OAuthToken,
		})

		if config.TokenPersister != nil {
			return &BearerCredentials{Manager: NewConfigTokenManager(manager, config.TokenPersister, config.Logger)}
		}

		return &BearerCredentials{Manager: manager}

	case config.Username != "":
		return &PasswordCredentials{Username: config.Username, Password: config.Password}

	case len(config.APITokens) > 0:
		return &APITokenCredentials{Tokens: config.APITokens}

	default:
		return NoCredentials{}
	}
}
