package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Static errors for err113 compliance.
var (
	ErrNoValidCredentials = errors.New("no valid credentials available")
)

// TokenManager hands out bearer tokens.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) error
	SetToken(token string, expiresAt time.Time)
}

// OAuth2Config configures token refresh against a kintone domain.
type OAuth2Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	AccessToken  string
	Scopes       []string
	// HTTPClient is used for token requests. Nil uses http.DefaultClient.
	HTTPClient *http.Client
}

// OAuth2TokenManager refreshes access tokens with the refresh_token grant.
// kintone OAuth clients obtain the first token through the authorization code
// flow in a browser, so refresh is the only grant handled here.
type OAuth2TokenManager struct {
	config *OAuth2Config
	oauth  *oauth2.Config
	store  *TokenStore
	mutex  sync.Mutex
}

// NewOAuth2TokenManager creates a manager. A configured AccessToken is used
// until a request fails or it is refreshed.
func NewOAuth2TokenManager(config *OAuth2Config) *OAuth2TokenManager {
	manager := &OAuth2TokenManager{
		config: config,
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Scopes:       config.Scopes,
			Endpoint: oauth2.Endpoint{
				TokenURL:  config.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		store: NewTokenStore(),
	}

	if config.AccessToken != "" {
		manager.store.Set(&Token{
			AccessToken:  config.AccessToken,
			TokenType:    "bearer",
			RefreshToken: config.RefreshToken,
		})
	}

	return manager
}

// NewKintoneTokenManager targets the OAuth2 token endpoint of a kintone domain.
func NewKintoneTokenManager(baseURL, clientID, clientSecret, refreshToken string) *OAuth2TokenManager {
	return NewOAuth2TokenManager(&OAuth2Config{
		TokenURL:     strings.TrimSuffix(baseURL, "/") + "/oauth2/token",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RefreshToken: refreshToken,
	})
}

// GetToken returns a valid access token, refreshing if necessary.
func (m *OAuth2TokenManager) GetToken(ctx context.Context) (string, error) {
	if token := m.store.Get(); token.Valid() {
		return token.AccessToken, nil
	}

	err := m.RefreshToken(ctx)
	if err != nil {
		return "", err
	}

	return m.store.Get().AccessToken, nil
}

// RefreshToken forces a token refresh.
func (m *OAuth2TokenManager) RefreshToken(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	refresh := m.config.RefreshToken
	if current := m.store.Get(); current != nil && current.RefreshToken != "" {
		refresh = current.RefreshToken
	}

	if refresh == "" || m.config.TokenURL == "" {
		return ErrNoValidCredentials
	}

	if m.config.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.config.HTTPClient)
	}

	fresh, err := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh}).Token()
	if err != nil {
		return fmt.Errorf("refreshing OAuth2 token: %w", err)
	}

	token := &Token{
		AccessToken:  fresh.AccessToken,
		TokenType:    fresh.TokenType,
		RefreshToken: fresh.RefreshToken,
		ExpiresAt:    fresh.Expiry,
	}

	if token.RefreshToken == "" {
		token.RefreshToken = refresh
	}

	if scope, ok := fresh.Extra("scope").(string); ok {
		token.Scope = scope
	}

	m.store.Set(token)

	return nil
}

// SetToken manually sets the access token.
func (m *OAuth2TokenManager) SetToken(token string, expiresAt time.Time) {
	refresh := m.config.RefreshToken
	if current := m.store.Get(); current != nil && current.RefreshToken != "" {
		refresh = current.RefreshToken
	}

	m.store.Set(&Token{
		AccessToken:  token,
		TokenType:    "bearer",
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	})
}

// Current returns the stored token, or nil.
func (m *OAuth2TokenManager) Current() *Token {
	return m.store.Get()
}
