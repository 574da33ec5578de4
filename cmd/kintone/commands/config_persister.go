package commands

import (
	"sync"
	"time"
)

// ConfigPersister writes refreshed OAuth2 tokens back to the config file.
type ConfigPersister struct {
	mutex sync.Mutex
	now   func() time.Time
}

// NewConfigPersister creates a new config persister.
func NewConfigPersister() *ConfigPersister {
	return &ConfigPersister{now: time.Now}
}

// PersistToken stores the access token, its expiry, and the refresh token.
// An empty refresh token keeps the stored one.
func (p *ConfigPersister) PersistToken(accessToken, refreshToken string, expiresAt time.Time) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config := loadConfig()

	config.OAuthToken = accessToken
	if !expiresAt.IsZero() {
		config.TokenExpiresAt = &expiresAt
	}

	if refreshToken != "" {
		config.OAuthRefreshToken = refreshToken
	}

	now := p.now()
	config.LastRefreshed = &now

	return saveConfigStruct(config)
}
