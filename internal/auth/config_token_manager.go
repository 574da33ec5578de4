package auth

import (
	"context"
	"sync"
	"time"

	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

// ConfigTokenManager wraps OAuth2TokenManager and persists every refreshed
// token.
type ConfigTokenManager struct {
	oauth2Manager *OAuth2TokenManager
	persister     kintone.TokenPersister
	logger        kintone.Logger
	mutex         sync.Mutex
	lastToken     string
}

// NewConfigTokenManager creates a config-persisting token manager.
func NewConfigTokenManager(manager *OAuth2TokenManager, persister kintone.TokenPersister, logger kintone.Logger) *ConfigTokenManager {
	lastToken := ""
	if current := manager.Current(); current != nil {
		lastToken = current.AccessToken
	}

	return &ConfigTokenManager{
		oauth2Manager: manager,
		persister:     persister,
		logger:        logger,
		lastToken:     lastToken,
	}
}

// GetToken returns a valid access token, refreshing and persisting if needed.
func (m *ConfigTokenManager) GetToken(ctx context.Context) (string, error) {
	token, err := m.oauth2Manager.GetToken(ctx)
	if err != nil {
		return "", err
	}

	m.persistIfChanged()

	return token, nil
}

// RefreshToken forces a token refresh.
func (m *ConfigTokenManager) RefreshToken(ctx context.Context) error {
	err := m.oauth2Manager.RefreshToken(ctx)
	if err != nil {
		return err
	}

	m.persistIfChanged()

	return nil
}

// SetToken manually sets the access token. Manually set tokens are not
// persisted.
func (m *ConfigTokenManager) SetToken(token string, expiresAt time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.oauth2Manager.SetToken(token, expiresAt)
	m.lastToken = token
}

func (m *ConfigTokenManager) persistIfChanged() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	current := m.oauth2Manager.Current()
	if current == nil || current.AccessToken == m.lastToken || m.persister == nil {
		return
	}

	m.lastToken = current.AccessToken

	err := m.persister.PersistToken(current.AccessToken, current.RefreshToken, current.ExpiresAt)
	if err != nil && m.logger != nil {
		m.logger.Warn("Failed to persist refreshed token", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
