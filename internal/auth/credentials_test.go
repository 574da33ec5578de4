package auth_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/kintone/internal/auth"
	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

type nopPersister struct{}

func (nopPersister) PersistToken(string, string, time.Time) error { return nil }

func TestFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		config   *kintone.Config
		expected interface{}
	}{
		{
			name:     "oauth wins over everything",
			config:   &kintone.Config{OAuthToken: "tok", Username: "u", APITokens: []string{"a"}},
			expected: &auth.BearerCredentials{},
		},
		{
			name:     "password wins over tokens",
			config:   &kintone.Config{Username: "u", Password: "p", APITokens: []string{"a"}},
			expected: &auth.PasswordCredentials{},
		},
		{
			name:     "api tokens",
			config:   &kintone.Config{APITokens: []string{"a", "b"}},
			expected: &auth.APITokenCredentials{},
		},
		{
			name:     "none",
			config:   &kintone.Config{},
			expected: auth.NoCredentials{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.IsType(t, tt.expected, auth.FromConfig(tt.config))
		})
	}
}

func TestFromConfig_PersistingManager(t *testing.T) {
	t.Parallel()

	credentials := auth.FromConfig(&kintone.Config{
		BaseURL:           "https://example.cybozu.com",
		OAuthToken:        "tok",
		OAuthRefreshToken: "refresh",
		TokenPersister:    nopPersister{},
	})

	bearer, ok := credentials.(*auth.BearerCredentials)
	require.True(t, ok)
	assert.IsType(t, &auth.ConfigTokenManager{}, bearer.Manager)

	header := make(http.Header)
	require.NoError(t, credentials.Apply(context.Background(), header))
	assert.Equal(t, "Bearer tok", header.Get("Authorization"))
}

func TestCredentials_Apply(t *testing.T) {
	t.Parallel()

	header := make(http.Header)

	require.NoError(t, (&auth.APITokenCredentials{Tokens: []string{"t1", "t2"}}).Apply(context.Background(), header))
	assert.Equal(t, "t1,t2", header.Get("X-Cybozu-API-Token"))

	require.NoError(t, (&auth.PasswordCredentials{Username: "alice", Password: "secret"}).Apply(context.Background(), header))
	assert.Equal(t, "YWxpY2U6c2VjcmV0", header.Get("X-Cybozu-Authorization"))

	empty := make(http.Header)
	require.NoError(t, auth.NoCredentials{}.Apply(context.Background(), empty))
	assert.Empty(t, empty)
}
