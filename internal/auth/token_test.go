package auth_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fivetwenty-io/kintone/internal/auth"
)

func TestToken_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		token    *auth.Token
		expected bool
	}{
		{name: "nil token", token: nil, expected: false},
		{name: "empty access token", token: &auth.Token{}, expected: false},
		{
			name:     "static token never expires",
			token:    &auth.Token{AccessToken: "static"},
			expected: true,
		},
		{
			name:     "future expiry",
			token:    &auth.Token{AccessToken: "t", ExpiresAt: time.Now().Add(time.Hour)},
			expected: true,
		},
		{
			name:     "expired",
			token:    &auth.Token{AccessToken: "t", ExpiresAt: time.Now().Add(-time.Hour)},
			expected: false,
		},
		{
			name:     "inside refresh buffer",
			token:    &auth.Token{AccessToken: "t", ExpiresAt: time.Now().Add(15 * time.Second)},
			expected: false,
		},
		{
			name:     "just outside refresh buffer",
			token:    &auth.Token{AccessToken: "t", ExpiresAt: time.Now().Add(45 * time.Second)},
			expected: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.token.Valid())
		})
	}
}

func TestTokenStore(t *testing.T) {
	t.Parallel()

	t.Run("set get clear", func(t *testing.T) {
		t.Parallel()

		store := auth.NewTokenStore()
		assert.Nil(t, store.Get())

		store.Set(&auth.Token{AccessToken: "a", RefreshToken: "r"})

		retrieved := store.Get()
		if assert.NotNil(t, retrieved) {
			assert.Equal(t, "a", retrieved.AccessToken)
			assert.Equal(t, "r", retrieved.RefreshToken)
		}

		store.Clear()
		assert.Nil(t, store.Get())
	})

	t.Run("concurrent access", func(t *testing.T) {
		t.Parallel()

		store := auth.NewTokenStore()

		var wg sync.WaitGroup

		for _, name := range []string{"token-1", "token-2"} {
			wg.Add(2)

			go func() {
				defer wg.Done()

				for _i := 0; _i < 100; _i++ {
					store.Set(&auth.Token{AccessToken: name})
				}
			}()

			go func() {
				defer wg.Done()

				for _i := 0; _i < 100; _i++ {
					_ = store.Get()
				}
			}()
		}

		wg.Wait()

		final := store.Get()
		if assert.NotNil(t, final) {
			assert.Contains(t, []string{"token-1", "token-2"}, final.AccessToken)
		}
	})
}
