package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fivetwenty-io/kintone/internal/constants"
	"github.com/fivetwenty-io/kintone/pkg/kintone"
	"github.com/fivetwenty-io/kintone/pkg/kintoneclient"
)

// CreateClient builds a kintone client from the CLI configuration. The
// returned cleanup flushes the logger and closes the cache connection.
func CreateClient(cmd *cobra.Command) (kintone.Client, func(), error) {
	config := loadConfig()

	if config.BaseURL == "" {
		return nil, nil, constants.ErrNoBaseURLConfigured
	}

	if config.Username != "" && config.Password == "" {
		password, err := promptPassword(cmd)
		if err != nil {
			return nil, nil, err
		}

		config.Password = password
	}

	if !hasCredentials(config) {
		return nil, nil, constants.ErrNoCredentials
	}

	verbose := viper.GetBool("verbose")

	zapLogger, err := newCLILogger(verbose)
	if err != nil {
		return nil, nil, err
	}

	logger := NewZapLogger(zapLogger)

	cache, err := buildCache(config)
	if err != nil {
		_ = zapLogger.Sync()

		return nil, nil, err
	}

	cleanup := func() {
		if closer, ok := cache.(interface{ Close() }); ok {
			closer.Close()
		}

		_ = zapLogger.Sync()
	}

	clientConfig := buildClientConfig(config, logger, verbose)
	clientConfig.Cache = cache

	client, err := kintoneclient.New(cmd.Context(), clientConfig)
	if err != nil {
		cleanup()

		return nil, nil, fmt.Errorf("failed to create kintone client: %w", err)
	}

	return client, cleanup, nil
}

func hasCredentials(config *Config) bool {
	return len(config.APITokens) > 0 ||
		config.Username != "" ||
		config.OAuthToken != "" ||
		config.OAuthRefreshToken != ""
}

func buildClientConfig(config *Config, logger kintone.Logger, verbose bool) *kintone.Config {
	interceptors := kintone.NewInterceptorChain()
	interceptors.AddRequestInterceptor(kintone.RequestIDInterceptor(uuid.NewString))

	if verbose {
		interceptors.AddRequestInterceptor(kintone.LoggingInterceptor(logger))
		interceptors.AddResponseInterceptor(kintone.LoggingResponseInterceptor(logger))
	}

	clientConfig := &kintone.Config{
		BaseURL:           config.BaseURL,
		APITokens:         config.APITokens,
		Username:          config.Username,
		Password:          config.Password,
		OAuthToken:        config.OAuthToken,
		OAuthClientID:     config.OAuthClientID,
		OAuthClientSecret: config.OAuthClientSecret,
		OAuthRefreshToken: config.OAuthRefreshToken,
		GuestSpaceID:      config.GuestSpaceID,
		Interceptors:      interceptors,
		Logger:            logger,
		Debug:             verbose,
		UserAgent:         "kintone-cli",
	}

	if config.OAuthRefreshToken != "" {
		clientConfig.TokenPersister = NewConfigPersister()
	}

	if config.RateLimit {
		clientConfig.RateLimiter = kintone.NewIntervalLimiter()
	}

	return clientConfig
}

func buildCache(config *Config) (kintone.Cache, error) {
	cacheType, err := kintone.ParseCacheType(config.Cache)
	if err != nil {
		return nil, fmt.Errorf("invalid cache setting: %w", err)
	}

	cache, err := kintone.NewCacheFromConfig(&kintone.CacheConfig{
		Type: cacheType,
		NATS: &kintone.NATSKVConfig{
			URL:    config.NATSURL,
			Bucket: constants.DefaultNATSBucket,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	return cache, nil
}

func promptPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", constants.ErrPasswordRequired
	}

	_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")

	bytePassword, err := term.ReadPassword(fd)

	_, _ = fmt.Fprintln(cmd.ErrOrStderr())

	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(bytePassword), nil
}

// withClient runs fn with a client built for cmd and always runs cleanup.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, client kintone.Client) error) error {
	client, cleanup, err := CreateClient(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	return fn(cmd.Context(), client)
}
