package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/kintone/internal/constants"
)

// Config represents the CLI configuration.
type Config struct {
	BaseURL      string   `json:"base_url,omitempty"       yaml:"base_url,omitempty"`
	APITokens    []string `json:"api_tokens,omitempty"     yaml:"api_tokens,omitempty"`
	Username     string   `json:"username,omitempty"       yaml:"username,omitempty"`
	Password     string   `json:"password,omitempty"       yaml:"password,omitempty"`
	GuestSpaceID string   `json:"guest_space_id,omitempty" yaml:"guest_space_id,omitempty"`

	OAuthClientID     string     `json:"oauth_client_id,omitempty"     yaml:"oauth_client_id,omitempty"`
	OAuthClientSecret string     `json:"oauth_client_secret,omitempty" yaml:"oauth_client_secret,omitempty"`
	OAuthToken        string     `json:"oauth_token,omitempty"         yaml:"oauth_token,omitempty"`
	OAuthRefreshToken string     `json:"oauth_refresh_token,omitempty" yaml:"oauth_refresh_token,omitempty"`
	TokenExpiresAt    *time.Time `json:"token_expires_at,omitempty"    yaml:"token_expires_at,omitempty"`
	LastRefreshed     *time.Time `json:"last_refreshed,omitempty"      yaml:"last_refreshed,omitempty"`

	Output    string `json:"output"             yaml:"output"`
	Cache     string `json:"cache,omitempty"    yaml:"cache,omitempty"`
	NATSURL   string `json:"nats_url,omitempty" yaml:"nats_url,omitempty"`
	RateLimit bool   `json:"rate_limit"         yaml:"rate_limit"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage kintone CLI configuration including the base URL and credentials",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := maskedConfig(loadConfig())

			return render(cmd, config, func(w io.Writer) error {
				return displayConfigTable(w, config)
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Keys: " + strings.Join(configKeys(), ", "),
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			config := loadConfig()

			handler, ok := configHandlers()[key]
			if !ok {
				return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
			}

			handler(config, value)

			err := saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			return outputConfigUpdateResult(cmd, "Set", key, displayedValue(key, value))
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			config := loadConfig()

			handler, ok := configHandlers()[key]
			if !ok {
				return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
			}

			handler(config, "")

			err := saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			return outputConfigUpdateResult(cmd, "Unset", key, "")
		},
	}
}

func newConfigClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear configuration",
		Long:  "Remove the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, err := configFilePath()
			if err != nil {
				return err
			}

			err = os.Remove(configFile)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove config file: %w", err)
			}

			return outputConfigUpdateResult(cmd, "Cleared", "all configuration", "")
		},
	}
}

func loadConfig() *Config {
	config := &Config{
		BaseURL:           viper.GetString("base_url"),
		APITokens:         splitTokens(viper.GetStringSlice("api_tokens")),
		Username:          viper.GetString("username"),
		Password:          viper.GetString("password"),
		GuestSpaceID:      viper.GetString("guest_space_id"),
		OAuthClientID:     viper.GetString("oauth_client_id"),
		OAuthClientSecret: viper.GetString("oauth_client_secret"),
		OAuthToken:        viper.GetString("oauth_token"),
		OAuthRefreshToken: viper.GetString("oauth_refresh_token"),
		Output:            viper.GetString("output"),
		Cache:             viper.GetString("cache"),
		NATSURL:           viper.GetString("nats_url"),
		RateLimit:         !viper.IsSet("rate_limit") || viper.GetBool("rate_limit"),
	}

	if expiresAt := viper.GetTime("token_expires_at"); !expiresAt.IsZero() {
		config.TokenExpiresAt = &expiresAt
	}

	if refreshed := viper.GetTime("last_refreshed"); !refreshed.IsZero() {
		config.LastRefreshed = &refreshed
	}

	return config
}

// splitTokens accepts both a YAML list and a comma separated env value.
func splitTokens(raw []string) []string {
	var tokens []string

	for _, entry := range raw {
		for _, token := range strings.Split(entry, ",") {
			if token = strings.TrimSpace(token); token != "" {
				tokens = append(tokens, token)
			}
		}
	}

	return tokens
}

func configFilePath() (string, error) {
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".kintone", "config.yml"), nil
}

func saveConfigStruct(config *Config) error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	viper.SetConfigFile(configFile)

	err = viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("failed to reload config file: %w", err)
	}

	return nil
}

func configHandlers() map[string]func(*Config, string) {
	return map[string]func(*Config, string){
		"base_url":            func(c *Config, v string) { c.BaseURL = v },
		"api_tokens":          func(c *Config, v string) { c.APITokens = splitTokens([]string{v}) },
		"username":            func(c *Config, v string) { c.Username = v },
		"password":            func(c *Config, v string) { c.Password = v },
		"guest_space_id":      func(c *Config, v string) { c.GuestSpaceID = v },
		"oauth_client_id":     func(c *Config, v string) { c.OAuthClientID = v },
		"oauth_client_secret": func(c *Config, v string) { c.OAuthClientSecret = v },
		"oauth_token":         func(c *Config, v string) { c.OAuthToken = v },
		"oauth_refresh_token": func(c *Config, v string) { c.OAuthRefreshToken = v },
		"output":              func(c *Config, v string) { c.Output = v },
		"cache":               func(c *Config, v string) { c.Cache = v },
		"nats_url":            func(c *Config, v string) { c.NATSURL = v },
		"rate_limit":          func(c *Config, v string) { c.RateLimit = v == "" || parseBoolValue(v) },
	}
}

func configKeys() []string {
	keys := make([]string, 0, len(configHandlers()))
	for key := range configHandlers() {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func parseBoolValue(value string) bool {
	return value == constants.BooleanTrue || value == "1"
}

func isSecretKey(key string) bool {
	switch key {
	case "api_tokens", "password", "oauth_client_secret", "oauth_token", "oauth_refresh_token":
		return true
	default:
		return false
	}
}

func displayedValue(key, value string) string {
	if isSecretKey(key) {
		return maskSecret(value)
	}

	return value
}

func maskedConfig(config *Config) *Config {
	masked := *config

	if len(masked.APITokens) > 0 {
		masked.APITokens = []string{constants.MaskedSecret}
	}

	if masked.Password != "" {
		masked.Password = constants.MaskedSecret
	}

	if masked.OAuthClientSecret != "" {
		masked.OAuthClientSecret = constants.MaskedSecret
	}

	if masked.OAuthToken != "" {
		masked.OAuthToken = constants.MaskedSecret
	}

	if masked.OAuthRefreshToken != "" {
		masked.OAuthRefreshToken = constants.MaskedSecret
	}

	return &masked
}

func displayConfigTable(w io.Writer, config *Config) error {
	tokens := ""
	if len(config.APITokens) > 0 {
		tokens = strings.Join(config.APITokens, ",")
	}

	expires := ""
	if config.TokenExpiresAt != nil {
		expires = config.TokenExpiresAt.Format(time.RFC3339)
	}

	return renderProperties(w, [][]string{
		{"Base URL", formatValue(config.BaseURL)},
		{"API Tokens", formatValue(tokens)},
		{"Username", formatValue(config.Username)},
		{"Password", formatValue(config.Password)},
		{"Guest Space", formatValue(config.GuestSpaceID)},
		{"OAuth Client ID", formatValue(config.OAuthClientID)},
		{"OAuth Token", formatValue(config.OAuthToken)},
		{"OAuth Token Expires", formatValue(expires)},
		{"Output", formatValue(config.Output)},
		{"Cache", formatValue(config.Cache)},
		{"NATS URL", formatValue(config.NATSURL)},
		{"Rate Limit", strconv.FormatBool(config.RateLimit)},
	})
}

func outputConfigUpdateResult(cmd *cobra.Command, action, key, value string) error {
	result := map[string]string{
		"action": action,
		"key":    key,
	}

	if value != "" {
		result["value"] = value
	}

	return render(cmd, result, func(w io.Writer) error {
		rows := [][]string{{"Action", action}, {"Key", key}}
		if value != "" {
			rows = append(rows, []string{"Value", value})
		}

		return renderProperties(w, rows)
	})
}
