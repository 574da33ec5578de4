package constants

import "errors"

// Configuration errors.
var (
	ErrNoBaseURLConfigured = errors.New("no kintone base URL configured, use 'kintone config set base_url <url>'")
	ErrNoCredentials       = errors.New("no credentials configured, set api_tokens, username or oauth_token")
	ErrUnknownConfigKey    = errors.New("unknown configuration key")
	ErrPasswordRequired    = errors.New("password is required, set it with 'kintone config set password' or run in a terminal")
)

// Input errors.
var (
	ErrAppFlagRequired       = errors.New("--app flag is required")
	ErrFileFlagRequired      = errors.New("--file flag is required")
	ErrUpdateKeyFlagRequired = errors.New("--key-field and --key-value flags are required")
	ErrUnsupportedFileFormat = errors.New("unsupported input file format, use .json, .yaml or .yml")
	ErrInvalidFilePath       = errors.New("invalid file path")
	ErrIDsRequired           = errors.New("--ids or --file is required")
)
