package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second

	// CursorCleanupTimeout bounds the best-effort cursor delete after an aborted scan.
	CursorCleanupTimeout = 5 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of transport retries.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between transport retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between transport retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Rate limiting.
const (
	// DefaultMinRequestInterval is the minimum gap enforced between two requests.
	DefaultMinRequestInterval = 200 * time.Millisecond

	// DefaultRateLimitBackoff is the pause taken after a 429 before retrying.
	DefaultRateLimitBackoff = 1000 * time.Millisecond

	// DefaultRateLimitRetries is how many times a 429 is retried.
	DefaultRateLimitRetries = 1
)

// Provider ceilings.
const (
	// MaxRecordsPageSize is the largest page GetRecords and cursors return.
	MaxRecordsPageSize = 500

	// MaxWriteRecords is the largest number of records per add/update call.
	MaxWriteRecords = 100

	// MaxDeleteRecords is the largest number of ids per delete call.
	MaxDeleteRecords = 100

	// MaxStatusUpdates is the largest number of status changes per call.
	MaxStatusUpdates = 100

	// MaxBulkRequests is the largest number of sub-requests per bulkRequest call.
	MaxBulkRequests = 20

	// MaxRequestURLLength is the URL size above which GET is sent as a POST override.
	MaxRequestURLLength = 4096
)

// Header names.
const (
	// HeaderAPIToken carries one or more comma separated API tokens.
	HeaderAPIToken = "X-Cybozu-API-Token"

	// HeaderPasswordAuth carries base64(login:password).
	HeaderPasswordAuth = "X-Cybozu-Authorization"

	// HeaderMethodOverride turns a POST into the named method server side.
	HeaderMethodOverride = "X-HTTP-Method-Override"

	// HeaderRequestID correlates CLI invocations with server logs.
	HeaderRequestID = "X-Request-Id"
)

// Cache settings.
const (
	// DefaultCacheSize is the default maximum number of in-memory cache entries.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is the default lifetime of cached app metadata.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultNATSBucket is the default JetStream KV bucket name.
	DefaultNATSBucket = "kintone-cache"
)

// Validation and limits.
const (
	// MinimumArgumentCount is the minimum number of command line arguments.
	MinimumArgumentCount = 2

	// PercentageMultiplier converts ratios to percentages.
	PercentageMultiplier = 100
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"
)

// Boolean string constants.
const (
	// BooleanTrue string representation.
	BooleanTrue = "true"

	// BooleanFalse string representation.
	BooleanFalse = "false"
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"
)
