package kintone

import (
	"context"
	"io"
	"time"
)

// RecordPager is the read side the record-set reader drives.
type RecordPager interface {
	GetRecords(ctx context.Context, request *GetRecordsRequest) (*GetRecordsResponse, error)
	CreateCursor(ctx context.Context, request *CreateCursorRequest) (*CreateCursorResponse, error)
	GetRecordsByCursor(ctx context.Context, id string) (*GetRecordsByCursorResponse, error)
	DeleteCursor(ctx context.Context, id string) error
}

// BulkRequester sends one bulkRequest envelope.
type BulkRequester interface {
	BulkRequest(ctx context.Context, requests []BulkSubRequest) (*BulkRequestResponse, error)
}

// RecordUpserter is what UpsertRecord needs.
type RecordUpserter interface {
	GetRecords(ctx context.Context, request *GetRecordsRequest) (*GetRecordsResponse, error)
	AddRecord(ctx context.Context, request *AddRecordRequest) (*AddRecordResponse, error)
	UpdateRecord(ctx context.Context, request *UpdateRecordRequest) (*UpdateRecordResponse, error)
}

// RecordsClient covers single-record, multi-record, and whole-set operations.
type RecordsClient interface {
	RecordPager
	RecordUpserter

	GetRecord(ctx context.Context, request *GetRecordRequest) (Record, error)
	AddRecords(ctx context.Context, request *AddRecordsRequest) (*AddRecordsResponse, error)
	UpdateRecords(ctx context.Context, request *UpdateRecordsRequest) (*UpdateRecordsResponse, error)
	DeleteRecords(ctx context.Context, request *DeleteRecordsRequest) error
	UpdateRecordAssignees(ctx context.Context, request *UpdateRecordAssigneesRequest) (*UpdateRecordResponse, error)
	UpdateRecordStatus(ctx context.Context, request *UpdateRecordStatusRequest) (*UpdateRecordResponse, error)
	UpdateRecordsStatus(ctx context.Context, request *UpdateRecordsStatusRequest) (*UpdateRecordsResponse, error)

	GetAllRecords(ctx context.Context, params *GetAllRecordsParams) ([]Record, error)
	AddAllRecords(ctx context.Context, params *AddAllRecordsParams) (*AddRecordsResponse, error)
	UpdateAllRecords(ctx context.Context, params *UpdateAllRecordsParams) (*UpdateRecordsResponse, error)
	DeleteAllRecords(ctx context.Context, params *DeleteAllRecordsParams) error
	UpdateAllRecordStatuses(ctx context.Context, params *UpdateAllRecordStatusesParams) (*UpdateRecordsResponse, error)
	UpsertRecord(ctx context.Context, params *UpsertRecordParams) (*UpsertResult, error)
}

// BulkClient sends raw envelopes or orchestrates intents across envelopes.
type BulkClient interface {
	BulkRequester

	Execute(ctx context.Context, intents []BulkIntent, options *BulkOptions) (*BulkResponse, error)
}

// AppsClient reads app metadata.
type AppsClient interface {
	Get(ctx context.Context, id string) (*App, error)
	GetFormFields(ctx context.Context, app string) (*FormFields, error)
}

// SpacesClient reads spaces.
type SpacesClient interface {
	Get(ctx context.Context, id string) (*Space, error)
}

// CommentsClient manages record comments.
type CommentsClient interface {
	List(ctx context.Context, request *GetRecordCommentsRequest) (*GetRecordCommentsResponse, error)
	Add(ctx context.Context, request *AddRecordCommentRequest) (*AddRecordCommentResponse, error)
	Delete(ctx context.Context, request *DeleteRecordCommentRequest) error
}

// FilesClient uploads and downloads attachments.
type FilesClient interface {
	Upload(ctx context.Context, name string, content io.Reader) (*UploadFileResponse, error)
	Download(ctx context.Context, fileKey string) ([]byte, error)
}

// Client is the full kintone REST surface.
type Client interface {
	Records() RecordsClient
	Bulk() BulkClient
	Apps() AppsClient
	Spaces() SpacesClient
	Comments() CommentsClient
	Files() FilesClient
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// TokenPersister stores OAuth2 tokens after a refresh so the next process can
// reuse them.
type TokenPersister interface {
	PersistToken(accessToken, refreshToken string, expiresAt time.Time) error
}

// Config represents client configuration for building a kintone.Client.
//
// # Authentication precedence
//
//  1. OAuthToken, or OAuthClientID/OAuthClientSecret/OAuthRefreshToken: Bearer
//     token, refreshed through the OAuth2 token endpoint when a refresh token
//     is present.
//  2. Username/Password: X-Cybozu-Authorization header.
//  3. APITokens: X-Cybozu-API-Token header (several tokens are joined with commas
//     so one client can touch several apps).
//  4. No credentials: requests are sent without authentication.
//
// # Timeouts, retries, and rate limiting
//
// Per-request timeouts should generally be controlled via context. The
// transport retries connection errors and 5xx responses for GET requests only;
// writes are never replayed. When RateLimiter is set, every request waits for
// its gate and HTTP 429 responses are retried after the limiter's backoff.
type Config struct {
	// BaseURL is the kintone domain, e.g. "https://example.cybozu.com".
	// kintoneclient.New adds "https://" when no scheme is present.
	BaseURL string

	// APITokens are per-app API tokens.
	APITokens []string
	// Username and Password use password authentication.
	Username string
	Password string
	// OAuthToken is a static OAuth2 access token.
	OAuthToken string
	// OAuthClientID, OAuthClientSecret, and OAuthRefreshToken enable refresh.
	OAuthClientID     string
	OAuthClientSecret string
	OAuthRefreshToken string
	// TokenPersister receives refreshed OAuth2 tokens.
	TokenPersister TokenPersister

	// GuestSpaceID routes every call through /k/guest/{id}/v1.
	GuestSpaceID string

	// HTTPTimeout is the per-attempt HTTP timeout. Zero uses the default.
	HTTPTimeout time.Duration
	// RetryMax is the maximum number of transport retries for GET requests.
	RetryMax int
	// RetryWaitMin is the minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax is the maximum backoff between retries.
	RetryWaitMax time.Duration

	// RateLimiter gates every request. Nil disables client-side throttling.
	RateLimiter *IntervalLimiter
	// Interceptors run around every request.
	Interceptors *InterceptorChain
	// Cache stores app form metadata. Nil disables caching.
	Cache Cache
	// CacheOptions configures entry lifetimes. Nil uses DefaultCacheOptions().
	CacheOptions *CacheOptions

	// Debug enables request/response logging when a Logger is provided.
	Debug bool
	// Logger is an optional structured logger.
	Logger Logger
	// UserAgent overrides the default User-Agent header.
	UserAgent string
}
