package kintone

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// FieldErrors lists validation messages for one field path.
type FieldErrors struct {
	Messages []string `json:"messages"`
}

// APIError is a non-2xx response from kintone.
type APIError struct {
	StatusCode int                    `json:"-"`
	Code       string                 `json:"code"`
	ID         string                 `json:"id"`
	Message    string                 `json:"message"`
	Errors     map[string]FieldErrors `json:"errors,omitempty"`

	// SubRequestIndex is the position of the failing sub-request inside a
	// bulkRequest envelope, or -1.
	SubRequestIndex int `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "[%d] [%s] %s", e.StatusCode, e.Code, e.Message)

	if e.ID != "" {
		fmt.Fprintf(&builder, " (%s)", e.ID)
	}

	if e.SubRequestIndex >= 0 {
		fmt.Fprintf(&builder, " at sub-request %d", e.SubRequestIndex)
	}

	return builder.String()
}

// Common kintone error codes.
const (
	ErrorCodeNotFound         = "GAIA_RE01"
	ErrorCodeAppNotFound      = "GAIA_AP01"
	ErrorCodeRevisionConflict = "GAIA_CO02"
	ErrorCodeInvalidInput     = "CB_VA01"
	ErrorCodeNoPermission     = "CB_NO02"
	ErrorCodeUnauthenticated  = "CB_AU01"
	ErrorCodeTooManyCursors   = "GAIA_TM12"
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired        = errors.New("config is required")
	ErrBaseURLRequired       = errors.New("base URL is required")
	ErrAppRequired           = errors.New("app is required")
	ErrRecordIDRequired      = errors.New("record id is required")
	ErrRecordIDMissing       = errors.New("record has no $id field")
	ErrInvalidUpdateKey      = errors.New("update key requires both field and value")
	ErrIDOrUpdateKeyRequired = errors.New("either id or update key is required")
	ErrIDAndUpdateKey        = errors.New("id and update key are mutually exclusive")
	ErrTooManyRecords        = errors.New("too many records for a single request")
	ErrTooManyRequests       = errors.New("too many sub-requests for a single bulk request")
	ErrIDsRevisionsMismatch  = errors.New("ids and revisions must have the same length")
	ErrCursorIDRequired      = errors.New("cursor id is required")
	ErrSpaceIDRequired       = errors.New("space id is required")
	ErrFileKeyRequired       = errors.New("file key is required")
	ErrActionRequired        = errors.New("status action is required")
	ErrResultCountMismatch   = errors.New("bulk response result count does not match sub-requests")
	ErrUnexpectedResultShape = errors.New("unexpected bulk result shape")
	ErrCacheMiss             = errors.New("key not found")
	ErrCacheEntryExpired     = errors.New("entry expired")
	ErrCacheDisabled         = errors.New("cache disabled")
	ErrNATSConfigRequired    = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheType  = errors.New("unsupported cache type")
	ErrKeyNotFoundInAnyCache = errors.New("key not found in any cache")
	ErrRateLimited           = errors.New("rate limited")
)

// BulkEnvelopeError reports a failed bulkRequest envelope. Envelopes before the
// failing one were committed; the failing envelope itself is atomic server
// side, but callers cannot tell from a transport failure whether it applied.
type BulkEnvelopeError struct {
	// Envelope is the 1-based position of the failing envelope.
	Envelope int
	// Envelopes is the total number of envelopes in the call.
	Envelopes int
	// Completed is the number of sub-requests in envelopes that succeeded.
	Completed int
	Err       error
}

// Error implements the error interface.
func (e *BulkEnvelopeError) Error() string {
	return fmt.Sprintf("bulk batch envelope %d of %d failed: %v", e.Envelope, e.Envelopes, e.Err)
}

// Unwrap exposes the transport error.
func (e *BulkEnvelopeError) Unwrap() error {
	return e.Err
}

// ParseAPIError builds an APIError from a response body. Bodies that are not
// JSON produce an APIError carrying the raw text as message.
func ParseAPIError(statusCode int, data []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode, SubRequestIndex: -1}

	var payload struct {
		APIError

		Results []json.RawMessage `json:"results"`
	}

	err := json.Unmarshal(data, &payload)
	if err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(statusCode)
		}

		return apiErr
	}

	apiErr.Code = payload.Code
	apiErr.ID = payload.ID
	apiErr.Message = payload.Message
	apiErr.Errors = payload.Errors

	if apiErr.Code == "" {
		for index, raw := range payload.Results {
			var result APIError

			if json.Unmarshal(raw, &result) == nil && result.Code != "" {
				apiErr.Code = result.Code
				apiErr.ID = result.ID
				apiErr.Message = result.Message
				apiErr.Errors = result.Errors
				apiErr.SubRequestIndex = index

				break
			}
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}

	return apiErr
}

func asAPIError(err error) (*APIError, bool) {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	return nil, false
}

// IsNotFound checks if the error is a missing record or app.
func IsNotFound(err error) bool {
	apiErr, ok := asAPIError(err)
	if !ok {
		return false
	}

	return apiErr.StatusCode == http.StatusNotFound ||
		apiErr.Code == ErrorCodeNotFound || apiErr.Code == ErrorCodeAppNotFound
}

// IsUnauthorized checks if the error is an authentication failure.
func IsUnauthorized(err error) bool {
	apiErr, ok := asAPIError(err)
	if !ok {
		return false
	}

	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.Code == ErrorCodeUnauthenticated
}

// IsForbidden checks if the error is a permission failure.
func IsForbidden(err error) bool {
	apiErr, ok := asAPIError(err)
	if !ok {
		return false
	}

	return apiErr.StatusCode == http.StatusForbidden || apiErr.Code == ErrorCodeNoPermission
}

// IsRateLimited checks if the error is an HTTP 429.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}

	apiErr, ok := asAPIError(err)
	if !ok {
		return false
	}

	return apiErr.StatusCode == http.StatusTooManyRequests
}

// IsRevisionConflict checks if the error is an optimistic-concurrency failure.
func IsRevisionConflict(err error) bool {
	apiErr, ok := asAPIError(err)
	if !ok {
		return false
	}

	return apiErr.Code == ErrorCodeRevisionConflict
}
