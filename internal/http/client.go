package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/kintone/internal/auth"
	"github.com/fivetwenty-io/kintone/internal/constants"
	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

const defaultUserAgent = "kintone-go/1.0"

// Request is one logical API call. Path is either absolute ("/k/v1/...") or
// an endpoint name ("records.json") expanded with APIPath.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON-encoded for writes and bracket-encoded into the query string
	// for GET and DELETE.
	Body interface{}
	// RawBody is sent verbatim with ContentType, bypassing Body.
	RawBody     []byte
	ContentType string
	Headers     map[string]string
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Client performs kintone API calls.
type Client struct {
	baseURL      string
	credentials  auth.Credentials
	httpClient   *retryablehttp.Client
	limiter      *kintone.IntervalLimiter
	interceptors *kintone.InterceptorChain
	logger       kintone.Logger
	debug        bool
	userAgent    string
	guestSpaceID string
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger kintone.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRetryConfig sets the transport retry policy for GET requests.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithHTTPTimeout sets the per-attempt timeout.
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRateLimiter gates every call and retries 429 responses.
func WithRateLimiter(limiter *kintone.IntervalLimiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithInterceptors runs the chain around every call.
func WithInterceptors(chain *kintone.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// WithGuestSpace routes endpoint names through a guest space.
func WithGuestSpace(spaceID string) Option {
	return func(c *Client) {
		c.guestSpaceID = spaceID
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient = client
	}
}

// NewClient creates a client. Nil credentials send no authentication.
func NewClient(baseURL string, credentials auth.Credentials, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.CheckRetry = checkRetry
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil

	if credentials == nil {
		credentials = auth.NoCredentials{}
	}

	client := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		credentials: credentials,
		httpClient:  retryClient,
		userAgent:   defaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.logger != nil {
		retryClient.Logger = &leveledLogger{logger: client.logger}
	}

	return client
}

// APIPath expands an endpoint name to its full path.
func (c *Client) APIPath(name string) string {
	if c.guestSpaceID != "" {
		return "/k/guest/" + c.guestSpaceID + "/v1/" + name
	}

	return "/k/v1/" + name
}

// BaseURL returns the configured domain URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs the call. Non-2xx responses return both the response and a
// *kintone.APIError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if c.limiter == nil {
		return c.do(ctx, req)
	}

	var resp *Response

	err := c.limiter.Do(ctx, func(ctx context.Context) error {
		var err error

		resp, err = c.do(ctx, req)

		return err
	})

	return resp, err
}

// Get performs a GET. params may be url.Values or any JSON-encodable value.
func (c *Client) Get(ctx context.Context, path string, params interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Body: params})
}

// Post performs a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch performs a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE with bracket-encoded parameters.
func (c *Client) Delete(ctx context.Context, path string, params interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path, Body: params})
}

// Upload sends content as a multipart form file.
func (c *Client) Upload(ctx context.Context, path, fieldName, fileName string, content io.Reader) (*Response, error) {
	var buffer bytes.Buffer

	writer := multipart.NewWriter(&buffer)

	part, err := writer.CreateFormFile(fieldName, fileName)
	if err != nil {
		return nil, fmt.Errorf("creating multipart part: %w", err)
	}

	_, err = io.Copy(part, content)
	if err != nil {
		return nil, fmt.Errorf("reading upload content: %w", err)
	}

	err = writer.Close()
	if err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	return c.Do(ctx, &Request{
		Method:      http.MethodPost,
		Path:        path,
		RawBody:     buffer.Bytes(),
		ContentType: writer.FormDataContentType(),
	})
}

func (c *Client) do(ctx context.Context, req *Request) (*Response, error) {
	method, fullURL, body, headers, err := c.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	path := req.Path
	if !strings.HasPrefix(path, "/") {
		path = c.APIPath(path)
	}

	intercepted := &kintone.Request{Method: method, Path: path, Headers: headers, Body: body}

	if c.interceptors != nil {
		err = c.interceptors.ExecuteRequestInterceptors(ctx, intercepted)
		if err != nil {
			return nil, err
		}
	}

	var rawBody interface{}
	if intercepted.Body != nil {
		rawBody = intercepted.Body
	}

	retryReq, err := retryablehttp.NewRequestWithContext(
		context.WithValue(ctx, idempotentKey{}, req.Method == http.MethodGet),
		method, fullURL, rawBody,
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	retryReq.Header = intercepted.Headers

	c.logDebug("HTTP Request", map[string]interface{}{
		"method": method,
		"url":    fullURL,
	})

	start := time.Now()

	httpResp, err := c.httpClient.Do(retryReq)
	if err != nil {
		if httpResp != nil {
			_ = httpResp.Body.Close()
		}

		_ = c.afterResponse(ctx, intercepted, &kintone.Response{Error: err})

		return nil, fmt.Errorf("executing %s %s: %w", req.Method, req.Path, err)
	}

	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}

	c.logDebug("HTTP Response", map[string]interface{}{
		"method":      method,
		"url":         fullURL,
		"status_code": resp.StatusCode,
		"duration":    time.Since(start).String(),
	})

	var apiErr error
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr = kintone.ParseAPIError(resp.StatusCode, respBody)
	}

	err = c.afterResponse(ctx, intercepted, &kintone.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       respBody,
		Error:      apiErr,
	})
	if err != nil {
		return resp, err
	}

	if apiErr != nil {
		return resp, apiErr
	}

	return resp, nil
}

// prepare resolves the URL, body, and headers. GET and DELETE parameters go to
// the query string; a GET whose URL grows past the provider limit is sent as a
// POST carrying X-HTTP-Method-Override.
func (c *Client) prepare(ctx context.Context, req *Request) (string, string, []byte, http.Header, error) {
	method := req.Method
	path := req.Path

	if !strings.HasPrefix(path, "/") {
		path = c.APIPath(path)
	}

	headers := make(http.Header)
	headers.Set("Accept", "application/json")
	headers.Set("User-Agent", c.userAgent)

	err := c.credentials.Apply(ctx, headers)
	if err != nil {
		return "", "", nil, nil, fmt.Errorf("applying credentials: %w", err)
	}

	for key, value := range req.Headers {
		headers.Set(key, value)
	}

	query := url.Values{}
	for key, values := range req.Query {
		query[key] = append(query[key], values...)
	}

	var body []byte

	switch {
	case req.RawBody != nil:
		body = req.RawBody
		headers.Set("Content-Type", req.ContentType)

	case method == http.MethodGet || method == http.MethodDelete:
		params, err := EncodeParams(req.Body)
		if err != nil {
			return "", "", nil, nil, err
		}

		for key, values := range params {
			query[key] = append(query[key], values...)
		}

	case req.Body != nil:
		body, err = json.Marshal(req.Body)
		if err != nil {
			return "", "", nil, nil, fmt.Errorf("encoding request body: %w", err)
		}

		headers.Set("Content-Type", "application/json")
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	if method == http.MethodGet && len(fullURL) > constants.MaxRequestURLLength && req.Body != nil {
		body, err = json.Marshal(req.Body)
		if err != nil {
			return "", "", nil, nil, fmt.Errorf("encoding request body: %w", err)
		}

		method = http.MethodPost
		fullURL = c.baseURL + path
		headers.Set(constants.HeaderMethodOverride, http.MethodGet)
		headers.Set("Content-Type", "application/json")
	}

	return method, fullURL, body, headers, nil
}

func (c *Client) afterResponse(ctx context.Context, req *kintone.Request, resp *kintone.Response) error {
	if c.interceptors == nil {
		return nil
	}

	return c.interceptors.ExecuteResponseInterceptors(ctx, req, resp)
}

func (c *Client) logDebug(msg string, fields map[string]interface{}) {
	if c.debug && c.logger != nil {
		c.logger.Debug(msg, fields)
	}
}

type idempotentKey struct{}

// checkRetry retries connection errors and 5xx responses for reads only.
// Writes are never replayed: a lost response would otherwise duplicate records.
// 429 is left to the rate limiter.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if idempotent, _ := ctx.Value(idempotentKey{}).(bool); !idempotent {
		return false, nil
	}

	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError && resp.StatusCode != http.StatusNotImplemented {
		return true, nil
	}

	return false, nil
}

// leveledLogger routes retryablehttp warnings and errors through
// kintone.Logger. Its per-attempt debug chatter is dropped; Do logs each call.
type leveledLogger struct {
	logger kintone.Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fieldsOf(keysAndValues))
}

func (l *leveledLogger) Info(string, ...interface{}) {}

func (l *leveledLogger) Debug(string, ...interface{}) {}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fieldsOf(keysAndValues))
}

func fieldsOf(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return fields
}
