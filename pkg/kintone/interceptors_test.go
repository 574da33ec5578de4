package kintone_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

type logEntry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) log(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: fields})
}

func (l *recordingLogger) Debug(msg string, fields map[string]interface{}) { l.log("debug", msg, fields) }
func (l *recordingLogger) Info(msg string, fields map[string]interface{})  { l.log("info", msg, fields) }
func (l *recordingLogger) Warn(msg string, fields map[string]interface{})  { l.log("warn", msg, fields) }
func (l *recordingLogger) Error(msg string, fields map[string]interface{}) { l.log("error", msg, fields) }

func TestInterceptorChain(t *testing.T) {
	t.Parallel()

	chain := kintone.NewInterceptorChain()
	order := make([]string, 0)

	chain.AddRequestInterceptor(func(_ context.Context, req *kintone.Request) error {
		order = append(order, "first")

		return nil
	})
	chain.AddRequestInterceptor(kintone.HeaderInterceptor(map[string]string{"X-Custom": "yes"}))
	chain.AddRequestInterceptor(func(_ context.Context, req *kintone.Request) error {
		order = append(order, "last:"+req.Headers.Get("X-Custom"))

		return nil
	})

	req := &kintone.Request{Method: http.MethodGet, Path: "/k/v1/records.json"}
	require.NoError(t, chain.ExecuteRequestInterceptors(context.Background(), req))
	assert.Equal(t, []string{"first", "last:yes"}, order)

	boom := errors.New("boom")
	chain.AddRequestInterceptor(func(context.Context, *kintone.Request) error { return boom })
	err := chain.ExecuteRequestInterceptors(context.Background(), req)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "request interceptor failed")

	chain.AddResponseInterceptor(func(context.Context, *kintone.Request, *kintone.Response) error { return boom })
	err = chain.ExecuteResponseInterceptors(context.Background(), req, &kintone.Response{})
	require.ErrorIs(t, err, boom)
}

func TestRequestIDInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := kintone.RequestIDInterceptor(func() string { return "req-1" })

	req := &kintone.Request{}
	require.NoError(t, interceptor(context.Background(), req))
	assert.Equal(t, "req-1", req.Headers.Get("X-Request-Id"))

	preset := &kintone.Request{Headers: http.Header{"X-Request-Id": []string{"caller"}}}
	require.NoError(t, interceptor(context.Background(), preset))
	assert.Equal(t, "caller", preset.Headers.Get("X-Request-Id"))
}

func TestLoggingInterceptors(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}
	req := &kintone.Request{Method: http.MethodPost, Path: "/k/v1/bulkRequest.json"}

	require.NoError(t, kintone.LoggingInterceptor(logger)(context.Background(), req))

	respInterceptor := kintone.LoggingResponseInterceptor(logger)
	require.NoError(t, respInterceptor(context.Background(), req, &kintone.Response{StatusCode: http.StatusOK}))
	require.NoError(t, respInterceptor(context.Background(), req, &kintone.Response{
		StatusCode: http.StatusBadRequest,
		Error:      errors.New("bad input"),
	}))

	require.Len(t, logger.entries, 3)
	assert.Equal(t, "debug", logger.entries[0].level)
	assert.Equal(t, "/k/v1/bulkRequest.json", logger.entries[0].fields["path"])
	assert.Equal(t, http.StatusOK, logger.entries[1].fields["status_code"])
	assert.Equal(t, "error", logger.entries[2].level)
	assert.Equal(t, "bad input", logger.entries[2].fields["error"])
}

func TestRateLimitInterceptor(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	limiter := kintone.NewIntervalLimiter(
		kintone.WithMinInterval(time.Second),
		kintone.WithClock(clock.Now, clock.Sleep),
	)
	interceptor := kintone.RateLimitInterceptor(limiter)

	require.NoError(t, interceptor(context.Background(), &kintone.Request{}))
	require.NoError(t, interceptor(context.Background(), &kintone.Request{}))
	assert.Equal(t, []time.Duration{time.Second}, clock.sleeps)
}

func TestMetricsInterceptors(t *testing.T) {
	t.Parallel()

	collector := kintone.NewMetricsCollector()

	var changes []string
	collector.SetOnChange(func(endpoint string, _ kintone.Metrics) { changes = append(changes, endpoint) })

	chain := kintone.NewInterceptorChain()
	chain.AddRequestInterceptor(kintone.MetricsRequestInterceptor(collector))
	chain.AddResponseInterceptor(kintone.MetricsResponseInterceptor(collector))

	for _, status := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := &kintone.Request{Method: http.MethodGet, Path: "/k/v1/app.json"}
		require.NoError(t, chain.ExecuteRequestInterceptors(context.Background(), req))
		require.NoError(t, chain.ExecuteResponseInterceptors(context.Background(), req, &kintone.Response{StatusCode: status}))
	}

	metrics := collector.GetMetrics("GET /k/v1/app.json")
	require.NotNil(t, metrics)
	assert.Equal(t, int64(2), metrics.TotalRequests)
	assert.Equal(t, int64(1), metrics.TotalErrors)
	assert.False(t, metrics.LastRequestTime.IsZero())
	assert.Equal(t, []string{"GET /k/v1/app.json", "GET /k/v1/app.json"}, changes)

	assert.Nil(t, collector.GetMetrics("GET /k/v1/space.json"))
}
