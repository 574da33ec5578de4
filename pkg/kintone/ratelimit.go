package kintone

import (
	"context"
	"sync"
	"time"

	"github.com/fivetwenty-io/kintone/internal/constants"
)

// IntervalLimiter spaces requests at least MinInterval apart and retries work
// rejected with HTTP 429 after a fixed Backoff. One limiter may be shared by
// several clients that talk to the same domain.
type IntervalLimiter struct {
	// MinInterval is the minimum gap between two request starts.
	MinInterval time.Duration
	// Backoff is the pause after a rate-limit rejection.
	Backoff time.Duration
	// MaxRetries is how many times a rate-limited call is repeated.
	MaxRetries int

	mu   sync.Mutex
	next time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// LimiterOption configures an IntervalLimiter.
type LimiterOption func(*IntervalLimiter)

// WithMinInterval sets the minimum gap between requests.
func WithMinInterval(interval time.Duration) LimiterOption {
	return func(l *IntervalLimiter) {
		l.MinInterval = interval
	}
}

// WithBackoff sets the pause after a 429.
func WithBackoff(backoff time.Duration) LimiterOption {
	return func(l *IntervalLimiter) {
		l.Backoff = backoff
	}
}

// WithMaxRetries sets how many times a 429 is retried.
func WithMaxRetries(retries int) LimiterOption {
	return func(l *IntervalLimiter) {
		l.MaxRetries = retries
	}
}

// WithClock replaces the time source and the sleep function.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) LimiterOption {
	return func(l *IntervalLimiter) {
		l.now = now
		l.sleep = sleep
	}
}

// NewIntervalLimiter creates a limiter with 200ms spacing, a 1s backoff, and
// one retry unless overridden.
func NewIntervalLimiter(opts ...LimiterOption) *IntervalLimiter {
	limiter := &IntervalLimiter{
		MinInterval: constants.DefaultMinRequestInterval,
		Backoff:     constants.DefaultRateLimitBackoff,
		MaxRetries:  constants.DefaultRateLimitRetries,
		now:         time.Now,
		sleep:       sleepContext,
	}

	for _, opt := range opts {
		opt(limiter)
	}

	return limiter
}

// Wait blocks until the caller may send its request. Each caller reserves its
// slot under the lock, so concurrent callers are spaced as well.
func (l *IntervalLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()

	now := l.clock()
	start := now

	if l.next.After(now) {
		start = l.next
	}

	l.next = start.Add(l.MinInterval)
	l.mu.Unlock()

	if delay := start.Sub(now); delay > 0 {
		return l.pause(ctx, delay)
	}

	return ctx.Err()
}

// Do runs fn behind the gate. When fn fails with a rate-limit error it is
// retried after Backoff, at most MaxRetries times.
func (l *IntervalLimiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := l.Wait(ctx)
		if err != nil {
			return err
		}

		err = fn(ctx)
		if err == nil || !IsRateLimited(err) || attempt >= l.MaxRetries {
			return err
		}

		err = l.pause(ctx, l.Backoff)
		if err != nil {
			return err
		}
	}
}

func (l *IntervalLimiter) clock() time.Time {
	if l.now == nil {
		return time.Now()
	}

	return l.now()
}

func (l *IntervalLimiter) pause(ctx context.Context, d time.Duration) error {
	if l.sleep == nil {
		return sleepContext(ctx, d)
	}

	return l.sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
