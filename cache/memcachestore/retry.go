package memcachestore

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// RetryConfig configures retries of failed memcached round trips.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 10ms
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 500ms
	MaxDelay time.Duration

	// Jitter adds up to 25% random delay.
	Jitter bool
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 10 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 500 * time.Millisecond
	}
	return c
}

// WithRetry retries transient client failures with exponential backoff.
// Misses, malformed keys and encoding errors are never retried.
func WithRetry(cfg RetryConfig) Option {
	return func(s *Store) {
		cfg = cfg.withDefaults()
		s.retry = &cfg
	}
}

// retryable reports whether err may succeed on another attempt.
func retryable(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, memcache.ErrCacheMiss),
		errors.Is(err, memcache.ErrMalformedKey),
		errors.Is(err, memcache.ErrNoServers),
		errors.Is(err, errDecode),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// do runs op, retrying per the store's retry config.
func (s *Store) do(ctx context.Context, op func() error) error {
	if s.retry == nil {
		return op()
	}

	var lastErr error
	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		lastErr = op()
		if !retryable(lastErr) || attempt == s.retry.MaxAttempts {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retry.delay(attempt)):
		}
	}
	return lastErr
}

func (c *RetryConfig) delay(attempt int) time.Duration {
	d := time.Duration(float64(c.InitialDelay) * math.Pow(2, float64(attempt-1)))
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	if c.Jitter && d >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}
