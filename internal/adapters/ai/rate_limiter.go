package ai

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"tradecouncil/pkg/errors"
)

// RateLimiter defines the interface for rate limiting AI provider requests.
type RateLimiter interface {
	// Wait blocks until request can proceed or context is cancelled.
	Wait(ctx context.Context) error

	// Allow checks if request can proceed without blocking.
	Allow() bool

	// Limit returns current rate limit (requests per minute).
	Limit() float64
}

// LocalLimiter is an in-process token bucket backed by x/time/rate.
// Suitable for a single replica.
type LocalLimiter struct {
	limiter  *rate.Limiter
	provider ProviderName
	perMin   float64
}

// NewLocalLimiter creates a limiter allowing reqPerMinute with the given burst.
// A non-positive burst defaults to 10% of the per-minute rate.
func NewLocalLimiter(provider ProviderName, reqPerMinute float64, burst int) *LocalLimiter {
	if burst <= 0 {
		burst = int(reqPerMinute / 10)
		if burst < 1 {
			burst = 1
		}
	}

	return &LocalLimiter{
		limiter:  rate.NewLimiter(rate.Limit(reqPerMinute/60.0), burst),
		provider: provider,
		perMin:   reqPerMinute,
	}
}

// Wait blocks until a token is available or context is cancelled.
func (l *LocalLimiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return &RateLimitError{Provider: l.provider, Limit: l.perMin, Err: err}
	}
	return nil
}

// Allow checks if a request can proceed and consumes a token if available.
func (l *LocalLimiter) Allow() bool {
	return l.limiter.Allow()
}

// Limit returns the current rate limit in requests per minute.
func (l *LocalLimiter) Limit() float64 {
	return l.perMin
}

// NoOpLimiter is a rate limiter that never blocks.
type NoOpLimiter struct{}

// NewNoOpLimiter creates a no-op rate limiter.
func NewNoOpLimiter() *NoOpLimiter {
	return &NoOpLimiter{}
}

// Wait always returns immediately without error.
func (l *NoOpLimiter) Wait(ctx context.Context) error {
	return nil
}

// Allow always returns true.
func (l *NoOpLimiter) Allow() bool {
	return true
}

// Limit returns -1 to indicate unlimited.
func (l *NoOpLimiter) Limit() float64 {
	return -1
}

// RateLimitConfig contains rate limit configuration for a provider.
type RateLimitConfig struct {
	Enabled      bool
	ReqPerMinute float64
	Burst        int
}

// DefaultRateLimits returns conservative per-provider limits.
func DefaultRateLimits() map[ProviderName]RateLimitConfig {
	return map[ProviderName]RateLimitConfig{
		ProviderNameOpenAI: {
			Enabled:      true,
			ReqPerMinute: 500,
			Burst:        50,
		},
		ProviderNameDeepSeek: {
			Enabled:      false, // DeepSeek does not publish hard limits
			ReqPerMinute: 0,
			Burst:        0,
		},
		ProviderNameGoogle: {
			Enabled:      true,
			ReqPerMinute: 60,
			Burst:        10,
		},
	}
}

// RateLimiterFactory creates rate limiters, distributed when a Redis client is supplied.
type RateLimiterFactory struct {
	redis RedisScripter
}

// NewRateLimiterFactory creates a factory for rate limiters.
// A nil client yields local in-memory limiters.
func NewRateLimiterFactory(client RedisScripter) *RateLimiterFactory {
	return &RateLimiterFactory{redis: client}
}

// Create creates a rate limiter for the specified provider.
func (f *RateLimiterFactory) Create(provider ProviderName, config RateLimitConfig) RateLimiter {
	if !config.Enabled || config.ReqPerMinute <= 0 {
		return NewNoOpLimiter()
	}

	if f.redis != nil {
		return NewRedisRateLimiter(f.redis, provider, config.ReqPerMinute, config.Burst)
	}

	return NewLocalLimiter(provider, config.ReqPerMinute, config.Burst)
}

// RateLimitError wraps rate limit related errors with provider context.
type RateLimitError struct {
	Provider ProviderName
	Limit    float64
	Err      error
}

// Error implements error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit error for provider %s (limit: %.0f req/min): %v", e.Provider, e.Limit, e.Err)
}

// Unwrap matches both the rate-limit sentinel and the cause.
func (e *RateLimitError) Unwrap() []error {
	return []error{errors.ErrRateLimitExceeded, e.Err}
}
