package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecouncil/pkg/errors"
)

func TestLocalLimiter_Allow(t *testing.T) {
	// 60 req/min = 1 req/sec, burst=2
	limiter := NewLocalLimiter(ProviderNameOpenAI, 60, 2)

	assert.True(t, limiter.Allow(), "first request within burst")
	assert.True(t, limiter.Allow(), "second request within burst")
	assert.False(t, limiter.Allow(), "bucket empty")
	assert.Equal(t, 60.0, limiter.Limit())
}

func TestLocalLimiter_ContextCancellation(t *testing.T) {
	// 6 req/min = one token every 10s
	limiter := NewLocalLimiter(ProviderNameOpenAI, 6, 1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRateLimitExceeded))

	var rlErr *RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, ProviderNameOpenAI, rlErr.Provider)
}

func TestLocalLimiter_DefaultBurst(t *testing.T) {
	limiter := NewLocalLimiter(ProviderNameGoogle, 5, 0)
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow(), "burst defaults to at least one")
}

func TestRateLimiterFactory(t *testing.T) {
	f := NewRateLimiterFactory(nil)

	assert.IsType(t, &NoOpLimiter{}, f.Create(ProviderNameDeepSeek, RateLimitConfig{Enabled: false}))
	assert.IsType(t, &NoOpLimiter{}, f.Create(ProviderNameOpenAI, RateLimitConfig{Enabled: true, ReqPerMinute: 0}))
	assert.IsType(t, &LocalLimiter{}, f.Create(ProviderNameOpenAI, RateLimitConfig{Enabled: true, ReqPerMinute: 100}))
}

func TestNoOpLimiter(t *testing.T) {
	l := NewNoOpLimiter()
	require.NoError(t, l.Wait(context.Background()))
	assert.True(t, l.Allow())
	assert.Equal(t, -1.0, l.Limit())
}
