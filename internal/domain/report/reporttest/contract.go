// Package reporttest holds the behaviour every report.Cache must satisfy.
package reporttest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecouncil/internal/domain/report"
)

// Clock is a settable time source
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// NewReport builds a report created at now
func NewReport(subject string, category report.Category, now time.Time) *report.Report {
	return report.New(subject, category, json.RawMessage(`{"summary":"ok"}`), 0.8, "test-model", 120*time.Millisecond, now)
}

// CacheContract runs the shared cache behaviour against a fresh cache per subtest
func CacheContract(t *testing.T, newCache func(t *testing.T, now func() time.Time) report.Cache) {
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	t.Run("miss on empty", func(t *testing.T) {
		clock := NewClock(start)
		c := newCache(t, clock.Now)

		got, err := c.Get(ctx, "u1", report.CategoryMarketData)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("hit within ttl", func(t *testing.T) {
		clock := NewClock(start)
		c := newCache(t, clock.Now)

		r := NewReport("u1", report.CategoryMarketData, clock.Now())
		require.NoError(t, c.Put(ctx, "u1", report.CategoryMarketData, r))

		clock.Advance(4 * time.Minute)
		got, err := c.Get(ctx, "u1", report.CategoryMarketData)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, r.ID, got.ID)
		assert.JSONEq(t, string(r.Payload), string(got.Payload))
	})

	t.Run("miss after expiry", func(t *testing.T) {
		clock := NewClock(start)
		c := newCache(t, clock.Now)

		r := NewReport("u1", report.CategoryMarketData, clock.Now())
		require.NoError(t, c.Put(ctx, "u1", report.CategoryMarketData, r))

		clock.Advance(report.CategoryMarketData.TTL())
		got, err := c.Get(ctx, "u1", report.CategoryMarketData)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("last write wins", func(t *testing.T) {
		clock := NewClock(start)
		c := newCache(t, clock.Now)

		first := NewReport("u1", report.CategoryTechnical, clock.Now())
		second := NewReport("u1", report.CategoryTechnical, clock.Now())
		require.NoError(t, c.Put(ctx, "u1", report.CategoryTechnical, first))
		require.NoError(t, c.Put(ctx, "u1", report.CategoryTechnical, second))

		got, err := c.Get(ctx, "u1", report.CategoryTechnical)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, second.ID, got.ID)
	})

	t.Run("keys are isolated", func(t *testing.T) {
		clock := NewClock(start)
		c := newCache(t, clock.Now)

		r := NewReport("u1", report.CategoryNewsSentiment, clock.Now())
		require.NoError(t, c.Put(ctx, "u1", report.CategoryNewsSentiment, r))

		other, err := c.Get(ctx, "u2", report.CategoryNewsSentiment)
		require.NoError(t, err)
		assert.Nil(t, other)

		other, err = c.Get(ctx, "u1", report.CategoryTechnical)
		require.NoError(t, err)
		assert.Nil(t, other)
	})
}
