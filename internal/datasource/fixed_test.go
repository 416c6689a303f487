package datasource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

func TestFixedCompleteness(t *testing.T) {
	f := NewFixed("ES", func() time.Time { return testNow })
	ctx := context.Background()

	mc, err := f.MarketConditions(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 0.85, mc.Completeness(), 1e-9)
	assert.Nil(t, mc.Volume)
	assert.Equal(t, "ES", mc.Instrument)

	news, err := f.News(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 0.80, news.Completeness(), 1e-9)
	assert.Len(t, news.Headlines, 3)

	tech, err := f.Technical(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, tech.Completeness(), 1e-9)
	assert.Len(t, tech.Candles, fixedSnapshotLen)
	require.NotNil(t, tech.Indicators)
}

func TestFixedIsDeterministic(t *testing.T) {
	f := NewFixed("ES", func() time.Time { return testNow })
	ctx := context.Background()

	a, err := f.Technical(ctx, "u1")
	require.NoError(t, err)
	b, err := f.Technical(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	last, ok := a.LastClose()
	require.True(t, ok)
	assert.InDelta(t, fixedBasePrice, last, 15)
}
