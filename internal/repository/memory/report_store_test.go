package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecouncil/internal/domain/report"
	"tradecouncil/internal/domain/report/reporttest"
)

func TestReportStore_FindReturnsLatestUnexpired(t *testing.T) {
	clock := reporttest.NewClock(time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC))
	store := NewReportStore(clock.Now)
	ctx := context.Background()

	old := reporttest.NewReport("u1", report.CategoryTrader, clock.Now())
	_, err := store.Save(ctx, "u1", report.CategoryTrader, old)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	latest := reporttest.NewReport("u1", report.CategoryTrader, clock.Now())
	_, err = store.Save(ctx, "u1", report.CategoryTrader, latest)
	require.NoError(t, err)

	got, err := store.Find(ctx, "u1", report.CategoryTrader)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, latest.ID, got.ID)

	clock.Advance(report.CategoryTrader.TTL())
	got, err = store.Find(ctx, "u1", report.CategoryTrader)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReportStore_FindOrdersByCreatedAt(t *testing.T) {
	clock := reporttest.NewClock(time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC))
	store := NewReportStore(clock.Now)
	ctx := context.Background()

	newer := reporttest.NewReport("u1", report.CategoryTechnical, clock.Now())
	older := reporttest.NewReport("u1", report.CategoryTechnical, clock.Now().Add(-time.Minute))

	// the slower writer lands last but was computed first
	_, err := store.Save(ctx, "u1", report.CategoryTechnical, newer)
	require.NoError(t, err)
	_, err = store.Save(ctx, "u1", report.CategoryTechnical, older)
	require.NoError(t, err)

	got, err := store.Find(ctx, "u1", report.CategoryTechnical)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)
}

func TestReportStore_List(t *testing.T) {
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	clock := reporttest.NewClock(start)
	store := NewReportStore(clock.Now)
	ctx := context.Background()

	categories := []report.Category{
		report.CategoryMarketData,
		report.CategoryNewsSentiment,
		report.CategoryMarketData,
		report.CategoryTechnical,
	}
	for _, c := range categories {
		_, err := store.Save(ctx, "u1", c, reporttest.NewReport("u1", c, clock.Now()))
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}
	_, err := store.Save(ctx, "u2", report.CategoryMarketData, reporttest.NewReport("u2", report.CategoryMarketData, clock.Now()))
	require.NoError(t, err)

	t.Run("newest first", func(t *testing.T) {
		all, err := store.List(ctx, "u1", report.ListFilter{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, report.CategoryTechnical, all[0].Category)
		assert.Equal(t, report.CategoryMarketData, all[3].Category)
	})

	t.Run("by category", func(t *testing.T) {
		c := report.CategoryMarketData
		got, err := store.List(ctx, "u1", report.ListFilter{Category: &c})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("limit and since", func(t *testing.T) {
		since := start.Add(90 * time.Second)
		got, err := store.List(ctx, "u1", report.ListFilter{Limit: 1, Since: &since})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, report.CategoryTechnical, got[0].Category)
	})
}
