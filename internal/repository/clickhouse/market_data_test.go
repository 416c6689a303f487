package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecouncil/internal/domain/marketdata"
	"tradecouncil/internal/testsupport"
)

func setup(t *testing.T) *testsupport.ClickHouseTestHelper {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	helper := testsupport.NewClickHouseTestHelper(t, testsupport.LoadClickHouseConfigFromEnv(t))
	require.NoError(t, Migrate(context.Background(), helper.Conn()))
	return helper
}

func TestMarketDataRepository_CandlesOldestFirst(t *testing.T) {
	helper := setup(t)
	repo := NewMarketDataRepository(helper.Conn())
	ctx := context.Background()

	symbol := testsupport.UniqueSymbol("ES")
	helper.RegisterTableCleanup(t, "ohlcv", "symbol", symbol)

	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	candles := make([]marketdata.Candle, 5)
	for i := range candles {
		price := 5000 + float64(i)
		candles[i] = marketdata.Candle{
			OpenTime: start.Add(time.Duration(i) * time.Hour),
			Open:     price, High: price + 2, Low: price - 2, Close: price + 1, Volume: 1000,
		}
	}
	require.NoError(t, repo.InsertCandles(ctx, symbol, "1h", candles))

	got, err := repo.Candles(ctx, symbol, "1h", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].OpenTime.Equal(candles[2].OpenTime))
	assert.True(t, got[2].OpenTime.Equal(candles[4].OpenTime))
}

func TestMarketDataRepository_LatestQuote(t *testing.T) {
	helper := setup(t)
	repo := NewMarketDataRepository(helper.Conn())
	ctx := context.Background()

	symbol := testsupport.UniqueSymbol("NQ")
	helper.RegisterTableCleanup(t, "market_snapshots", "symbol", symbol)

	none, err := repo.LatestQuote(ctx, symbol)
	require.NoError(t, err)
	assert.Nil(t, none)

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.InsertQuote(ctx, marketdata.Quote{Symbol: symbol, Price: 100, Timestamp: now.Add(-time.Minute)}))
	require.NoError(t, repo.InsertQuote(ctx, marketdata.Quote{Symbol: symbol, Price: 101.5, ChangePct: 0.4, Timestamp: now}))

	q, err := repo.LatestQuote(ctx, symbol)
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, 101.5, q.Price)

	indices, err := repo.IndexQuotes(ctx, []string{symbol})
	require.NoError(t, err)
	require.Len(t, indices, 1)
	assert.Equal(t, 0.4, indices[0].ChangePct)
}
