package datasource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecouncil/internal/domain/marketdata"
	"tradecouncil/pkg/errors"
)

type fakeWarehouse struct {
	quotes    map[string]*marketdata.Quote
	candles   []marketdata.Candle
	headlines []marketdata.Headline
	social    *float64
	events    []marketdata.EconomicEvent
	err       error

	eventsFrom, eventsTo time.Time
}

func (w *fakeWarehouse) LatestQuote(_ context.Context, symbol string) (*marketdata.Quote, error) {
	return w.quotes[symbol], w.err
}

func (w *fakeWarehouse) IndexQuotes(context.Context, []string) ([]marketdata.IndexQuote, error) {
	return []marketdata.IndexQuote{{Symbol: "SPX", Price: 5010}}, nil
}

func (w *fakeWarehouse) Candles(context.Context, string, string, int) ([]marketdata.Candle, error) {
	return w.candles, w.err
}

func (w *fakeWarehouse) Headlines(context.Context, string, time.Time, int) ([]marketdata.Headline, error) {
	return w.headlines, w.err
}

func (w *fakeWarehouse) PredictionMarkets(context.Context, int) ([]marketdata.PredictionMarket, error) {
	return nil, w.err
}

func (w *fakeWarehouse) SocialSentiment(context.Context, string, time.Time) (*float64, error) {
	return w.social, w.err
}

func (w *fakeWarehouse) UpcomingEvents(_ context.Context, from, to time.Time) ([]marketdata.EconomicEvent, error) {
	w.eventsFrom, w.eventsTo = from, to
	return w.events, nil
}

func newLive(w *fakeWarehouse) *ClickHouse {
	return NewClickHouse(w, w, w, LiveConfig{Instrument: "ES"}, func() time.Time { return testNow })
}

func TestClickHouse_MarketConditions(t *testing.T) {
	w := &fakeWarehouse{
		quotes: map[string]*marketdata.Quote{
			"ES":  {Symbol: "ES", Price: 5005.25, ChangePct: 0.2, Volume: 1_200_000},
			"VIX": {Symbol: "VIX", Price: 21.5},
		},
		events: []marketdata.EconomicEvent{{Name: "CPI", Importance: "high"}},
	}

	mc, err := newLive(w).MarketConditions(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, mc)

	assert.Equal(t, 5005.25, *mc.Price)
	assert.Equal(t, 21.5, *mc.VIX)
	assert.InDelta(t, 1.0, mc.Completeness(), 1e-9)
	assert.Equal(t, testNow.Add(48*time.Hour), w.eventsTo)
}

func TestClickHouse_EmptyWarehouseReturnsNil(t *testing.T) {
	live := newLive(&fakeWarehouse{})
	ctx := context.Background()

	mc, err := live.MarketConditions(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, mc)

	news, err := live.News(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, news)

	tech, err := live.Technical(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, tech)
}

func TestClickHouse_TechnicalTrimsCandles(t *testing.T) {
	w := &fakeWarehouse{candles: fixedCandles(testNow, 120)}

	tech, err := newLive(w).Technical(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, tech)

	assert.Len(t, tech.Candles, fixedSnapshotLen)
	assert.Equal(t, w.candles[len(w.candles)-1], tech.Candles[len(tech.Candles)-1])
	assert.NotNil(t, tech.Indicators)
	assert.Len(t, tech.SupportLevels, 2)
}

func TestClickHouse_PropagatesErrors(t *testing.T) {
	w := &fakeWarehouse{err: errors.New("connection refused")}

	_, err := newLive(w).News(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "headlines")
}
