package datasource

import (
	"context"
	"math"
	"time"

	"tradecouncil/internal/domain/marketdata"
)

const (
	fixedTimeframe   = "1h"
	fixedHistory     = 60
	fixedSnapshotLen = 20
	fixedBasePrice   = 5000.0
	fixedVIX         = 18.0
)

var _ marketdata.DataSource = (*Fixed)(nil)

// Fixed returns deterministic inputs. It stands in for live feeds in
// development and is the fallback when live data is unavailable.
type Fixed struct {
	instrument string
	now        func() time.Time
}

func NewFixed(instrument string, now func() time.Time) *Fixed {
	if now == nil {
		now = time.Now
	}
	return &Fixed{instrument: instrument, now: now}
}

func (f *Fixed) MarketConditions(context.Context, string) (*marketdata.MarketConditions, error) {
	now := f.now().UTC()
	price := fixedBasePrice
	vix := fixedVIX

	return &marketdata.MarketConditions{
		Instrument:   f.instrument,
		Price:        &price,
		Change24hPct: 0.35,
		VIX:          &vix,
		Indices: []marketdata.IndexQuote{
			{Symbol: "SPX", Price: 5012.5, ChangePct: 0.31},
			{Symbol: "NDX", Price: 17640.25, ChangePct: 0.52},
		},
		EconomicEvents: []marketdata.EconomicEvent{
			{
				Name:        "FOMC Rate Decision",
				Importance:  "high",
				ScheduledAt: now.Add(26 * time.Hour).Truncate(time.Hour),
				Forecast:    "5.25%",
				Previous:    "5.25%",
			},
		},
	}, nil
}

func (f *Fixed) News(context.Context, string) (*marketdata.NewsDigest, error) {
	now := f.now().UTC()

	return &marketdata.NewsDigest{
		Instrument: f.instrument,
		Headlines: []marketdata.Headline{
			{Title: "Equities edge higher ahead of Fed decision", Source: "Reuters", PublishedAt: now.Add(-2 * time.Hour), Sentiment: 0.3},
			{Title: "Tech earnings beat lifts futures", Source: "Bloomberg", PublishedAt: now.Add(-5 * time.Hour), Sentiment: 0.6},
			{Title: "Treasury yields climb on sticky inflation", Source: "WSJ", PublishedAt: now.Add(-8 * time.Hour), Sentiment: -0.4},
		},
		PredictionMarkets: []marketdata.PredictionMarket{
			{Question: "Fed cuts rates at next meeting?", Probability: 0.22, Volume: 1_250_000},
		},
	}, nil
}

func (f *Fixed) Technical(context.Context, string) (*marketdata.TechnicalSnapshot, error) {
	candles := fixedCandles(f.now().UTC().Truncate(time.Hour), fixedHistory)
	support, resistance := PivotLevels(candles)

	return &marketdata.TechnicalSnapshot{
		Instrument:       f.instrument,
		Timeframe:        fixedTimeframe,
		Candles:          candles[len(candles)-fixedSnapshotLen:],
		Indicators:       ComputeIndicators(candles),
		SupportLevels:    support[:1],
		ResistanceLevels: resistance[:1],
	}, nil
}

// fixedCandles draws a gentle uptrend with a sine wobble, oldest first,
// the last candle opening at end
func fixedCandles(end time.Time, n int) []marketdata.Candle {
	candles := make([]marketdata.Candle, n)
	for i := range candles {
		base := fixedBasePrice - float64(n-1-i)*1.5 + 8*math.Sin(float64(i)/4)
		open := round2(base - 1)
		closePrice := round2(base + 1)
		candles[i] = marketdata.Candle{
			OpenTime: end.Add(-time.Duration(n-1-i) * time.Hour),
			Open:     open,
			High:     round2(math.Max(open, closePrice) + 3),
			Low:      round2(math.Min(open, closePrice) - 3),
			Close:    closePrice,
			Volume:   float64(10_000 + 250*(i%8)),
		}
	}
	return candles
}
