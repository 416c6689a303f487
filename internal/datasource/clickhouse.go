package datasource

import (
	"context"
	"time"

	"tradecouncil/internal/domain/marketdata"
	"tradecouncil/pkg/errors"
)

// QuoteReader is satisfied by the ClickHouse market data repository
type QuoteReader interface {
	LatestQuote(ctx context.Context, symbol string) (*marketdata.Quote, error)
	IndexQuotes(ctx context.Context, symbols []string) ([]marketdata.IndexQuote, error)
	Candles(ctx context.Context, symbol, timeframe string, limit int) ([]marketdata.Candle, error)
}

// SentimentReader is satisfied by the ClickHouse sentiment repository
type SentimentReader interface {
	Headlines(ctx context.Context, symbol string, since time.Time, limit int) ([]marketdata.Headline, error)
	PredictionMarkets(ctx context.Context, limit int) ([]marketdata.PredictionMarket, error)
	SocialSentiment(ctx context.Context, symbol string, since time.Time) (*float64, error)
}

// CalendarReader is satisfied by the ClickHouse macro repository
type CalendarReader interface {
	UpcomingEvents(ctx context.Context, from, to time.Time) ([]marketdata.EconomicEvent, error)
}

// LiveConfig tunes the look-back windows of the live source
type LiveConfig struct {
	Instrument    string
	Timeframe     string
	VIXSymbol     string
	IndexSymbols  []string
	CandleLimit   int
	NewsWindow    time.Duration
	HeadlineLimit int
	MarketLimit   int
	EventHorizon  time.Duration
}

func (c LiveConfig) withDefaults() LiveConfig {
	if c.Timeframe == "" {
		c.Timeframe = "1h"
	}
	if c.VIXSymbol == "" {
		c.VIXSymbol = "VIX"
	}
	if c.IndexSymbols == nil {
		c.IndexSymbols = []string{"SPX", "NDX", "DJI"}
	}
	if c.CandleLimit <= 0 {
		c.CandleLimit = 200
	}
	if c.NewsWindow <= 0 {
		c.NewsWindow = 24 * time.Hour
	}
	if c.HeadlineLimit <= 0 {
		c.HeadlineLimit = 20
	}
	if c.MarketLimit <= 0 {
		c.MarketLimit = 5
	}
	if c.EventHorizon <= 0 {
		c.EventHorizon = 48 * time.Hour
	}
	return c
}

var _ marketdata.DataSource = (*ClickHouse)(nil)

// ClickHouse assembles analyst inputs from the market warehouse. A method
// returns nil, nil when the warehouse holds nothing for the instrument.
type ClickHouse struct {
	quotes    QuoteReader
	sentiment SentimentReader
	calendar  CalendarReader
	cfg       LiveConfig
	now       func() time.Time
}

func NewClickHouse(quotes QuoteReader, sentiment SentimentReader, calendar CalendarReader, cfg LiveConfig, now func() time.Time) *ClickHouse {
	if now == nil {
		now = time.Now
	}
	return &ClickHouse{
		quotes:    quotes,
		sentiment: sentiment,
		calendar:  calendar,
		cfg:       cfg.withDefaults(),
		now:       now,
	}
}

func (s *ClickHouse) MarketConditions(ctx context.Context, _ string) (*marketdata.MarketConditions, error) {
	quote, err := s.quotes.LatestQuote(ctx, s.cfg.Instrument)
	if err != nil {
		return nil, errors.Wrap(err, "latest quote")
	}
	if quote == nil {
		return nil, nil
	}

	mc := &marketdata.MarketConditions{
		Instrument:   s.cfg.Instrument,
		Price:        &quote.Price,
		Change24hPct: quote.ChangePct,
	}
	if quote.Volume > 0 {
		mc.Volume = &quote.Volume
	}

	vix, err := s.quotes.LatestQuote(ctx, s.cfg.VIXSymbol)
	if err != nil {
		return nil, errors.Wrap(err, "latest vix")
	}
	if vix != nil {
		mc.VIX = &vix.Price
	}

	if mc.Indices, err = s.quotes.IndexQuotes(ctx, s.cfg.IndexSymbols); err != nil {
		return nil, errors.Wrap(err, "index quotes")
	}

	now := s.now()
	if mc.EconomicEvents, err = s.calendar.UpcomingEvents(ctx, now, now.Add(s.cfg.EventHorizon)); err != nil {
		return nil, errors.Wrap(err, "economic calendar")
	}

	return mc, nil
}

func (s *ClickHouse) News(ctx context.Context, _ string) (*marketdata.NewsDigest, error) {
	since := s.now().Add(-s.cfg.NewsWindow)

	headlines, err := s.sentiment.Headlines(ctx, s.cfg.Instrument, since, s.cfg.HeadlineLimit)
	if err != nil {
		return nil, errors.Wrap(err, "headlines")
	}
	markets, err := s.sentiment.PredictionMarkets(ctx, s.cfg.MarketLimit)
	if err != nil {
		return nil, errors.Wrap(err, "prediction markets")
	}
	social, err := s.sentiment.SocialSentiment(ctx, s.cfg.Instrument, since)
	if err != nil {
		return nil, errors.Wrap(err, "social sentiment")
	}

	if len(headlines) == 0 && len(markets) == 0 && social == nil {
		return nil, nil
	}

	return &marketdata.NewsDigest{
		Instrument:        s.cfg.Instrument,
		Headlines:         headlines,
		PredictionMarkets: markets,
		SocialSentiment:   social,
	}, nil
}

func (s *ClickHouse) Technical(ctx context.Context, _ string) (*marketdata.TechnicalSnapshot, error) {
	candles, err := s.quotes.Candles(ctx, s.cfg.Instrument, s.cfg.Timeframe, s.cfg.CandleLimit)
	if err != nil {
		return nil, errors.Wrap(err, "candles")
	}
	if len(candles) == 0 {
		return nil, nil
	}

	support, resistance := PivotLevels(candles)

	snapshot := &marketdata.TechnicalSnapshot{
		Instrument:       s.cfg.Instrument,
		Timeframe:        s.cfg.Timeframe,
		Candles:          candles,
		Indicators:       ComputeIndicators(candles),
		SupportLevels:    support,
		ResistanceLevels: resistance,
	}
	if len(snapshot.Candles) > fixedSnapshotLen {
		snapshot.Candles = snapshot.Candles[len(snapshot.Candles)-fixedSnapshotLen:]
	}
	return snapshot, nil
}
