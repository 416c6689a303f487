package marketdata

import (
	"context"
	"time"
)

// Quote is the latest traded state of a symbol
type Quote struct {
	Symbol    string    `ch:"symbol" json:"symbol"`
	Price     float64   `ch:"price" json:"price"`
	ChangePct float64   `ch:"change_pct" json:"changePct"`
	Volume    float64   `ch:"volume" json:"volume"`
	Timestamp time.Time `ch:"timestamp" json:"timestamp"`
}

// IndexQuote is a reference index level used for market context
type IndexQuote struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"changePct"`
}

// EconomicEvent is a scheduled macro release
type EconomicEvent struct {
	Name        string    `json:"name"`
	Importance  string    `json:"importance"` // low, medium, high
	ScheduledAt time.Time `json:"scheduledAt"`
	Forecast    string    `json:"forecast,omitempty"`
	Previous    string    `json:"previous,omitempty"`
}

// MarketConditions is the market-data analyst input
type MarketConditions struct {
	Instrument     string          `json:"instrument"`
	Price          *float64        `json:"price,omitempty"`
	Change24hPct   float64         `json:"change24hPct"`
	Volume         *float64        `json:"volume,omitempty"`
	VIX            *float64        `json:"vix,omitempty"`
	Indices        []IndexQuote    `json:"indices,omitempty"`
	EconomicEvents []EconomicEvent `json:"economicEvents,omitempty"`
}

// Headline is a scored news item
type Headline struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
	Sentiment   float64   `json:"sentiment"` // -1..1
}

// PredictionMarket is a binary-outcome market price
type PredictionMarket struct {
	Question    string  `json:"question"`
	Probability float64 `json:"probability"`
	Volume      float64 `json:"volume"`
}

// NewsDigest is the news-sentiment analyst input
type NewsDigest struct {
	Instrument        string             `json:"instrument"`
	Headlines         []Headline         `json:"headlines,omitempty"`
	PredictionMarkets []PredictionMarket `json:"predictionMarkets,omitempty"`
	SocialSentiment   *float64           `json:"socialSentiment,omitempty"`
}

// Candle is one OHLCV bar
type Candle struct {
	OpenTime time.Time `ch:"open_time" json:"openTime"`
	Open     float64   `ch:"open" json:"open"`
	High     float64   `ch:"high" json:"high"`
	Low      float64   `ch:"low" json:"low"`
	Close    float64   `ch:"close" json:"close"`
	Volume   float64   `ch:"volume" json:"volume"`
}

// Indicators are derived from candles
type Indicators struct {
	RSI14      float64 `json:"rsi14"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macdSignal"`
	MACDHist   float64 `json:"macdHist"`
	SMA20      float64 `json:"sma20"`
	SMA50      float64 `json:"sma50"`
	ATR14      float64 `json:"atr14"`
}

// TechnicalSnapshot is the technical analyst input
type TechnicalSnapshot struct {
	Instrument       string      `json:"instrument"`
	Timeframe        string      `json:"timeframe"`
	Candles          []Candle    `json:"candles,omitempty"`
	Indicators       *Indicators `json:"indicators,omitempty"`
	SupportLevels    []float64   `json:"supportLevels,omitempty"`
	ResistanceLevels []float64   `json:"resistanceLevels,omitempty"`
}

// LastClose returns the close of the most recent candle
func (t *TechnicalSnapshot) LastClose() (float64, bool) {
	if len(t.Candles) == 0 {
		return 0, false
	}
	return t.Candles[len(t.Candles)-1].Close, true
}

// DataSource supplies analyst inputs for a subject.
// Implementations are chosen once at construction time.
type DataSource interface {
	MarketConditions(ctx context.Context, subject string) (*MarketConditions, error)
	News(ctx context.Context, subject string) (*NewsDigest, error)
	Technical(ctx context.Context, subject string) (*TechnicalSnapshot, error)
}
