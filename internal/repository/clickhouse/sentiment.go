package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"tradecouncil/internal/domain/marketdata"
	"tradecouncil/pkg/errors"
)

// SentimentRepository reads news, prediction markets and social scores
type SentimentRepository struct {
	conn driver.Conn
}

// NewSentimentRepository creates a new sentiment repository
func NewSentimentRepository(conn driver.Conn) *SentimentRepository {
	return &SentimentRepository{conn: conn}
}

type headlineRow struct {
	Title       string    `ch:"title"`
	Source      string    `ch:"source"`
	PublishedAt time.Time `ch:"published_at"`
	Sentiment   float64   `ch:"sentiment"`
}

// Headlines returns scored news tagged with symbol, newest first
func (r *SentimentRepository) Headlines(ctx context.Context, symbol string, since time.Time, limit int) ([]marketdata.Headline, error) {
	var rows []headlineRow

	query := `
		SELECT title, source, published_at, sentiment
		FROM news
		WHERE has(symbols, $1) AND published_at >= $2
		ORDER BY published_at DESC
		LIMIT $3`

	if err := r.conn.Select(ctx, &rows, query, symbol, since, limit); err != nil {
		return nil, errors.Wrap(err, "select headlines")
	}

	out := make([]marketdata.Headline, 0, len(rows))
	for _, row := range rows {
		out = append(out, marketdata.Headline(row))
	}
	return out, nil
}

type predictionRow struct {
	Question    string  `ch:"question"`
	Probability float64 `ch:"probability"`
	Volume      float64 `ch:"volume"`
}

// PredictionMarkets returns the most traded open markets
func (r *SentimentRepository) PredictionMarkets(ctx context.Context, limit int) ([]marketdata.PredictionMarket, error) {
	var rows []predictionRow

	query := `
		SELECT
			question,
			argMax(probability, updated_at) AS probability,
			argMax(volume, updated_at) AS volume
		FROM prediction_markets
		WHERE resolved = 0
		GROUP BY question
		ORDER BY volume DESC
		LIMIT $1`

	if err := r.conn.Select(ctx, &rows, query, limit); err != nil {
		return nil, errors.Wrap(err, "select prediction markets")
	}

	out := make([]marketdata.PredictionMarket, 0, len(rows))
	for _, row := range rows {
		out = append(out, marketdata.PredictionMarket(row))
	}
	return out, nil
}

// SocialSentiment returns the mean social score since the given time,
// or nil when nothing was collected
func (r *SentimentRepository) SocialSentiment(ctx context.Context, symbol string, since time.Time) (*float64, error) {
	var (
		score float64
		count uint64
	)

	query := `
		SELECT avg(score), count()
		FROM social_sentiment
		WHERE symbol = $1 AND timestamp >= $2`

	if err := r.conn.QueryRow(ctx, query, symbol, since).Scan(&score, &count); err != nil {
		return nil, errors.Wrap(err, "aggregate social sentiment")
	}
	if count == 0 {
		return nil, nil
	}
	return &score, nil
}
