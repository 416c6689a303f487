package clickhouse

import (
	"context"
	"fmt"
	"slices"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"tradecouncil/internal/domain/marketdata"
	"tradecouncil/pkg/errors"
)

// MarketDataRepository reads quotes and candles from ClickHouse
type MarketDataRepository struct {
	conn driver.Conn
}

// NewMarketDataRepository creates a new market data repository
func NewMarketDataRepository(conn driver.Conn) *MarketDataRepository {
	return &MarketDataRepository{conn: conn}
}

// InsertCandles inserts OHLCV candles in batch
func (r *MarketDataRepository) InsertCandles(ctx context.Context, symbol, timeframe string, candles []marketdata.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO ohlcv (symbol, timeframe, open_time, open, high, low, close, volume)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare batch")
	}

	for _, c := range candles {
		if err := batch.Append(symbol, timeframe, c.OpenTime, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return errors.Wrap(err, "failed to append candle")
		}
	}

	return batch.Send()
}

// InsertQuote records a market snapshot
func (r *MarketDataRepository) InsertQuote(ctx context.Context, q marketdata.Quote) error {
	query := `
		INSERT INTO market_snapshots (symbol, price, change_pct, volume, timestamp)
		VALUES ($1, $2, $3, $4, $5)`

	return r.conn.Exec(ctx, query, q.Symbol, q.Price, q.ChangePct, q.Volume, q.Timestamp)
}

// LatestQuote returns the most recent snapshot for symbol, or nil if none
func (r *MarketDataRepository) LatestQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	var quotes []marketdata.Quote

	query := `
		SELECT symbol, price, change_pct, volume, timestamp
		FROM market_snapshots
		WHERE symbol = $1
		ORDER BY timestamp DESC
		LIMIT 1`

	if err := r.conn.Select(ctx, &quotes, query, symbol); err != nil {
		return nil, errors.Wrapf(err, "select latest quote %s", symbol)
	}
	if len(quotes) == 0 {
		return nil, nil
	}
	return &quotes[0], nil
}

type indexRow struct {
	Symbol    string  `ch:"symbol"`
	Price     float64 `ch:"price"`
	ChangePct float64 `ch:"change_pct"`
}

// IndexQuotes returns the latest level of each requested index
func (r *MarketDataRepository) IndexQuotes(ctx context.Context, symbols []string) ([]marketdata.IndexQuote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	var rows []indexRow

	query := `
		SELECT
			symbol,
			argMax(price, timestamp) AS price,
			argMax(change_pct, timestamp) AS change_pct
		FROM market_snapshots
		WHERE symbol IN ($1)
		GROUP BY symbol
		ORDER BY symbol`

	if err := r.conn.Select(ctx, &rows, query, symbols); err != nil {
		return nil, errors.Wrap(err, "select index quotes")
	}

	out := make([]marketdata.IndexQuote, 0, len(rows))
	for _, row := range rows {
		out = append(out, marketdata.IndexQuote{Symbol: row.Symbol, Price: row.Price, ChangePct: row.ChangePct})
	}
	return out, nil
}

// Candles returns up to limit most recent candles, oldest first
func (r *MarketDataRepository) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]marketdata.Candle, error) {
	var candles []marketdata.Candle

	sql := `
		SELECT open_time, open, high, low, close, volume
		FROM ohlcv
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY open_time DESC`

	args := []interface{}{symbol, timeframe}
	if limit > 0 {
		sql += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	if err := r.conn.Select(ctx, &candles, sql, args...); err != nil {
		return nil, errors.Wrapf(err, "select candles %s %s", symbol, timeframe)
	}

	slices.Reverse(candles)
	return candles, nil
}
