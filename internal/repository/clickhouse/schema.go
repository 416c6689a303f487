package clickhouse

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"tradecouncil/pkg/errors"
)

// Tables read by the live data source and written by the analytics sink.
// Ingestion into the market tables happens outside this service.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ohlcv (
		symbol    LowCardinality(String),
		timeframe LowCardinality(String),
		open_time DateTime64(3, 'UTC'),
		open      Float64,
		high      Float64,
		low       Float64,
		close     Float64,
		volume    Float64
	) ENGINE = ReplacingMergeTree()
	ORDER BY (symbol, timeframe, open_time)`,

	`CREATE TABLE IF NOT EXISTS market_snapshots (
		symbol     LowCardinality(String),
		price      Float64,
		change_pct Float64,
		volume     Float64,
		timestamp  DateTime64(3, 'UTC')
	) ENGINE = MergeTree()
	ORDER BY (symbol, timestamp)
	TTL toDateTime(timestamp) + INTERVAL 30 DAY`,

	`CREATE TABLE IF NOT EXISTS news (
		title        String,
		source       LowCardinality(String),
		symbols      Array(String),
		published_at DateTime64(3, 'UTC'),
		sentiment    Float64
	) ENGINE = MergeTree()
	ORDER BY published_at`,

	`CREATE TABLE IF NOT EXISTS prediction_markets (
		question    String,
		probability Float64,
		volume      Float64,
		resolved    UInt8,
		updated_at  DateTime64(3, 'UTC')
	) ENGINE = MergeTree()
	ORDER BY (question, updated_at)`,

	`CREATE TABLE IF NOT EXISTS social_sentiment (
		symbol    LowCardinality(String),
		score     Float64,
		timestamp DateTime64(3, 'UTC')
	) ENGINE = MergeTree()
	ORDER BY (symbol, timestamp)`,

	`CREATE TABLE IF NOT EXISTS macro_events (
		title      String,
		impact     LowCardinality(String),
		event_time DateTime64(3, 'UTC'),
		forecast   String,
		previous   String
	) ENGINE = ReplacingMergeTree()
	ORDER BY (event_time, title)`,

	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		run_id          UUID,
		subject_id      String,
		mode            LowCardinality(String),
		action          LowCardinality(String),
		direction       LowCardinality(String),
		confidence      Int32,
		consensus_score Float64,
		quick_consensus Bool,
		decision        LowCardinality(String),
		risk_score      Float64,
		inference_calls Int64,
		latency_ms      Int64,
		error           String,
		completed_at    DateTime64(3, 'UTC')
	) ENGINE = MergeTree()
	ORDER BY (completed_at, subject_id)`,
}

// Migrate creates missing tables. It is idempotent.
func Migrate(ctx context.Context, conn driver.Conn) error {
	for _, stmt := range schema {
		if err := conn.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "clickhouse migrate")
		}
	}
	return nil
}
