package postgres

import (
	"context"

	"tradecouncil/pkg/errors"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS agent_reports (
		id          UUID PRIMARY KEY,
		subject_id  TEXT NOT NULL,
		category    TEXT NOT NULL,
		payload     JSONB NOT NULL,
		confidence  DOUBLE PRECISION NOT NULL,
		model_used  TEXT NOT NULL,
		latency_ms  BIGINT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		expires_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS agent_reports_subject_category_created
		ON agent_reports (subject_id, category, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS psychology_profiles (
		subject_id            TEXT PRIMARY KEY,
		fomo_score            DOUBLE PRECISION NOT NULL DEFAULT 0,
		revenge_trading_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		overtrading_score     DOUBLE PRECISION NOT NULL DEFAULT 0,
		loss_aversion_score   DOUBLE PRECISION NOT NULL DEFAULT 0,
		discipline_score      DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates missing tables and indexes. It is idempotent.
func Migrate(ctx context.Context, db DBTX) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "postgres migrate")
		}
	}
	return nil
}
