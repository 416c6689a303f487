package datasource

import (
	"context"

	"tradecouncil/internal/domain/marketdata"
	"tradecouncil/pkg/logger"
)

var _ marketdata.DataSource = (*Fallback)(nil)

// Fallback serves from primary and switches to secondary, per call, when
// primary fails or has nothing for the subject
type Fallback struct {
	primary   marketdata.DataSource
	secondary marketdata.DataSource
	log       *logger.Logger
}

func WithFallback(primary, secondary marketdata.DataSource, log *logger.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, log: log.With("component", "datasource")}
}

func (f *Fallback) MarketConditions(ctx context.Context, subject string) (*marketdata.MarketConditions, error) {
	return fallback(ctx, f, subject, "market_conditions", marketdata.DataSource.MarketConditions)
}

func (f *Fallback) News(ctx context.Context, subject string) (*marketdata.NewsDigest, error) {
	return fallback(ctx, f, subject, "news", marketdata.DataSource.News)
}

func (f *Fallback) Technical(ctx context.Context, subject string) (*marketdata.TechnicalSnapshot, error) {
	return fallback(ctx, f, subject, "technical", marketdata.DataSource.Technical)
}

func fallback[T any](
	ctx context.Context,
	f *Fallback,
	subject, input string,
	get func(marketdata.DataSource, context.Context, string) (*T, error),
) (*T, error) {
	v, err := get(f.primary, ctx, subject)
	if err == nil && v != nil {
		return v, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if err != nil {
		f.log.Warnw("Live data unavailable, using fallback", "input", input, "subject", subject, "error", err)
	} else {
		f.log.Infow("No live data, using fallback", "input", input, "subject", subject)
	}
	return get(f.secondary, ctx, subject)
}
