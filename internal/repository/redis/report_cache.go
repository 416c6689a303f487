package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tradecouncil/internal/domain/report"
	"tradecouncil/pkg/errors"
)

var _ report.Cache = (*ReportCache)(nil)

// ReportCache stores the latest report per (subject, category) as JSON with a
// Redis TTL equal to the report's remaining lifetime
type ReportCache struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewReportCache(client redis.Cmdable, now func() time.Time) *ReportCache {
	if now == nil {
		now = time.Now
	}
	return &ReportCache{client: client, now: now}
}

func (c *ReportCache) Get(ctx context.Context, subject string, category report.Category) (*report.Report, error) {
	key := reportKey(subject, category)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", key)
	}

	var r report.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s", key)
	}

	// Redis expiry has second granularity; the report's own expiry is authoritative
	if !r.Fresh(c.now()) {
		return nil, nil
	}
	return &r, nil
}

func (c *ReportCache) Put(ctx context.Context, subject string, category report.Category, r *report.Report) error {
	ttl := r.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return nil
	}

	key := reportKey(subject, category)
	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrapf(err, "marshal report for %s", key)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return errors.Wrapf(err, "set %s", key)
	}
	return nil
}

func reportKey(subject string, category report.Category) string {
	return fmt.Sprintf("report:%s:%s", subject, category)
}
