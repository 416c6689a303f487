package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecouncil/internal/domain/report"
	"tradecouncil/internal/domain/report/reporttest"
	"tradecouncil/internal/testsupport"
)

func TestReportCache_Contract(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	reporttest.CacheContract(t, func(t *testing.T, now func() time.Time) report.Cache {
		client := testsupport.NewRedisClient(t, testsupport.LoadRedisConfigFromEnv(t))
		return NewReportCache(client, now)
	})
}

func TestReportCache_SkipsExpiredPut(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client := testsupport.NewRedisClient(t, testsupport.LoadRedisConfigFromEnv(t))
	clock := reporttest.NewClock(time.Now())
	cache := NewReportCache(client, clock.Now)
	ctx := context.Background()

	stale := reporttest.NewReport("u1", report.CategoryTechnical, clock.Now().Add(-time.Hour))
	require.NoError(t, cache.Put(ctx, "u1", report.CategoryTechnical, stale))

	exists, err := client.Exists(ctx, reportKey("u1", report.CategoryTechnical)).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestReportKey(t *testing.T) {
	assert.Equal(t, "report:u1:bullish_research", reportKey("u1", report.CategoryBullishResearch))
}
