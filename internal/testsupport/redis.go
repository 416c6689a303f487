package testsupport

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"tradecouncil/internal/adapters/config"
	redisadapter "tradecouncil/internal/adapters/redis"
)

// NewRedisClient connects through the production adapter and gives the test
// an empty database. Point REDIS_DB at a database reserved for tests.
func NewRedisClient(t *testing.T, cfg config.RedisConfig) *redis.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	adapter, err := redisadapter.NewClient(ctx, cfg)
	require.NoError(t, err, "connect redis")

	rdb := adapter.Client()
	require.NoError(t, rdb.FlushDB(ctx).Err(), "flush redis db %d", cfg.DB)

	t.Cleanup(func() {
		_ = rdb.FlushDB(context.Background()).Err()
		_ = adapter.Close()
	})
	return rdb
}
