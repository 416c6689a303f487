package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient_StartsEmpty(t *testing.T) {
	rdb := NewRedisClient(t, LoadRedisConfigFromEnv(t))
	ctx := context.Background()

	size, err := rdb.DBSize(ctx).Result()
	require.NoError(t, err)
	assert.Zero(t, size)

	key := "report:" + UniqueSubject() + ":technical"
	require.NoError(t, rdb.Set(ctx, key, "{}", time.Minute).Err())

	ttl, err := rdb.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
}
