package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"benefit-orchestrator/internal/common/database"
	"benefit-orchestrator/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *database.RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestTieredCache_SetThenGet(t *testing.T) {
	mr, remote := setupRedis(t)
	c, err := New(1<<20, remote, logger.NewTestLogger(t))
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "records:cases", []byte(`[1]`), time.Minute))

	got, ok, err := c.Get(ctx, "records:cases")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[1]`, string(got))

	stored, err := mr.Get("records:cases")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, stored)
}

func TestTieredCache_BackfillsFromRedis(t *testing.T) {
	mr, remote := setupRedis(t)
	require.NoError(t, mr.Set("records:identities", `["x"]`))

	c, err := New(1<<20, remote, logger.NewTestLogger(t))
	require.NoError(t, err)
	defer c.Close()

	got, ok, err := c.Get(context.Background(), "records:identities")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `["x"]`, string(got))

	// L1 now serves it even after Redis loses the key.
	mr.Del("records:identities")
	got, ok, err = c.Get(context.Background(), "records:identities")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["x"]`, string(got))
}

func TestTieredCache_MissWithoutRemote(t *testing.T) {
	c, err := New(0, nil, logger.NewNoOpLogger())
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get(context.Background(), "absent")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Invalidate(context.Background(), "absent"))
}

func TestTieredCache_RedisFailureSurfaces(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectGet("records:cases").SetErr(errors.New("connection refused"))

	c, err := New(1<<20, database.NewRedisFromClient(client), logger.NewTestLogger(t))
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get(context.Background(), "records:cases")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
