package draft

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ert-inspection/internal/common/logger"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisBackend_RoundTripAndNoExpiry(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)

	store := NewStore(NewRedisBackend(client, "ert:draft:"), "smoke", CurrentSchemaVersion, logger.NewTestLogger(t))
	require.NoError(t, Set(ctx, store, "step", 2))
	require.NoError(t, Set(ctx, store, "info", map[string]string{"area": "Control Room"}))

	assert.True(t, mr.Exists("ert:draft:smoke_step"))
	assert.Zero(t, mr.TTL("ert:draft:smoke_step"))

	assert.Equal(t, 2, Get(ctx, store, "step", 1))
	assert.Equal(t, map[string]string{"area": "Control Room"}, Get[map[string]string](ctx, store, "info", nil))
}

func TestRedisBackend_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	backend := NewRedisBackend(client, "ert:draft:")

	for _, key := range []string{"apar_step", "apar_units", "apar_next_id", "hydrant_step"} {
		require.NoError(t, backend.Set(ctx, key, "x"))
	}

	require.NoError(t, backend.DeletePrefix(ctx, "apar_"))

	assert.False(t, mr.Exists("ert:draft:apar_step"))
	assert.False(t, mr.Exists("ert:draft:apar_units"))
	assert.False(t, mr.Exists("ert:draft:apar_next_id"))
	assert.True(t, mr.Exists("ert:draft:hydrant_step"))
}

func TestRedisBackend_GetAbsent(t *testing.T) {
	_, client := setupRedis(t)
	_, ok, err := NewRedisBackend(client, "").Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisBackend_ReadErrorFallsBackToDefault(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectGet("ert:draft:apar_step").SetErr(errors.New("connection reset"))

	store := NewStore(NewRedisBackend(client, "ert:draft:"), "apar", CurrentSchemaVersion, logger.NewTestLogger(t))
	assert.Equal(t, 1, Get(context.Background(), store, "step", 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisBackend_WriteErrorIsReported(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSet("ert:draft:apar_step", `.*`, 0).SetErr(errors.New("OOM"))

	store := NewStore(NewRedisBackend(client, "ert:draft:"), "apar", CurrentSchemaVersion, logger.NewTestLogger(t))
	err := Set(context.Background(), store, "step", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DRAFT_STORAGE_FAILED")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisBackend_DeletePrefixEscapesGlob(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	backend := NewRedisBackend(client, "ert:draft:")

	for _, key := range []string{"a*_step", "apar_step", "a?_units", "ab_units", "[ab]_step", "a_step"} {
		require.NoError(t, backend.Set(ctx, key, "x"))
	}

	require.NoError(t, backend.DeletePrefix(ctx, "a*_"))
	require.NoError(t, backend.DeletePrefix(ctx, "a?_"))
	require.NoError(t, backend.DeletePrefix(ctx, "[ab]_"))

	assert.False(t, mr.Exists("ert:draft:a*_step"))
	assert.False(t, mr.Exists("ert:draft:a?_units"))
	assert.False(t, mr.Exists("ert:draft:[ab]_step"))
	assert.True(t, mr.Exists("ert:draft:apar_step"))
	assert.True(t, mr.Exists("ert:draft:ab_units"))
	assert.True(t, mr.Exists("ert:draft:a_step"))
}

func TestEscapeGlob(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectScan(0, `ert:draft:h\[1\]\*\?\\_*`, scanBatch).SetVal([]string{}, 0)

	require.NoError(t, NewRedisBackend(client, "ert:draft:").DeletePrefix(context.Background(), `h[1]*?\_`))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "apar_", escapeGlob("apar_"))
}
