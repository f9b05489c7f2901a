package pin

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*RedisPinStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisPinStore(client), mr
}

func TestRedisPinStore_Contract(t *testing.T) {
	runPinStoreContract(t, func(t *testing.T) PinStore {
		store, _ := setupRedisStore(t)
		return store
	})
}

func TestRedisPinStore_KeyExpiry(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()
	userID := uuid.New()

	record := testRecord(userID)
	record.ExpiresAt = record.CreatedAt.Add(30 * time.Second)
	require.NoError(t, store.Put(ctx, record))

	// Redis reaps the key at the record's expiry on its own
	mr.FastForward(31 * time.Second)

	_, err := store.Get(ctx, userID)
	assert.ErrorIs(t, err, ErrPinNotFound)

	_, err = store.IncrementAttempts(ctx, userID)
	assert.ErrorIs(t, err, ErrPinNotFound)
}

func TestRedisPinStore_PutResetsExpiry(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()
	userID := uuid.New()

	short := testRecord(userID)
	short.ExpiresAt = short.CreatedAt.Add(10 * time.Second)
	require.NoError(t, store.Put(ctx, short))

	long := testRecord(userID)
	long.ExpiresAt = long.CreatedAt.Add(time.Minute)
	require.NoError(t, store.Put(ctx, long))

	mr.FastForward(30 * time.Second)

	got, err := store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, long.HashedPin, got.HashedPin)
}
