package pin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const pinKeyPrefix = "pin:"

// redisCASRetries bounds the optimistic WATCH loop in CompareAndDelete.
const redisCASRetries = 5

// incrementAttemptsScript increments the attempt counter only when a record
// exists, so a raced-away record is reported instead of resurrected.
var incrementAttemptsScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
    return -1
end
return redis.call('HINCRBY', KEYS[1], 'attempts', 1)
`)

// RedisPinStore implements PinStore on Redis. Each record is a hash under
// pin:<userID> whose native key expiry doubles as the record TTL, so expired
// PINs are reaped by Redis itself. CompareAndDelete uses WATCH/MULTI
// optimistic transactions for at-most-once consumption.
type RedisPinStore struct {
	client *redis.Client
}

// NewRedisPinStore creates a Redis-backed pin store.
func NewRedisPinStore(client *redis.Client) *RedisPinStore {
	return &RedisPinStore{client: client}
}

func pinKey(userID uuid.UUID) string {
	return pinKeyPrefix + userID.String()
}

// Put creates or replaces the record for the user.
func (s *RedisPinStore) Put(ctx context.Context, record PinRecord) error {
	key := pinKey(record.UserID)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"user_id", record.UserID.String(),
			"hashed_pin", record.HashedPin,
			"created_at", record.CreatedAt.UTC().Format(time.RFC3339Nano),
			"expires_at", record.ExpiresAt.UTC().Format(time.RFC3339Nano),
			"attempts", record.Attempts,
			"max_attempts", record.MaxAttempts,
		)
		pipe.PExpireAt(ctx, key, record.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store pin record in redis: %w", err)
	}
	return nil
}

// Get returns the current record for the user.
func (s *RedisPinStore) Get(ctx context.Context, userID uuid.UUID) (PinRecord, error) {
	fields, err := s.client.HGetAll(ctx, pinKey(userID)).Result()
	if err != nil {
		return PinRecord{}, fmt.Errorf("failed to get pin record from redis: %w", err)
	}
	if len(fields) == 0 {
		return PinRecord{}, ErrPinNotFound
	}
	return parseRedisRecord(fields)
}

// Delete removes the record for the user, if any.
func (s *RedisPinStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.client.Del(ctx, pinKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete pin record from redis: %w", err)
	}
	return nil
}

// CompareAndDelete deletes the record iff predicate holds for it, retrying
// the optimistic transaction when a concurrent writer touches the key.
func (s *RedisPinStore) CompareAndDelete(ctx context.Context, userID uuid.UUID, predicate func(PinRecord) bool) (bool, error) {
	key := pinKey(userID)
	deleted := false

	txFn := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			deleted = false
			return nil
		}

		record, err := parseRedisRecord(fields)
		if err != nil {
			return err
		}
		if !predicate(record) {
			deleted = false
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err != nil {
			return err
		}
		deleted = true
		return nil
	}

	for i := 0; i < redisCASRetries; i++ {
		err := s.client.Watch(ctx, txFn, key)
		if err == nil {
			return deleted, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return false, fmt.Errorf("failed to compare-and-delete pin record: %w", err)
	}
	return false, fmt.Errorf("failed to compare-and-delete pin record: %w", errStoreConflict)
}

// IncrementAttempts adds one failed attempt and returns the new count.
func (s *RedisPinStore) IncrementAttempts(ctx context.Context, userID uuid.UUID) (int, error) {
	result, err := incrementAttemptsScript.Run(ctx, s.client, []string{pinKey(userID)}).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment attempts in redis: %w", err)
	}
	if result < 0 {
		return 0, ErrPinNotFound
	}
	return int(result), nil
}

func parseRedisRecord(fields map[string]string) (PinRecord, error) {
	userID, err := uuid.Parse(fields["user_id"])
	if err != nil {
		return PinRecord{}, fmt.Errorf("invalid user_id in redis record: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return PinRecord{}, fmt.Errorf("invalid created_at in redis record: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return PinRecord{}, fmt.Errorf("invalid expires_at in redis record: %w", err)
	}
	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		return PinRecord{}, fmt.Errorf("invalid attempts in redis record: %w", err)
	}
	maxAttempts, err := strconv.Atoi(fields["max_attempts"])
	if err != nil {
		return PinRecord{}, fmt.Errorf("invalid max_attempts in redis record: %w", err)
	}

	return PinRecord{
		UserID:      userID,
		HashedPin:   fields["hashed_pin"],
		CreatedAt:   createdAt,
		ExpiresAt:   expiresAt,
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
	}, nil
}
