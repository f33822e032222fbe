package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix = "idem:booking:"
	pendingMarker     = "pending"
)

// IdempotencyStore keeps commit keys in Redis. A key holds the pending marker while
// its commit runs and the booking id once it succeeds.
type IdempotencyStore struct {
	rdb *redis.Client
}

func NewIdempotencyStore(rdb *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb}
}

func (s *IdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	k := idempotencyPrefix + key

	ok, err := s.rdb.SetNX(ctx, k, pendingMarker, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}

	val, err := s.rdb.Get(ctx, k).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET; the caller retries
			return "", false, nil
		}
		return "", false, err
	}

	if val == pendingMarker {
		return "", false, nil
	}

	return val, false, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, bookingID string, ttl time.Duration) error {
	return s.rdb.Set(ctx, idempotencyPrefix+key, bookingID, ttl).Err()
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, idempotencyPrefix+key).Err()
}
