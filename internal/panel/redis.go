package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "armcalc:panel:"

// RedisStore persists panel states in Redis so they survive restarts and can
// be shared between instances. Expiry rides on Redis key TTLs.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a Redis-backed store over an existing client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(userID int64) string {
	return fmt.Sprintf("%s%d", redisKeyPrefix, userID)
}

func (r *RedisStore) Get(ctx context.Context, userID int64) (State, error) {
	raw, err := r.client.Get(ctx, redisKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewState(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("panel state get: %w", err)
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		// A corrupt entry is unrecoverable; start over.
		return NewState(), nil
	}
	if state.Expired(r.ttl) {
		return NewState(), nil
	}
	return state, nil
}

func (r *RedisStore) Save(ctx context.Context, userID int64, state State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("panel state encode: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("panel state save: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, redisKey(userID)).Err(); err != nil {
		return fmt.Errorf("panel state delete: %w", err)
	}
	return nil
}

// Sweep is a no-op: Redis expires keys on its own.
func (r *RedisStore) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}

var _ Store = (*RedisStore)(nil)
