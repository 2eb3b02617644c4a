package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paper-trader/src/interfaces"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pt:session:"

// RedisStore keeps session markers as expiring Redis keys.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to addr and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

// -----------------------------------------------------------------------------

func (r *RedisStore) Put(ctx context.Context, token string, userID string, ttl time.Duration) error {
	return r.client.Set(ctx, keyPrefix+token, userID, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, token string) (string, error) {
	userID, err := r.client.Get(ctx, keyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", interfaces.ErrSessionNotFound
	}
	return userID, err
}

func (r *RedisStore) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, keyPrefix+token).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
