package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisSet is a Set shared between processes through redis. Expiry is
// enforced by redis itself.
type RedisSet struct {
	client       redis.UniversalClient
	prefix       string
	expiresAfter time.Duration
}

// NewRedisSet wraps client. Keys are stored as prefix+key. The set takes
// ownership of client and closes it on Close.
func NewRedisSet(client redis.UniversalClient, prefix string, expiresAfter time.Duration) *RedisSet {
	return &RedisSet{
		client:       client,
		prefix:       prefix,
		expiresAfter: expiresAfter,
	}
}

func (r *RedisSet) Add(ctx context.Context, key string) error {
	err := r.client.Set(ctx, r.prefix+key, 1, r.expiresAfter).Err()
	return errors.Wrapf(err, "redis set %s", key)
}

func (r *RedisSet) Discard(ctx context.Context, key string) error {
	err := r.client.Del(ctx, r.prefix+key).Err()
	return errors.Wrapf(err, "redis del %s", key)
}

func (r *RedisSet) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+key).Result()
	if err != nil {
		return false, errors.Wrapf(err, "redis exists %s", key)
	}
	return n > 0, nil
}

func (r *RedisSet) Close() error {
	return r.client.Close()
}
