package ttlstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store shared by every API process using the same Redis.
type Redis struct {
	Client *redis.Client
	Prefix string
}

// NewRedis returns a Redis store namespacing keys under prefix.
func NewRedis(c *redis.Client, prefix string) *Redis {
	return &Redis{Client: c, Prefix: prefix}
}

func (r *Redis) key(k string) string { return r.Prefix + ":" + k }

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.Client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.Client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (r *Redis) Take(ctx context.Context, key string) (string, error) {
	v, err := r.Client.GetDel(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.Client.Del(ctx, r.key(key)).Err()
}
