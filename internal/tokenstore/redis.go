package tokenstore

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// tokenTTL caps how long a cached access token survives in redis.
// Google access tokens expire after an hour anyway.
const tokenTTL = time.Hour

// Redis is a Store backed by a redis instance, for deployments where
// the service restarts more often than the user re-authorizes.
type Redis struct {
	rc *redis.Client
}

func NewRedis(rc *redis.Client) *Redis {
	return &Redis{rc: rc}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rc.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.rc.Set(ctx, key, value, tokenTTL).Err()
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	return r.rc.Del(ctx, key).Err()
}
