package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisCache struct {
	rdb *redis.Client
}

// NewRedis connects to the redis instance at dsn and verifies the
// connection before returning.
func NewRedis(ctx context.Context, dsn string) (Cache, error) {
	opts, errParse := redis.ParseURL(dsn)
	if errParse != nil {
		return nil, errors.Join(errParse, ErrCache)
	}

	opts.PoolSize = 10
	opts.MinIdleConns = 5
	opts.ConnMaxIdleTime = 5 * time.Minute
	opts.ConnMaxLifetime = 30 * time.Minute

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if errPing := rdb.Ping(pingCtx).Err(); errPing != nil {
		return nil, errors.Join(errPing, ErrCache)
	}

	return &redisCache{rdb: rdb}, nil
}

func (c *redisCache) Has(ctx context.Context, key string) (bool, error) {
	count, errExists := c.rdb.Exists(ctx, key).Result()
	if errExists != nil {
		return false, errors.Join(errExists, ErrCache)
	}

	return count > 0, nil
}

func (c *redisCache) Get(ctx context.Context, key string, dest any) error {
	body, errGet := c.rdb.Get(ctx, key).Bytes()
	if errGet != nil {
		if errors.Is(errGet, redis.Nil) {
			return ErrMiss
		}

		return errors.Join(errGet, ErrCache)
	}

	if errDecode := json.Unmarshal(body, dest); errDecode != nil {
		return errors.Join(errDecode, ErrDecode)
	}

	return nil
}

func (c *redisCache) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	body, errEncode := json.Marshal(value)
	if errEncode != nil {
		return errors.Join(errEncode, ErrEncode)
	}

	if errSet := c.rdb.Set(ctx, key, body, ttl).Err(); errSet != nil {
		return errors.Join(errSet, ErrCache)
	}

	return nil
}

func (c *redisCache) Forever(ctx context.Context, key string, value any) error {
	return c.Put(ctx, key, value, 0)
}

func (c *redisCache) Forget(ctx context.Context, key string) error {
	if errDel := c.rdb.Del(ctx, key).Err(); errDel != nil {
		return errors.Join(errDel, ErrCache)
	}

	return nil
}
