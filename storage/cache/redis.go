// Package cache implements core.Cache on top of redis and process memory.
package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/classroom/core"
)

type Redis struct {
	rdb *redis.Client
}

var _ core.Cache = (*Redis)(nil) // interface compliance check

func NewRedis(conf *core.Config) *Redis {
	return &Redis{rdb: redis.NewClient(&redis.Options{
		Addr:     conf.Cache.Address,
		Password: conf.Cache.Password,
		DB:       conf.Cache.DB,
	})}
}

// Get reports a missing key as a miss, not an error.
func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "getting %s", key)
	}
	return val, true, nil
}

func (c *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return errors.Wrapf(c.rdb.Set(ctx, key, val, ttl).Err(), "setting %s", key)
}

func (c *Redis) Ping(ctx context.Context) error {
	return errors.Wrap(c.rdb.Ping(ctx).Err(), "pinging redis")
}

func (c *Redis) Close() error {
	return c.rdb.Close()
}
