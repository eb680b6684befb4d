package storage

import (
	"context"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// Redis keeps each snapshot as a JSON string under prefix+name.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis accepts either host:port or a redis:// URL.
func NewRedis(ctx context.Context, addr string, prefix string) (*Redis, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, errors.Wrap(err, "parse REDIS_URL")
		}
		opts = parsed
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return NewRedisFromClient(rdb, prefix), nil
}

func NewRedisFromClient(rdb *redis.Client, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) key(name string) string { return r.prefix + name }

func (r *Redis) Load(ctx context.Context, name string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, r.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return emptyObject, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", name)
	}
	return b, nil
}

func (r *Redis) Save(ctx context.Context, name string, data []byte) error {
	return errors.Wrapf(r.rdb.Set(ctx, r.key(name), data, 0).Err(), "save %s", name)
}

func (r *Redis) Close() error { return r.rdb.Close() }
