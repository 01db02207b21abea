package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps cache values as plain Redis strings under a key prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
	addr   string
}

// OpenRedis connects to rawURL (redis://...) and verifies the server answers
// PING. A value that is not a URL is treated as a host:port address.
func OpenRedis(ctx context.Context, rawURL, prefix string) (*RedisStore, error) {
	ctx = ensureContext(ctx)
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		opt = &redis.Options{Addr: rawURL}
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opt.Addr, err)
	}
	return NewRedisStore(client, prefix), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, addr: client.Options().Addr}
}

func (s *RedisStore) Name() string { return "redis:" + s.addr }

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ensureContext(ctx), s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ensureContext(ctx), s.prefix+key, value, 0).Err()
}

func (s *RedisStore) SetMany(ctx context.Context, values map[string]string) error {
	ctx = ensureContext(ctx)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range values {
			pipe.Set(ctx, s.prefix+key, value, 0)
		}
		return nil
	})
	return err
}

func (s *RedisStore) Close() error { return s.client.Close() }
