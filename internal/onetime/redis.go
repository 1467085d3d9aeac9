package onetime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ Store[string] = (*RedisStore[string])(nil)

// RedisStore keeps values as JSON under a key prefix. Take relies on GETDEL, so the
// one-time guarantee holds across server instances.
type RedisStore[T any] struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore[T any](client redis.UniversalClient, prefix string) *RedisStore[T] {
	return &RedisStore[T]{client: client, prefix: prefix}
}

func (s *RedisStore[T]) Put(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "[RedisStore.Put] json.Marshal")
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.Put] SET")
	}
	return nil
}

func (s *RedisStore[T]) Take(ctx context.Context, key string) (T, bool, error) {
	var value T
	data, err := s.client.GetDel(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return value, false, nil
	}
	if err != nil {
		return value, false, errors.Wrap(err, "[RedisStore.Take] GETDEL")
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, false, errors.Wrap(err, "[RedisStore.Take] json.Unmarshal")
	}
	return value, true, nil
}
