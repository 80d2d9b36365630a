package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache хранит отметки «уже обработано» в Redis.
type RedisCache struct {
	client redis.Cmdable
	prefix string
}

// NewRedis создаёт кэш с префиксом ключей.
func NewRedis(client redis.Cmdable, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// Once выполняет fn, если ключ ещё не отмечен. Если fn вернула ошибку, отметка снимается.
// Ошибка Redis возвращается до вызова fn.
func (c *RedisCache) Once(ctx context.Context, key string, ttl time.Duration, fn func() error) (bool, error) {
	full := c.prefix + key
	ok, err := c.client.SetNX(ctx, full, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := fn(); err != nil {
		_ = c.client.Del(context.WithoutCancel(ctx), full).Err()
		return true, err
	}
	return true, nil
}
