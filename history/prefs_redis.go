package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisTimeout = 2 * time.Second

// RedisPrefs is a PrefStore on a Redis server, for hosts whose preferences
// live outside the machine. Each key is stored as a plain string under prefix.
type RedisPrefs struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
}

// NewRedisPrefs wraps client. timeout bounds each call (2s if <= 0).
func NewRedisPrefs(client redis.UniversalClient, prefix string, timeout time.Duration) *RedisPrefs {
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}
	return &RedisPrefs{client: client, prefix: prefix, timeout: timeout}
}

func (r *RedisPrefs) GetString(key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %q: %w", key, err)
	}
	return v, nil
}

func (r *RedisPrefs) SetString(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Close closes the client.
func (r *RedisPrefs) Close() error {
	return r.client.Close()
}
