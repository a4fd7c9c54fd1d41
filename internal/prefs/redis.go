package prefs

import (
	"context"
	"fmt"

	"github.com/voyagen/goodytv/internal/cache"
)

// RedisKV stores a namespace as a Redis hash, for installations whose state
// lives server-side (kiosk or set-top deployments sharing one Redis).
type RedisKV struct {
	r   *cache.Redis
	key string
}

// NewRedisKV returns a namespace backed by the hash goodytv:prefs:<installation>:<namespace>.
func NewRedisKV(r *cache.Redis, installation, namespace string) *RedisKV {
	return &RedisKV{r: r, key: cache.Key("prefs", installation, namespace)}
}

func (k *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok, err := k.r.HashGet(ctx, k.key, key)
	if err != nil {
		return nil, false, fmt.Errorf("prefs hget %s %s: %w", k.key, key, err)
	}
	return v, ok, nil
}

func (k *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	if err := k.r.HashSet(ctx, k.key, key, value); err != nil {
		return fmt.Errorf("prefs hset %s %s: %w", k.key, key, err)
	}
	return nil
}

func (k *RedisKV) Delete(ctx context.Context, key string) error {
	if err := k.r.HashDel(ctx, k.key, key); err != nil {
		return fmt.Errorf("prefs hdel %s %s: %w", k.key, key, err)
	}
	return nil
}
