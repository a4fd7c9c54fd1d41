package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrLocked is returned by TryLock when the lock is already held.
var ErrLocked = errors.New("lock is already held")

// unlockScript deletes the key only if it still holds the caller's token.
const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`

// TryLock attempts to acquire the lock at key with SET NX and a TTL. On
// success the returned func releases it; if another holder has it,
// ErrLocked is returned.
func TryLock(ctx context.Context, r *Redis, key string, ttl time.Duration) (unlock func(), err error) {
	token := randomToken()

	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("cache lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		// Background context: release must work after the request is cancelled.
		_ = r.client.Eval(context.Background(), unlockScript, []string{key}, token).Err()
	}, nil
}

// Locker waits for TryLock on prefix+key, retrying until it succeeds or ctx
// is done. It satisfies payment.Locker for multi-replica deployments.
type Locker struct {
	r      *Redis
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// NewLocker returns a Locker whose locks expire after ttl if never released.
func NewLocker(r *Redis, prefix string, ttl time.Duration) *Locker {
	return &Locker{r: r, prefix: prefix, ttl: ttl, retry: 50 * time.Millisecond}
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	for {
		unlock, err := TryLock(ctx, l.r, l.prefix+key, l.ttl)
		if err == nil {
			return unlock, nil
		}
		if !errors.Is(err, ErrLocked) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

func randomToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
