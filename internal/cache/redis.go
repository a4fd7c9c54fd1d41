package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voyagen/goodytv/internal/models"
)

// KeyPrefix namespaces every key goodytv writes.
const KeyPrefix = "goodytv:"

// ErrMiss is returned by License when nothing usable is cached.
var ErrMiss = errors.New("cache miss")

// Redis is the shared connection behind the license cache, client-state
// hashes, the notification queue and per-key locks.
type Redis struct {
	client *redis.Client
}

// New parses a Redis URL (e.g. "redis://host:6379/0"). Call Ping to verify
// the connection.
func New(rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Key joins parts under KeyPrefix, so Key("license", "dev1") is
// "goodytv:license:dev1".
func Key(parts ...string) string {
	return KeyPrefix + strings.Join(parts, ":")
}

// License returns the cached license for deviceID. A missing or undecodable
// entry is ErrMiss.
func (r *Redis) License(ctx context.Context, deviceID string) (*models.IssuedLicense, error) {
	key := Key("license", deviceID)
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	var lic models.IssuedLicense
	if err := json.Unmarshal(raw, &lic); err != nil || lic.LicenseKey == "" {
		return nil, ErrMiss
	}
	return &lic, nil
}

// StoreLicense caches lic under its device id for ttl.
func (r *Redis) StoreLicense(ctx context.Context, lic models.IssuedLicense, ttl time.Duration) error {
	key := Key("license", lic.DeviceID)
	data, err := json.Marshal(lic)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// ForgetLicense drops the cached license for deviceID, if any.
func (r *Redis) ForgetLicense(ctx context.Context, deviceID string) error {
	return r.Del(ctx, Key("license", deviceID))
}

// HashGet reads one field of a hash and reports whether it was present.
func (r *Redis) HashGet(ctx context.Context, key, field string) ([]byte, bool, error) {
	v, err := r.client.HGet(ctx, key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *Redis) HashSet(ctx context.Context, key, field string, value []byte) error {
	return r.client.HSet(ctx, key, field, value).Err()
}

func (r *Redis) HashDel(ctx context.Context, key, field string) error {
	return r.client.HDel(ctx, key, field).Err()
}

// Del deletes whole keys. Missing keys are not an error.
func (r *Redis) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}
