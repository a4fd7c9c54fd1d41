package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NotificationJob is a license notification waiting to be sent.
type NotificationJob struct {
	To         string `json:"to"`
	Name       string `json:"name,omitempty"`
	DeviceID   string `json:"device_id"`
	LicenseKey string `json:"license_key"`
}

// DefaultQueue is the Redis list holding pending notifications.
const DefaultQueue = KeyPrefix + "jobs:notifications"

// Enqueue pushes a job onto the left side of a Redis list.
func Enqueue(ctx context.Context, r *Redis, queue string, job NotificationJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue marshal: %w", err)
	}
	return r.client.LPush(ctx, queue, data).Err()
}

// Dequeue blocks until a job is available or the timeout expires. A
// timeout or a cancelled ctx yields (nil, nil) so the caller can loop.
func Dequeue(ctx context.Context, r *Redis, queue string, timeout time.Duration) (*NotificationJob, error) {
	result, err := r.client.BRPop(ctx, timeout, queue).Result()
	if err != nil {
		if err == redis.Nil || ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("queue dequeue: %w", err)
	}
	// [key, value]
	if len(result) < 2 {
		return nil, nil
	}
	var job NotificationJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("queue unmarshal: %w", err)
	}
	return &job, nil
}
