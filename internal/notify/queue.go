package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voyagen/goodytv/internal/cache"
	"github.com/voyagen/goodytv/internal/metrics"
)

// Queued hands messages to a Redis list so the webhook can acknowledge
// without waiting on the email provider. RunWorker drains the list.
type Queued struct {
	rds   *cache.Redis
	queue string
}

func NewQueued(rds *cache.Redis) *Queued {
	return &Queued{rds: rds, queue: cache.DefaultQueue}
}

func (q *Queued) NotifyLicense(ctx context.Context, msg LicenseMessage) error {
	return cache.Enqueue(ctx, q.rds, q.queue, cache.NotificationJob{
		To:         msg.To,
		Name:       msg.Name,
		DeviceID:   msg.DeviceID,
		LicenseKey: msg.LicenseKey,
	})
}

// RunWorker dequeues notification jobs and sends them with sink until ctx
// is cancelled. Failed sends are logged and dropped.
func RunWorker(ctx context.Context, rds *cache.Redis, sink Notifier, log *logrus.Entry) {
	log.Info("notification worker started")
	for {
		select {
		case <-ctx.Done():
			log.Info("notification worker stopping")
			return
		default:
		}

		job, err := cache.Dequeue(ctx, rds, cache.DefaultQueue, 5*time.Second)
		if err != nil {
			log.WithError(err).Warn("notification worker: dequeue")
			select {
			case <-ctx.Done():
			case <-time.After(2 * time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}

		msg := LicenseMessage{To: job.To, Name: job.Name, DeviceID: job.DeviceID, LicenseKey: job.LicenseKey}
		if err := sink.NotifyLicense(ctx, msg); err != nil {
			metrics.Notifications.WithLabelValues("failed").Inc()
			log.WithError(err).WithField("device_id", job.DeviceID).Warn("notification worker: send failed")
			continue
		}
		metrics.Notifications.WithLabelValues("sent").Inc()
	}
}
