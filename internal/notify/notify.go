// Package notify delivers issued license keys to customers.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LicenseMessage is everything a notification about an issued key needs.
type LicenseMessage struct {
	To         string `json:"to"`
	Name       string `json:"name,omitempty"`
	DeviceID   string `json:"device_id"`
	LicenseKey string `json:"license_key"`
}

// Notifier sends a license message. Implementations must be safe for
// concurrent use.
type Notifier interface {
	NotifyLicense(ctx context.Context, msg LicenseMessage) error
}

// LogNotifier writes the message to the log instead of sending it. Used when
// no email provider is configured.
type LogNotifier struct {
	Log *logrus.Entry
}

func (n LogNotifier) NotifyLicense(_ context.Context, msg LicenseMessage) error {
	n.Log.WithFields(logrus.Fields{
		"to":          msg.To,
		"device_id":   msg.DeviceID,
		"license_key": msg.LicenseKey,
	}).Info("license notification (not sent, no email provider configured)")
	return nil
}
