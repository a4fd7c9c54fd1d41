// Package payment issues license keys when a checkout completes and answers
// payment-status lookups for polling clients.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"

	"github.com/voyagen/goodytv/internal/license"
	"github.com/voyagen/goodytv/internal/metrics"
	"github.com/voyagen/goodytv/internal/models"
	"github.com/voyagen/goodytv/internal/notify"
)

// Checkout is the part of a completed checkout session the service uses.
type Checkout struct {
	SessionID string
	DeviceID  string // client reference; empty falls back to a synthetic id
	Email     string
	Name      string
}

// Outcome reports what HandleEvent did.
type Outcome struct {
	Ignored   bool // event type does not issue licenses
	Duplicate bool // session already recorded; the stored license was reused
	Fallback  bool // no client reference; the license cannot be polled for
	Notified  bool
	License   *models.IssuedLicense
}

// Status is the payment-status answer for one device.
type Status struct {
	Paid       bool   `json:"paid"`
	LicenseKey string `json:"licenseKey,omitempty"`
	Timestamp  int64  `json:"timestamp,omitempty"` // issuedAt, unix millis
}

// IssuedAt returns Timestamp as a time, or the zero time when unpaid.
func (s Status) IssuedAt() time.Time {
	if s.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.Timestamp)
}

type Service struct {
	store    LicenseStore
	notifier notify.Notifier
	local    *KeyedMutex
	remote   Locker
	log      *logrus.Entry
	now      func() time.Time
}

// NewService wires the license store and notification sink. notifier may
// be nil, in which case no notification is attempted.
func NewService(store LicenseStore, notifier notify.Notifier, log *logrus.Entry) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		local:    NewKeyedMutex(),
		log:      log,
		now:      time.Now,
	}
}

// SetDistributedLock adds a cross-process lock taken after the in-process
// one, for deployments running several replicas against one store.
func (s *Service) SetDistributedLock(l Locker) {
	s.remote = l
}

// HandleEvent processes a verified webhook event. Only completed checkout
// sessions issue a license; every other type is ignored.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) (Outcome, error) {
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		s.log.WithFields(logrus.Fields{"event_id": event.ID, "type": event.Type}).Debug("ignoring event")
		return Outcome{Ignored: true}, nil
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return Outcome{}, fmt.Errorf("event %s has no data: %w", event.ID, models.ErrParseDegraded)
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return Outcome{}, fmt.Errorf("unmarshal checkout.session: %w", errors.Join(models.ErrParseDegraded, err))
	}

	c := Checkout{SessionID: sess.ID, DeviceID: sess.ClientReferenceID, Email: sess.CustomerEmail}
	if sess.CustomerDetails != nil {
		if sess.CustomerDetails.Email != "" {
			c.Email = sess.CustomerDetails.Email
		}
		c.Name = sess.CustomerDetails.Name
	}
	return s.Complete(ctx, c)
}

// Complete records a license for a paid checkout and then tries to notify
// the customer. A notification failure is logged and does not undo the
// recorded license. Redelivery of an already recorded session, in any order
// and with or without a client reference, returns the license first issued
// for it without deriving a new key or notifying again.
func (s *Service) Complete(ctx context.Context, c Checkout) (Outcome, error) {
	now := s.now().UTC().Truncate(time.Millisecond)
	out := Outcome{Fallback: c.DeviceID == ""}

	if c.SessionID != "" {
		unlock, err := s.lock(ctx, "session:"+c.SessionID)
		if err != nil {
			return Outcome{}, err
		}
		defer unlock()
		lic, err := s.store.GetBySession(ctx, c.SessionID)
		switch {
		case err == nil:
			out.License, out.Duplicate = lic, true
			metrics.LicensesIssued.WithLabelValues("duplicate").Inc()
			s.log.WithFields(logrus.Fields{"device_id": lic.DeviceID, "session_id": c.SessionID}).
				Info("checkout already recorded, reusing license")
			return out, nil
		case !errors.Is(err, ErrNotFound):
			return Outcome{}, fmt.Errorf("load session %s: %w", c.SessionID, err)
		}
	}

	if out.Fallback {
		c.DeviceID = fmt.Sprintf("device_%d", now.UnixMilli())
		s.log.WithField("session_id", c.SessionID).Warn("checkout has no client reference, license will not be retrievable by a device")
	}
	log := s.log.WithFields(logrus.Fields{"device_id": c.DeviceID, "session_id": c.SessionID})

	lic, err := s.record(ctx, c, now)
	if err != nil {
		return Outcome{}, err
	}
	out.License = lic
	source := "client_reference"
	if out.Fallback {
		source = "fallback"
	}
	metrics.LicensesIssued.WithLabelValues(source).Inc()
	log.WithField("license_key", lic.LicenseKey).Info("license issued")

	out.Notified = s.notify(ctx, log, c, lic)
	return out, nil
}

// CheckPayment reports whether a license has been issued for deviceID.
func (s *Service) CheckPayment(ctx context.Context, deviceID string) (Status, error) {
	lic, err := s.store.GetByKey(ctx, deviceID)
	if errors.Is(err, ErrNotFound) {
		metrics.PaymentChecks.WithLabelValues("false").Inc()
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("check payment %s: %w", deviceID, err)
	}
	metrics.PaymentChecks.WithLabelValues("true").Inc()
	return Status{Paid: true, LicenseKey: lic.LicenseKey, Timestamp: lic.IssuedAt.UnixMilli()}, nil
}

func (s *Service) record(ctx context.Context, c Checkout, now time.Time) (*models.IssuedLicense, error) {
	unlock, err := s.lock(ctx, "device:"+c.DeviceID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	lic := models.IssuedLicense{
		DeviceID:   c.DeviceID,
		LicenseKey: license.DeriveKey(c.DeviceID, now),
		IssuedAt:   now,
		SessionID:  c.SessionID,
		Email:      c.Email,
	}
	if err := s.store.Put(ctx, lic); err != nil {
		return nil, fmt.Errorf("record license %s: %w", c.DeviceID, err)
	}
	return &lic, nil
}

// lock takes the in-process lock for key, then the distributed one if set.
// Session locks are always taken before device locks.
func (s *Service) lock(ctx context.Context, key string) (func(), error) {
	unlockLocal, err := s.local.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	if s.remote == nil {
		return unlockLocal, nil
	}
	unlockRemote, err := s.remote.Lock(ctx, key)
	if err != nil {
		unlockLocal()
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	return func() {
		unlockRemote()
		unlockLocal()
	}, nil
}

func (s *Service) notify(ctx context.Context, log *logrus.Entry, c Checkout, lic *models.IssuedLicense) bool {
	if s.notifier == nil {
		return false
	}
	if c.Email == "" {
		log.Warn("checkout has no email, license not sent")
		metrics.Notifications.WithLabelValues("skipped").Inc()
		return false
	}
	err := s.notifier.NotifyLicense(ctx, notify.LicenseMessage{
		To:         c.Email,
		Name:       c.Name,
		DeviceID:   lic.DeviceID,
		LicenseKey: lic.LicenseKey,
	})
	if err != nil {
		log.WithError(err).Error("license notification failed")
		metrics.Notifications.WithLabelValues("failed").Inc()
		return false
	}
	metrics.Notifications.WithLabelValues("dispatched").Inc()
	return true
}
