package store

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voyagen/goodytv/internal/cache"
	"github.com/voyagen/goodytv/internal/models"
	"github.com/voyagen/goodytv/internal/payment"
)

const ttlLicense = 10 * time.Minute

// CachedLicenseStore serves GetByKey from Redis when possible. Only found
// licenses are cached, so a polling device sees its license on the first
// poll after Put.
type CachedLicenseStore struct {
	inner payment.LicenseStore
	cache *cache.Redis
	log   *logrus.Entry
}

// NewCachedLicenseStore wraps inner with Redis caching.
func NewCachedLicenseStore(inner payment.LicenseStore, c *cache.Redis, log *logrus.Entry) *CachedLicenseStore {
	return &CachedLicenseStore{inner: inner, cache: c, log: log}
}

func (c *CachedLicenseStore) GetByKey(ctx context.Context, deviceID string) (*models.IssuedLicense, error) {
	lic, err := c.cache.License(ctx, deviceID)
	if err == nil {
		return lic, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		c.log.WithError(err).WithField("device_id", deviceID).Warn("license cache read")
	}
	lic, err = c.inner.GetByKey(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if err := c.cache.StoreLicense(ctx, *lic, ttlLicense); err != nil {
		c.log.WithError(err).WithField("device_id", deviceID).Warn("license cache write")
	}
	return lic, nil
}

// GetBySession is only consulted on webhook delivery and is not cached.
func (c *CachedLicenseStore) GetBySession(ctx context.Context, sessionID string) (*models.IssuedLicense, error) {
	return c.inner.GetBySession(ctx, sessionID)
}

// Put writes through to inner, then drops the cached entry.
func (c *CachedLicenseStore) Put(ctx context.Context, lic models.IssuedLicense) error {
	if err := c.inner.Put(ctx, lic); err != nil {
		return err
	}
	if err := c.cache.ForgetLicense(ctx, lic.DeviceID); err != nil {
		c.log.WithError(err).WithField("device_id", lic.DeviceID).Warn("license cache drop")
	}
	return nil
}
