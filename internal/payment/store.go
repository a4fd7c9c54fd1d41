package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/voyagen/goodytv/internal/models"
)

// ErrNotFound is returned by LicenseStore lookups when no license matches.
var ErrNotFound = errors.New("license not found")

// LicenseStore is the keyed record of issued licenses. Put replaces any
// earlier record for the same device, but the license issued for a checkout
// session stays findable through GetBySession after the device pays again.
type LicenseStore interface {
	Put(ctx context.Context, lic models.IssuedLicense) error
	GetByKey(ctx context.Context, deviceID string) (*models.IssuedLicense, error)
	GetBySession(ctx context.Context, sessionID string) (*models.IssuedLicense, error)
}

// MemoryStore keeps licenses in process memory. With a non-zero retention,
// records older than retention are treated as absent and swept on Put.
type MemoryStore struct {
	mu        sync.RWMutex
	byDevice  map[string]models.IssuedLicense
	bySession map[string]models.IssuedLicense
	retention time.Duration
	now       func() time.Time
}

// NewMemoryStore returns an empty store. retention 0 keeps records forever.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	return &MemoryStore{
		byDevice:  make(map[string]models.IssuedLicense),
		bySession: make(map[string]models.IssuedLicense),
		retention: retention,
		now:       time.Now,
	}
}

func (m *MemoryStore) Put(_ context.Context, lic models.IssuedLicense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byDevice[lic.DeviceID] = lic
	if lic.SessionID != "" {
		if _, seen := m.bySession[lic.SessionID]; !seen {
			m.bySession[lic.SessionID] = lic
		}
	}
	if m.retention > 0 {
		now := m.now()
		for id, l := range m.byDevice {
			if m.expired(l, now) {
				delete(m.byDevice, id)
			}
		}
		for id, l := range m.bySession {
			if m.expired(l, now) {
				delete(m.bySession, id)
			}
		}
	}
	return nil
}

// GetBySession returns the license first issued for sessionID.
func (m *MemoryStore) GetBySession(_ context.Context, sessionID string) (*models.IssuedLicense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.bySession[sessionID]
	if !ok || sessionID == "" || m.expired(l, m.now()) {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (m *MemoryStore) GetByKey(_ context.Context, deviceID string) (*models.IssuedLicense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.byDevice[deviceID]
	if !ok || m.expired(l, m.now()) {
		return nil, ErrNotFound
	}
	return &l, nil
}

// Len returns the number of device records held, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byDevice)
}

func (m *MemoryStore) expired(l models.IssuedLicense, now time.Time) bool {
	return m.retention > 0 && now.Sub(l.IssuedAt) > m.retention
}
