// Package entitlement tracks the per-installation trial clock and unlock
// status that gate premium features.
package entitlement

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voyagen/goodytv/internal/license"
	"github.com/voyagen/goodytv/internal/models"
	"github.com/voyagen/goodytv/internal/prefs"
)

// TrialDuration is how long premium features stay open before unlock.
const TrialDuration = 10 * time.Minute

// staticCodes ship with the client. Anyone with the binary can read them.
var staticCodes = []string{"GOODY2024", "PREMIUM123", "UNLOCK456"}

const (
	keyTrialStart = "trial_start_time"
	keyUnlocked   = "is_unlocked"
	keyIssuedKey  = "issued_license_key"
)

// State of the entitlement. TrialExpired is derived from the clock and
// never stored.
type State int

const (
	NotStarted State = iota
	TrialActive
	TrialExpired
	Unlocked
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case TrialActive:
		return "trial_active"
	case TrialExpired:
		return "trial_expired"
	case Unlocked:
		return "unlocked"
	}
	return "unknown"
}

// Status is what the countdown reports on each tick.
type Status struct {
	State     State
	Remaining time.Duration
}

// Remaining returns the trial time left at now for a trial started at start.
func Remaining(start, now time.Time) time.Duration {
	left := TrialDuration - now.Sub(start)
	if left < 0 {
		return 0
	}
	return left
}

// Machine persists its state in a prefs namespace (normally paywall_prefs).
type Machine struct {
	kv   prefs.KV
	log  *logrus.Entry
	now  func() time.Time
	tick time.Duration

	mu sync.Mutex
}

func New(kv prefs.KV, log *logrus.Entry) *Machine {
	return &Machine{kv: kv, log: log, now: time.Now, tick: time.Second}
}

// StartTrial records the trial start once. Later calls, and calls after
// unlock, change nothing.
func (m *Machine) StartTrial(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	unlocked, err := m.unlocked(ctx)
	if err != nil || unlocked {
		return err
	}
	_, started, err := m.trialStart(ctx)
	if err != nil || started {
		return err
	}
	ms := strconv.FormatInt(m.now().UnixMilli(), 10)
	if err := m.kv.Set(ctx, keyTrialStart, []byte(ms)); err != nil {
		return fmt.Errorf("save trial start: %w", err)
	}
	m.log.Info("trial started")
	return nil
}

// Current returns the state and remaining trial time.
func (m *Machine) Current(ctx context.Context) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status(ctx)
}

func (m *Machine) State(ctx context.Context) (State, error) {
	st, err := m.Current(ctx)
	return st.State, err
}

// Remaining returns the trial time left, zero once expired or unlocked.
func (m *Machine) Remaining(ctx context.Context) (time.Duration, error) {
	st, err := m.Current(ctx)
	return st.Remaining, err
}

// SetIssuedKey stores the license key the payment service minted for this
// device so Unlock can accept it.
func (m *Machine) SetIssuedKey(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.kv.Set(ctx, keyIssuedKey, []byte(license.Normalize(key))); err != nil {
		return fmt.Errorf("save issued key: %w", err)
	}
	return nil
}

// Unlock reports whether code was accepted. Storage failures are logged
// and reported as a rejection.
func (m *Machine) Unlock(ctx context.Context, code string) bool {
	if err := m.TryUnlock(ctx, code); err != nil {
		m.log.WithError(err).Debug("unlock rejected")
		return false
	}
	return true
}

// TryUnlock accepts a static code or the device's issued key. A rejected
// code wraps models.ErrUnlockRejected and leaves the state unchanged, so an
// unlocked device stays unlocked.
func (m *Machine) TryUnlock(ctx context.Context, code string) error {
	code = license.Normalize(code)

	m.mu.Lock()
	defer m.mu.Unlock()

	ok, err := m.accepts(ctx, code)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrUnlockRejected
	}
	if err := m.kv.Set(ctx, keyUnlocked, []byte("true")); err != nil {
		return fmt.Errorf("save unlock: %w", err)
	}
	m.log.Info("unlocked")
	return nil
}

// Countdown calls onTick immediately and then every second with the
// current status. It returns nil once the state is Unlocked, or ctx.Err()
// when ctx is done.
func (m *Machine) Countdown(ctx context.Context, onTick func(Status)) error {
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()
	for {
		st, err := m.Current(ctx)
		if err != nil {
			m.log.WithError(err).Warn("countdown: read state")
		} else {
			onTick(st)
			if st.State == Unlocked {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *Machine) accepts(ctx context.Context, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	for _, c := range staticCodes {
		if code == c {
			return true, nil
		}
	}
	issued, ok, err := m.kv.Get(ctx, keyIssuedKey)
	if err != nil {
		return false, fmt.Errorf("load issued key: %w", err)
	}
	return ok && len(issued) > 0 && subtle.ConstantTimeCompare(issued, []byte(code)) == 1, nil
}

func (m *Machine) status(ctx context.Context) (Status, error) {
	unlocked, err := m.unlocked(ctx)
	if err != nil {
		return Status{}, err
	}
	if unlocked {
		return Status{State: Unlocked}, nil
	}
	start, started, err := m.trialStart(ctx)
	if err != nil {
		return Status{}, err
	}
	if !started {
		return Status{State: NotStarted, Remaining: TrialDuration}, nil
	}
	left := Remaining(start, m.now())
	if left == 0 {
		return Status{State: TrialExpired}, nil
	}
	return Status{State: TrialActive, Remaining: left}, nil
}

func (m *Machine) unlocked(ctx context.Context) (bool, error) {
	raw, _, err := m.kv.Get(ctx, keyUnlocked)
	if err != nil {
		return false, fmt.Errorf("load unlock: %w", err)
	}
	return string(raw) == "true", nil
}

// trialStart returns the stored start. A missing, zero or unreadable value
// means the trial has not started.
func (m *Machine) trialStart(ctx context.Context) (time.Time, bool, error) {
	raw, ok, err := m.kv.Get(ctx, keyTrialStart)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load trial start: %w", err)
	}
	if !ok {
		return time.Time{}, false, nil
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms), true, nil
}
