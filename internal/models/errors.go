package models

import "errors"

// Error kinds shared across packages. Callers wrap them with %w and
// branch with errors.Is.
var (
	// ErrParseDegraded marks input that parsed partially or not at all.
	// It is logged, never surfaced as a hard failure.
	ErrParseDegraded = errors.New("parse degraded")
	// ErrFetchFailed marks a network or HTTP failure; retryable by the user.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrAuthInvalid marks a webhook whose signature did not verify.
	ErrAuthInvalid = errors.New("webhook signature invalid")
	// ErrUnlockRejected marks an unlock code that matched nothing.
	ErrUnlockRejected = errors.New("unlock code rejected")
)
